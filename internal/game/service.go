// Package game provides the HTTP handlers for the simulated trading game:
// the per-user game view, buy/sell/reset operations, and instrument
// catalog management.
//
// All monetary values use shopspring/decimal — never float64 for money.
package game

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/catalog"
	"github.com/arthuur01/capitalplay/internal/identity"
	"github.com/arthuur01/capitalplay/internal/metrics"
	"github.com/arthuur01/capitalplay/internal/model"
	"github.com/arthuur01/capitalplay/internal/sim"
)

// Service handles game and catalog operations.
type Service struct {
	catalog catalog.Catalog
	manager *Manager
	hub     *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates the game service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(cat catalog.Catalog, manager *Manager, hub *WSHub) *Service {
	return &Service{
		catalog: cat,
		manager: manager,
		hub:     hub,
	}
}

// --- Request/Response types ---

// GameResponse is the read model for GET /api/v1/game.
type GameResponse struct {
	Instruments []model.Instrument `json:"instruments"`
	Summary     model.Summary      `json:"summary"`
}

// TradeRequest is the JSON body for POST /api/v1/game/{buy,sell}.
type TradeRequest struct {
	InstrumentID string `json:"instrument_id"`
}

// TradeResponse is returned from a successful trade.
type TradeResponse struct {
	Trade   sim.Trade     `json:"trade"`
	Summary model.Summary `json:"summary"`
	Notice  string        `json:"notice"`
}

// ResetResponse is returned from POST /api/v1/game/reset.
type ResetResponse struct {
	Summary model.Summary `json:"summary"`
	Notice  string        `json:"notice"`
}

// CreateInstrumentRequest is the JSON body for POST /api/v1/instruments.
type CreateInstrumentRequest struct {
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// UpdateInstrumentRequest is the whitelisted partial-update body for
// PATCH /api/v1/instruments/{instrumentID}. Absent fields are unchanged.
type UpdateInstrumentRequest struct {
	Name   *string          `json:"name"`
	Symbol *string          `json:"symbol"`
	Price  *decimal.Decimal `json:"price"`
}

// --- Game handlers ---

// GetGame handles GET /api/v1/game
// Returns the caller's live instrument set with derived portfolio totals.
// The session is created (and its ticker started) on first access.
func (s *Service) GetGame(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromRequest(r)
	if userID == "" {
		writeError(w, "identity required", http.StatusUnauthorized)
		return
	}

	sess, err := s.manager.Session(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load game", http.StatusInternalServerError)
		return
	}

	instruments, summary := sess.Snapshot()
	writeJSON(w, http.StatusOK, GameResponse{Instruments: instruments, Summary: summary})
}

// Buy handles POST /api/v1/game/buy
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, "buy")
}

// Sell handles POST /api/v1/game/sell
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, "sell")
}

func (s *Service) trade(w http.ResponseWriter, r *http.Request, side string) {
	userID := identity.FromRequest(r)
	if userID == "" {
		writeError(w, "identity required", http.StatusUnauthorized)
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.InstrumentID == "" {
		writeError(w, "instrument_id is required", http.StatusBadRequest)
		return
	}

	sess, err := s.manager.Session(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load game", http.StatusInternalServerError)
		return
	}

	var trade *sim.Trade
	if side == "buy" {
		trade, err = sess.Buy(req.InstrumentID)
	} else {
		trade, err = sess.Sell(req.InstrumentID)
	}
	if err != nil {
		s.writeTradeError(w, err)
		return
	}

	metrics.TradesTotal.WithLabelValues(side).Inc()
	_, summary := sess.Snapshot()

	slog.Info("trade executed",
		"user", userID,
		"side", side,
		"symbol", trade.Symbol,
		"price", trade.Price.String(),
		"cash", trade.Cash.String(),
		"owned", trade.Owned,
	)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:    "trade",
			UserID:  userID,
			Trade:   trade,
			Summary: &summary,
		})
	}

	writeJSON(w, http.StatusOK, TradeResponse{
		Trade:   *trade,
		Summary: summary,
		Notice:  trade.Notice,
	})
}

// writeTradeError maps simulation errors to HTTP responses with the
// user-facing notice as the message.
func (s *Service) writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrInstrumentNotFound):
		writeError(w, "instrument not found", http.StatusNotFound)
	case errors.Is(err, sim.ErrInsufficientFunds):
		metrics.TradeRejections.WithLabelValues("insufficient_funds").Inc()
		writeError(w, "Insufficient balance", http.StatusConflict)
	case errors.Is(err, sim.ErrNotOwned):
		metrics.TradeRejections.WithLabelValues("not_owned").Inc()
		writeError(w, "You do not own this instrument", http.StatusConflict)
	case errors.Is(err, sim.ErrSessionClosed):
		writeError(w, "session closed", http.StatusGone)
	default:
		writeError(w, "trade failed", http.StatusInternalServerError)
	}
}

// Reset handles POST /api/v1/game/reset
// Restores starting cash and zeroes holdings; prices keep evolving from
// wherever the simulation left off.
func (s *Service) Reset(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromRequest(r)
	if userID == "" {
		writeError(w, "identity required", http.StatusUnauthorized)
		return
	}

	sess, err := s.manager.Session(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load game", http.StatusInternalServerError)
		return
	}

	notice := sess.Reset()
	_, summary := sess.Snapshot()

	slog.Info("session reset", "user", userID)
	writeJSON(w, http.StatusOK, ResetResponse{Summary: summary, Notice: notice})
}

// DropSession handles DELETE /api/v1/game/session
// Tears down the caller's session; the tick timer stops immediately.
func (s *Service) DropSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromRequest(r)
	if userID == "" {
		writeError(w, "identity required", http.StatusUnauthorized)
		return
	}

	if !s.manager.Drop(userID) {
		writeError(w, "no active session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Catalog handlers ---

// ListInstruments handles GET /api/v1/instruments
// Returns the shared default catalog plus the caller's own instruments.
func (s *Service) ListInstruments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	instruments, err := s.catalog.ListInstruments(ctx, model.DefaultScope)
	if err != nil {
		writeError(w, "failed to list instruments", http.StatusInternalServerError)
		return
	}

	if userID := identity.FromRequest(r); userID != "" {
		personal, err := s.catalog.ListInstruments(ctx, userID)
		if err != nil {
			writeError(w, "failed to list instruments", http.StatusInternalServerError)
			return
		}
		instruments = append(instruments, personal...)
	}

	if instruments == nil {
		instruments = []model.Instrument{}
	}
	writeJSON(w, http.StatusOK, instruments)
}

// CreateInstrument handles POST /api/v1/instruments
// Creates an instrument in the caller's own catalog scope. A running
// session picks it up immediately without losing cash state.
func (s *Service) CreateInstrument(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromRequest(r)
	if userID == "" {
		writeError(w, "identity required", http.StatusUnauthorized)
		return
	}

	var req CreateInstrumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Symbol == "" {
		writeError(w, "name and symbol are required", http.StatusBadRequest)
		return
	}
	if req.Price.IsNegative() {
		writeError(w, "price must not be negative", http.StatusBadRequest)
		return
	}

	inst, err := s.catalog.CreateInstrument(r.Context(), userID, req.Name, req.Symbol, req.Price)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}

	if sess, ok := s.manager.Peek(userID); ok {
		sess.AddInstrument(*inst)
	}

	slog.Info("instrument created",
		"user", userID,
		"id", inst.ID,
		"symbol", inst.Symbol,
		"price", inst.Price.String(),
	)
	writeJSON(w, http.StatusCreated, inst)
}

// UpdateInstrument handles PATCH /api/v1/instruments/{instrumentID}
// Applies a whitelisted partial update to one of the caller's own
// instruments.
func (s *Service) UpdateInstrument(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromRequest(r)
	if userID == "" {
		writeError(w, "identity required", http.StatusUnauthorized)
		return
	}
	instrumentID := chi.URLParam(r, "instrumentID")

	var req UpdateInstrumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		writeError(w, "price must not be negative", http.StatusBadRequest)
		return
	}

	upd := catalog.Update{
		Name:   req.Name,
		Symbol: req.Symbol,
		Price:  req.Price,
	}
	if err := s.catalog.UpdateInstrument(r.Context(), userID, instrumentID, upd); err != nil {
		s.writeCatalogError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteInstrument handles DELETE /api/v1/instruments/{instrumentID}
// Removes one of the caller's own instruments; any units held in a live
// session disappear with it.
func (s *Service) DeleteInstrument(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromRequest(r)
	if userID == "" {
		writeError(w, "identity required", http.StatusUnauthorized)
		return
	}
	instrumentID := chi.URLParam(r, "instrumentID")

	if err := s.catalog.DeleteInstrument(r.Context(), userID, instrumentID); err != nil {
		s.writeCatalogError(w, err)
		return
	}

	if sess, ok := s.manager.Peek(userID); ok {
		sess.RemoveInstrument(instrumentID)
	}

	slog.Info("instrument deleted", "user", userID, "id", instrumentID)
	w.WriteHeader(http.StatusNoContent)
}

// InitDefaults handles POST /api/v1/instruments/init
// Seeds the shared default catalog.
func (s *Service) InitDefaults(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.SeedDefaults(r.Context())
	if err != nil {
		writeError(w, "failed to seed default instruments", http.StatusInternalServerError)
		return
	}

	slog.Info("default catalog seeded", "count", n)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "seeded": n})
}

func (s *Service) writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, "instrument not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrDuplicateSymbol):
		writeError(w, "symbol already exists", http.StatusConflict)
	case errors.Is(err, catalog.ErrInvalidSymbol):
		writeError(w, "symbol must be 1-8 uppercase letters or digits", http.StatusBadRequest)
	default:
		writeError(w, "catalog operation failed", http.StatusInternalServerError)
	}
}

// --- Response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
