package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/catalog"
	"github.com/arthuur01/capitalplay/internal/metrics"
	"github.com/arthuur01/capitalplay/internal/model"
	"github.com/arthuur01/capitalplay/internal/sim"
)

// Manager owns one simulation session per user. Each session holds an
// independent in-memory copy of the instrument set and its own cash
// balance; there is no cross-session synchronization.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sim.Session

	catalog      catalog.Catalog
	startingCash decimal.Decimal
	tickInterval time.Duration
	rng          sim.Rand
	hub          *WSHub // optional, nil disables broadcasting
}

// NewManager creates a session manager. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewManager(cat catalog.Catalog, startingCash decimal.Decimal, tickInterval time.Duration, rng sim.Rand, hub *WSHub) *Manager {
	return &Manager{
		sessions:     make(map[string]*sim.Session),
		catalog:      cat,
		startingCash: startingCash,
		tickInterval: tickInterval,
		rng:          rng,
		hub:          hub,
	}
}

// Session returns the user's live session, creating one on first access.
// A new session loads the shared default catalog plus the user's own
// instruments and starts its price ticker.
func (m *Manager) Session(ctx context.Context, userID string) (*sim.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[userID]; ok {
		return sess, nil
	}

	instruments, err := m.loadInstruments(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess := sim.NewSession(m.startingCash, instruments, m.rng)
	if m.hub != nil {
		hub := m.hub
		sess.SetOnTick(func(instruments []model.Instrument, summary model.Summary) {
			metrics.TicksTotal.Inc()
			hub.Broadcast(WSMessage{
				Type:        "tick",
				UserID:      userID,
				Instruments: instruments,
				Summary:     &summary,
			})
		})
	} else {
		sess.SetOnTick(func([]model.Instrument, model.Summary) {
			metrics.TicksTotal.Inc()
		})
	}
	sess.StartTicking(m.tickInterval)

	m.sessions[userID] = sess
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	slog.Info("session started",
		"user", userID,
		"instruments", len(instruments),
		"starting_cash", m.startingCash.String(),
	)
	return sess, nil
}

// Peek returns the user's session without creating one.
func (m *Manager) Peek(userID string) (*sim.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	return sess, ok
}

// Drop tears down the user's session: the ticker stops and no tick or
// trade is delivered afterwards.
func (m *Manager) Drop(userID string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	total := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return false
	}
	sess.Close()
	metrics.ActiveSessions.Set(float64(total))
	slog.Info("session dropped", "user", userID)
	return true
}

// Shutdown closes every session. Called on process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*sim.Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	metrics.ActiveSessions.Set(0)
}

func (m *Manager) loadInstruments(ctx context.Context, userID string) ([]model.Instrument, error) {
	defaults, err := m.catalog.ListInstruments(ctx, model.DefaultScope)
	if err != nil {
		return nil, fmt.Errorf("load default catalog: %w", err)
	}

	personal, err := m.catalog.ListInstruments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load catalog for %s: %w", userID, err)
	}

	return append(defaults, personal...), nil
}
