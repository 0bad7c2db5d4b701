// Package sim implements the market simulation engine: a per-user game
// session that advances instrument prices on a fixed tick and executes
// single-unit buy/sell trades against a cash balance.
//
// A Session is the only writer of its own state. All monetary values use
// shopspring/decimal — never float64 for money.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/model"
)

// Rand supplies the uniform draws for the price tick. Injected so tests
// can assert exact post-tick values; production wiring uses SystemRand.
type Rand interface {
	// Float64 returns a uniformly distributed value in [0, 1).
	Float64() float64
}

// Trade is the receipt returned from a successful buy or sell.
type Trade struct {
	InstrumentID string          `json:"instrument_id"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"` // "buy" or "sell"
	Price        decimal.Decimal `json:"price"`
	Cash         decimal.Decimal `json:"cash"`  // balance after the trade
	Owned        int64           `json:"owned"` // units held after the trade
	Notice       string          `json:"notice"`
}

// Session owns one user's simulation run: cash balance, an in-memory copy
// of the instrument set, and the tick lifecycle. Sessions are independent;
// there is no cross-session state.
type Session struct {
	mu           sync.Mutex
	cash         decimal.Decimal
	startingCash decimal.Decimal
	instruments  []*model.Instrument
	byID         map[string]*model.Instrument
	rng          Rand
	now          func() time.Time
	closed       bool

	// onTick, if set, is invoked after each committed tick with a snapshot
	// of the post-tick state. Called outside the session lock.
	onTick func([]model.Instrument, model.Summary)

	tickMu sync.Mutex
	stopCh chan struct{}
}

// NewSession creates a session with the given starting cash and an
// in-memory copy of the instrument set. The catalog copies are never
// mutated; prices and holdings evolve only inside the session.
func NewSession(startingCash decimal.Decimal, instruments []model.Instrument, rng Rand) *Session {
	s := &Session{
		cash:         startingCash,
		startingCash: startingCash,
		byID:         make(map[string]*model.Instrument, len(instruments)),
		rng:          rng,
		now:          time.Now,
	}
	for _, inst := range instruments {
		s.add(inst.Clone())
	}
	return s
}

func (s *Session) add(inst model.Instrument) {
	c := inst
	s.instruments = append(s.instruments, &c)
	s.byID[c.ID] = &c
}

// SetOnTick registers a callback invoked after every tick. Must be called
// before StartTicking.
func (s *Session) SetOnTick(fn func([]model.Instrument, model.Summary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = fn
}

// AddInstrument inserts a newly created catalog instrument into the
// running session. Cash and existing holdings are untouched.
func (s *Session) AddInstrument(inst model.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[inst.ID]; ok {
		return
	}
	s.add(inst.Clone())
}

// RemoveInstrument drops an instrument from the session after catalog
// deletion. Any held units disappear with it, matching the reference
// behavior of deleting a stock mid-game.
func (s *Session) RemoveInstrument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, inst := range s.instruments {
		if inst.ID == id {
			s.instruments = append(s.instruments[:i], s.instruments[i+1:]...)
			break
		}
	}
	return true
}

// Buy purchases exactly one unit of the instrument at its current price.
// Rejected with ErrInsufficientFunds when cash < price; no state changes
// on rejection.
func (s *Session) Buy(id string) (*Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	inst, ok := s.byID[id]
	if !ok {
		return nil, ErrInstrumentNotFound
	}
	if s.cash.LessThan(inst.Price) {
		return nil, ErrInsufficientFunds
	}

	s.cash = s.cash.Sub(inst.Price).Round(2)
	inst.Owned++

	return &Trade{
		InstrumentID: inst.ID,
		Symbol:       inst.Symbol,
		Side:         "buy",
		Price:        inst.Price,
		Cash:         s.cash,
		Owned:        inst.Owned,
		Notice:       fmt.Sprintf("Bought 1 %s at %s", inst.Symbol, inst.Price.StringFixed(2)),
	}, nil
}

// Sell liquidates exactly one held unit at the instrument's current price.
// Rejected with ErrNotOwned when no units are held; holdings are never
// clamped below zero.
func (s *Session) Sell(id string) (*Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	inst, ok := s.byID[id]
	if !ok {
		return nil, ErrInstrumentNotFound
	}
	if inst.Owned <= 0 {
		return nil, ErrNotOwned
	}

	s.cash = s.cash.Add(inst.Price).Round(2)
	inst.Owned--

	return &Trade{
		InstrumentID: inst.ID,
		Symbol:       inst.Symbol,
		Side:         "sell",
		Price:        inst.Price,
		Cash:         s.cash,
		Owned:        inst.Owned,
		Notice:       fmt.Sprintf("Sold 1 %s at %s", inst.Symbol, inst.Price.StringFixed(2)),
	}, nil
}

// Reset restores the starting cash and zeroes every holding. Prices,
// change percentages and history are left alone: resetting the game means
// "liquidate and refund", not "rewind the market".
func (s *Session) Reset() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cash = s.startingCash
	for _, inst := range s.instruments {
		inst.Owned = 0
	}
	return "Game reset"
}

// Snapshot returns copies of the instrument set plus the derived portfolio
// summary, in stable insertion order.
func (s *Session) Snapshot() ([]model.Instrument, model.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() ([]model.Instrument, model.Summary) {
	out := make([]model.Instrument, 0, len(s.instruments))
	portfolio := decimal.Zero
	for _, inst := range s.instruments {
		out = append(out, inst.Clone())
		portfolio = portfolio.Add(inst.Price.Mul(decimal.NewFromInt(inst.Owned)))
	}

	total := s.cash.Add(portfolio)
	profit := total.Sub(s.startingCash)
	profitPct := decimal.Zero
	if s.startingCash.IsPositive() {
		profitPct = profit.Div(s.startingCash).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return out, model.Summary{
		Cash:           s.cash,
		PortfolioValue: portfolio,
		TotalValue:     total,
		Profit:         profit,
		ProfitPercent:  profitPct,
	}
}

// Close stops the ticker and marks the session closed. No tick or trade is
// delivered afterwards. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.StopTicking()
}
