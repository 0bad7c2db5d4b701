package sim

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/model"
)

// DefaultTickInterval is the cadence of the price simulation.
const DefaultTickInterval = 3 * time.Second

// priceFloor is the minimum simulated price. The floor is applied after
// the delta, so a large negative draw saturates at exactly 10.00 instead
// of going below it.
var priceFloor = decimal.NewFromInt(10)

var oneHundred = decimal.NewFromInt(100)

// Tick advances every instrument's price by one simulated step. Per
// instrument: draw a percentage change uniformly in [-5, +5), apply it,
// floor at 10.00, round to 2 decimals, and append a timestamped sample to
// the bounded history. The whole batch commits under one lock; a tick
// never fails.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	label := s.now().Format("15:04:05")
	for _, inst := range s.instruments {
		changePercent := decimal.NewFromFloat((s.rng.Float64() - 0.5) * 10)
		delta := inst.Price.Mul(changePercent.Div(oneHundred))

		newPrice := inst.Price.Add(delta)
		if newPrice.LessThan(priceFloor) {
			newPrice = priceFloor
		}
		newPrice = newPrice.Round(2)

		inst.Price = newPrice
		inst.Change = changePercent.Round(2)
		inst.History = append(inst.History, model.PriceSample{Time: label, Price: newPrice})
		if len(inst.History) > model.HistoryLimit {
			inst.History = inst.History[len(inst.History)-model.HistoryLimit:]
		}
	}

	onTick := s.onTick
	var instruments []model.Instrument
	var summary model.Summary
	if onTick != nil {
		instruments, summary = s.snapshotLocked()
	}
	s.mu.Unlock()

	if onTick != nil {
		onTick(instruments, summary)
	}
}

// StartTicking runs the simulation on a fixed period until StopTicking or
// Close. Starting an already-ticking session is a no-op.
func (s *Session) StartTicking(period time.Duration) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if s.stopCh != nil {
		return
	}
	stop := make(chan struct{})
	s.stopCh = stop

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// StopTicking cancels the tick timer. Idempotent and safe to call during
// teardown.
func (s *Session) StopTicking() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
}

type sysRand struct{}

func (sysRand) Float64() float64 { return rand.Float64() }

// SystemRand returns a Rand backed by math/rand's shared entropy source.
func SystemRand() Rand { return sysRand{} }
