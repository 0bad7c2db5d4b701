package sim

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/arthuur01/capitalplay/internal/model"
)

// rapidRand adapts rapid draws into the session's Rand interface so the
// tick consumes shrinkable randomness.
type rapidRand struct {
	t *rapid.T
}

func (r *rapidRand) Float64() float64 {
	return rapid.Float64Range(0, 0.999999).Draw(r.t, "draw")
}

// TestProperty_TickInvariants verifies that after any number of ticks on
// any starting prices, every price stays at or above the 10.00 floor and
// every history stays within the ring-buffer bound.
func TestProperty_TickInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numInstruments := rapid.IntRange(1, 8).Draw(rt, "numInstruments")
		instruments := make([]model.Instrument, numInstruments)
		for i := range instruments {
			cents := rapid.Int64Range(1000, 500000).Draw(rt, "cents")
			instruments[i] = inst(fmt.Sprintf("i%d", i), "SYM", float64(cents)/100)
		}

		s := NewSession(d(10000), instruments, &rapidRand{t: rt})

		ticks := rapid.IntRange(0, 60).Draw(rt, "ticks")
		for i := 0; i < ticks; i++ {
			s.Tick()
		}

		floor := decimal.NewFromInt(10)
		snapshot, _ := s.Snapshot()
		for _, in := range snapshot {
			if in.Price.LessThan(floor) {
				rt.Fatalf("price %s violates the 10.00 floor", in.Price)
			}
			if len(in.History) > model.HistoryLimit {
				rt.Fatalf("history length %d exceeds %d", len(in.History), model.HistoryLimit)
			}
			if in.Price.Exponent() < -2 {
				rt.Fatalf("price %s has more than 2 decimal places", in.Price)
			}
		}
	})
}

// TestProperty_TradeLedger verifies that for any interleaving of buys,
// sells, ticks, and resets, holdings never go negative and the cash
// balance always equals starting cash minus the net cost of executed
// trades (rejections leave state untouched).
func TestProperty_TradeLedger(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		instruments := []model.Instrument{
			inst("a", "AAA", float64(rapid.Int64Range(1000, 30000).Draw(rt, "centsA"))/100),
			inst("b", "BBB", float64(rapid.Int64Range(1000, 30000).Draw(rt, "centsB"))/100),
		}
		s := NewSession(d(10000), instruments, &rapidRand{t: rt})

		expectedCash := d(10000)
		expectedOwned := map[string]int64{"a": 0, "b": 0}

		steps := rapid.IntRange(1, 80).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom([]string{"a", "b"}).Draw(rt, "id")
			switch rapid.SampledFrom([]string{"buy", "sell", "tick", "reset"}).Draw(rt, "op") {
			case "buy":
				trade, err := s.Buy(id)
				if err == nil {
					expectedCash = expectedCash.Sub(trade.Price).Round(2)
					expectedOwned[id]++
				} else if err != ErrInsufficientFunds {
					rt.Fatalf("unexpected buy error: %v", err)
				}
			case "sell":
				trade, err := s.Sell(id)
				if err == nil {
					expectedCash = expectedCash.Add(trade.Price).Round(2)
					expectedOwned[id]--
				} else if err != ErrNotOwned {
					rt.Fatalf("unexpected sell error: %v", err)
				}
			case "tick":
				s.Tick()
			case "reset":
				s.Reset()
				expectedCash = d(10000)
				expectedOwned["a"] = 0
				expectedOwned["b"] = 0
			}
		}

		snapshot, summary := s.Snapshot()
		if !summary.Cash.Equal(expectedCash) {
			rt.Fatalf("cash drifted: expected %s, got %s", expectedCash, summary.Cash)
		}
		for _, in := range snapshot {
			if in.Owned < 0 {
				rt.Fatalf("%s: negative holding %d", in.Symbol, in.Owned)
			}
			if in.Owned != expectedOwned[in.ID] {
				rt.Fatalf("%s: expected owned %d, got %d", in.Symbol, expectedOwned[in.ID], in.Owned)
			}
		}
	})
}
