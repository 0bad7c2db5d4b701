// Package model defines the core domain types shared across the trading game.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryLimit is the maximum number of price samples kept per instrument.
// Older samples are evicted FIFO.
const HistoryLimit = 20

// DefaultScope is the catalog scope shared by all users. Per-user catalogs
// use the user's identity as the scope.
const DefaultScope = "default"

// PriceSample is one point of an instrument's price history, used only
// for charting. The label is a formatted local wall-clock time (HH:MM:SS).
type PriceSample struct {
	Time  string          `json:"time" db:"time"`
	Price decimal.Decimal `json:"price" db:"price"`
}

// Instrument is a simulated tradable asset. Durable fields live in the
// catalog; Price, Change, Owned and History evolve in session memory once
// a game session is running.
type Instrument struct {
	ID      string          `json:"id" db:"id"`
	Scope   string          `json:"scope" db:"scope"` // "default" or a user id
	Name    string          `json:"name" db:"name"`
	Symbol  string          `json:"symbol" db:"symbol"` // short uppercase ticker
	Price   decimal.Decimal `json:"price" db:"price"`   // floored at 10.00 by the tick
	Change  decimal.Decimal `json:"change" db:"change"` // last tick's percentage delta
	Owned   int64           `json:"owned" db:"owned"`   // units held, never negative
	History []PriceSample   `json:"history" db:"history"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Clone returns a deep copy so session state never aliases catalog state.
func (i Instrument) Clone() Instrument {
	out := i
	out.History = make([]PriceSample, len(i.History))
	copy(out.History, i.History)
	return out
}

// Summary is the derived portfolio view for one session. None of these
// fields are stored; they are recomputed on every read.
type Summary struct {
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"` // Σ price × owned
	TotalValue     decimal.Decimal `json:"total_value"`     // cash + portfolio
	Profit         decimal.Decimal `json:"profit"`          // total - starting cash
	ProfitPercent  decimal.Decimal `json:"profit_percent"`
}
