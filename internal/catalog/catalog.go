// Package catalog defines the persistence boundary that owns instrument
// definitions. Implementations include PostgreSQL (source of truth),
// Redis (read-through cache), and in-memory (for testing and development).
//
// Catalogs are scoped: the shared default catalog plus one catalog per
// user identity. Session state (live prices, holdings, cash) is not the
// catalog's concern — it stays in the simulation session.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/model"
)

var (
	ErrNotFound        = errors.New("instrument_not_found")
	ErrDuplicateSymbol = errors.New("duplicate_symbol")
	ErrInvalidSymbol   = errors.New("invalid_symbol")
)

// Update is the whitelisted partial-update set for an instrument. Nil
// fields are left unchanged. Explicit fields instead of an open map keep
// accidental field injection out of the store.
type Update struct {
	Name    *string
	Symbol  *string
	Price   *decimal.Decimal
	Change  *decimal.Decimal
	Owned   *int64
	History []model.PriceSample // nil means unchanged
}

// Catalog is the instrument persistence interface.
type Catalog interface {
	// ListInstruments returns every instrument in a scope.
	ListInstruments(ctx context.Context, scope string) ([]model.Instrument, error)

	// GetInstrument retrieves one instrument by id within a scope.
	GetInstrument(ctx context.Context, scope, id string) (*model.Instrument, error)

	// CreateInstrument persists a new instrument with a fresh id,
	// zero holdings, zero change, and a single t0 history sample.
	CreateInstrument(ctx context.Context, scope, name, symbol string, price decimal.Decimal) (*model.Instrument, error)

	// UpdateInstrument applies a whitelisted partial update.
	UpdateInstrument(ctx context.Context, scope, id string, upd Update) error

	// DeleteInstrument removes an instrument from a scope.
	DeleteInstrument(ctx context.Context, scope, id string) error

	// SeedDefaults upserts the built-in default catalog into the shared
	// scope and reports how many instruments it wrote.
	SeedDefaults(ctx context.Context) (int, error)
}

// NormalizeSymbol uppercases and validates a ticker symbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || len(s) > 8 {
		return "", ErrInvalidSymbol
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidSymbol
		}
	}
	return s, nil
}

type seedInstrument struct {
	id     string
	name   string
	symbol string
	price  int64
}

// The default game catalog, shared by every user.
var defaultSeed = []seedInstrument{
	{"def1", "TechCorp", "TECH", 150},
	{"def2", "BioMed Inc", "BIOM", 85},
	{"def3", "EnergyPlus", "ENGY", 120},
	{"def4", "RetailMax", "RETL", 60},
	{"def5", "FinanceHub", "FINH", 200},
	{"def6", "AutoDrive", "AUTO", 95},
}

// DefaultInstruments returns fresh copies of the built-in default catalog.
func DefaultInstruments() []model.Instrument {
	out := make([]model.Instrument, 0, len(defaultSeed))
	for _, s := range defaultSeed {
		price := decimal.NewFromInt(s.price)
		out = append(out, model.Instrument{
			ID:      s.id,
			Scope:   model.DefaultScope,
			Name:    s.name,
			Symbol:  s.symbol,
			Price:   price,
			Change:  decimal.Zero,
			Owned:   0,
			History: []model.PriceSample{{Time: "0", Price: price}},
		})
	}
	return out
}
