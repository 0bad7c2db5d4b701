package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/model"
)

// MemoryCatalog implements Catalog with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryCatalog struct {
	mu          sync.RWMutex
	instruments map[string]map[string]*model.Instrument // scope → id → instrument
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		instruments: make(map[string]map[string]*model.Instrument),
	}
}

func (c *MemoryCatalog) scopeMap(scope string) map[string]*model.Instrument {
	m, ok := c.instruments[scope]
	if !ok {
		m = make(map[string]*model.Instrument)
		c.instruments[scope] = m
	}
	return m
}

func (c *MemoryCatalog) ListInstruments(_ context.Context, scope string) ([]model.Instrument, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Instrument, 0, len(c.instruments[scope]))
	for _, inst := range c.instruments[scope] {
		out = append(out, inst.Clone())
	}
	// Stable order for callers: oldest first, ties broken by id.
	sortInstruments(out)
	return out, nil
}

func (c *MemoryCatalog) GetInstrument(_ context.Context, scope, id string) (*model.Instrument, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	inst, ok := c.instruments[scope][id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := inst.Clone()
	return &copy, nil
}

func (c *MemoryCatalog) CreateInstrument(_ context.Context, scope, name, symbol string, price decimal.Decimal) (*model.Instrument, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.scopeMap(scope)
	for _, existing := range m {
		if existing.Symbol == sym {
			return nil, ErrDuplicateSymbol
		}
	}

	inst := &model.Instrument{
		ID:        uuid.New().String(),
		Scope:     scope,
		Name:      name,
		Symbol:    sym,
		Price:     price,
		Change:    decimal.Zero,
		Owned:     0,
		History:   []model.PriceSample{{Time: "0", Price: price}},
		CreatedAt: time.Now().UTC(),
	}
	m[inst.ID] = inst

	copy := inst.Clone()
	return &copy, nil
}

func (c *MemoryCatalog) UpdateInstrument(_ context.Context, scope, id string, upd Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instruments[scope][id]
	if !ok {
		return ErrNotFound
	}

	if upd.Symbol != nil {
		sym, err := NormalizeSymbol(*upd.Symbol)
		if err != nil {
			return err
		}
		for otherID, other := range c.instruments[scope] {
			if otherID != id && other.Symbol == sym {
				return ErrDuplicateSymbol
			}
		}
		inst.Symbol = sym
	}
	if upd.Name != nil {
		inst.Name = *upd.Name
	}
	if upd.Price != nil {
		inst.Price = *upd.Price
	}
	if upd.Change != nil {
		inst.Change = *upd.Change
	}
	if upd.Owned != nil {
		inst.Owned = *upd.Owned
	}
	if upd.History != nil {
		inst.History = append([]model.PriceSample(nil), upd.History...)
	}
	return nil
}

func (c *MemoryCatalog) DeleteInstrument(_ context.Context, scope, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.instruments[scope][id]; !ok {
		return ErrNotFound
	}
	delete(c.instruments[scope], id)
	return nil
}

func (c *MemoryCatalog) SeedDefaults(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.scopeMap(model.DefaultScope)
	seeded := DefaultInstruments()
	for i := range seeded {
		inst := seeded[i]
		inst.CreatedAt = time.Now().UTC()
		m[inst.ID] = &inst
	}
	return len(seeded), nil
}

func sortInstruments(list []model.Instrument) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
