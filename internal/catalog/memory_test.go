package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"tech", "TECH", false},
		{" biom ", "BIOM", false},
		{"A1", "A1", false},
		{"", "", true},
		{"TOOLONGSYM", "", true},
		{"BAD-SYM", "", true},
		{"has space", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeSymbol(tt.in)
		if tt.wantErr {
			if err != ErrInvalidSymbol {
				t.Errorf("NormalizeSymbol(%q): expected ErrInvalidSymbol, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeSymbol(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateInstrument(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	inst, err := c.CreateInstrument(ctx, "user1", "NewCo", "newco", d(42.50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inst.ID == "" {
		t.Error("expected a generated id")
	}
	if inst.Symbol != "NEWCO" {
		t.Errorf("expected uppercased symbol NEWCO, got %s", inst.Symbol)
	}
	if inst.Owned != 0 || !inst.Change.IsZero() {
		t.Error("new instrument should start with zero holdings and change")
	}
	if len(inst.History) != 1 || !inst.History[0].Price.Equal(d(42.50)) {
		t.Errorf("expected a single t0 history sample at 42.50, got %v", inst.History)
	}
}

func TestCreateInstrument_DuplicateSymbolPerScope(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	if _, err := c.CreateInstrument(ctx, "user1", "NewCo", "NEWCO", d(42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.CreateInstrument(ctx, "user1", "Other", "NEWCO", d(10)); err != ErrDuplicateSymbol {
		t.Errorf("expected ErrDuplicateSymbol in same scope, got %v", err)
	}
	// Same symbol in a different scope is fine.
	if _, err := c.CreateInstrument(ctx, "user2", "Other", "NEWCO", d(10)); err != nil {
		t.Errorf("different scope should allow the symbol: %v", err)
	}
}

func TestUpdateInstrument_Whitelist(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	inst, _ := c.CreateInstrument(ctx, "user1", "NewCo", "NEWCO", d(42))

	name := "Renamed Co"
	price := d(55.25)
	if err := c.UpdateInstrument(ctx, "user1", inst.ID, Update{Name: &name, Price: &price}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := c.GetInstrument(ctx, "user1", inst.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Renamed Co" {
		t.Errorf("expected renamed instrument, got %s", got.Name)
	}
	if !got.Price.Equal(d(55.25)) {
		t.Errorf("expected price 55.25, got %s", got.Price)
	}
	// Untouched fields stay as they were.
	if got.Symbol != "NEWCO" {
		t.Errorf("symbol should be unchanged, got %s", got.Symbol)
	}
	if len(got.History) != 1 {
		t.Errorf("history should be unchanged, got %d samples", len(got.History))
	}
}

func TestUpdateInstrument_SymbolCollision(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	c.CreateInstrument(ctx, "user1", "A", "AAA", d(10))
	b, _ := c.CreateInstrument(ctx, "user1", "B", "BBB", d(10))

	sym := "AAA"
	if err := c.UpdateInstrument(ctx, "user1", b.ID, Update{Symbol: &sym}); err != ErrDuplicateSymbol {
		t.Errorf("expected ErrDuplicateSymbol, got %v", err)
	}
}

func TestUpdateInstrument_NotFound(t *testing.T) {
	c := NewMemoryCatalog()
	name := "x"
	if err := c.UpdateInstrument(context.Background(), "user1", "missing", Update{Name: &name}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteInstrument(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	inst, _ := c.CreateInstrument(ctx, "user1", "NewCo", "NEWCO", d(42))

	if err := c.DeleteInstrument(ctx, "user1", inst.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.DeleteInstrument(ctx, "user1", inst.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := c.GetInstrument(ctx, "user1", inst.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSeedDefaults(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	n, err := c.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 6 {
		t.Errorf("expected 6 seeded instruments, got %d", n)
	}

	instruments, err := c.ListInstruments(ctx, model.DefaultScope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instruments) != 6 {
		t.Fatalf("expected 6 instruments, got %d", len(instruments))
	}

	bySymbol := make(map[string]model.Instrument)
	for _, in := range instruments {
		bySymbol[in.Symbol] = in
	}
	tech, ok := bySymbol["TECH"]
	if !ok {
		t.Fatal("expected TECH in the default catalog")
	}
	if !tech.Price.Equal(d(150)) {
		t.Errorf("expected TECH at 150, got %s", tech.Price)
	}
	if tech.Owned != 0 {
		t.Errorf("seeded instruments start unowned, got %d", tech.Owned)
	}

	// Seeding is an upsert: running it again does not duplicate.
	if _, err := c.SeedDefaults(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	instruments, _ = c.ListInstruments(ctx, model.DefaultScope)
	if len(instruments) != 6 {
		t.Errorf("re-seeding should not duplicate, got %d", len(instruments))
	}
}

func TestListInstruments_ScopeIsolation(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	c.SeedDefaults(ctx)
	c.CreateInstrument(ctx, "user1", "Mine", "MINE", d(20))

	defaults, _ := c.ListInstruments(ctx, model.DefaultScope)
	personal, _ := c.ListInstruments(ctx, "user1")
	other, _ := c.ListInstruments(ctx, "user2")

	if len(defaults) != 6 {
		t.Errorf("expected 6 default instruments, got %d", len(defaults))
	}
	if len(personal) != 1 {
		t.Errorf("expected 1 personal instrument, got %d", len(personal))
	}
	if len(other) != 0 {
		t.Errorf("expected empty catalog for another user, got %d", len(other))
	}
}
