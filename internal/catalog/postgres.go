package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/model"
)

// PostgresCatalog implements Catalog using PostgreSQL as the source of
// truth. Money is stored as NUMERIC for exact decimal precision; price
// history is stored as JSONB.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a PostgreSQL-backed catalog.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

// Migrate creates the instruments table if it does not exist.
func (c *PostgresCatalog) Migrate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS instruments (
			id         TEXT PRIMARY KEY,
			scope      TEXT NOT NULL,
			name       TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			price      NUMERIC NOT NULL,
			change     NUMERIC NOT NULL DEFAULT 0,
			owned      BIGINT NOT NULL DEFAULT 0,
			history    JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (scope, symbol)
		)`)
	if err != nil {
		return fmt.Errorf("migrate instruments: %w", err)
	}
	return nil
}

const instrumentColumns = `id, scope, name, symbol, price::TEXT, change::TEXT, owned, history, created_at`

func (c *PostgresCatalog) ListInstruments(ctx context.Context, scope string) ([]model.Instrument, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+instrumentColumns+`
		 FROM instruments WHERE scope = $1 ORDER BY created_at, id`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instruments []model.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, *inst)
	}
	return instruments, rows.Err()
}

func (c *PostgresCatalog) GetInstrument(ctx context.Context, scope, id string) (*model.Instrument, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT `+instrumentColumns+`
		 FROM instruments WHERE scope = $1 AND id = $2`, scope, id)

	inst, err := scanInstrument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get instrument %s: %w", id, err)
	}
	return inst, nil
}

func (c *PostgresCatalog) CreateInstrument(ctx context.Context, scope, name, symbol string, price decimal.Decimal) (*model.Instrument, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
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

	history, err := json.Marshal(inst.History)
	if err != nil {
		return nil, err
	}

	_, err = c.pool.Exec(ctx,
		`INSERT INTO instruments (id, scope, name, symbol, price, change, owned, history, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, $9)`,
		inst.ID, inst.Scope, inst.Name, inst.Symbol,
		inst.Price.String(), inst.Change.String(), inst.Owned,
		history, inst.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateSymbol
	}
	if err != nil {
		return nil, fmt.Errorf("create instrument %s: %w", sym, err)
	}
	return inst, nil
}

func (c *PostgresCatalog) UpdateInstrument(ctx context.Context, scope, id string, upd Update) error {
	set := make([]string, 0, 6)
	args := []any{scope, id}

	appendSet := func(expr string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf(expr, len(args)))
	}

	if upd.Name != nil {
		appendSet("name = $%d", *upd.Name)
	}
	if upd.Symbol != nil {
		sym, err := NormalizeSymbol(*upd.Symbol)
		if err != nil {
			return err
		}
		appendSet("symbol = $%d", sym)
	}
	if upd.Price != nil {
		appendSet("price = $%d::NUMERIC", upd.Price.String())
	}
	if upd.Change != nil {
		appendSet("change = $%d::NUMERIC", upd.Change.String())
	}
	if upd.Owned != nil {
		appendSet("owned = $%d", *upd.Owned)
	}
	if upd.History != nil {
		history, err := json.Marshal(upd.History)
		if err != nil {
			return err
		}
		appendSet("history = $%d", history)
	}

	if len(set) == 0 {
		return nil
	}

	query := "UPDATE instruments SET " + strings.Join(set, ", ") + " WHERE scope = $1 AND id = $2"
	tag, err := c.pool.Exec(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrDuplicateSymbol
	}
	if err != nil {
		return fmt.Errorf("update instrument %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *PostgresCatalog) DeleteInstrument(ctx context.Context, scope, id string) error {
	tag, err := c.pool.Exec(ctx,
		`DELETE FROM instruments WHERE scope = $1 AND id = $2`, scope, id)
	if err != nil {
		return fmt.Errorf("delete instrument %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *PostgresCatalog) SeedDefaults(ctx context.Context) (int, error) {
	count := 0
	for _, inst := range DefaultInstruments() {
		history, err := json.Marshal(inst.History)
		if err != nil {
			return count, err
		}
		_, err = c.pool.Exec(ctx,
			`INSERT INTO instruments (id, scope, name, symbol, price, change, owned, history, created_at)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, now())
			 ON CONFLICT (id) DO UPDATE
			 SET name = EXCLUDED.name, symbol = EXCLUDED.symbol, price = EXCLUDED.price`,
			inst.ID, inst.Scope, inst.Name, inst.Symbol,
			inst.Price.String(), inst.Change.String(), inst.Owned, history,
		)
		if err != nil {
			return count, fmt.Errorf("seed instrument %s: %w", inst.Symbol, err)
		}
		count++
	}
	return count, nil
}

// pgxRow covers both pgx.Row and pgx.Rows for scanning.
type pgxRow interface {
	Scan(dest ...any) error
}

func scanInstrument(row pgxRow) (*model.Instrument, error) {
	var inst model.Instrument
	var priceS, changeS string
	var history []byte

	if err := row.Scan(&inst.ID, &inst.Scope, &inst.Name, &inst.Symbol,
		&priceS, &changeS, &inst.Owned, &history, &inst.CreatedAt); err != nil {
		return nil, err
	}

	inst.Price, _ = decimal.NewFromString(priceS)
	inst.Change, _ = decimal.NewFromString(changeS)
	if err := json.Unmarshal(history, &inst.History); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", inst.ID, err)
	}
	return &inst, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
