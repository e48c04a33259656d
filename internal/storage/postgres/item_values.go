package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DrumSongOSRS/DropRoller/internal/itemvalue"
)

// ItemValueRepository persists item values in the item_values table.
type ItemValueRepository struct {
	db *pgxpool.Pool
}

// NewItemValueRepository creates an ItemValueRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the item_values
// migration applied.
func NewItemValueRepository(db *pgxpool.Pool) *ItemValueRepository {
	return &ItemValueRepository{db: db}
}

// Load returns every cached item value.
//
// Postcondition: Returns a non-nil map or a non-nil error.
func (r *ItemValueRepository) Load(ctx context.Context) (map[string]itemvalue.Values, error) {
	rows, err := r.db.Query(ctx, `SELECT name, high_alch, bars_used FROM item_values`)
	if err != nil {
		return nil, fmt.Errorf("querying item values: %w", err)
	}
	defer rows.Close()

	out := make(map[string]itemvalue.Values)
	for rows.Next() {
		var (
			name     string
			highAlch *int64
			barsUsed *int64
		)
		if err := rows.Scan(&name, &highAlch, &barsUsed); err != nil {
			return nil, fmt.Errorf("scanning item value: %w", err)
		}
		out[name] = itemvalue.Values{HighAlch: widen(highAlch), BarsUsed: widen(barsUsed)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item values: %w", err)
	}
	return out, nil
}

// Put upserts the values for name.
//
// Postcondition: A subsequent Load returns v under name.
func (r *ItemValueRepository) Put(ctx context.Context, name string, v itemvalue.Values) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO item_values (name, high_alch, bars_used, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (name) DO UPDATE SET
		   high_alch  = EXCLUDED.high_alch,
		   bars_used  = EXCLUDED.bars_used,
		   updated_at = EXCLUDED.updated_at`,
		name, narrow(v.HighAlch), narrow(v.BarsUsed),
	)
	if err != nil {
		return fmt.Errorf("upserting item value %q: %w", name, err)
	}
	return nil
}

func widen(v *int64) *int {
	if v == nil {
		return nil
	}
	return itemvalue.Int(int(*v))
}

func narrow(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
