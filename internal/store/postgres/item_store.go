package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mintrail/phygmarket/internal/domain"
)

// ItemStore implements domain.ItemStore using PostgreSQL.
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates a new ItemStore backed by the given connection pool.
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

// Upsert inserts or updates a single item. The redeemed flag is deliberately
// not part of the update set; it only changes through MarkRedeemed.
func (s *ItemStore) Upsert(ctx context.Context, it domain.Item) error {
	const query = `
		INSERT INTO items (
			id, market_id, token_id, name,
			weight, redemption_threshold,
			purchase_price, purchase_time, holder,
			redeemed, redeemed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9,
			FALSE, NULL, $10, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			name                 = EXCLUDED.name,
			weight               = EXCLUDED.weight,
			redemption_threshold = EXCLUDED.redemption_threshold,
			purchase_price       = EXCLUDED.purchase_price,
			purchase_time        = EXCLUDED.purchase_time,
			holder               = EXCLUDED.holder,
			updated_at           = NOW()`

	createdAt := it.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var purchaseTime *time.Time
	if !it.PurchaseTime.IsZero() {
		purchaseTime = &it.PurchaseTime
	}

	_, err := s.pool.Exec(ctx, query,
		it.ID, it.MarketID, it.TokenID, it.Name,
		it.Weight, it.RedemptionThreshold,
		it.PurchasePrice, purchaseTime, it.Holder,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert item %s: %w", it.ID, err)
	}
	return nil
}

const itemCols = `id, market_id, token_id, name,
	weight, redemption_threshold,
	purchase_price, purchase_time, holder,
	redeemed, redeemed_at, created_at, updated_at`

// scanItem scans a single item row into a domain.Item.
func scanItem(row pgx.Row) (domain.Item, error) {
	var it domain.Item
	var purchaseTime *time.Time
	err := row.Scan(
		&it.ID, &it.MarketID, &it.TokenID, &it.Name,
		&it.Weight, &it.RedemptionThreshold,
		&it.PurchasePrice, &purchaseTime, &it.Holder,
		&it.Redeemed, &it.RedeemedAt, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}
	if purchaseTime != nil {
		it.PurchaseTime = *purchaseTime
	}
	return it, nil
}

// Get retrieves an item by its primary key.
func (s *ItemStore) Get(ctx context.Context, id string) (domain.Item, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+itemCols+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("postgres: get item %s: %w", id, err)
	}
	return it, nil
}

// ListByMarket returns a market's items ordered by token id.
func (s *ItemStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Item, error) {
	query := `SELECT ` + itemCols + ` FROM items WHERE market_id = $1 ORDER BY token_id`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list items for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list items rows: %w", err)
	}
	return items, nil
}

// MarkRedeemed flips the item's write-once redeemed flag. The guard is in the
// WHERE clause so a second attempt affects zero rows; the follow-up read
// distinguishes an already-redeemed item from a missing one.
func (s *ItemStore) MarkRedeemed(ctx context.Context, itemID string, at time.Time) error {
	const query = `
		UPDATE items
		SET redeemed = TRUE, redeemed_at = $2, updated_at = NOW()
		WHERE id = $1 AND redeemed = FALSE`

	tag, err := s.pool.Exec(ctx, query, itemID, at)
	if err != nil {
		return fmt.Errorf("postgres: mark item %s redeemed: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		var redeemed bool
		err := s.pool.QueryRow(ctx, "SELECT redeemed FROM items WHERE id = $1", itemID).Scan(&redeemed)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrNotFound
			}
			return fmt.Errorf("postgres: mark item %s redeemed: %w", itemID, err)
		}
		if redeemed {
			return domain.ErrAlreadyRedeemed
		}
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.ItemStore = (*ItemStore)(nil)
