package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mintrail/phygmarket/internal/domain"
)

// RedemptionStore implements domain.RedemptionStore using PostgreSQL.
type RedemptionStore struct {
	pool *pgxpool.Pool
}

// NewRedemptionStore creates a new RedemptionStore backed by the given
// connection pool.
func NewRedemptionStore(pool *pgxpool.Pool) *RedemptionStore {
	return &RedemptionStore{pool: pool}
}

// Insert records a new redemption. Redemption rows are append-only; only
// their status and tx hash change afterwards.
func (s *RedemptionStore) Insert(ctx context.Context, r domain.Redemption) error {
	const query = `
		INSERT INTO redemptions (
			id, market_id, item_id, holder,
			top_up_paid, award_granted, award_fallback,
			status, tx_hash, created_at, confirmed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11
		)`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.MarketID, r.ItemID, r.Holder,
		r.TopUpPaid, r.AwardGranted, r.AwardFallback,
		string(r.Status), r.TxHash, createdAt, r.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert redemption %s: %w", r.ID, err)
	}
	return nil
}

const redemptionCols = `id, market_id, item_id, holder,
	top_up_paid, award_granted, award_fallback,
	status, tx_hash, created_at, confirmed_at`

// scanRedemption scans a single redemption row into a domain.Redemption.
func scanRedemption(row pgx.Row) (domain.Redemption, error) {
	var r domain.Redemption
	var status string
	err := row.Scan(
		&r.ID, &r.MarketID, &r.ItemID, &r.Holder,
		&r.TopUpPaid, &r.AwardGranted, &r.AwardFallback,
		&status, &r.TxHash, &r.CreatedAt, &r.ConfirmedAt,
	)
	if err != nil {
		return domain.Redemption{}, err
	}
	r.Status = domain.RedemptionStatus(status)
	return r, nil
}

// Get retrieves a redemption by its primary key.
func (s *RedemptionStore) Get(ctx context.Context, id string) (domain.Redemption, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+redemptionCols+` FROM redemptions WHERE id = $1`, id)
	r, err := scanRedemption(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Redemption{}, domain.ErrNotFound
		}
		return domain.Redemption{}, fmt.Errorf("postgres: get redemption %s: %w", id, err)
	}
	return r, nil
}

// ListByMarket returns a market's redemptions, newest first.
func (s *RedemptionStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Redemption, error) {
	query := `SELECT ` + redemptionCols + ` FROM redemptions WHERE market_id = $1 ORDER BY created_at DESC`
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
		return nil, fmt.Errorf("postgres: list redemptions for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var redemptions []domain.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan redemption: %w", err)
		}
		redemptions = append(redemptions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list redemptions rows: %w", err)
	}
	return redemptions, nil
}

// UpdateStatus transitions a redemption's status and records the transaction
// hash and confirmation time.
func (s *RedemptionStore) UpdateStatus(ctx context.Context, id string, status domain.RedemptionStatus, txHash string, confirmedAt *time.Time) error {
	const query = `
		UPDATE redemptions
		SET status = $2, tx_hash = $3, confirmed_at = $4
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, string(status), txHash, confirmedAt)
	if err != nil {
		return fmt.Errorf("postgres: update redemption %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBefore returns confirmed redemptions created strictly before the
// cutoff, oldest first, for archival to cold storage.
func (s *RedemptionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Redemption, error) {
	const query = `
		SELECT ` + redemptionCols + `
		FROM redemptions
		WHERE status = 'confirmed' AND created_at < $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list redemptions before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var redemptions []domain.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan redemption: %w", err)
		}
		redemptions = append(redemptions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list redemptions before rows: %w", err)
	}
	return redemptions, nil
}

// Compile-time interface check.
var _ domain.RedemptionStore = (*RedemptionStore)(nil)
