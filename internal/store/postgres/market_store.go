package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mintrail/phygmarket/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Upsert inserts or updates a single market. Durations are stored as whole
// seconds, matching the on-chain schedule reads.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, creator, contract, name, kind,
			initialized_at, trading_seconds, redemption_seconds,
			total_locked_value, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			creator            = EXCLUDED.creator,
			contract           = EXCLUDED.contract,
			name               = EXCLUDED.name,
			kind               = EXCLUDED.kind,
			initialized_at     = EXCLUDED.initialized_at,
			trading_seconds    = EXCLUDED.trading_seconds,
			redemption_seconds = EXCLUDED.redemption_seconds,
			total_locked_value = EXCLUDED.total_locked_value,
			updated_at         = NOW()`

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Creator, m.Contract, m.Name, string(m.Kind),
		m.InitializedAt,
		int64(m.TradingDuration/time.Second),
		int64(m.RedemptionDuration/time.Second),
		m.TotalLockedValue, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

const marketCols = `id, creator, contract, name, kind,
	initialized_at, trading_seconds, redemption_seconds,
	total_locked_value, created_at, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var kind string
	var tradingSec, redemptionSec int64
	err := row.Scan(
		&m.ID, &m.Creator, &m.Contract, &m.Name, &kind,
		&m.InitializedAt, &tradingSec, &redemptionSec,
		&m.TotalLockedValue, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Kind = domain.MarketKind(kind)
	m.TradingDuration = time.Duration(tradingSec) * time.Second
	m.RedemptionDuration = time.Duration(redemptionSec) * time.Second
	return m, nil
}

// Get retrieves a market by its primary key.
func (s *MarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns markets ordered by creation time, newest first.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ORDER BY created_at DESC`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// ListLive returns initialized markets whose redemption window has not yet
// closed at the given instant. The phase ticker drives a countdown for each.
func (s *MarketStore) ListLive(ctx context.Context, now time.Time) ([]domain.Market, error) {
	const query = `
		SELECT ` + marketCols + `
		FROM markets
		WHERE initialized_at IS NOT NULL
		  AND initialized_at + (trading_seconds + redemption_seconds) * INTERVAL '1 second' > $1
		ORDER BY initialized_at`

	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: list live markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan live market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list live markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
