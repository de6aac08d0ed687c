package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const upsertMarketSQL = `
	INSERT INTO markets (
		platform, market_id, question, yes_price, no_price,
		liquidity, volume, end_date, raw, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, NOW()
	)
	ON CONFLICT (platform, market_id) DO UPDATE SET
		question   = EXCLUDED.question,
		yes_price  = EXCLUDED.yes_price,
		no_price   = EXCLUDED.no_price,
		liquidity  = EXCLUDED.liquidity,
		volume     = EXCLUDED.volume,
		end_date   = EXCLUDED.end_date,
		raw        = EXCLUDED.raw,
		updated_at = NOW()`

// UpsertBatch writes the latest quote for each market in one round trip.
// Markets without an ID or with an unknown platform cannot be keyed and are
// skipped.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	batch := &pgx.Batch{}
	for _, m := range markets {
		if m.MarketID == "" || !m.Platform.Valid() {
			continue
		}
		var raw []byte
		if len(m.RawData) > 0 {
			raw = m.RawData
		}
		batch.Queue(upsertMarketSQL,
			string(m.Platform), m.MarketID, m.Question, m.YesPrice, m.NoPrice,
			m.Liquidity, m.Volume, m.EndDate, raw,
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
	}
	return nil
}

const marketCols = `platform, market_id, question, yes_price, no_price,
	liquidity, volume, end_date, raw`

// ListFresh returns up to limit markets of platform updated at or after
// since, newest first.
func (s *MarketStore) ListFresh(ctx context.Context, platform domain.Platform, since time.Time, limit int) ([]domain.Market, error) {
	if !platform.Valid() {
		return nil, fmt.Errorf("postgres: list fresh markets: unknown platform %q: %w", platform, domain.ErrBadRequest)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE platform = $1 AND updated_at >= $2
		 ORDER BY updated_at DESC
		 LIMIT $3`,
		string(platform), since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fresh %s markets: %w", platform, err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fresh %s markets: %w", platform, err)
	}
	return out, nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m        domain.Market
		platform string
		raw      []byte
	)
	err := row.Scan(
		&platform, &m.MarketID, &m.Question, &m.YesPrice, &m.NoPrice,
		&m.Liquidity, &m.Volume, &m.EndDate, &raw,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Platform = domain.Platform(platform)
	if len(raw) > 0 {
		m.RawData = raw
	}
	return m, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
