package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orren/internal/storage"
)

// Store provides Postgres persistence for the quote audit trail.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutQuoteBatch inserts a batch of served-quote audit records.
func (s *Store) PutQuoteBatch(ctx context.Context, records []storage.QuoteRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO quote_audit (
				served_at, source_asset, dest_asset, amount, route_type,
				expected_out, score, latency_ms, fee_bps, net_out,
				native_out, improvement_bps, guarantee_win
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			record.ServedAt,
			record.SourceAsset,
			record.DestAsset,
			record.Amount,
			record.RouteType,
			record.ExpectedOut,
			record.Score,
			record.LatencyMS,
			record.FeeBps,
			record.NetOut,
			record.NativeOut,
			record.ImprovementBps,
			record.GuaranteeWin,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
