package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS match_snapshots (
	match_id   TEXT        NOT NULL,
	sequence   BIGINT      NOT NULL,
	checksum   TEXT        NOT NULL,
	data       BYTEA       NOT NULL,
	triggers   BYTEA,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, sequence)
)`

// PostgresStore keeps snapshots in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to url, verifies the connection and applies the
// schema.
func OpenPostgres(ctx context.Context, url string, maxConns int32, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	stats := pool.Stat()
	logger.Info("snapshot store connected",
		zap.Int32("max_conns", stats.MaxConns()),
		zap.Int32("total_conns", stats.TotalConns()),
	)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// SaveSnapshot stores rec, replacing a record with the same sequence.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, rec Record) error {
	rec, err := validate(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO match_snapshots (match_id, sequence, checksum, data, triggers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, sequence)
		DO UPDATE SET checksum = EXCLUDED.checksum, data = EXCLUDED.data,
		              triggers = EXCLUDED.triggers, created_at = EXCLUDED.created_at`,
		rec.MatchID, rec.Sequence, rec.Checksum, rec.Data, rec.Triggers, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the highest-sequence record for matchID.
func (s *PostgresStore) LatestSnapshot(ctx context.Context, matchID string) (Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, `
		SELECT match_id, sequence, checksum, data, triggers, created_at
		  FROM match_snapshots
		 WHERE match_id = $1
		 ORDER BY sequence DESC
		 LIMIT 1`, matchID,
	).Scan(&rec.MatchID, &rec.Sequence, &rec.Checksum, &rec.Data, &rec.Triggers, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load snapshot: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// ListMatches returns the ids of all matches with snapshots, sorted.
func (s *PostgresStore) ListMatches(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT match_id FROM match_snapshots ORDER BY match_id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan match ids: %w", err)
	}
	return ids, nil
}

// DeleteMatch removes every snapshot of matchID.
func (s *PostgresStore) DeleteMatch(ctx context.Context, matchID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM match_snapshots WHERE match_id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	s.logger.Debug("deleted match snapshots",
		zap.String("match_id", matchID),
		zap.Int64("rows", tag.RowsAffected()),
	)
	return nil
}
