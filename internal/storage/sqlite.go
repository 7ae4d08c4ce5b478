package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS match_snapshots (
	match_id   TEXT    NOT NULL,
	sequence   INTEGER NOT NULL,
	checksum   TEXT    NOT NULL,
	data       BLOB    NOT NULL,
	triggers   BLOB,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (match_id, sequence)
);`

// SQLiteStore keeps snapshots in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot stores rec, replacing a record with the same sequence.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := validate(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO match_snapshots (match_id, sequence, checksum, data, triggers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.MatchID, rec.Sequence, rec.Checksum, rec.Data, rec.Triggers, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the highest-sequence record for matchID.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, matchID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT match_id, sequence, checksum, data, triggers, created_at
		   FROM match_snapshots
		  WHERE match_id = ?
		  ORDER BY sequence DESC
		  LIMIT 1`,
		matchID,
	)
	var (
		rec     Record
		created int64
	)
	if err := row.Scan(&rec.MatchID, &rec.Sequence, &rec.Checksum, &rec.Data, &rec.Triggers, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load snapshot: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return rec, nil
}

// ListMatches returns the ids of all matches with snapshots, sorted.
func (s *SQLiteStore) ListMatches(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT match_id FROM match_snapshots ORDER BY match_id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan match id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteMatch removes every snapshot of matchID.
func (s *SQLiteStore) DeleteMatch(ctx context.Context, matchID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM match_snapshots WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}
