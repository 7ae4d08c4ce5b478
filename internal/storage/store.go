// Package storage persists encoded match snapshots so a paused match can be
// restored after a restart.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a match has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Record is one persisted snapshot. Sequence increases with every batch the
// match applies; the latest record wins. Triggers holds the encoded trigger
// stack and is empty when nothing is stacked.
type Record struct {
	MatchID   string
	Sequence  int64
	Checksum  string
	Data      []byte
	Triggers  []byte
	CreatedAt time.Time
}

// Store is implemented by every snapshot backend.
type Store interface {
	SaveSnapshot(ctx context.Context, rec Record) error
	LatestSnapshot(ctx context.Context, matchID string) (Record, error)
	ListMatches(ctx context.Context) ([]string, error)
	DeleteMatch(ctx context.Context, matchID string) error
	Close() error
}

func validate(rec Record) (Record, error) {
	rec.MatchID = strings.TrimSpace(rec.MatchID)
	if rec.MatchID == "" {
		return rec, fmt.Errorf("match id is required")
	}
	if len(rec.Data) == 0 {
		return rec, fmt.Errorf("snapshot data is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
