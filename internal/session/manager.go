package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/game/triggers"
)

// Manager tracks running sessions. Sessions share nothing but the options
// the manager hands to each of them.
type Manager struct {
	logger *zap.Logger
	store  Store
	opts   []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. store may be nil; when set, every session
// persists snapshots to it and Restore can rebuild sessions from it.
func NewManager(logger *zap.Logger, store Store, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:   logger,
		store:    store,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) options(extra []Option) []Option {
	opts := []Option{WithLogger(m.logger)}
	if m.store != nil {
		opts = append(opts, WithStore(m.store))
	}
	opts = append(opts, m.opts...)
	return append(opts, extra...)
}

// Create starts a session. An empty id gets a generated one.
func (m *Manager) Create(id string, initial *state.State, opts ...Option) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	s := New(id, initial, m.options(opts)...)
	m.sessions[id] = s

	m.logger.Info("session created",
		zap.String("session_id", id),
		zap.Strings("players", initial.TurnOrder()),
	)
	return s, nil
}

// Restore rebuilds a session from its latest stored snapshot. Paused work and
// stacked triggers come back with it.
func (m *Manager) Restore(ctx context.Context, id string, opts ...Option) (*Session, error) {
	if m.store == nil {
		return nil, fmt.Errorf("restore %s: no snapshot store configured", id)
	}
	rec, err := m.store.LatestSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	st, err := state.Decode(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	if rec.Checksum != "" && !state.VerifyChecksum(st, rec.Checksum) {
		return nil, fmt.Errorf("restore %s: checksum mismatch at sequence %d", id, rec.Sequence)
	}
	stacked, err := triggers.DecodeStack(rec.Triggers)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	s := New(id, st, append(m.options(opts), withSequence(rec.Sequence), withTriggers(stacked))...)
	m.sessions[id] = s

	m.logger.Info("session restored",
		zap.String("session_id", id),
		zap.Int64("sequence", rec.Sequence),
		zap.Bool("paused", st.PendingDecision() != nil),
		zap.Int("triggers", len(stacked)),
	)
	return s, nil
}

// Get returns a running session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove closes and forgets a session.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	m.logger.Info("session removed", zap.String("session_id", id))
	return nil
}

// List returns the ids of running sessions, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of running sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.logger.Info("all sessions closed", zap.Int("count", len(sessions)))
}
