package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/engine"
	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/storage"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t), nil)

	a, err := m.Create("a", newGame())
	require.NoError(t, err)
	_, err = m.Create("a", newGame())
	assert.ErrorIs(t, err, ErrSessionExists)

	generated, err := m.Create("", newGame())
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID())

	got, err := m.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, 2, m.Count())
	assert.Contains(t, m.List(), "a")

	require.NoError(t, m.Remove("a"))
	_, err = m.Get("a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Remove("a"), ErrSessionNotFound)

	_, err = a.Execute(effect.GainLife{Amount: 1}, effect.NewContext("p1"))
	assert.ErrorIs(t, err, ErrSessionClosed)

	m.CloseAll()
	assert.Zero(t, m.Count())
	_, err = generated.AdvanceStep()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t), nil)
	a, err := m.Create("a", newGame())
	require.NoError(t, err)
	b, err := m.Create("b", newGame())
	require.NoError(t, err)

	_, err = a.Execute(effect.LoseLife{Amount: 5}, effect.NewContext("p1"))
	require.NoError(t, err)

	assert.Equal(t, 15, a.State().Life("p1"))
	assert.Equal(t, 20, b.State().Life("p1"))
}

func TestManager_RestoreMidPause(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	reg := testRegistry(t)

	first := NewManager(zaptest.NewLogger(t), store, WithRegistry(reg))
	s, err := first.Create("match", withPermanent(newGame(), "dreams", "Underworld Dreams", "p1"))
	require.NoError(t, err)

	res, err := s.Execute(effect.Sequence{Effects: []effect.Effect{
		effect.DrawCards{Count: 1},
		effect.DiscardCards{Count: 1},
		effect.GainLife{Amount: 3},
	}}, effect.NewContext("p2"))
	require.NoError(t, err)
	require.Equal(t, engine.StatusPaused, res.Status)
	wantTriggers := s.PendingTriggers()
	require.Len(t, wantTriggers, 1)
	_, wantSum, err := s.Snapshot()
	require.NoError(t, err)
	first.CloseAll()

	second := NewManager(zaptest.NewLogger(t), store, WithRegistry(reg))
	restored, err := second.Restore(context.Background(), "match")
	require.NoError(t, err)
	assert.Equal(t, int64(1), restored.Sequence())
	assert.Equal(t, wantTriggers, restored.PendingTriggers())

	_, gotSum, err := restored.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, wantSum, gotSum)

	res, err = restored.Respond(res.Decision.Header().ID, state.CardsResponse{CardIDs: []string{"p2-hand-1"}})
	require.NoError(t, err)
	require.Equal(t, engine.StatusSuccess, res.Status)
	assert.Equal(t, 23, restored.State().Life("p2"))

	res, err = restored.ResolveNextTrigger()
	require.NoError(t, err)
	require.Equal(t, engine.StatusSuccess, res.Status)
	assert.Equal(t, 22, restored.State().Life("p2"))
	assert.Empty(t, restored.PendingTriggers())

	rec, err := store.LatestSnapshot(context.Background(), "match")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Sequence)
	assert.Empty(t, rec.Triggers)

	_, err = second.Restore(context.Background(), "match")
	assert.ErrorIs(t, err, ErrSessionExists)
	_, err = second.Restore(context.Background(), "unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestManager_RestoreWithoutStore(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t), nil)
	_, err := m.Restore(context.Background(), "x")
	assert.Error(t, err)
}
