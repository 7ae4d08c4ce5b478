package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func TestRecorder_RecordsEveryBatch(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(zaptest.NewLogger(t), dir)
	s := newTestSession(t, newGame(), WithRecorder(recorder))
	require.True(t, recorder.IsRecording("match-1"))

	res, err := s.Execute(effect.DiscardCards{Count: 1}, effect.NewContext("p1"))
	require.NoError(t, err)
	_, err = s.Respond(res.Decision.Header().ID, state.CardsResponse{CardIDs: []string{"p1-hand-1"}})
	require.NoError(t, err)
	_, err = s.AdvanceStep()
	require.NoError(t, err)

	replay, ok := recorder.Replay("match-1")
	require.True(t, ok)
	require.Equal(t, 4, replay.Size())

	labels := make([]string, 0, replay.Size())
	for _, f := range replay.Frames() {
		labels = append(labels, f.Label)
	}
	assert.Equal(t, "start", labels[0])
	assert.Equal(t, "execute:DiscardCards", labels[1])
	assert.Equal(t, "advance:UPKEEP", labels[3])

	path, err := recorder.Save("match-1")
	require.NoError(t, err)
	_, ok = recorder.Replay("match-1")
	assert.False(t, ok)

	loaded, err := LoadReplayFile(path)
	require.NoError(t, err)
	assert.Equal(t, "match-1", loaded.MatchID)
	require.Equal(t, 4, loaded.Size())

	// the paused frame restores with its decision
	paused, ok := loaded.At(1)
	require.True(t, ok)
	st, err := paused.Decode()
	require.NoError(t, err)
	assert.NotNil(t, st.PendingDecision())

	last, ok := loaded.At(3)
	require.True(t, ok)
	st, err = last.Decode()
	require.NoError(t, err)
	assert.Equal(t, state.Checksum(s.State()), state.Checksum(st))

	fromDir, err := recorder.Load("match-1")
	require.NoError(t, err)
	assert.Equal(t, 4, fromDir.Size())
}

func TestReplay_Cursor(t *testing.T) {
	r := NewReplay("m")
	_, ok := r.Next()
	assert.False(t, ok)
	_, ok = r.Skip(1)
	assert.False(t, ok)

	s := newGame()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Record(int64(i), "frame", s))
	}

	f, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, int64(0), f.Sequence)
	f, _ = r.Next()
	assert.Equal(t, int64(1), f.Sequence)
	f, ok = r.Previous()
	require.True(t, ok)
	assert.Equal(t, int64(1), f.Sequence)

	f, _ = r.Skip(10)
	assert.Equal(t, int64(2), f.Sequence)
	f, _ = r.Skip(-10)
	assert.Equal(t, int64(0), f.Sequence)

	r.Start()
	_, ok = r.Previous()
	assert.False(t, ok)
	_, ok = r.At(3)
	assert.False(t, ok)
}

func TestFrame_DetectsCorruption(t *testing.T) {
	r := NewReplay("m")
	require.NoError(t, r.Record(0, "start", newGame()))
	f, _ := r.At(0)
	f.Checksum = "bogus"
	_, err := f.Decode()
	assert.Error(t, err)
}

func TestRecorder_SaveUnknownMatch(t *testing.T) {
	recorder := NewRecorder(nil, t.TempDir())
	_, err := recorder.Save("nope")
	assert.Error(t, err)

	recorder.StartRecording("x")
	recorder.Clear("x")
	assert.False(t, recorder.IsRecording("x"))
}
