package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	n := 0
	return New(
		WithLogger(zaptest.NewLogger(t)),
		WithRandom(NewRandom(42)),
		WithClock(NewTickClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)),
		WithIDSource(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

// newGame builds a two-player game. p1 is active.
func newGame() *state.State {
	return state.New().
		WithPlayer("p1", "Alice", 20).
		WithPlayer("p2", "Bob", 20)
}

// addCards puts n cards named after owner/zone into a zone and returns their
// ids in order.
func addCards(s *state.State, owner string, zone rules.Zone, n int, types ...string) (*state.State, []string) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%s-%d", owner, zone, s.ZoneSize(state.Key(owner, zone))+1)
		s = s.WithCard(id, state.CardComponent{Name: id, Types: types, OwnerID: owner}, zone)
		ids = append(ids, id)
	}
	return s, ids
}

func eventTypes(events []rules.Event) []rules.EventType {
	out := make([]rules.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func findEvent(t *testing.T, events []rules.Event, typ rules.EventType) rules.Event {
	t.Helper()
	for _, e := range events {
		if e.Type == typ {
			return e
		}
	}
	require.Failf(t, "event not found", "no %s in %v", typ, eventTypes(events))
	return rules.Event{}
}

func countEvents(events []rules.Event, typ rules.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func requirePaused(t *testing.T, res Result) state.Decision {
	t.Helper()
	require.Equal(t, StatusPaused, res.Status, "message: %s", res.Message)
	require.NotNil(t, res.Decision)
	return res.Decision
}

func requireSuccess(t *testing.T, res Result) {
	t.Helper()
	require.Equal(t, StatusSuccess, res.Status, "message: %s", res.Message)
	require.False(t, res.Ignored)
}
