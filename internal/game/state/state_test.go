package state

import (
	"encoding/gob"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

type pendingDiscard struct {
	ID        string
	PlayerID  string
	Remaining int
}

func (c pendingDiscard) DecisionID() string { return c.ID }

func init() {
	gob.Register(pendingDiscard{})
}

func twoPlayerState() *State {
	s := New().
		WithPlayer("p1", "Alice", 20).
		WithPlayer("p2", "Bob", 20)
	for _, id := range []string{"c1", "c2", "c3"} {
		s = s.WithCard(id, CardComponent{Name: "Island", Types: []string{"Land"}, OwnerID: "p1"}, rules.ZoneLibrary)
	}
	s = s.WithCard("h1", CardComponent{Name: "Shock", Types: []string{"Instant"}, OwnerID: "p1"}, rules.ZoneHand)
	s = s.WithCard("bear", CardComponent{Name: "Grizzly Bears", Types: []string{"Creature"}, OwnerID: "p2"}, rules.ZoneBattlefield)
	return s
}

func TestNewStateTurnOrder(t *testing.T) {
	s := twoPlayerState()

	assert.Equal(t, []string{"p1", "p2"}, s.TurnOrder())
	assert.Equal(t, "p1", s.ActivePlayer())
	assert.Equal(t, 1, s.Turn())
	assert.Equal(t, 20, s.Life("p2"))
	assert.Equal(t, []string{"p2"}, s.Opponents("p1"))
	assert.True(t, s.IsPlayer("p1"))
	assert.False(t, s.IsPlayer("c1"))
}

func TestMoveCardDoesNotMutateOriginal(t *testing.T) {
	before := twoPlayerState()

	after, err := before.MoveCard("c1", LibraryOf("p1"), HandOf("p1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2", "c3"}, before.Zone(LibraryOf("p1")))
	assert.Equal(t, []string{"h1"}, before.Zone(HandOf("p1")))
	assert.Equal(t, []string{"c2", "c3"}, after.Zone(LibraryOf("p1")))
	assert.Equal(t, []string{"h1", "c1"}, after.Zone(HandOf("p1")))
}

func TestMoveCardRejectsWrongZone(t *testing.T) {
	s := twoPlayerState()

	out, err := s.MoveCard("h1", LibraryOf("p1"), GraveyardOf("p1"))
	require.ErrorIs(t, err, ErrCardNotInZone)
	assert.Same(t, s, out)
	assert.True(t, s.InZone(HandOf("p1"), "h1"))
}

func TestMoveCardLeavingBattlefieldClearsPermanentState(t *testing.T) {
	s := twoPlayerState()
	s, err := s.WithDamage("bear", 1)
	require.NoError(t, err)

	e, _ := s.Entity("bear")
	assert.Equal(t, "p2", e.ControllerID())

	s, err = s.MoveCard("bear", Battlefield, GraveyardOf("p2"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Damage("bear"))
	key, ok := s.ZoneOf("bear")
	require.True(t, ok)
	assert.Equal(t, GraveyardOf("p2"), key)
}

func TestSharedZoneKeyIgnoresOwner(t *testing.T) {
	assert.Equal(t, Battlefield, Key("p1", rules.ZoneBattlefield))
	assert.Equal(t, "HAND(p1)", HandOf("p1").String())
}

func TestWithZoneOrderRequiresPermutation(t *testing.T) {
	s := twoPlayerState()

	shuffled, err := s.WithZoneOrder(LibraryOf("p1"), []string{"c3", "c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1", "c2"}, shuffled.Zone(LibraryOf("p1")))

	_, err = s.WithZoneOrder(LibraryOf("p1"), []string{"c3", "c1", "h1"})
	assert.Error(t, err)
	_, err = s.WithZoneOrder(LibraryOf("p1"), []string{"c1"})
	assert.Error(t, err)
}

func TestContinuationStackIsLIFO(t *testing.T) {
	s := twoPlayerState().
		PushContinuation(pendingDiscard{ID: "d1"}).
		PushContinuation(pendingDiscard{ID: "d2"})

	assert.Equal(t, 2, s.ContinuationDepth())

	s, top, ok := s.PopContinuation()
	require.True(t, ok)
	assert.Equal(t, "d2", top.DecisionID())

	s, top, ok = s.PopContinuation()
	require.True(t, ok)
	assert.Equal(t, "d1", top.DecisionID())

	_, _, ok = s.PopContinuation()
	assert.False(t, ok)
}

func TestPushDoesNotShareBackingArray(t *testing.T) {
	base := twoPlayerState().PushContinuation(pendingDiscard{ID: "base"})
	a := base.PushContinuation(pendingDiscard{ID: "a"})
	b := base.PushContinuation(pendingDiscard{ID: "b"})

	topA, _ := a.PeekContinuation()
	topB, _ := b.PeekContinuation()
	assert.Equal(t, "a", topA.DecisionID())
	assert.Equal(t, "b", topB.DecisionID())
	assert.Equal(t, 1, base.ContinuationDepth())
}

func TestFirstShieldPicksOldestMatch(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := twoPlayerState().
		AddFloatingEffect(FloatingEffect{ID: "newer", Modification: PreventDamage{Amount: 2}, AffectedPlayers: []string{"p1"}, Timestamp: t0.Add(time.Second)}).
		AddFloatingEffect(FloatingEffect{ID: "older", Modification: PreventDamage{Amount: 3}, AffectedPlayers: []string{"p1"}, Timestamp: t0}).
		AddFloatingEffect(FloatingEffect{ID: "other", Modification: PreventDamage{Amount: 1}, AffectedPlayers: []string{"p2"}, Timestamp: t0.Add(-time.Second)})

	shield, ok := s.FirstShield(ModPreventDamage, "p1")
	require.True(t, ok)
	assert.Equal(t, "older", shield.ID)

	_, ok = s.FirstShield(ModReplaceDraw, "p1")
	assert.False(t, ok)

	trimmed := s.RemoveFloatingEffect("older")
	assert.Len(t, trimmed.FloatingEffects(), 2)
	assert.Len(t, s.FloatingEffects(), 3)
}

func TestDecisionValidation(t *testing.T) {
	selection := CardSelectionDecision{
		DecisionHeader: DecisionHeader{ID: "d1", PlayerID: "p1"},
		Options:        []string{"a", "b", "c"},
		Min:            1,
		Max:            2,
	}

	assert.NoError(t, selection.Validate(CardsResponse{CardIDs: []string{"a"}}))
	assert.ErrorIs(t, selection.Validate(CardsResponse{}), ErrInvalidResponse)
	assert.ErrorIs(t, selection.Validate(CardsResponse{CardIDs: []string{"a", "b", "c"}}), ErrInvalidResponse)
	assert.ErrorIs(t, selection.Validate(CardsResponse{CardIDs: []string{"z"}}), ErrInvalidResponse)
	assert.ErrorIs(t, selection.Validate(CardsResponse{CardIDs: []string{"a", "a"}}), ErrInvalidResponse)
	assert.ErrorIs(t, selection.Validate(YesNoResponse{Yes: true}), ErrInvalidResponse)
	assert.Equal(t, CardsResponse{CardIDs: []string{"a"}}, selection.DefaultResponse())

	number := NumberDecision{Min: 1, Max: 3}
	assert.NoError(t, number.Validate(NumberResponse{Value: 3}))
	assert.Error(t, number.Validate(NumberResponse{Value: 4}))
	assert.Equal(t, NumberResponse{Value: 1}, number.DefaultResponse())

	yesNo := YesNoDecision{}
	assert.NoError(t, yesNo.Validate(YesNoResponse{}))
	assert.Equal(t, YesNoResponse{Yes: false}, yesNo.DefaultResponse())
}

func TestSnapshotRoundTripMidPause(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	decision := CardSelectionDecision{
		DecisionHeader: DecisionHeader{ID: "d1", PlayerID: "p1", Context: DecisionContext{SourceName: "Mind Rot", Step: rules.StepMain1}},
		Options:        []string{"h1"},
		Min:            1,
		Max:            1,
	}
	s := twoPlayerState().
		WithStep(rules.PhasePrecombatMain, rules.StepMain1).
		AddFloatingEffect(FloatingEffect{
			ID:              "shield",
			Modification:    ReplaceDrawWithEffect{Effect: effect.DealDamage{Amount: 2, Target: effect.TargetChosen}, Context: effect.NewContext("p2").WithTargets("p1")},
			Duration:        effect.DurationEndOfTurn,
			AffectedPlayers: []string{"p1"},
			Timestamp:       t0,
		}).
		PushContinuation(pendingDiscard{ID: "d1", PlayerID: "p1", Remaining: 1}).
		WithPendingDecision(decision)

	data, err := Encode(s)
	require.NoError(t, err)

	restored, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, Checksum(s), Checksum(restored))
	assert.True(t, VerifyChecksum(restored, Checksum(s)))
	assert.Equal(t, rules.StepMain1, restored.Step())
	assert.Equal(t, s.Zone(LibraryOf("p1")), restored.Zone(LibraryOf("p1")))

	top, ok := restored.PeekContinuation()
	require.True(t, ok)
	assert.Equal(t, pendingDiscard{ID: "d1", PlayerID: "p1", Remaining: 1}, top)

	pending, ok := restored.PendingDecision().(CardSelectionDecision)
	require.True(t, ok)
	assert.Equal(t, "d1", pending.ID)
	assert.Equal(t, "Mind Rot", pending.Context.SourceName)

	floating := restored.FloatingEffects()
	require.Len(t, floating, 1)
	replace, ok := floating[0].Modification.(ReplaceDrawWithEffect)
	require.True(t, ok)
	assert.Equal(t, effect.DealDamage{Amount: 2, Target: effect.TargetChosen}, replace.Effect)
	assert.Equal(t, []string{"p1"}, replace.Context.Targets)
	assert.True(t, floating[0].Timestamp.Equal(t0))
}

func TestChecksumChangesWithState(t *testing.T) {
	s := twoPlayerState()
	moved, err := s.MoveCard("c1", LibraryOf("p1"), HandOf("p1"))
	require.NoError(t, err)

	assert.NotEqual(t, Checksum(s), Checksum(moved))
	assert.Equal(t, Checksum(s), Checksum(twoPlayerState()))
}
