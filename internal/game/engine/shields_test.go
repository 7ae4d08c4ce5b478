package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

// installDrawShield has p2 replace p1's next draw with damage to target.
func installDrawShield(t *testing.T, p *Pipeline, s *state.State, replacement effect.Effect, target string) *state.State {
	t.Helper()
	ctx := effect.NewContext("p2").WithSource("shield-src", "Hostile Oracle").WithTargets(target)
	res := p.Execute(s, effect.CreateDrawReplacement{Player: effect.TargetOpponent, Replacement: replacement}, ctx)
	requireSuccess(t, res)
	require.Len(t, res.State.FloatingEffects(), 1)
	return res.State
}

func TestDrawReplacement_ConsumedOnceThenNormalDraw(t *testing.T) {
	p := newTestPipeline(t)
	s, library := addCards(newGame(), "p1", rules.ZoneLibrary, 3)
	s = installDrawShield(t, p, s, effect.DealDamage{Amount: 3, Target: effect.TargetChosen}, "p1")

	shield := s.FloatingEffects()[0]
	assert.Equal(t, []string{"p1"}, shield.AffectedPlayers)
	assert.Equal(t, effect.DurationEndOfTurn, shield.Duration)

	res := p.Execute(s, effect.DrawCards{Count: 1}, effect.NewContext("p1"))
	requireSuccess(t, res)
	assert.Equal(t, 17, res.State.Life("p1"))
	assert.Zero(t, res.State.ZoneSize(state.HandOf("p1")))
	assert.Equal(t, library, res.State.Zone(state.LibraryOf("p1")))
	assert.Empty(t, res.State.FloatingEffects())
	assert.Equal(t, 0, countEvents(res.Events, rules.EventCardsDrawn))
	assert.Equal(t, shield.ID, findEvent(t, res.Events, rules.EventFloatingEffectConsumed).EffectID)

	res = p.Execute(res.State, effect.DrawCards{Count: 1}, effect.NewContext("p1"))
	requireSuccess(t, res)
	assert.Equal(t, library[:1], res.State.Zone(state.HandOf("p1")))
	assert.Equal(t, 17, res.State.Life("p1"))
}

func TestDrawReplacement_OnlyFirstOfSeveralDraws(t *testing.T) {
	p := newTestPipeline(t)
	s, library := addCards(newGame(), "p1", rules.ZoneLibrary, 5)
	s = installDrawShield(t, p, s, effect.DealDamage{Amount: 2, Target: effect.TargetChosen}, "p2")

	res := p.Execute(s, effect.DrawCards{Count: 3}, effect.NewContext("p1"))
	requireSuccess(t, res)

	assert.Equal(t, []rules.EventType{
		rules.EventFloatingEffectConsumed,
		rules.EventDamageDealt,
		rules.EventLifeChanged,
		rules.EventCardsDrawn,
		rules.EventZoneChange,
		rules.EventZoneChange,
	}, eventTypes(res.Events))
	assert.Equal(t, library[:2], res.State.Zone(state.HandOf("p1")))
	assert.Equal(t, 18, res.State.Life("p2"))
	assert.Zero(t, res.State.ContinuationDepth())
}

func TestDrawReplacement_PausingReplacementKeepsRemainingDraws(t *testing.T) {
	p := newTestPipeline(t)
	s, library := addCards(newGame(), "p1", rules.ZoneLibrary, 5)
	s = installDrawShield(t, p, s, effect.MayDo{Player: effect.TargetOpponent, Effect: effect.LoseLife{Amount: 4, Player: effect.TargetOpponent}}, "p1")

	res := p.Execute(s, effect.DrawCards{Count: 3}, effect.NewContext("p1"))
	d := requirePaused(t, res)
	assert.Equal(t, "p1", d.Header().PlayerID)

	stack := res.State.Continuations()
	require.Len(t, stack, 2)
	assert.Equal(t, DrawRemainingContinuation{PlayerID: "p1", Remaining: 2, Context: effect.NewContext("p1")}, stack[0])
	assert.IsType(t, MayContinuation{}, stack[1])

	res = p.Resume(res.State, d.Header().ID, state.YesNoResponse{Yes: true})
	requireSuccess(t, res)
	assert.Equal(t, 16, res.State.Life("p1"))
	assert.Equal(t, library[:2], res.State.Zone(state.HandOf("p1")))
	assert.Zero(t, res.State.ContinuationDepth())
	assert.Equal(t, []rules.EventType{
		rules.EventDecisionResolved,
		rules.EventChoiceMade,
		rules.EventLifeChanged,
		rules.EventCardsDrawn,
		rules.EventZoneChange,
		rules.EventZoneChange,
	}, eventTypes(res.Events))
}

func TestDrawReplacement_OldestShieldFirst(t *testing.T) {
	p := newTestPipeline(t)
	s, _ := addCards(newGame(), "p1", rules.ZoneLibrary, 5)
	s = installDrawShield(t, p, s, effect.GainLife{Amount: 1, Player: effect.TargetOpponent}, "p1")

	res := p.Execute(s, effect.CreateDrawReplacement{Player: effect.TargetOpponent, Replacement: effect.GainLife{Amount: 5, Player: effect.TargetOpponent}}, effect.NewContext("p2"))
	requireSuccess(t, res)
	require.Len(t, res.State.FloatingEffects(), 2)

	res = p.Execute(res.State, effect.DrawCards{Count: 1}, effect.NewContext("p1"))
	requireSuccess(t, res)
	assert.Equal(t, 21, res.State.Life("p1"))
	require.Len(t, res.State.FloatingEffects(), 1)
}

func TestDamagePrevention(t *testing.T) {
	p := newTestPipeline(t)
	s := newGame()

	res := p.Execute(s, effect.CreateDamagePrevention{Amount: 2}, effect.NewContext("p1"))
	requireSuccess(t, res)

	res = p.Execute(res.State, effect.DealDamage{Amount: 3, Target: effect.TargetOpponent}, effect.NewContext("p2"))
	requireSuccess(t, res)
	assert.Equal(t, 19, res.State.Life("p1"))
	assert.Equal(t, 2, findEvent(t, res.Events, rules.EventDamagePrevented).Amount)
	assert.Equal(t, 1, findEvent(t, res.Events, rules.EventDamageDealt).Amount)
	assert.Empty(t, res.State.FloatingEffects())

	res = p.Execute(res.State, effect.DealDamage{Amount: 3, Target: effect.TargetOpponent}, effect.NewContext("p2"))
	requireSuccess(t, res)
	assert.Equal(t, 16, res.State.Life("p1"))
}

func TestDamagePrevention_FullyPrevented(t *testing.T) {
	p := newTestPipeline(t)
	res := p.Execute(newGame(), effect.CreateDamagePrevention{Amount: 5}, effect.NewContext("p1"))
	requireSuccess(t, res)

	res = p.Execute(res.State, effect.DealDamage{Amount: 3, Target: effect.Player("p1")}, effect.NewContext("p2"))
	requireSuccess(t, res)
	assert.Equal(t, 20, res.State.Life("p1"))
	assert.Equal(t, 0, countEvents(res.Events, rules.EventDamageDealt))
}

func TestExpireFloatingEffects(t *testing.T) {
	p := newTestPipeline(t)
	ctx := effect.NewContext("p1")
	s := newGame()
	for _, d := range []effect.Duration{effect.DurationEndOfTurn, effect.DurationEndOfCombat, effect.DurationPermanent} {
		res := p.Execute(s, effect.CreateDamagePrevention{Amount: 1, Duration: d}, ctx)
		requireSuccess(t, res)
		s = res.State
	}

	afterCombat, events := ExpireFloatingEffects(s, effect.DurationEndOfCombat)
	require.Len(t, events, 1)
	assert.Equal(t, rules.EventFloatingEffectExpired, events[0].Type)
	assert.Len(t, afterCombat.FloatingEffects(), 2)

	afterTurn := p.ExpireFloatingEffects(afterCombat, effect.DurationEndOfTurn)
	remaining := afterTurn.FloatingEffects()
	require.Len(t, remaining, 1)
	assert.Equal(t, effect.DurationPermanent, remaining[0].Duration)

	assert.Same(t, afterTurn, p.ExpireFloatingEffects(afterTurn, effect.DurationPermanent))
	assert.Len(t, s.FloatingEffects(), 3)
}
