package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func TestDrawCards_EmptyLibraryIsSoftFailure(t *testing.T) {
	p := newTestPipeline(t)
	s, library := addCards(newGame(), "p1", rules.ZoneLibrary, 2)

	res := p.Execute(s, effect.DrawCards{Count: 3}, effect.NewContext("p1"))
	requireSuccess(t, res)

	assert.Equal(t, []rules.EventType{
		rules.EventCardsDrawn,
		rules.EventZoneChange,
		rules.EventZoneChange,
		rules.EventDrawFailed,
	}, eventTypes(res.Events))
	drawn := findEvent(t, res.Events, rules.EventCardsDrawn)
	assert.Equal(t, library, drawn.CardIDs)
	assert.Equal(t, 2, drawn.Amount)
	assert.Equal(t, "Empty library", findEvent(t, res.Events, rules.EventDrawFailed).Reason)

	assert.Equal(t, library, res.State.Zone(state.HandOf("p1")))
	assert.Zero(t, res.State.ZoneSize(state.LibraryOf("p1")))
	// input untouched
	assert.Equal(t, library, s.Zone(state.LibraryOf("p1")))
}

func TestDrawCards_CountFromX(t *testing.T) {
	p := newTestPipeline(t)
	s, _ := addCards(newGame(), "p1", rules.ZoneLibrary, 5)

	res := p.Execute(s, effect.ChooseNumber{Min: 0, Max: 3, Then: effect.DrawCards{CountFromX: true}}, effect.NewContext("p1"))
	d := requirePaused(t, res)
	assert.Equal(t, state.DecisionNumber, d.Kind())

	res = p.Resume(res.State, d.Header().ID, state.NumberResponse{Value: 2})
	requireSuccess(t, res)
	assert.Equal(t, 2, res.State.ZoneSize(state.HandOf("p1")))
	assert.Equal(t, 2, findEvent(t, res.Events, rules.EventChoiceMade).Amount)
}

func TestDiscardHand_MovesWholeHandWithoutDecision(t *testing.T) {
	p := newTestPipeline(t)
	s, hand := addCards(newGame(), "p1", rules.ZoneHand, 4)

	res := p.Execute(s, effect.DiscardHand{}, effect.NewContext("p1"))
	requireSuccess(t, res)

	require.Len(t, res.Events, 1+len(hand))
	assert.Equal(t, rules.EventCardsDiscarded, res.Events[0].Type)
	assert.Equal(t, hand, res.Events[0].CardIDs)
	for i, id := range hand {
		zc := res.Events[i+1]
		assert.Equal(t, rules.EventZoneChange, zc.Type)
		assert.Equal(t, id, zc.TargetID)
		assert.Equal(t, rules.ZoneHand, zc.FromZone)
		assert.Equal(t, rules.ZoneGraveyard, zc.ToZone)
	}
	assert.Zero(t, res.State.ZoneSize(state.HandOf("p1")))
	assert.Equal(t, hand, res.State.Zone(state.GraveyardOf("p1")))
	assert.Nil(t, res.State.PendingDecision())
	assert.Zero(t, res.State.ContinuationDepth())
}

func TestDiscardCards_AsksWhenHandIsLarger(t *testing.T) {
	p := newTestPipeline(t)
	s, hand := addCards(newGame(), "p1", rules.ZoneHand, 3)

	res := p.Execute(s, effect.DiscardCards{Count: 2}, effect.NewContext("p1"))
	d := requirePaused(t, res).(state.CardSelectionDecision)
	assert.Equal(t, 2, d.Min)
	assert.Equal(t, 2, d.Max)
	assert.Equal(t, hand, d.Options)

	res = p.Resume(res.State, d.ID, state.CardsResponse{CardIDs: []string{hand[0], hand[2]}})
	requireSuccess(t, res)
	assert.Equal(t, []string{hand[1]}, res.State.Zone(state.HandOf("p1")))
	assert.Equal(t, []rules.EventType{
		rules.EventDecisionResolved,
		rules.EventCardsDiscarded,
		rules.EventZoneChange,
		rules.EventZoneChange,
	}, eventTypes(res.Events))
}

func TestDiscardRandomAndMill(t *testing.T) {
	p := newTestPipeline(t)
	s, _ := addCards(newGame(), "p2", rules.ZoneHand, 4)
	s, library := addCards(s, "p2", rules.ZoneLibrary, 4)

	res := p.Execute(s, effect.Sequence{Effects: []effect.Effect{
		effect.DiscardRandom{Count: 2, Player: effect.TargetOpponent},
		effect.Mill{Count: 3, Player: effect.TargetOpponent},
	}}, effect.NewContext("p1"))
	requireSuccess(t, res)

	assert.Equal(t, 2, res.State.ZoneSize(state.HandOf("p2")))
	assert.Equal(t, library[3:], res.State.Zone(state.LibraryOf("p2")))
	assert.Equal(t, 5, res.State.ZoneSize(state.GraveyardOf("p2")))
	assert.Equal(t, library[:3], findEvent(t, res.Events, rules.EventCardsMilled).CardIDs)
}

func TestRevealAndDiscard_TwoPlayerChoice(t *testing.T) {
	p := newTestPipeline(t)
	s, hand := addCards(newGame(), "p2", rules.ZoneHand, 5)
	ctx := effect.NewContext("p1").WithSource("src", "Thoughtseize Variant")

	res := p.Execute(s, effect.RevealAndDiscard{Player: effect.TargetOpponent, RevealCount: 3, DiscardCount: 1}, ctx)
	first := requirePaused(t, res).(state.CardSelectionDecision)
	assert.Equal(t, "p2", first.PlayerID)
	assert.Equal(t, 3, first.Min)
	assert.Equal(t, 3, first.Max)
	assert.Equal(t, "Thoughtseize Variant", first.Context.SourceName)

	revealed := []string{hand[0], hand[2], hand[4]}
	res = p.Resume(res.State, first.ID, state.CardsResponse{CardIDs: revealed})
	second := requirePaused(t, res).(state.CardSelectionDecision)
	assert.Equal(t, "p1", second.PlayerID)
	assert.Equal(t, 1, second.Min)
	assert.Equal(t, 1, second.Max)
	assert.Equal(t, revealed, second.Options)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, revealed, findEvent(t, res.Events, rules.EventCardsRevealed).CardIDs)
	assert.Equal(t, 1, res.State.ContinuationDepth())

	res = p.Resume(res.State, second.ID, state.CardsResponse{CardIDs: []string{hand[2]}})
	requireSuccess(t, res)
	assert.Equal(t, []string{hand[2]}, res.State.Zone(state.GraveyardOf("p2")))
	assert.Equal(t, 4, res.State.ZoneSize(state.HandOf("p2")))
	assert.Zero(t, res.State.ContinuationDepth())
	assert.Nil(t, res.State.PendingDecision())
}

func TestRevealAndDiscard_SmallHandSkipsReveal(t *testing.T) {
	p := newTestPipeline(t)
	s, hand := addCards(newGame(), "p2", rules.ZoneHand, 2)

	res := p.Execute(s, effect.RevealAndDiscard{Player: effect.TargetOpponent, RevealCount: 3, DiscardCount: 1}, effect.NewContext("p1"))
	d := requirePaused(t, res).(state.CardSelectionDecision)
	assert.Equal(t, "p1", d.PlayerID)
	assert.Equal(t, hand, d.Options)
}

func TestEachPlayerDiscardsThenDraws_EmptyHandContributesZero(t *testing.T) {
	p := newTestPipeline(t)
	s, hand := addCards(newGame(), "p1", rules.ZoneHand, 3)
	s, p1Library := addCards(s, "p1", rules.ZoneLibrary, 5)
	s, _ = addCards(s, "p2", rules.ZoneLibrary, 5)

	res := p.Execute(s, effect.EachPlayerDiscardsThenDraws{MaxDiscard: 2}, effect.NewContext("p1"))
	d := requirePaused(t, res).(state.CardSelectionDecision)
	assert.Equal(t, "p1", d.PlayerID)
	assert.Equal(t, 0, d.Min)
	assert.Equal(t, 2, d.Max)

	res = p.Resume(res.State, d.ID, state.CardsResponse{CardIDs: hand[:2]})
	requireSuccess(t, res)

	assert.Equal(t, 1, countEvents(res.Events, rules.EventDecisionResolved))
	assert.Equal(t, 0, countEvents(res.Events, rules.EventDecisionRequested))
	drawn := findEvent(t, res.Events, rules.EventCardsDrawn)
	assert.Equal(t, "p1", drawn.PlayerID)
	assert.Equal(t, p1Library[:2], drawn.CardIDs)
	assert.Equal(t, 1, countEvents(res.Events, rules.EventCardsDrawn))

	assert.Equal(t, 3, res.State.ZoneSize(state.HandOf("p1")))
	assert.Equal(t, 3, res.State.ZoneSize(state.LibraryOf("p1")))
	assert.Zero(t, res.State.ZoneSize(state.HandOf("p2")))
	assert.Equal(t, 5, res.State.ZoneSize(state.LibraryOf("p2")))
}

func TestEachPlayerDiscardsThenDraws_AsksInAPNAPOrder(t *testing.T) {
	p := newTestPipeline(t)
	s, p1Hand := addCards(newGame(), "p1", rules.ZoneHand, 2)
	s, p2Hand := addCards(s, "p2", rules.ZoneHand, 2)
	s, _ = addCards(s, "p1", rules.ZoneLibrary, 3)
	s, _ = addCards(s, "p2", rules.ZoneLibrary, 3)
	s = s.WithActivePlayer("p2")

	res := p.Execute(s, effect.EachPlayerDiscardsThenDraws{MaxDiscard: 3}, effect.NewContext("p1"))
	first := requirePaused(t, res)
	assert.Equal(t, "p2", first.Header().PlayerID)

	res = p.Resume(res.State, first.Header().ID, state.CardsResponse{CardIDs: p2Hand[:1]})
	second := requirePaused(t, res)
	assert.Equal(t, "p1", second.Header().PlayerID)

	res = p.Resume(res.State, second.Header().ID, state.CardsResponse{CardIDs: p1Hand})
	requireSuccess(t, res)
	assert.Equal(t, 2, res.State.ZoneSize(state.HandOf("p1")))
	assert.Equal(t, 1, res.State.ZoneSize(state.LibraryOf("p1")))
	assert.Equal(t, 2, res.State.ZoneSize(state.HandOf("p2")))
	assert.Equal(t, 2, res.State.ZoneSize(state.LibraryOf("p2")))
}

func TestSacrificeOrDiscard_BranchesAndSkips(t *testing.T) {
	p := newTestPipeline(t)
	s, permanents := addCards(newGame(), "p1", rules.ZoneBattlefield, 1, "Creature")
	s, hand := addCards(s, "p1", rules.ZoneHand, 1)

	res := p.Execute(s, effect.SacrificeOrDiscard{Iterations: 3}, effect.NewContext("p1"))
	mode := requirePaused(t, res)
	assert.Equal(t, state.DecisionYesNo, mode.Kind())

	res = p.Resume(res.State, mode.Header().ID, state.YesNoResponse{Yes: true})
	pick := requirePaused(t, res).(state.CardSelectionDecision)
	assert.Equal(t, permanents, pick.Options)

	res = p.Resume(res.State, pick.ID, state.CardsResponse{CardIDs: permanents})
	discardPick := requirePaused(t, res).(state.CardSelectionDecision)
	assert.Equal(t, hand, discardPick.Options)
	assert.Equal(t, 1, countEvents(res.Events, rules.EventSacrificed))
	zc := findEvent(t, res.Events, rules.EventZoneChange)
	assert.Equal(t, rules.ZoneBattlefield, zc.FromZone)
	assert.Equal(t, rules.ZoneGraveyard, zc.ToZone)

	// third iteration has nothing left and is skipped
	res = p.Resume(res.State, discardPick.ID, state.CardsResponse{CardIDs: hand})
	requireSuccess(t, res)
	assert.Zero(t, res.State.ZoneSize(state.Battlefield))
	assert.Zero(t, res.State.ZoneSize(state.HandOf("p1")))
	assert.Equal(t, 2, res.State.ZoneSize(state.GraveyardOf("p1")))
	assert.Zero(t, res.State.ContinuationDepth())
}

func TestSacrificeOrDiscard_NothingAvailable(t *testing.T) {
	p := newTestPipeline(t)
	s := newGame()

	res := p.Execute(s, effect.SacrificeOrDiscard{Iterations: 2}, effect.NewContext("p1"))
	requireSuccess(t, res)
	assert.Empty(t, res.Events)
}

func TestSearchLibrary_FiltersByTypeAndShuffles(t *testing.T) {
	p := newTestPipeline(t)
	s, lands := addCards(newGame(), "p1", rules.ZoneLibrary, 2, "Land")
	s, _ = addCards(s, "p1", rules.ZoneLibrary, 3, "Creature")

	res := p.Execute(s, effect.SearchLibrary{CardType: "Land", Count: 1, Destination: rules.ZoneHand, Shuffle: true}, effect.NewContext("p1"))
	d := requirePaused(t, res).(state.SearchLibraryDecision)
	assert.Equal(t, lands, d.Options)
	assert.Equal(t, 0, d.Min)
	assert.Equal(t, 1, d.Max)

	res = p.Resume(res.State, d.ID, state.CardsResponse{CardIDs: lands[1:]})
	requireSuccess(t, res)
	assert.Equal(t, lands[1:], res.State.Zone(state.HandOf("p1")))
	assert.Equal(t, 4, res.State.ZoneSize(state.LibraryOf("p1")))
	assert.Equal(t, []rules.EventType{
		rules.EventDecisionResolved,
		rules.EventZoneChange,
		rules.EventLibrarySearched,
		rules.EventLibraryShuffled,
	}, eventTypes(res.Events))
}

func TestDealDamage_ToPermanentAndPlayer(t *testing.T) {
	p := newTestPipeline(t)
	s, bears := addCards(newGame(), "p2", rules.ZoneBattlefield, 1, "Creature")

	res := p.Execute(s, effect.Sequence{Effects: []effect.Effect{
		effect.DealDamage{Amount: 2, Target: effect.TargetChosen},
		effect.DealDamage{Amount: 3, Target: effect.TargetOpponent, Combat: true},
		effect.GainLife{Amount: 4},
		effect.LoseLife{Amount: 1, Player: effect.Player("p2")},
	}}, effect.NewContext("p1").WithTargets(bears[0]))
	requireSuccess(t, res)

	assert.Equal(t, 2, res.State.Damage(bears[0]))
	assert.Equal(t, 16, res.State.Life("p2"))
	assert.Equal(t, 24, res.State.Life("p1"))

	var combat []rules.Event
	for _, e := range res.Events {
		if e.Type == rules.EventDamageDealt && e.Combat {
			combat = append(combat, e)
		}
	}
	require.Len(t, combat, 1)
	assert.Equal(t, "p2", combat[0].TargetID)
}

func TestDealDamage_NoValidTarget(t *testing.T) {
	p := newTestPipeline(t)
	s := newGame()

	res := p.Execute(s, effect.DealDamage{Amount: 2, Target: effect.TargetChosen}, effect.NewContext("p1"))
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, ErrNoValidTarget)
	assert.Same(t, s, res.State)

	res = p.Execute(s, effect.DealDamage{Amount: 2, Target: effect.TargetChosen}, effect.NewContext("p1").WithTargets("ghost"))
	assert.ErrorIs(t, res.Err, ErrNoValidTarget)
}

func TestPhaseRestricted(t *testing.T) {
	p := newTestPipeline(t)
	s, _ := addCards(newGame(), "p1", rules.ZoneLibrary, 2)
	restricted := effect.PhaseRestricted{Steps: []rules.Step{rules.StepMain1, rules.StepMain2}, Effect: effect.DrawCards{Count: 1}}

	res := p.Execute(s, restricted, effect.NewContext("p1"))
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, ErrWrongPhase)
	assert.Same(t, s, res.State)
	assert.Empty(t, res.Events)

	res = p.Execute(s.WithStep(rules.PhasePrecombatMain, rules.StepMain1), restricted, effect.NewContext("p1"))
	requireSuccess(t, res)
	assert.Equal(t, 1, res.State.ZoneSize(state.HandOf("p1")))
}

func TestSequence_ErrorReturnsInputState(t *testing.T) {
	p := newTestPipeline(t)
	s, _ := addCards(newGame(), "p1", rules.ZoneLibrary, 2)

	res := p.Execute(s, effect.Sequence{Effects: []effect.Effect{
		effect.DrawCards{Count: 1},
		effect.DealDamage{Amount: 1, Target: effect.TargetChosen},
	}}, effect.NewContext("p1"))

	assert.Equal(t, StatusError, res.Status)
	assert.Same(t, s, res.State)
	assert.Empty(t, res.Events)
	assert.Equal(t, "no valid target: cannot resolve \"TARGET\"", res.Message)
}

func TestExecute_RejectsWhilePending(t *testing.T) {
	p := newTestPipeline(t)
	s, _ := addCards(newGame(), "p1", rules.ZoneHand, 3)

	res := p.Execute(s, effect.DiscardCards{Count: 1}, effect.NewContext("p1"))
	requirePaused(t, res)

	again := p.Execute(res.State, effect.DrawCards{Count: 1}, effect.NewContext("p1"))
	assert.Equal(t, StatusError, again.Status)
	assert.ErrorIs(t, again.Err, ErrDecisionPending)
	assert.Same(t, res.State, again.State)
}

func TestUnknownEffectKind(t *testing.T) {
	p := newTestPipeline(t)
	s := newGame()
	delete(p.executors, effect.KindMill)

	res := p.Execute(s, effect.Mill{Count: 1}, effect.NewContext("p1"))
	assert.ErrorIs(t, res.Err, ErrUnknownEffect)
}

func TestRegisterOverridesExecutor(t *testing.T) {
	p := newTestPipeline(t)
	s := newGame()
	called := false
	p.Register(effect.KindShuffleLibrary, Typed(func(_ *Pipeline, st *state.State, _ effect.ShuffleLibrary, _ effect.Context) Result {
		called = true
		return success(st, nil)
	}))

	res := p.Execute(s, effect.ShuffleLibrary{}, effect.NewContext("p1"))
	requireSuccess(t, res)
	assert.True(t, called)
}
