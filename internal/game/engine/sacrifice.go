package engine

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeSacrificeOrDiscard(p *Pipeline, st *state.State, e effect.SacrificeOrDiscard, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	return p.sacrificeOrDiscard(st, playerID, e.Iterations, ctx, nil)
}

// sacrificeOrDiscard runs the remaining iterations. An iteration where the
// player has neither a permanent nor a card in hand is skipped.
func (p *Pipeline) sacrificeOrDiscard(st *state.State, playerID string, remaining int, ctx effect.Context, events []rules.Event) Result {
	for remaining > 0 {
		remaining--

		canSacrifice := len(permanentsControlledBy(st, playerID)) > 0
		canDiscard := st.ZoneSize(state.HandOf(playerID)) > 0

		cont := SacrificeOrDiscardContinuation{PlayerID: playerID, Remaining: remaining, Context: ctx}
		switch {
		case canSacrifice && canDiscard:
			d := state.YesNoDecision{
				DecisionHeader: p.header(st, playerID, ctx, "Sacrifice a permanent? Otherwise discard a card."),
			}
			cont.ID = d.ID
			cont.Phase = SacrificePhaseChooseMode
			return p.pause(st, events, d, cont)
		case canSacrifice:
			return p.askSacrifice(st, cont, events)
		case canDiscard:
			return p.askDiscard(st, cont, events)
		}
	}
	return success(st, events)
}

func (p *Pipeline) askSacrifice(st *state.State, cont SacrificeOrDiscardContinuation, events []rules.Event) Result {
	d := state.CardSelectionDecision{
		DecisionHeader: p.header(st, cont.PlayerID, cont.Context, "Choose a permanent to sacrifice"),
		Options:        permanentsControlledBy(st, cont.PlayerID),
		Min:            1,
		Max:            1,
	}
	cont.ID = d.ID
	cont.Phase = SacrificePhaseChoosePermanent
	return p.pause(st, events, d, cont)
}

func (p *Pipeline) askDiscard(st *state.State, cont SacrificeOrDiscardContinuation, events []rules.Event) Result {
	d := state.CardSelectionDecision{
		DecisionHeader: p.header(st, cont.PlayerID, cont.Context, "Choose a card to discard"),
		Options:        st.Zone(state.HandOf(cont.PlayerID)),
		Min:            1,
		Max:            1,
	}
	cont.ID = d.ID
	cont.Phase = SacrificePhaseChooseCard
	return p.pause(st, events, d, cont)
}

func (c SacrificeOrDiscardContinuation) resume(p *Pipeline, st *state.State, resp state.Response) Result {
	switch c.Phase {
	case SacrificePhaseChooseMode:
		answer, _ := resp.(state.YesNoResponse)
		choice := rules.NewEvent(rules.EventChoiceMade, c.PlayerID, c.Context.SourceID)
		choice.Reason = "discard"
		if answer.Yes {
			choice.Reason = "sacrifice"
			return p.askSacrifice(st, c, []rules.Event{choice})
		}
		return p.askDiscard(st, c, []rules.Event{choice})

	case SacrificePhaseChoosePermanent:
		chosen, _ := resp.(state.CardsResponse)
		next, events := sacrifice(st, c.PlayerID, chosen.CardIDs, c.Context)
		return p.sacrificeOrDiscard(next, c.PlayerID, c.Remaining, c.Context, events)

	case SacrificePhaseChooseCard:
		chosen, _ := resp.(state.CardsResponse)
		next, events := discard(st, c.PlayerID, chosen.CardIDs, c.Context)
		return p.sacrificeOrDiscard(next, c.PlayerID, c.Remaining, c.Context, events)

	default:
		return failure(st, fmt.Errorf("%w: sacrifice phase %q", ErrUnknownContinuation, c.Phase))
	}
}

// sacrifice moves permanents to their owners' graveyards.
func sacrifice(st *state.State, playerID string, permanentIDs []string, ctx effect.Context) (*state.State, []rules.Event) {
	var events []rules.Event
	for _, id := range permanentIDs {
		card, ok := st.Card(id)
		if !ok {
			continue
		}
		next, err := st.MoveCard(id, state.Battlefield, state.GraveyardOf(card.OwnerID))
		if err != nil {
			continue
		}
		st = next

		sacrificed := rules.NewEvent(rules.EventSacrificed, playerID, ctx.SourceID)
		sacrificed.TargetID = id
		events = append(events,
			sacrificed,
			rules.NewZoneChangeEvent(id, card.OwnerID, ctx.SourceID, rules.ZoneBattlefield, rules.ZoneGraveyard),
		)
	}
	return st, events
}

func permanentsControlledBy(st *state.State, playerID string) []string {
	var out []string
	for _, id := range st.Zone(state.Battlefield) {
		if e, ok := st.Entity(id); ok && e.ControllerID() == playerID {
			out = append(out, id)
		}
	}
	return out
}
