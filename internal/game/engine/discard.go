package engine

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeDiscardCards(p *Pipeline, st *state.State, e effect.DiscardCards, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	hand := st.Zone(state.HandOf(playerID))
	if e.Count <= 0 || len(hand) == 0 {
		return success(st, nil)
	}
	if len(hand) <= e.Count {
		next, events := discard(st, playerID, hand, ctx)
		return success(next, events)
	}

	d := state.CardSelectionDecision{
		DecisionHeader: p.header(st, playerID, ctx, fmt.Sprintf("Discard %d card(s)", e.Count)),
		Options:        hand,
		Min:            e.Count,
		Max:            e.Count,
	}
	return p.pause(st, nil, d, DiscardContinuation{ID: d.ID, PlayerID: playerID, Context: ctx})
}

func (c DiscardContinuation) resume(_ *Pipeline, st *state.State, resp state.Response) Result {
	chosen, _ := resp.(state.CardsResponse)
	next, events := discard(st, c.PlayerID, chosen.CardIDs, c.Context)
	return success(next, events)
}

func executeDiscardRandom(p *Pipeline, st *state.State, e effect.DiscardRandom, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	hand := st.Zone(state.HandOf(playerID))
	p.random.Shuffle(len(hand), func(i, j int) { hand[i], hand[j] = hand[j], hand[i] })
	if e.Count < len(hand) {
		hand = hand[:max(e.Count, 0)]
	}
	next, events := discard(st, playerID, hand, ctx)
	return success(next, events)
}

func executeDiscardHand(_ *Pipeline, st *state.State, e effect.DiscardHand, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	next, events := discard(st, playerID, st.Zone(state.HandOf(playerID)), ctx)
	return success(next, events)
}

// discard moves cards from the player's hand to their graveyard. Cards that
// are no longer in hand are skipped.
func discard(st *state.State, playerID string, cardIDs []string, ctx effect.Context) (*state.State, []rules.Event) {
	next, moved := moveAll(st, cardIDs, state.HandOf(playerID), state.GraveyardOf(playerID))
	if len(moved) == 0 {
		return next, nil
	}
	events := []rules.Event{rules.NewCardsEvent(rules.EventCardsDiscarded, playerID, ctx.SourceID, moved)}
	return next, append(events, zoneChanges(moved, playerID, ctx.SourceID, rules.ZoneHand, rules.ZoneGraveyard)...)
}

// zoneChanges reports each card of a batch move on its own.
func zoneChanges(cardIDs []string, playerID, sourceID string, from, to rules.Zone) []rules.Event {
	events := make([]rules.Event, 0, len(cardIDs))
	for _, id := range cardIDs {
		events = append(events, rules.NewZoneChangeEvent(id, playerID, sourceID, from, to))
	}
	return events
}

// moveAll moves every card still present in from, returning the ids moved.
func moveAll(st *state.State, cardIDs []string, from, to state.ZoneKey) (*state.State, []string) {
	moved := make([]string, 0, len(cardIDs))
	for _, id := range cardIDs {
		next, err := st.MoveCard(id, from, to)
		if err != nil {
			continue
		}
		st = next
		moved = append(moved, id)
	}
	return st, moved
}
