package engine

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeMill(_ *Pipeline, st *state.State, e effect.Mill, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	library := st.Zone(state.LibraryOf(playerID))
	if e.Count < len(library) {
		library = library[:max(e.Count, 0)]
	}
	next, moved := moveAll(st, library, state.LibraryOf(playerID), state.GraveyardOf(playerID))
	if len(moved) == 0 {
		return success(next, nil)
	}
	events := []rules.Event{rules.NewCardsEvent(rules.EventCardsMilled, playerID, ctx.SourceID, moved)}
	return success(next, append(events, zoneChanges(moved, playerID, ctx.SourceID, rules.ZoneLibrary, rules.ZoneGraveyard)...))
}

func executeShuffleLibrary(p *Pipeline, st *state.State, e effect.ShuffleLibrary, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	return p.shuffle(st, playerID, ctx)
}

func (p *Pipeline) shuffle(st *state.State, playerID string, ctx effect.Context) Result {
	key := state.LibraryOf(playerID)
	order := st.Zone(key)
	p.random.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	next, err := st.WithZoneOrder(key, order)
	if err != nil {
		return failure(st, err)
	}
	return success(next, []rules.Event{rules.NewEvent(rules.EventLibraryShuffled, playerID, ctx.SourceID)})
}

func executeSearchLibrary(p *Pipeline, st *state.State, e effect.SearchLibrary, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	dest := e.Destination
	if dest == rules.ZoneNone {
		dest = rules.ZoneHand
	}

	var options []string
	for _, id := range st.Zone(state.LibraryOf(playerID)) {
		card, ok := st.Card(id)
		if !ok {
			continue
		}
		if e.CardType == "" || card.HasType(e.CardType) {
			options = append(options, id)
		}
	}

	cont := SearchLibraryContinuation{PlayerID: playerID, Destination: dest, Shuffle: e.Shuffle, Context: ctx}
	limit := min(e.Count, len(options))
	if limit <= 0 {
		return cont.finish(p, st, nil)
	}

	prompt := fmt.Sprintf("Search your library for up to %d card(s)", limit)
	if e.CardType != "" {
		prompt = fmt.Sprintf("Search your library for up to %d %s card(s)", limit, e.CardType)
	}
	d := state.SearchLibraryDecision{
		DecisionHeader: p.header(st, playerID, ctx, prompt),
		Options:        options,
		Min:            0,
		Max:            limit,
	}
	cont.ID = d.ID
	return p.pause(st, nil, d, cont)
}

func (c SearchLibraryContinuation) resume(p *Pipeline, st *state.State, resp state.Response) Result {
	chosen, _ := resp.(state.CardsResponse)
	return c.finish(p, st, chosen.CardIDs)
}

func (c SearchLibraryContinuation) finish(p *Pipeline, st *state.State, cardIDs []string) Result {
	from := state.LibraryOf(c.PlayerID)
	to := state.Key(c.PlayerID, c.Destination)

	var events []rules.Event
	next, moved := moveAll(st, cardIDs, from, to)
	for _, id := range moved {
		events = append(events, rules.NewZoneChangeEvent(id, c.PlayerID, c.Context.SourceID, rules.ZoneLibrary, c.Destination))
	}
	events = append(events, rules.NewCardsEvent(rules.EventLibrarySearched, c.PlayerID, c.Context.SourceID, moved))

	if !c.Shuffle {
		return success(next, events)
	}
	return p.shuffle(next, c.PlayerID, c.Context).withPrefix(events)
}
