package engine

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeEachPlayerDiscardsThenDraws(p *Pipeline, st *state.State, e effect.EachPlayerDiscardsThenDraws, ctx effect.Context) Result {
	players := rules.APNAPOrder(st.TurnOrder(), st.ActivePlayer())
	return p.eachPlayerDiscard(st, players, nil, e.MaxDiscard, ctx, nil)
}

func (c EachPlayerDiscardContinuation) resume(p *Pipeline, st *state.State, resp state.Response) Result {
	chosen, _ := resp.(state.CardsResponse)
	next, events := discard(st, c.Current, chosen.CardIDs, c.Context)

	discarded := 0
	if len(events) > 0 {
		discarded = len(events[0].CardIDs)
	}
	counts := append(append([]PlayerCount(nil), c.Counts...), PlayerCount{PlayerID: c.Current, Count: discarded})
	return p.eachPlayerDiscard(next, c.Remaining, counts, c.MaxDiscard, c.Context, events)
}

// eachPlayerDiscard asks each remaining player in turn. Players with an
// empty hand contribute zero without being asked. Once everyone has chosen,
// each player draws as many cards as they discarded.
func (p *Pipeline) eachPlayerDiscard(st *state.State, remaining []string, counts []PlayerCount, maxDiscard int, ctx effect.Context, events []rules.Event) Result {
	for len(remaining) > 0 {
		playerID := remaining[0]
		remaining = remaining[1:]

		limit := min(maxDiscard, st.ZoneSize(state.HandOf(playerID)))
		if limit <= 0 {
			counts = append(counts, PlayerCount{PlayerID: playerID})
			continue
		}

		d := state.CardSelectionDecision{
			DecisionHeader: p.header(st, playerID, ctx, fmt.Sprintf("Discard up to %d card(s)", limit)),
			Options:        st.Zone(state.HandOf(playerID)),
			Min:            0,
			Max:            limit,
		}
		cont := EachPlayerDiscardContinuation{
			ID:         d.ID,
			Current:    playerID,
			Remaining:  append([]string(nil), remaining...),
			Counts:     append([]PlayerCount(nil), counts...),
			MaxDiscard: maxDiscard,
			Context:    ctx,
		}
		return p.pause(st, events, d, cont)
	}

	draws := make([]effect.Effect, 0, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			draws = append(draws, effect.DrawCards{Count: c.Count, Player: effect.Player(c.PlayerID)})
		}
	}
	if len(draws) == 0 {
		return success(st, events)
	}
	res := p.execute(st, effect.Sequence{Effects: draws}, ctx)
	if res.Status == StatusError {
		return failure(st, res.Err)
	}
	return res.withPrefix(events)
}
