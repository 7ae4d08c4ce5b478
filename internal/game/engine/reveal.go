package engine

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeRevealAndDiscard(p *Pipeline, st *state.State, e effect.RevealAndDiscard, ctx effect.Context) Result {
	ref := e.Player
	if ref == "" {
		ref = effect.TargetOpponent
	}
	ownerID, err := resolvePlayer(st, ref, ctx)
	if err != nil {
		return failure(st, err)
	}

	cont := RevealDiscardContinuation{
		Phase:        RevealPhaseReveal,
		HandOwnerID:  ownerID,
		ChooserID:    ctx.ControllerID,
		DiscardCount: e.DiscardCount,
		Context:      ctx,
	}

	hand := st.Zone(state.HandOf(ownerID))
	if len(hand) == 0 {
		return success(st, nil)
	}
	if len(hand) <= e.RevealCount {
		return cont.reveal(p, st, hand)
	}

	d := state.CardSelectionDecision{
		DecisionHeader: p.header(st, ownerID, ctx, fmt.Sprintf("Reveal %d card(s) from your hand", e.RevealCount)),
		Options:        hand,
		Min:            e.RevealCount,
		Max:            e.RevealCount,
	}
	cont.ID = d.ID
	return p.pause(st, nil, d, cont)
}

func (c RevealDiscardContinuation) resume(p *Pipeline, st *state.State, resp state.Response) Result {
	chosen, _ := resp.(state.CardsResponse)
	switch c.Phase {
	case RevealPhaseReveal:
		return c.reveal(p, st, chosen.CardIDs)
	case RevealPhaseChoose:
		next, events := discard(st, c.HandOwnerID, chosen.CardIDs, c.Context)
		return success(next, events)
	default:
		return failure(st, fmt.Errorf("%w: reveal phase %q", ErrUnknownContinuation, c.Phase))
	}
}

// reveal publishes the revealed cards, then lets the chooser pick which of
// them are discarded.
func (c RevealDiscardContinuation) reveal(p *Pipeline, st *state.State, revealed []string) Result {
	events := []rules.Event{rules.NewCardsEvent(rules.EventCardsRevealed, c.HandOwnerID, c.Context.SourceID, revealed)}

	n := min(c.DiscardCount, len(revealed))
	switch {
	case n <= 0:
		return success(st, events)
	case n == len(revealed):
		next, discarded := discard(st, c.HandOwnerID, revealed, c.Context)
		return success(next, rules.Concat(events, discarded))
	}

	d := state.CardSelectionDecision{
		DecisionHeader: p.header(st, c.ChooserID, c.Context, fmt.Sprintf("Choose %d revealed card(s) to discard", n)),
		Options:        append([]string(nil), revealed...),
		Min:            n,
		Max:            n,
	}
	next := c
	next.ID = d.ID
	next.Phase = RevealPhaseChoose
	next.Revealed = append([]string(nil), revealed...)
	return p.pause(st, events, d, next)
}
