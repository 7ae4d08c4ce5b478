package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeDrawCards(p *Pipeline, st *state.State, e effect.DrawCards, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	count := e.Count
	if e.CountFromX {
		count = ctx.XValue()
	}
	return p.drawCards(st, playerID, count, ctx)
}

func (c DrawRemainingContinuation) resume(p *Pipeline, st *state.State, _ state.Response) Result {
	return p.drawCards(st, c.PlayerID, c.Remaining, c.Context)
}

// drawCards draws one card at a time. Before each draw the oldest draw
// replacement shield for the player is consumed instead, if there is one.
// Cards drawn in an uninterrupted run are reported in a single event.
func (p *Pipeline) drawCards(st *state.State, playerID string, count int, ctx effect.Context) Result {
	input := st
	var (
		events []rules.Event
		drawn  []string
	)
	flush := func() {
		if len(drawn) > 0 {
			events = append(events, rules.NewCardsEvent(rules.EventCardsDrawn, playerID, ctx.SourceID, drawn))
			events = append(events, zoneChanges(drawn, playerID, ctx.SourceID, rules.ZoneLibrary, rules.ZoneHand)...)
			drawn = nil
		}
	}

	library := state.LibraryOf(playerID)
	hand := state.HandOf(playerID)

	for remaining := count; remaining > 0; {
		if shield, ok := st.FirstShield(state.ModReplaceDraw, playerID); ok {
			flush()
			remaining--

			replace, ok := shield.Modification.(state.ReplaceDrawWithEffect)
			if !ok {
				return failure(input, fmt.Errorf("floating effect %s: unexpected modification %T", shield.ID, shield.Modification))
			}
			st = st.RemoveFloatingEffect(shield.ID)
			consumed := rules.NewEvent(rules.EventFloatingEffectConsumed, playerID, shield.SourceID)
			consumed.EffectID = shield.ID
			events = append(events, consumed)

			p.logger.Debug("draw replaced",
				zap.String("player_id", playerID),
				zap.String("effect_id", shield.ID),
				zap.Int("remaining", remaining),
			)

			var frame resumable
			if remaining > 0 {
				frame = DrawRemainingContinuation{PlayerID: playerID, Remaining: remaining, Context: ctx}
			}
			res, done := p.runNested(st, frame, replace.Effect, replace.Context)
			if res.Status == StatusError {
				return failure(input, res.Err)
			}
			if !done {
				return res.withPrefix(events)
			}
			st = res.State
			events = rules.Concat(events, res.Events)
			continue
		}

		top := st.Zone(library)
		if len(top) == 0 {
			flush()
			failed := rules.NewEvent(rules.EventDrawFailed, playerID, ctx.SourceID)
			failed.Amount = remaining
			failed.Reason = "Empty library"
			events = append(events, failed)
			break
		}

		next, err := st.MoveCard(top[0], library, hand)
		if err != nil {
			return failure(input, err)
		}
		st = next
		drawn = append(drawn, top[0])
		remaining--
	}

	flush()
	return success(st, events)
}
