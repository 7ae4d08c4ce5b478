package engine

import (
	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeDealDamage(p *Pipeline, st *state.State, e effect.DealDamage, ctx effect.Context) Result {
	targetID, err := resolveEntity(st, e.Target, ctx)
	if err != nil {
		return failure(st, err)
	}
	if e.Amount <= 0 {
		return success(st, nil)
	}

	var events []rules.Event
	amount := e.Amount

	if st.IsPlayer(targetID) {
		if shield, ok := st.FirstShield(state.ModPreventDamage, targetID); ok {
			prevention, _ := shield.Modification.(state.PreventDamage)
			prevented := min(prevention.Amount, amount)
			amount -= prevented
			st = st.RemoveFloatingEffect(shield.ID)

			consumed := rules.NewEvent(rules.EventFloatingEffectConsumed, targetID, shield.SourceID)
			consumed.EffectID = shield.ID
			prevent := rules.NewEvent(rules.EventDamagePrevented, targetID, ctx.SourceID)
			prevent.TargetID = targetID
			prevent.Amount = prevented
			events = append(events, consumed, prevent)

			p.logger.Debug("damage prevented",
				zap.String("player_id", targetID),
				zap.String("effect_id", shield.ID),
				zap.Int("prevented", prevented),
			)
		}
	}
	if amount == 0 {
		return success(st, events)
	}

	dealt := rules.NewEvent(rules.EventDamageDealt, ctx.ControllerID, ctx.SourceID)
	dealt.TargetID = targetID
	dealt.Amount = amount
	dealt.Combat = e.Combat

	if st.IsPlayer(targetID) {
		next, err := st.WithLife(targetID, st.Life(targetID)-amount)
		if err != nil {
			return failure(st, err)
		}
		events = append(events, dealt, lifeChanged(targetID, ctx.SourceID, -amount))
		return success(next, events)
	}

	next, err := st.WithDamage(targetID, st.Damage(targetID)+amount)
	if err != nil {
		return failure(st, err)
	}
	return success(next, append(events, dealt))
}

func executeGainLife(_ *Pipeline, st *state.State, e effect.GainLife, ctx effect.Context) Result {
	return changeLife(st, e.Player, e.Amount, ctx)
}

func executeLoseLife(_ *Pipeline, st *state.State, e effect.LoseLife, ctx effect.Context) Result {
	return changeLife(st, e.Player, -e.Amount, ctx)
}

func changeLife(st *state.State, ref effect.TargetRef, delta int, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, ref, ctx)
	if err != nil {
		return failure(st, err)
	}
	if delta == 0 {
		return success(st, nil)
	}
	next, err := st.WithLife(playerID, st.Life(playerID)+delta)
	if err != nil {
		return failure(st, err)
	}
	return success(next, []rules.Event{lifeChanged(playerID, ctx.SourceID, delta)})
}

func lifeChanged(playerID, sourceID string, delta int) rules.Event {
	evt := rules.NewEvent(rules.EventLifeChanged, playerID, sourceID)
	evt.TargetID = playerID
	evt.Amount = delta
	return evt
}
