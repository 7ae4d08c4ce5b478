package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeCreateDrawReplacement(p *Pipeline, st *state.State, e effect.CreateDrawReplacement, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	if e.Replacement == nil {
		return failure(st, fmt.Errorf("%w: draw replacement without effect", ErrUnknownEffect))
	}
	return p.addShield(st, playerID, state.ReplaceDrawWithEffect{Effect: e.Replacement, Context: ctx}, e.Duration, ctx)
}

func executeCreateDamagePrevention(p *Pipeline, st *state.State, e effect.CreateDamagePrevention, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	return p.addShield(st, playerID, state.PreventDamage{Amount: e.Amount}, e.Duration, ctx)
}

func (p *Pipeline) addShield(st *state.State, playerID string, mod state.Modification, duration effect.Duration, ctx effect.Context) Result {
	if duration == "" {
		duration = effect.DurationEndOfTurn
	}
	shield := state.FloatingEffect{
		ID:              p.newID(),
		Modification:    mod,
		Duration:        duration,
		SourceID:        ctx.SourceID,
		ControllerID:    ctx.ControllerID,
		AffectedPlayers: []string{playerID},
		Timestamp:       p.clock.Now(),
	}

	p.logger.Debug("floating effect created",
		zap.String("effect_id", shield.ID),
		zap.String("modification", string(mod.ModificationKind())),
		zap.String("player_id", playerID),
		zap.String("duration", string(duration)),
	)

	created := rules.NewEvent(rules.EventFloatingEffectCreated, playerID, ctx.SourceID)
	created.EffectID = shield.ID
	created.Reason = string(mod.ModificationKind())
	return success(st.AddFloatingEffect(shield), []rules.Event{created})
}

// ExpireFloatingEffects drops floating effects whose duration ends at
// boundary. Permanent effects are never removed.
func (p *Pipeline) ExpireFloatingEffects(st *state.State, boundary effect.Duration) *state.State {
	next, _ := ExpireFloatingEffects(st, boundary)
	return next
}

// ExpireFloatingEffects is the collaborator-free form of
// Pipeline.ExpireFloatingEffects. It also returns one expiry event per
// removed effect.
func ExpireFloatingEffects(st *state.State, boundary effect.Duration) (*state.State, []rules.Event) {
	if boundary == effect.DurationPermanent || boundary == "" {
		return st, nil
	}
	var events []rules.Event
	next := st.FilterFloatingEffects(func(f state.FloatingEffect) bool {
		if f.Duration != boundary {
			return true
		}
		evt := rules.NewEvent(rules.EventFloatingEffectExpired, f.ControllerID, f.SourceID)
		evt.EffectID = f.ID
		events = append(events, evt)
		return false
	})
	return next, events
}
