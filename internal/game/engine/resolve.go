package engine

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

// resolvePlayer turns a reference into a player id that exists in st.
func resolvePlayer(st *state.State, ref effect.TargetRef, ctx effect.Context) (string, error) {
	id, err := resolveRef(st, ref.OrController(), ctx)
	if err != nil {
		return "", err
	}
	if !st.IsPlayer(id) {
		return "", fmt.Errorf("%w: %s is not a player", ErrNoValidTarget, id)
	}
	return id, nil
}

// resolveEntity turns a reference into an existing player or permanent.
func resolveEntity(st *state.State, ref effect.TargetRef, ctx effect.Context) (string, error) {
	id, err := resolveRef(st, ref, ctx)
	if err != nil {
		return "", err
	}
	if st.IsPlayer(id) || st.InZone(state.Battlefield, id) {
		return id, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoValidTarget, id)
}

func resolveRef(st *state.State, ref effect.TargetRef, ctx effect.Context) (string, error) {
	if id, ok := ref.PlayerID(); ok {
		return id, nil
	}
	switch ref {
	case effect.TargetController:
		if ctx.ControllerID != "" {
			return ctx.ControllerID, nil
		}
	case effect.TargetOpponent:
		if ctx.OpponentID != "" {
			return ctx.OpponentID, nil
		}
		if opponents := st.Opponents(ctx.ControllerID); len(opponents) > 0 && ctx.ControllerID != "" {
			return opponents[0], nil
		}
	case effect.TargetActivePlayer:
		if active := st.ActivePlayer(); active != "" {
			return active, nil
		}
	case effect.TargetChosen:
		if len(ctx.Targets) > 0 {
			return ctx.Targets[0], nil
		}
	}
	return "", fmt.Errorf("%w: cannot resolve %q", ErrNoValidTarget, ref)
}
