package session

import (
	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/engine"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/game/triggers"
)

// AdvanceStep moves the match to the next step.
//
// Leaving end of combat expires END_OF_COMBAT effects. Leaving cleanup
// expires END_OF_TURN effects and starts the next player's turn. Entering the
// draw step makes the active player draw, except for the first turn of the
// match. Step-based triggers of the new step are stacked.
//
// The step cannot change while a decision or a triggered ability is
// outstanding.
func (s *Session) AdvanceStep() (engine.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return engine.Result{}, ErrSessionClosed
	}
	if s.state.PendingDecision() != nil {
		s.mu.Unlock()
		return engine.Result{}, engine.ErrDecisionPending
	}
	if len(s.triggers) > 0 {
		s.mu.Unlock()
		return engine.Result{}, ErrTriggersPending
	}

	st, events := advance(s.state)
	res := engine.Result{Status: engine.StatusSuccess, State: st, Events: events}

	if st.Step() == rules.StepDraw && st.Turn() > 1 {
		active := st.ActivePlayer()
		drawn := s.pipeline.Execute(st, effect.DrawCards{Count: 1, Player: effect.TargetActivePlayer}, effect.NewContext(active))
		if drawn.Status == engine.StatusError {
			s.logger.Warn("turn draw failed", zap.String("player_id", active), zap.Error(drawn.Err))
		} else {
			drawn.Events = rules.Concat(events, drawn.Events)
			res = drawn
		}
	}

	stepTriggers := triggers.DetectPhaseStepTriggers(res.State, st.Phase(), st.Step(), s.registry, s.detectOptions()...)
	notes := s.apply("advance:"+st.Step().String(), res, stepTriggers)
	s.mu.Unlock()

	s.emit(notes)
	return res, nil
}

// advance computes the turn-structure part of a step change.
func advance(st *state.State) (*state.State, []rules.Event) {
	var events []rules.Event
	current := st.Step()
	next, phase, wrapped := rules.NextStep(current)

	if current == rules.StepEndCombat || wrapped {
		var expired []rules.Event
		st, expired = engine.ExpireFloatingEffects(st, effect.DurationEndOfCombat)
		events = append(events, expired...)
	}
	if wrapped {
		var expired []rules.Event
		st, expired = engine.ExpireFloatingEffects(st, effect.DurationEndOfTurn)
		events = append(events, expired...)

		nextPlayer := rules.NextPlayer(st.TurnOrder(), st.ActivePlayer())
		st = st.WithTurn(st.Turn()+1, nextPlayer)
		started := rules.NewEvent(rules.EventTurnStarted, nextPlayer, "")
		started.Amount = st.Turn()
		events = append(events, started)
	}

	st = st.WithStep(phase, next)
	changed := rules.NewEvent(rules.EventStepChanged, st.ActivePlayer(), "")
	changed.Phase = phase
	changed.Step = next
	events = append(events, changed)
	return st, events
}
