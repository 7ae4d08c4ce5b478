package engine

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeSequence(p *Pipeline, st *state.State, e effect.Sequence, ctx effect.Context) Result {
	return p.runSequence(st, e.Effects, ctx, false)
}

func (c SequenceContinuation) resume(p *Pipeline, st *state.State, _ state.Response) Result {
	return p.runSequence(st, c.Remaining, c.Context, true)
}

// runSequence executes effects in order. While a child runs, the rest of the
// sequence waits in a deferred frame so a pause inside the child resumes the
// remaining effects once it completes. Once resumed, a child that lost its
// target is skipped and the rest still run.
func (p *Pipeline) runSequence(st *state.State, effects []effect.Effect, ctx effect.Context, resumed bool) Result {
	input := st
	var events []rules.Event

	for i, child := range effects {
		var frame resumable
		if rest := effects[i+1:]; len(rest) > 0 {
			frame = SequenceContinuation{Remaining: append([]effect.Effect(nil), rest...), Context: ctx}
		}
		res, done := p.runNested(st, frame, child, ctx)
		if res.Status == StatusError {
			if !resumed || !skippable(res.Err) {
				return failure(input, res.Err)
			}
			res = p.skip(st, ctx.SourceID, res.Err)
			events = rules.Concat(events, res.Events)
			continue
		}
		if !done {
			return res.withPrefix(events)
		}
		st = res.State
		events = rules.Concat(events, res.Events)
	}
	return success(st, events)
}

func executePhaseRestricted(p *Pipeline, st *state.State, e effect.PhaseRestricted, ctx effect.Context) Result {
	for _, step := range e.Steps {
		if step == st.Step() {
			res := p.execute(st, e.Effect, ctx)
			if res.Status == StatusError {
				return failure(st, res.Err)
			}
			return res
		}
	}
	return failure(st, fmt.Errorf("%w: not allowed during %s", ErrWrongPhase, st.Step()))
}
