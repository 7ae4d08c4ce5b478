// Package engine executes effects against immutable game state.
//
// Execution never blocks for player input. When an executor needs a choice
// it pushes a continuation onto the state, fills the pending decision slot,
// and returns a Paused result. The caller later feeds the player's answer to
// Resume, which pops the continuation and carries on.
//
// Continuations with an empty decision id are deferred frames: they record
// work still to do after a nested effect finishes (remaining draws, the rest
// of a sequence). A nested pause stacks above them, and Resume drains them
// once everything above has completed.
package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

// Executor performs one effect kind.
type Executor interface {
	Execute(p *Pipeline, st *state.State, e effect.Effect, ctx effect.Context) Result
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(p *Pipeline, st *state.State, e effect.Effect, ctx effect.Context) Result

// Execute calls f.
func (f ExecutorFunc) Execute(p *Pipeline, st *state.State, e effect.Effect, ctx effect.Context) Result {
	return f(p, st, e, ctx)
}

// Typed wraps an executor written against a concrete effect variant.
func Typed[E effect.Effect](fn func(p *Pipeline, st *state.State, e E, ctx effect.Context) Result) Executor {
	return ExecutorFunc(func(p *Pipeline, st *state.State, e effect.Effect, ctx effect.Context) Result {
		typed, ok := e.(E)
		if !ok {
			return failure(st, fmt.Errorf("%w: %T", ErrUnknownEffect, e))
		}
		return fn(p, st, typed, ctx)
	})
}

// resumable is implemented by every continuation this package pushes.
type resumable interface {
	state.Continuation
	resume(p *Pipeline, st *state.State, resp state.Response) Result
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRandom sets the randomness source.
func WithRandom(random Random) Option {
	return func(p *Pipeline) {
		if random != nil {
			p.random = random
		}
	}
}

// WithClock sets the clock used to stamp floating effects.
func WithClock(clock Clock) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithIDSource sets the generator for decision and floating effect ids.
func WithIDSource(next func() string) Option {
	return func(p *Pipeline) {
		if next != nil {
			p.newID = next
		}
	}
}

// Pipeline dispatches effects to executors. A Pipeline holds no game state;
// it may be shared by callers that do not use it concurrently, since the
// random source it borrows is not synchronized.
type Pipeline struct {
	executors map[effect.Kind]Executor
	logger    *zap.Logger
	random    Random
	clock     Clock
	newID     func() string
}

// New creates a pipeline with every built-in executor registered.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		executors: make(map[effect.Kind]Executor),
		logger:    zap.NewNop(),
		random:    NewRandom(uint64(uuid.New().ID())),
		clock:     SystemClock{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	registerBuiltins(p)
	return p
}

// Register installs or replaces the executor for kind.
func (p *Pipeline) Register(kind effect.Kind, exec Executor) {
	p.executors[kind] = exec
}

// Logger returns the pipeline logger.
func (p *Pipeline) Logger() *zap.Logger { return p.logger }

// Execute runs an effect. It fails if a decision is already pending, since
// only one pause may be outstanding at a time.
func (p *Pipeline) Execute(st *state.State, e effect.Effect, ctx effect.Context) Result {
	if d := st.PendingDecision(); d != nil {
		return failure(st, fmt.Errorf("%w: %s", ErrDecisionPending, d.Header().ID))
	}
	return p.execute(st, e, ctx)
}

// execute is the re-entrant dispatch used by executors and continuations.
func (p *Pipeline) execute(st *state.State, e effect.Effect, ctx effect.Context) Result {
	if e == nil {
		return failure(st, fmt.Errorf("%w: nil effect", ErrUnknownEffect))
	}
	exec, ok := p.executors[e.Kind()]
	if !ok {
		return failure(st, fmt.Errorf("%w: %s", ErrUnknownEffect, e.Kind()))
	}

	res := exec.Execute(p, st, e, ctx)

	switch res.Status {
	case StatusError:
		p.logger.Debug("effect failed",
			zap.String("effect", string(e.Kind())),
			zap.String("controller_id", ctx.ControllerID),
			zap.Error(res.Err),
		)
	case StatusPaused:
		p.logger.Debug("effect paused",
			zap.String("effect", string(e.Kind())),
			zap.String("decision_id", res.Decision.Header().ID),
			zap.String("player_id", res.Decision.Header().PlayerID),
		)
	}
	return res
}

// Resume answers the pending decision. A decision id that does not match
// both the pending decision and the top continuation is ignored and the
// state is returned unchanged. A response outside the decision's bounds is
// an Error; the decision stays pending so a corrected response can follow.
func (p *Pipeline) Resume(st *state.State, decisionID string, resp state.Response) Result {
	pending := st.PendingDecision()
	top, ok := st.PeekContinuation()
	if pending == nil || !ok || pending.Header().ID != decisionID || top.DecisionID() != decisionID {
		p.logger.Debug("ignoring stale response", zap.String("decision_id", decisionID))
		return ignored(st)
	}

	if err := pending.Validate(resp); err != nil {
		return failure(st, err)
	}

	cont, ok := top.(resumable)
	if !ok {
		return failure(st, fmt.Errorf("%w: %T", ErrUnknownContinuation, top))
	}

	next, _, _ := st.PopContinuation()
	next = next.ClearPendingDecision()

	resolved := rules.NewEvent(rules.EventDecisionResolved, pending.Header().PlayerID, pending.Header().Context.SourceID)
	resolved.DecisionID = decisionID

	res := cont.resume(p, next, resp)
	if res.Status == StatusError {
		if !skippable(res.Err) {
			return failure(st, res.Err)
		}
		res = p.skip(next, pending.Header().Context.SourceID, res.Err)
	}
	res = res.withPrefix([]rules.Event{resolved})

	res = p.drainDeferred(res, pending.Header().Context.SourceID)
	if res.Status == StatusError {
		return failure(st, res.Err)
	}
	return res
}

// drainDeferred resumes deferred frames left on top of the stack once the
// work above them has completed. A frame whose work can no longer find its
// target is skipped.
func (p *Pipeline) drainDeferred(res Result, sourceID string) Result {
	for res.Status == StatusSuccess {
		top, ok := res.State.PeekContinuation()
		if !ok || top.DecisionID() != "" {
			return res
		}
		cont, ok := top.(resumable)
		if !ok {
			return failure(res.State, fmt.Errorf("%w: %T", ErrUnknownContinuation, top))
		}
		next, _, _ := res.State.PopContinuation()
		frame := cont.resume(p, next, nil)
		if frame.Status == StatusError && skippable(frame.Err) {
			frame = p.skip(next, sourceID, frame.Err)
		}
		res = frame.withPrefix(res.Events)
	}
	return res
}

// skippable reports whether err means a unit of work lost its subject
// rather than that the effect itself is malformed.
func skippable(err error) bool {
	return errors.Is(err, ErrNoValidTarget) ||
		errors.Is(err, state.ErrUnknownEntity) ||
		errors.Is(err, state.ErrCardNotInZone)
}

// skip records a unit of work that did nothing and leaves st as it was.
func (p *Pipeline) skip(st *state.State, sourceID string, err error) Result {
	p.logger.Debug("skipping effect", zap.String("source_id", sourceID), zap.Error(err))
	evt := rules.NewEvent(rules.EventEffectSkipped, "", sourceID)
	evt.Reason = err.Error()
	return success(st, []rules.Event{evt})
}

// pause installs a decision and its continuation.
func (p *Pipeline) pause(st *state.State, events []rules.Event, d state.Decision, c resumable) Result {
	h := d.Header()
	st = st.PushContinuation(c).WithPendingDecision(d)

	evt := rules.NewEvent(rules.EventDecisionRequested, h.PlayerID, h.Context.SourceID)
	evt.DecisionID = h.ID

	return Result{
		Status:   StatusPaused,
		State:    st,
		Events:   rules.Concat(events, []rules.Event{evt}),
		Decision: d,
	}
}

// header allocates a fresh decision id and prompt context.
func (p *Pipeline) header(st *state.State, playerID string, ctx effect.Context, prompt string) state.DecisionHeader {
	return state.DecisionHeader{
		ID:       p.newID(),
		PlayerID: playerID,
		Context: state.DecisionContext{
			SourceID:   ctx.SourceID,
			SourceName: ctx.SourceName,
			Phase:      st.Phase(),
			Step:       st.Step(),
			Prompt:     prompt,
		},
	}
}

// runNested executes a sub-effect with a deferred frame beneath it. If the
// sub-effect completes synchronously the frame is popped again and the
// returned state is ready for the caller to continue; if it pauses, the
// frame stays under the new continuation and done is false.
func (p *Pipeline) runNested(st *state.State, frame resumable, e effect.Effect, ctx effect.Context) (res Result, done bool) {
	work := st
	if frame != nil {
		work = st.PushContinuation(frame)
	}
	res = p.execute(work, e, ctx)
	if res.Status != StatusSuccess {
		return res, false
	}
	if frame != nil {
		res.State, _, _ = res.State.PopContinuation()
	}
	return res, true
}

func registerBuiltins(p *Pipeline) {
	p.Register(effect.KindDrawCards, Typed(executeDrawCards))
	p.Register(effect.KindDiscardCards, Typed(executeDiscardCards))
	p.Register(effect.KindDiscardRandom, Typed(executeDiscardRandom))
	p.Register(effect.KindDiscardHand, Typed(executeDiscardHand))
	p.Register(effect.KindMill, Typed(executeMill))
	p.Register(effect.KindShuffleLibrary, Typed(executeShuffleLibrary))
	p.Register(effect.KindDealDamage, Typed(executeDealDamage))
	p.Register(effect.KindGainLife, Typed(executeGainLife))
	p.Register(effect.KindLoseLife, Typed(executeLoseLife))
	p.Register(effect.KindSearchLibrary, Typed(executeSearchLibrary))
	p.Register(effect.KindRevealAndDiscard, Typed(executeRevealAndDiscard))
	p.Register(effect.KindEachPlayerDiscardsThenDraws, Typed(executeEachPlayerDiscardsThenDraws))
	p.Register(effect.KindSacrificeOrDiscard, Typed(executeSacrificeOrDiscard))
	p.Register(effect.KindMayDo, Typed(executeMayDo))
	p.Register(effect.KindChooseNumber, Typed(executeChooseNumber))
	p.Register(effect.KindSequence, Typed(executeSequence))
	p.Register(effect.KindPhaseRestricted, Typed(executePhaseRestricted))
	p.Register(effect.KindCreateDrawReplacement, Typed(executeCreateDrawReplacement))
	p.Register(effect.KindCreateDamagePrevention, Typed(executeCreateDamagePrevention))
}
