package engine

import (
	"errors"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

var (
	// ErrNoValidTarget is returned when a target reference cannot be resolved.
	ErrNoValidTarget = errors.New("no valid target")
	// ErrWrongPhase is returned when an effect runs outside its legal steps.
	ErrWrongPhase = errors.New("wrong phase")
	// ErrUnknownEffect is returned for effect kinds without an executor.
	ErrUnknownEffect = errors.New("unknown effect")
	// ErrDecisionPending is returned when a new effect is started while a
	// decision is still outstanding.
	ErrDecisionPending = errors.New("decision pending")
	// ErrUnknownContinuation is returned when the continuation on top of the
	// stack cannot be resumed by this pipeline.
	ErrUnknownContinuation = errors.New("unknown continuation")
)

// Status is the outcome of an execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusPaused
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusPaused:
		return "PAUSED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Result is returned by every pipeline entry point.
//
// Success carries the new state and the events that produced it. Paused
// additionally carries the Decision the caller must route to a player; the
// state already holds the matching continuation. Error carries the unchanged
// input state and no events. Ignored is set on a Success result when a
// response did not match the outstanding decision and nothing changed.
type Result struct {
	Status   Status
	State    *state.State
	Events   []rules.Event
	Decision state.Decision
	Err      error
	Message  string
	Ignored  bool
}

// IsTerminal reports whether no further input is needed.
func (r Result) IsTerminal() bool { return r.Status != StatusPaused }

func success(st *state.State, events []rules.Event) Result {
	return Result{Status: StatusSuccess, State: st, Events: events}
}

func failure(input *state.State, err error) Result {
	return Result{Status: StatusError, State: input, Err: err, Message: err.Error()}
}

func ignored(st *state.State) Result {
	return Result{Status: StatusSuccess, State: st, Ignored: true}
}

// withPrefix prepends events produced before a nested call.
func (r Result) withPrefix(events []rules.Event) Result {
	if r.Status == StatusError {
		return r
	}
	r.Events = rules.Concat(events, r.Events)
	return r
}
