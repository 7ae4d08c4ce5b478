// Package scenario runs scripted matches described in YAML. A scenario sets
// up the players and then applies a list of steps to a session, checking
// expectations along the way.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/engine"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/game/triggers"
	"github.com/thraizz/mage-engine-go/internal/server"
	"github.com/thraizz/mage-engine-go/internal/session"
)

// Scenario is a scripted match.
type Scenario struct {
	Name  string            `yaml:"name"`
	Seed  uint64            `yaml:"seed"`
	Setup server.MatchSetup `yaml:"setup"`
	Steps []Step            `yaml:"steps"`
}

// Step is one action, optionally followed by expectations. A step with only
// Expect just checks the current state.
type Step struct {
	Execute         *effect.Spec           `yaml:"execute,omitempty"`
	Context         *server.ContextPayload `yaml:"context,omitempty"`
	Respond         *state.Answer          `yaml:"respond,omitempty"`
	Advance         int                    `yaml:"advance,omitempty"`
	ResolveTriggers bool                   `yaml:"resolve_triggers,omitempty"`
	Expect          *Expectation           `yaml:"expect,omitempty"`
}

func (s Step) actions() int {
	n := 0
	if s.Execute != nil {
		n++
	}
	if s.Respond != nil {
		n++
	}
	if s.Advance > 0 {
		n++
	}
	if s.ResolveTriggers {
		n++
	}
	return n
}

// Expectation checks the state after a step. Only the listed players and
// fields are compared.
type Expectation struct {
	Life            map[string]int `yaml:"life,omitempty"`
	HandSize        map[string]int `yaml:"hand_size,omitempty"`
	LibrarySize     map[string]int `yaml:"library_size,omitempty"`
	GraveyardSize   map[string]int `yaml:"graveyard_size,omitempty"`
	Step            *rules.Step    `yaml:"step,omitempty"`
	Turn            int            `yaml:"turn,omitempty"`
	DecisionPending *bool          `yaml:"decision_pending,omitempty"`
	PendingTriggers *int           `yaml:"pending_triggers,omitempty"`
}

// Load parses and validates a scenario.
func Load(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.Name == "" {
		sc.Name = "scenario"
	}
	for i, step := range sc.Steps {
		switch n := step.actions(); {
		case n > 1:
			return nil, fmt.Errorf("step %d: only one action per step", i+1)
		case n == 0 && step.Expect == nil:
			return nil, fmt.Errorf("step %d: nothing to do", i+1)
		}
		if step.Execute != nil {
			if _, err := step.Execute.Build(); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return &sc, nil
}

// LoadFile reads a scenario from disk.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Options configures a run.
type Options struct {
	Registry *triggers.Registry
	Logger   *zap.Logger
	Recorder *session.Recorder
	// AutoRespond answers decisions the script leaves open with their
	// default response before the next action.
	AutoRespond bool
	// OnNotification observes every session notification.
	OnNotification session.NotificationHandler
}

// Report summarizes a finished run.
type Report struct {
	Name     string
	Steps    int
	Sequence int64
	Final    *state.State
}

// ErrExpectation marks a failed expectation.
var ErrExpectation = errors.New("expectation failed")

// Run plays the scenario on a fresh session.
func Run(sc *Scenario, opts Options) (*Report, error) {
	initial, err := sc.Setup.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid setup: %w", err)
	}
	sessOpts := []session.Option{
		session.WithLogger(opts.Logger),
		session.WithSeed(sc.Seed),
	}
	if opts.Registry != nil {
		sessOpts = append(sessOpts, session.WithRegistry(opts.Registry))
	}
	if opts.Recorder != nil {
		sessOpts = append(sessOpts, session.WithRecorder(opts.Recorder))
	}
	if opts.OnNotification != nil {
		sessOpts = append(sessOpts, session.WithNotificationHandler(opts.OnNotification))
	}
	s := session.New(sc.Name, initial, sessOpts...)
	defer s.Close()

	r := &runner{s: s, auto: opts.AutoRespond}
	for i, step := range sc.Steps {
		if err := r.run(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Expect != nil {
			if err := step.Expect.check(s); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}

	return &Report{
		Name:     sc.Name,
		Steps:    len(sc.Steps),
		Sequence: s.Sequence(),
		Final:    s.State(),
	}, nil
}

type runner struct {
	s    *session.Session
	auto bool
}

func (r *runner) run(step Step) error {
	if step.Respond == nil && step.actions() > 0 {
		if err := r.settle(); err != nil {
			return err
		}
	}

	switch {
	case step.Execute != nil:
		e, err := step.Execute.Build()
		if err != nil {
			return err
		}
		active := r.s.State().ActivePlayer()
		return checked(r.s.Execute(e, step.Context.EffectContext(active)))

	case step.Respond != nil:
		d := r.s.State().PendingDecision()
		if d == nil {
			return fmt.Errorf("no decision to respond to")
		}
		resp, err := step.Respond.For(d)
		if err != nil {
			return err
		}
		return checked(r.s.Respond(d.Header().ID, resp))

	case step.Advance > 0:
		for i := 0; i < step.Advance; i++ {
			if r.auto {
				if err := r.resolveAll(); err != nil {
					return err
				}
			}
			if err := checked(r.s.AdvanceStep()); err != nil {
				return err
			}
			if err := r.settle(); err != nil {
				return err
			}
		}
		return nil

	case step.ResolveTriggers:
		return r.resolveAll()
	}
	return nil
}

// settle answers an open decision with its default response when auto
// responding. Otherwise it leaves the decision for the engine to reject.
func (r *runner) settle() error {
	if !r.auto {
		return nil
	}
	for {
		d := r.s.State().PendingDecision()
		if d == nil {
			return nil
		}
		if err := checked(r.s.Respond(d.Header().ID, d.DefaultResponse())); err != nil {
			return err
		}
	}
}

func (r *runner) resolveAll() error {
	for len(r.s.PendingTriggers()) > 0 {
		if err := checked(r.s.ResolveNextTrigger()); err != nil {
			return err
		}
		if err := r.settle(); err != nil {
			return err
		}
		if !r.auto && r.s.State().PendingDecision() != nil {
			return nil
		}
	}
	return nil
}

func checked(res engine.Result, err error) error {
	if err != nil {
		return err
	}
	if res.Status == engine.StatusError {
		return fmt.Errorf("effect failed: %s", res.Message)
	}
	if res.Ignored {
		return fmt.Errorf("response ignored")
	}
	return nil
}

func (e Expectation) check(s *session.Session) error {
	st := s.State()
	for _, c := range []struct {
		what string
		want map[string]int
		got  func(player string) int
	}{
		{"life", e.Life, st.Life},
		{"hand size", e.HandSize, func(p string) int { return st.ZoneSize(state.HandOf(p)) }},
		{"library size", e.LibrarySize, func(p string) int { return st.ZoneSize(state.LibraryOf(p)) }},
		{"graveyard size", e.GraveyardSize, func(p string) int { return st.ZoneSize(state.GraveyardOf(p)) }},
	} {
		for player, want := range c.want {
			if got := c.got(player); got != want {
				return fmt.Errorf("%w: %s of %s is %d, want %d", ErrExpectation, c.what, player, got, want)
			}
		}
	}
	if e.Step != nil && st.Step() != *e.Step {
		return fmt.Errorf("%w: step is %s, want %s", ErrExpectation, st.Step(), *e.Step)
	}
	if e.Turn != 0 && st.Turn() != e.Turn {
		return fmt.Errorf("%w: turn is %d, want %d", ErrExpectation, st.Turn(), e.Turn)
	}
	if e.DecisionPending != nil && (st.PendingDecision() != nil) != *e.DecisionPending {
		return fmt.Errorf("%w: decision pending is %t, want %t", ErrExpectation, st.PendingDecision() != nil, *e.DecisionPending)
	}
	if e.PendingTriggers != nil && len(s.PendingTriggers()) != *e.PendingTriggers {
		return fmt.Errorf("%w: %d triggers pending, want %d", ErrExpectation, len(s.PendingTriggers()), *e.PendingTriggers)
	}
	return nil
}
