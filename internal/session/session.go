// Package session hosts running matches. A Session owns one match state and
// applies effects, responses, turn steps and triggered abilities to it one at
// a time. A Manager keeps any number of sessions running side by side.
package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/engine"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/game/triggers"
	"github.com/thraizz/mage-engine-go/internal/storage"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrSessionClosed    = errors.New("session closed")
	ErrTriggersPending  = errors.New("triggered abilities waiting to resolve")
	ErrNoPendingTrigger = errors.New("no triggered ability to resolve")
)

// Store is the part of a snapshot backend a session needs.
type Store interface {
	SaveSnapshot(ctx context.Context, rec storage.Record) error
	LatestSnapshot(ctx context.Context, matchID string) (storage.Record, error)
}

// NotificationType identifies what a notification reports.
type NotificationType string

const (
	NotifyEvents   NotificationType = "EVENTS"
	NotifyDecision NotificationType = "DECISION"
	NotifyTriggers NotificationType = "TRIGGERS"
	NotifyTimeout  NotificationType = "DECISION_TIMEOUT"
	NotifyError    NotificationType = "ERROR"
)

// Notification is delivered to the session's handler after each batch.
type Notification struct {
	Type      NotificationType
	SessionID string
	Sequence  int64
	Events    []rules.Event
	Decision  state.Decision
	Triggers  []triggers.StackedTrigger
	Err       string
	Timestamp time.Time
}

// NotificationHandler receives notifications. It is called without the
// session lock held and may call back into the session.
type NotificationHandler func(Notification)

// Option configures a Session.
type Option func(*Session)

// WithPipeline sets the effect pipeline. Sessions build their own by default.
func WithPipeline(p *engine.Pipeline) Option {
	return func(s *Session) { s.pipeline = p }
}

// WithSeed makes the session's own pipeline shuffle deterministically. The
// match id is mixed in so sessions sharing a seed still differ. It has no
// effect together with WithPipeline.
func WithSeed(seed uint64) Option {
	return func(s *Session) { s.seed = seed }
}

// WithRegistry sets the ability registry used for trigger detection.
func WithRegistry(r *triggers.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDecisionTimeout answers unanswered decisions with their default
// response after d. Zero disables the timer.
func WithDecisionTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithNotificationHandler sets the notification handler.
func WithNotificationHandler(h NotificationHandler) Option {
	return func(s *Session) { s.handler = h }
}

// WithRecorder records every applied batch into r.
func WithRecorder(r *Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithStore persists a snapshot after every applied batch.
func WithStore(store Store) Option {
	return func(s *Session) { s.store = store }
}

// WithIDSource sets the generator for decision, floating effect and
// trigger ids. Decision and floating effect ids only follow it when the
// session builds its own pipeline.
func WithIDSource(next func() string) Option {
	return func(s *Session) { s.newID = next }
}

func withSequence(seq int64) Option {
	return func(s *Session) { s.sequence = seq }
}

func withTriggers(stack []triggers.StackedTrigger) Option {
	return func(s *Session) { s.triggers = stack }
}

// Session serializes all work on one match.
type Session struct {
	id       string
	pipeline *engine.Pipeline
	registry *triggers.Registry
	logger   *zap.Logger
	timeout  time.Duration
	handler  NotificationHandler
	recorder *Recorder
	store    Store
	seed     uint64
	newID    func() string

	mu       sync.Mutex
	state    *state.State
	sequence int64
	// stacked triggers, top of stack last
	triggers []triggers.StackedTrigger
	timer    *time.Timer
	closed   bool
}

// New starts a session for id with the given initial state.
func New(id string, initial *state.State, opts ...Option) *Session {
	s := &Session{
		id:     id,
		logger: zap.NewNop(),
		state:  initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", id))
	if s.pipeline == nil {
		popts := []engine.Option{engine.WithLogger(s.logger)}
		if s.seed != 0 {
			h := fnv.New64a()
			_, _ = h.Write([]byte(id))
			popts = append(popts, engine.WithRandom(engine.NewRandom(s.seed^h.Sum64())))
		}
		if s.newID != nil {
			popts = append(popts, engine.WithIDSource(s.newID))
		}
		s.pipeline = engine.New(popts...)
	}
	if s.registry == nil {
		s.registry = triggers.NewRegistry()
	}

	if s.recorder != nil && !s.recorder.IsRecording(id) {
		s.recorder.StartRecording(id)
	}

	s.mu.Lock()
	s.record("start")
	s.persist()
	if d := initial.PendingDecision(); d != nil {
		s.arm(d)
	}
	s.mu.Unlock()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current match state.
func (s *Session) State() *state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sequence returns the number of batches applied so far.
func (s *Session) Sequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}

// PendingTriggers returns the stacked triggers, next to resolve first.
func (s *Session) PendingTriggers() []triggers.StackedTrigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]triggers.StackedTrigger, 0, len(s.triggers))
	for i := len(s.triggers) - 1; i >= 0; i-- {
		out = append(out, s.triggers[i])
	}
	return out
}

// Snapshot returns the encoded current state and its checksum.
func (s *Session) Snapshot() ([]byte, string, error) {
	st := s.State()
	data, err := state.Encode(st)
	if err != nil {
		return nil, "", err
	}
	return data, state.Checksum(st), nil
}

// Execute runs e against the current state.
func (s *Session) Execute(e effect.Effect, ctx effect.Context) (engine.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return engine.Result{}, ErrSessionClosed
	}
	res := s.pipeline.Execute(s.state, e, ctx)
	notes := s.apply(fmt.Sprintf("execute:%s", kindOf(e)), res, nil)
	s.mu.Unlock()

	s.emit(notes)
	return res, nil
}

// Respond delivers a player's answer to the pending decision. Answers for
// any other decision are ignored.
func (s *Session) Respond(decisionID string, resp state.Response) (engine.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return engine.Result{}, ErrSessionClosed
	}
	res := s.pipeline.Resume(s.state, decisionID, resp)
	notes := s.apply("respond:"+decisionID, res, nil)
	s.mu.Unlock()

	s.emit(notes)
	return res, nil
}

// ResolveNextTrigger executes the triggered ability on top of the trigger
// stack. Optional abilities ask their controller first. An ability whose
// effect fails is removed anyway.
func (s *Session) ResolveNextTrigger() (engine.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return engine.Result{}, ErrSessionClosed
	}
	if s.state.PendingDecision() != nil {
		s.mu.Unlock()
		return engine.Result{}, engine.ErrDecisionPending
	}
	if len(s.triggers) == 0 {
		s.mu.Unlock()
		return engine.Result{}, ErrNoPendingTrigger
	}

	top := s.triggers[len(s.triggers)-1]
	s.triggers = s.triggers[:len(s.triggers)-1]

	e := top.Ability.Effect
	if top.Ability.Optional {
		e = effect.MayDo{Player: effect.TargetController, Effect: e}
	}
	res := s.pipeline.Execute(s.state, e, top.EffectContext())
	if res.Status == engine.StatusError {
		s.logger.Warn("triggered ability failed to resolve",
			zap.String("trigger_id", top.ID),
			zap.String("source", top.SourceName),
			zap.Error(res.Err),
		)
	}
	notes := s.apply("trigger:"+top.SourceName, res, nil)
	if res.Status == engine.StatusError {
		// the state is unchanged but the trigger is gone
		s.persist()
	}
	s.mu.Unlock()

	s.emit(notes)
	return res, nil
}

// Close stops the decision timer and rejects further work.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.disarm()
	if s.recorder != nil {
		s.recorder.StopRecording(s.id)
	}
}

// apply commits a pipeline result. Caller holds s.mu.
func (s *Session) apply(label string, res engine.Result, stepTriggers []triggers.StackedTrigger) []Notification {
	now := time.Now().UTC()
	if res.Status == engine.StatusError {
		return []Notification{{Type: NotifyError, SessionID: s.id, Sequence: s.sequence, Err: res.Message, Timestamp: now}}
	}
	if res.Ignored {
		s.logger.Debug("response ignored", zap.String("label", label))
		return nil
	}

	s.state = res.State
	s.sequence++

	var notes []Notification
	if len(res.Events) > 0 {
		notes = append(notes, Notification{Type: NotifyEvents, SessionID: s.id, Sequence: s.sequence, Events: res.Events, Timestamp: now})
	}

	detected := append(stepTriggers, triggers.DetectTriggers(res.State, res.Events, s.registry, s.detectOptions()...)...)
	if len(detected) > 0 {
		// APNAP order is stacking order, so the active player's go in first
		s.triggers = append(s.triggers, detected...)
		notes = append(notes, Notification{Type: NotifyTriggers, SessionID: s.id, Sequence: s.sequence, Triggers: detected, Timestamp: now})
	}

	if res.Status == engine.StatusPaused {
		s.arm(res.Decision)
		notes = append(notes, Notification{Type: NotifyDecision, SessionID: s.id, Sequence: s.sequence, Decision: res.Decision, Timestamp: now})
	} else {
		s.disarm()
	}

	s.logger.Debug("applied batch",
		zap.String("label", label),
		zap.Stringer("status", res.Status),
		zap.Int64("sequence", s.sequence),
		zap.Int("events", len(res.Events)),
		zap.Int("triggers", len(detected)),
	)
	s.record(label)
	s.persist()
	return notes
}

// arm schedules the default response for d. Caller holds s.mu.
func (s *Session) arm(d state.Decision) {
	s.disarm()
	if s.timeout <= 0 || d == nil {
		return
	}
	id := d.Header().ID
	resp := d.DefaultResponse()
	s.timer = time.AfterFunc(s.timeout, func() { s.expire(id, resp) })
}

func (s *Session) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) expire(decisionID string, resp state.Response) {
	s.logger.Info("decision timed out, applying default response", zap.String("decision_id", decisionID))
	s.emit([]Notification{{Type: NotifyTimeout, SessionID: s.id, Timestamp: time.Now().UTC()}})
	if _, err := s.Respond(decisionID, resp); err != nil {
		s.logger.Debug("default response not applied", zap.Error(err))
	}
}

func (s *Session) record(label string) {
	if s.recorder != nil {
		s.recorder.Record(s.id, s.sequence, label, s.state)
	}
}

func (s *Session) persist() {
	if s.store == nil {
		return
	}
	data, err := state.Encode(s.state)
	if err != nil {
		s.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}
	stacked, err := triggers.EncodeStack(s.triggers)
	if err != nil {
		s.logger.Error("failed to encode trigger stack", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := storage.Record{
		MatchID:  s.id,
		Sequence: s.sequence,
		Checksum: state.Checksum(s.state),
		Data:     data,
		Triggers: stacked,
	}
	if err := s.store.SaveSnapshot(ctx, rec); err != nil {
		s.logger.Error("failed to persist snapshot",
			zap.Int64("sequence", s.sequence),
			zap.Error(err),
		)
	}
}

func (s *Session) detectOptions() []triggers.DetectOption {
	if s.newID == nil {
		return nil
	}
	return []triggers.DetectOption{triggers.WithIDSource(s.newID)}
}

func (s *Session) emit(notes []Notification) {
	if s.handler == nil {
		return
	}
	for _, n := range notes {
		s.handler(n)
	}
}

func kindOf(e effect.Effect) string {
	if e == nil {
		return "nil"
	}
	return string(e.Kind())
}
