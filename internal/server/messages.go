package server

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/game/triggers"
	"github.com/thraizz/mage-engine-go/internal/session"
)

// Client message types.
const (
	MsgCreate         = "create"
	MsgJoin           = "join"
	MsgExecute        = "execute"
	MsgRespond        = "respond"
	MsgAdvance        = "advance"
	MsgResolveTrigger = "resolve_trigger"
	MsgState          = "state"
)

// Server message types.
const (
	MsgEvents   = "events"
	MsgDecision = "decision"
	MsgTriggers = "triggers"
	MsgTimeout  = "decision_timeout"
	MsgError    = "error"
)

// ClientMessage is a request read from a WebSocket connection.
type ClientMessage struct {
	Type       string           `json:"type"`
	MatchID    string           `json:"match_id,omitempty"`
	PlayerID   string           `json:"player_id,omitempty"`
	Setup      *MatchSetup      `json:"setup,omitempty"`
	Effect     *effect.Spec     `json:"effect,omitempty"`
	Context    *ContextPayload  `json:"context,omitempty"`
	DecisionID string           `json:"decision_id,omitempty"`
	Response   *ResponsePayload `json:"response,omitempty"`
}

// ServerMessage is pushed to WebSocket clients.
type ServerMessage struct {
	Type     string        `json:"type"`
	MatchID  string        `json:"match_id,omitempty"`
	Sequence int64         `json:"sequence,omitempty"`
	Events   []rules.Event `json:"events,omitempty"`
	Decision *DecisionView `json:"decision,omitempty"`
	Triggers []TriggerView `json:"triggers,omitempty"`
	State    *StateView    `json:"state,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// MatchSetup describes the initial state of a new match. Scenario files use
// the same shape in YAML.
type MatchSetup struct {
	Players []PlayerSetup `json:"players" yaml:"players"`
}

type PlayerSetup struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Life        int           `json:"life" yaml:"life"`
	Library     []CardPayload `json:"library,omitempty" yaml:"library,omitempty"`
	Hand        []CardPayload `json:"hand,omitempty" yaml:"hand,omitempty"`
	Battlefield []CardPayload `json:"battlefield,omitempty" yaml:"battlefield,omitempty"`
}

type CardPayload struct {
	ID    string   `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Types []string `json:"types,omitempty" yaml:"types,omitempty"`
}

// Build creates the initial state. Players without a life total start at 20.
func (m MatchSetup) Build() (*state.State, error) {
	if len(m.Players) == 0 {
		return nil, fmt.Errorf("match needs at least one player")
	}
	st := state.New()
	for _, p := range m.Players {
		if p.ID == "" {
			return nil, fmt.Errorf("player id is required")
		}
		life := p.Life
		if life == 0 {
			life = 20
		}
		st = st.WithPlayer(p.ID, p.Name, life)
	}
	for _, p := range m.Players {
		zones := []struct {
			zone  rules.Zone
			cards []CardPayload
		}{
			{rules.ZoneLibrary, p.Library},
			{rules.ZoneHand, p.Hand},
			{rules.ZoneBattlefield, p.Battlefield},
		}
		for _, z := range zones {
			for _, c := range z.cards {
				if c.ID == "" {
					return nil, fmt.Errorf("card without id for player %s", p.ID)
				}
				if _, exists := st.Entity(c.ID); exists {
					return nil, fmt.Errorf("duplicate entity id %s", c.ID)
				}
				st = st.WithCard(c.ID, state.CardComponent{Name: c.Name, Types: c.Types, OwnerID: p.ID}, z.zone)
			}
		}
	}
	return st, nil
}

// ContextPayload is the wire form of an effect context.
type ContextPayload struct {
	ControllerID string   `json:"controller_id" yaml:"controller_id"`
	SourceID     string   `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	SourceName   string   `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	OpponentID   string   `json:"opponent_id,omitempty" yaml:"opponent_id,omitempty"`
	Targets      []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	X            *int     `json:"x,omitempty" yaml:"x,omitempty"`
}

// EffectContext converts the payload. An empty controller falls back to
// fallback.
func (c *ContextPayload) EffectContext(fallback string) effect.Context {
	if c == nil {
		return effect.NewContext(fallback)
	}
	controller := c.ControllerID
	if controller == "" {
		controller = fallback
	}
	ctx := effect.NewContext(controller).
		WithSource(c.SourceID, c.SourceName).
		WithOpponent(c.OpponentID).
		WithTargets(c.Targets...)
	if c.X != nil {
		ctx = ctx.WithX(*c.X)
	}
	return ctx
}

// ResponsePayload carries whichever answer the pending decision expects.
type ResponsePayload = state.Answer

func toResponse(d state.Decision, p *ResponsePayload) (state.Response, error) {
	if p == nil {
		return nil, fmt.Errorf("response is required")
	}
	return p.For(d)
}

// DecisionView is the wire form of a pending decision.
type DecisionView struct {
	ID         string             `json:"id"`
	Kind       state.DecisionKind `json:"kind"`
	PlayerID   string             `json:"player_id"`
	Prompt     string             `json:"prompt,omitempty"`
	SourceID   string             `json:"source_id,omitempty"`
	SourceName string             `json:"source_name,omitempty"`
	Options    []string           `json:"options,omitempty"`
	Min        int                `json:"min"`
	Max        int                `json:"max"`
	Ordered    bool               `json:"ordered,omitempty"`
}

func decisionView(d state.Decision) *DecisionView {
	if d == nil {
		return nil
	}
	h := d.Header()
	v := &DecisionView{
		ID:         h.ID,
		Kind:       d.Kind(),
		PlayerID:   h.PlayerID,
		Prompt:     h.Context.Prompt,
		SourceID:   h.Context.SourceID,
		SourceName: h.Context.SourceName,
	}
	switch d := d.(type) {
	case state.CardSelectionDecision:
		v.Options, v.Min, v.Max, v.Ordered = d.Options, d.Min, d.Max, d.Ordered
	case state.SearchLibraryDecision:
		v.Options, v.Min, v.Max = d.Options, d.Min, d.Max
	case state.NumberDecision:
		v.Min, v.Max = d.Min, d.Max
	case state.YesNoDecision:
		v.Max = 1
	}
	return v
}

// TriggerView is the wire form of a stacked trigger.
type TriggerView struct {
	ID           string `json:"id"`
	Ability      string `json:"ability"`
	SourceID     string `json:"source_id"`
	SourceName   string `json:"source_name"`
	ControllerID string `json:"controller_id"`
}

func triggerViews(ts []triggers.StackedTrigger) []TriggerView {
	out := make([]TriggerView, 0, len(ts))
	for _, t := range ts {
		out = append(out, TriggerView{
			ID:           t.ID,
			Ability:      t.Ability.Name,
			SourceID:     t.SourceID,
			SourceName:   t.SourceName,
			ControllerID: t.ControllerID,
		})
	}
	return out
}

// PlayerView summarizes one player's zones.
type PlayerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Life      int      `json:"life"`
	Library   int      `json:"library_count"`
	Hand      []string `json:"hand"`
	Graveyard []string `json:"graveyard"`
}

// StateView is the wire form of a match state.
type StateView struct {
	Turn            int           `json:"turn"`
	ActivePlayer    string        `json:"active_player"`
	Phase           rules.Phase   `json:"phase"`
	Step            rules.Step    `json:"step"`
	Players         []PlayerView  `json:"players"`
	Battlefield     []string      `json:"battlefield"`
	FloatingEffects int           `json:"floating_effects"`
	PendingDecision *DecisionView `json:"pending_decision,omitempty"`
	PendingTriggers []TriggerView `json:"pending_triggers,omitempty"`
}

func stateView(st *state.State, pending []triggers.StackedTrigger) *StateView {
	v := &StateView{
		Turn:            st.Turn(),
		ActivePlayer:    st.ActivePlayer(),
		Phase:           st.Phase(),
		Step:            st.Step(),
		Battlefield:     st.Zone(state.Battlefield),
		FloatingEffects: len(st.FloatingEffects()),
		PendingDecision: decisionView(st.PendingDecision()),
	}
	if len(pending) > 0 {
		v.PendingTriggers = triggerViews(pending)
	}
	for _, id := range st.TurnOrder() {
		e, _ := st.Entity(id)
		v.Players = append(v.Players, PlayerView{
			ID:        id,
			Name:      e.Name(),
			Life:      st.Life(id),
			Library:   st.ZoneSize(state.LibraryOf(id)),
			Hand:      st.Zone(state.HandOf(id)),
			Graveyard: st.Zone(state.GraveyardOf(id)),
		})
	}
	return v
}

// notificationMessage converts a session notification.
func notificationMessage(n session.Notification) ServerMessage {
	msg := ServerMessage{MatchID: n.SessionID, Sequence: n.Sequence}
	switch n.Type {
	case session.NotifyEvents:
		msg.Type = MsgEvents
		msg.Events = n.Events
	case session.NotifyDecision:
		msg.Type = MsgDecision
		msg.Decision = decisionView(n.Decision)
	case session.NotifyTriggers:
		msg.Type = MsgTriggers
		msg.Triggers = triggerViews(n.Triggers)
	case session.NotifyTimeout:
		msg.Type = MsgTimeout
	default:
		msg.Type = MsgError
		msg.Error = n.Err
	}
	return msg
}
