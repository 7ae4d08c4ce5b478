package rules

import "fmt"

// EventType indicates the category of a game event.
type EventType string

const (
	// Card movement events
	EventCardsDrawn     EventType = "CARDS_DRAWN"
	EventDrawFailed     EventType = "DRAW_FAILED"
	EventCardsDiscarded EventType = "CARDS_DISCARDED"
	EventCardsMilled    EventType = "CARDS_MILLED"
	EventCardsRevealed  EventType = "CARDS_REVEALED"
	EventZoneChange     EventType = "ZONE_CHANGE"
	EventSacrificed     EventType = "PERMANENT_SACRIFICED"

	// Library events
	EventLibraryShuffled EventType = "LIBRARY_SHUFFLED"
	EventLibrarySearched EventType = "LIBRARY_SEARCHED"

	// Life/Damage events
	EventDamageDealt     EventType = "DAMAGE_DEALT"
	EventDamagePrevented EventType = "DAMAGE_PREVENTED"
	EventLifeChanged     EventType = "LIFE_CHANGED"

	// Decision events
	EventDecisionRequested EventType = "DECISION_REQUESTED"
	EventDecisionResolved  EventType = "DECISION_RESOLVED"
	EventChoiceMade        EventType = "CHOICE_MADE"
	EventEffectSkipped     EventType = "EFFECT_SKIPPED"

	// Floating effect events
	EventFloatingEffectCreated  EventType = "FLOATING_EFFECT_CREATED"
	EventFloatingEffectConsumed EventType = "FLOATING_EFFECT_CONSUMED"
	EventFloatingEffectExpired  EventType = "FLOATING_EFFECT_EXPIRED"

	// Turn structure events
	EventStepChanged EventType = "STEP_CHANGED"
	EventTurnStarted EventType = "TURN_STARTED"
)

// Event is an append-only log entry describing one observable state change.
// The Type tag selects which of the optional fields are meaningful.
type Event struct {
	Type       EventType `json:"type"`
	PlayerID   string    `json:"player_id,omitempty"`   // Player the event concerns (drawer, discarder, life owner)
	SourceID   string    `json:"source_id,omitempty"`   // Source card/ability of the change
	TargetID   string    `json:"target_id,omitempty"`   // Single subject (damaged entity, moved card)
	CardIDs    []string  `json:"card_ids,omitempty"`    // Cards involved, in order
	Amount     int       `json:"amount,omitempty"`      // Count, damage, life delta
	FromZone   Zone      `json:"from_zone,omitempty"`   // Zone change origin
	ToZone     Zone      `json:"to_zone,omitempty"`     // Zone change destination
	Combat     bool      `json:"combat,omitempty"`      // Damage dealt as combat damage
	DecisionID string    `json:"decision_id,omitempty"` // Decision correlation id
	EffectID   string    `json:"effect_id,omitempty"`   // Floating effect id
	Phase      Phase     `json:"phase"`
	Step       Step      `json:"step"`
	Reason     string    `json:"reason,omitempty"` // Human-readable detail ("Empty library")
}

// String returns a compact description for logs.
func (e Event) String() string {
	switch e.Type {
	case EventCardsDrawn, EventCardsDiscarded, EventCardsMilled, EventCardsRevealed:
		return fmt.Sprintf("%s player=%s cards=%d", e.Type, e.PlayerID, len(e.CardIDs))
	case EventDamageDealt, EventDamagePrevented, EventLifeChanged:
		return fmt.Sprintf("%s target=%s amount=%d", e.Type, e.TargetID, e.Amount)
	case EventZoneChange:
		return fmt.Sprintf("%s card=%s %s->%s", e.Type, e.TargetID, e.FromZone, e.ToZone)
	default:
		return string(e.Type)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, playerID, sourceID string) Event {
	return Event{
		Type:     eventType,
		PlayerID: playerID,
		SourceID: sourceID,
	}
}

// NewCardsEvent creates an event listing the cards involved.
func NewCardsEvent(eventType EventType, playerID, sourceID string, cardIDs []string) Event {
	evt := NewEvent(eventType, playerID, sourceID)
	evt.CardIDs = append([]string(nil), cardIDs...)
	evt.Amount = len(cardIDs)
	return evt
}

// NewZoneChangeEvent creates an event for a single card changing zones.
func NewZoneChangeEvent(cardID, playerID, sourceID string, from, to Zone) Event {
	evt := NewEvent(EventZoneChange, playerID, sourceID)
	evt.TargetID = cardID
	evt.FromZone = from
	evt.ToZone = to
	return evt
}

// Concat joins event logs preserving causal order.
func Concat(logs ...[]Event) []Event {
	total := 0
	for _, l := range logs {
		total += len(l)
	}
	if total == 0 {
		return nil
	}
	out := make([]Event, 0, total)
	for _, l := range logs {
		out = append(out, l...)
	}
	return out
}
