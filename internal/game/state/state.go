// Package state holds the immutable game state.
//
// A *State is never modified after it is returned. Every With*/Push/Pop/Move
// method copies the collection it changes and returns a new *State, leaving
// the receiver untouched, so callers can keep earlier values for replay or
// error recovery.
package state

import (
	"errors"
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

var (
	// ErrCardNotInZone is returned when a move names a source zone that does
	// not contain the card.
	ErrCardNotInZone = errors.New("card not in zone")
	// ErrUnknownEntity is returned for operations on ids that do not exist.
	ErrUnknownEntity = errors.New("unknown entity")
)

// ZoneKey identifies one zone instance. Owner is empty for shared zones.
type ZoneKey struct {
	Owner string
	Kind  rules.Zone
}

// Key builds a zone key, dropping the owner for shared zone kinds.
func Key(owner string, kind rules.Zone) ZoneKey {
	if kind.IsShared() {
		owner = ""
	}
	return ZoneKey{Owner: owner, Kind: kind}
}

// LibraryOf returns the library key of a player.
func LibraryOf(playerID string) ZoneKey { return Key(playerID, rules.ZoneLibrary) }

// HandOf returns the hand key of a player.
func HandOf(playerID string) ZoneKey { return Key(playerID, rules.ZoneHand) }

// GraveyardOf returns the graveyard key of a player.
func GraveyardOf(playerID string) ZoneKey { return Key(playerID, rules.ZoneGraveyard) }

// Battlefield is the shared battlefield zone.
var Battlefield = Key("", rules.ZoneBattlefield)

func (k ZoneKey) String() string {
	if k.Owner == "" {
		return string(k.Kind)
	}
	return fmt.Sprintf("%s(%s)", k.Kind, k.Owner)
}

// State is an immutable game snapshot.
type State struct {
	entities      map[string]Entity
	zones         map[ZoneKey][]string
	turnOrder     []string
	activePlayer  string
	turn          int
	phase         rules.Phase
	step          rules.Step
	floating      []FloatingEffect
	continuations []Continuation
	pending       Decision
}

// New returns an empty state at turn 1, untap step.
func New() *State {
	return &State{
		entities: make(map[string]Entity),
		zones:    make(map[ZoneKey][]string),
		turn:     1,
		phase:    rules.PhaseBeginning,
		step:     rules.StepUntap,
	}
}

func (s *State) clone() *State {
	out := *s
	return &out
}

func (s *State) withEntity(e Entity) *State {
	out := s.clone()
	out.entities = make(map[string]Entity, len(s.entities)+1)
	for id, existing := range s.entities {
		out.entities[id] = existing
	}
	out.entities[e.ID] = e
	return out
}

func (s *State) withZone(key ZoneKey, ids []string) *State {
	out := s.clone()
	out.zones = make(map[ZoneKey][]string, len(s.zones)+1)
	for k, v := range s.zones {
		out.zones[k] = v
	}
	if len(ids) == 0 {
		delete(out.zones, key)
	} else {
		out.zones[key] = ids
	}
	return out
}

// WithPlayer adds a player with its life total and appends it to the turn
// order. The first player added becomes the active player.
func (s *State) WithPlayer(id, name string, life int) *State {
	out := s.withEntity(Entity{
		ID:     id,
		Player: &PlayerComponent{Name: name},
		Life:   &LifeComponent{Life: life},
	})
	out.turnOrder = append(append([]string(nil), s.turnOrder...), id)
	if out.activePlayer == "" {
		out.activePlayer = id
	}
	return out
}

// WithCard adds a card owned by card.OwnerID to the end of a zone of its
// owner (or to the shared zone).
func (s *State) WithCard(id string, card CardComponent, zone rules.Zone) *State {
	card.Types = append([]string(nil), card.Types...)
	e := Entity{ID: id, Card: &card}
	if zone == rules.ZoneBattlefield {
		e.Controller = &ControllerComponent{PlayerID: card.OwnerID}
	}
	out := s.withEntity(e)
	key := Key(card.OwnerID, zone)
	return out.withZone(key, appendID(s.zones[key], id))
}

// WithoutEntity removes an entity from the entity table and from every zone.
func (s *State) WithoutEntity(id string) *State {
	if _, ok := s.entities[id]; !ok {
		return s
	}
	out := s.clone()
	out.entities = make(map[string]Entity, len(s.entities))
	for eid, e := range s.entities {
		if eid != id {
			out.entities[eid] = e
		}
	}
	if key, ok := s.ZoneOf(id); ok {
		out = out.withZone(key, removeID(s.zones[key], id))
	}
	return out
}

// Entity looks up an entity by id.
func (s *State) Entity(id string) (Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// EntityIDs returns every entity id, in no particular order.
func (s *State) EntityIDs() []string {
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	return ids
}

// Card returns the card component of an entity.
func (s *State) Card(id string) (CardComponent, bool) {
	e, ok := s.entities[id]
	if !ok || e.Card == nil {
		return CardComponent{}, false
	}
	return *e.Card, true
}

// IsPlayer reports whether id names a player.
func (s *State) IsPlayer(id string) bool {
	e, ok := s.entities[id]
	return ok && e.IsPlayer()
}

// Life returns a player's life total.
func (s *State) Life(playerID string) int {
	e, ok := s.entities[playerID]
	if !ok || e.Life == nil {
		return 0
	}
	return e.Life.Life
}

// WithLife sets a player's life total.
func (s *State) WithLife(playerID string, life int) (*State, error) {
	e, ok := s.entities[playerID]
	if !ok || !e.IsPlayer() {
		return s, fmt.Errorf("%w: player %s", ErrUnknownEntity, playerID)
	}
	e.Life = &LifeComponent{Life: life}
	return s.withEntity(e), nil
}

// Damage returns damage marked on a permanent.
func (s *State) Damage(entityID string) int {
	e, ok := s.entities[entityID]
	if !ok || e.Damage == nil {
		return 0
	}
	return e.Damage.Marked
}

// WithDamage sets damage marked on a permanent.
func (s *State) WithDamage(entityID string, marked int) (*State, error) {
	e, ok := s.entities[entityID]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownEntity, entityID)
	}
	e.Damage = &DamageComponent{Marked: marked}
	return s.withEntity(e), nil
}

// Zone returns a copy of the ids in a zone, in order. For libraries index 0
// is the top card.
func (s *State) Zone(key ZoneKey) []string {
	return append([]string(nil), s.zones[key]...)
}

// ZoneSize returns the number of ids in a zone.
func (s *State) ZoneSize(key ZoneKey) int {
	return len(s.zones[key])
}

// ZoneKeys returns every non-empty zone key, in no particular order.
func (s *State) ZoneKeys() []ZoneKey {
	keys := make([]ZoneKey, 0, len(s.zones))
	for k := range s.zones {
		keys = append(keys, k)
	}
	return keys
}

// InZone reports whether the zone contains id.
func (s *State) InZone(key ZoneKey, id string) bool {
	return indexOf(s.zones[key], id) >= 0
}

// ZoneOf finds the zone holding id.
func (s *State) ZoneOf(id string) (ZoneKey, bool) {
	for key, ids := range s.zones {
		if indexOf(ids, id) >= 0 {
			return key, true
		}
	}
	return ZoneKey{}, false
}

// WithZoneOrder replaces a zone's order. The new order must be a permutation
// of the current contents.
func (s *State) WithZoneOrder(key ZoneKey, ids []string) (*State, error) {
	current := s.zones[key]
	if len(current) != len(ids) {
		return s, fmt.Errorf("zone %s: reorder changes size from %d to %d", key, len(current), len(ids))
	}
	seen := make(map[string]int, len(ids))
	for _, id := range current {
		seen[id]++
	}
	for _, id := range ids {
		if seen[id] == 0 {
			return s, fmt.Errorf("zone %s: %w: %s", key, ErrCardNotInZone, id)
		}
		seen[id]--
	}
	return s.withZone(key, append([]string(nil), ids...)), nil
}

// MoveCard removes id from one zone and appends it to another in a single
// step. Cards entering the battlefield gain a controller component (their
// owner); cards leaving it lose controller and damage.
func (s *State) MoveCard(id string, from, to ZoneKey) (*State, error) {
	src := s.zones[from]
	if indexOf(src, id) < 0 {
		return s, fmt.Errorf("move %s from %s: %w", id, from, ErrCardNotInZone)
	}
	e, ok := s.entities[id]
	if !ok {
		return s, fmt.Errorf("move %s: %w", id, ErrUnknownEntity)
	}

	out := s.withZone(from, removeID(src, id))
	out = out.withZone(to, appendID(out.zones[to], id))

	switch {
	case to.Kind == rules.ZoneBattlefield && from.Kind != rules.ZoneBattlefield:
		owner := ""
		if e.Card != nil {
			owner = e.Card.OwnerID
		}
		e.Controller = &ControllerComponent{PlayerID: owner}
		out = out.withEntity(e)
	case from.Kind == rules.ZoneBattlefield && to.Kind != rules.ZoneBattlefield:
		e.Controller = nil
		e.Damage = nil
		out = out.withEntity(e)
	}
	return out, nil
}

// TurnOrder returns the seating order.
func (s *State) TurnOrder() []string {
	return append([]string(nil), s.turnOrder...)
}

// ActivePlayer returns the player whose turn it is.
func (s *State) ActivePlayer() string { return s.activePlayer }

// Turn returns the turn number, starting at 1.
func (s *State) Turn() int { return s.turn }

// Phase returns the current phase.
func (s *State) Phase() rules.Phase { return s.phase }

// Step returns the current step.
func (s *State) Step() rules.Step { return s.step }

// WithActivePlayer changes the active player.
func (s *State) WithActivePlayer(playerID string) *State {
	out := s.clone()
	out.activePlayer = playerID
	return out
}

// WithTurn sets the turn number and active player.
func (s *State) WithTurn(turn int, active string) *State {
	out := s.clone()
	out.turn = turn
	out.activePlayer = active
	return out
}

// WithStep moves the game to a phase/step.
func (s *State) WithStep(phase rules.Phase, step rules.Step) *State {
	out := s.clone()
	out.phase = phase
	out.step = step
	return out
}

// Opponents returns the other players in turn order, starting after
// playerID.
func (s *State) Opponents(playerID string) []string {
	ordered := rules.APNAPOrder(s.turnOrder, playerID)
	out := make([]string, 0, len(ordered))
	for _, id := range ordered {
		if id != playerID {
			out = append(out, id)
		}
	}
	return out
}

// Continuations returns the continuation stack, bottom first.
func (s *State) Continuations() []Continuation {
	return append([]Continuation(nil), s.continuations...)
}

// ContinuationDepth returns the number of stacked continuations.
func (s *State) ContinuationDepth() int { return len(s.continuations) }

// PushContinuation places c on top of the stack.
func (s *State) PushContinuation(c Continuation) *State {
	out := s.clone()
	out.continuations = make([]Continuation, len(s.continuations), len(s.continuations)+1)
	copy(out.continuations, s.continuations)
	out.continuations = append(out.continuations, c)
	return out
}

// PeekContinuation returns the top of the stack.
func (s *State) PeekContinuation() (Continuation, bool) {
	if len(s.continuations) == 0 {
		return nil, false
	}
	return s.continuations[len(s.continuations)-1], true
}

// PopContinuation removes the top of the stack.
func (s *State) PopContinuation() (*State, Continuation, bool) {
	top, ok := s.PeekContinuation()
	if !ok {
		return s, nil, false
	}
	out := s.clone()
	out.continuations = append([]Continuation(nil), s.continuations[:len(s.continuations)-1]...)
	return out, top, true
}

// PendingDecision returns the outstanding decision, or nil.
func (s *State) PendingDecision() Decision { return s.pending }

// WithPendingDecision fills the pending decision slot.
func (s *State) WithPendingDecision(d Decision) *State {
	out := s.clone()
	out.pending = d
	return out
}

// ClearPendingDecision empties the pending decision slot.
func (s *State) ClearPendingDecision() *State {
	if s.pending == nil {
		return s
	}
	out := s.clone()
	out.pending = nil
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	i := indexOf(ids, id)
	if i < 0 {
		return ids
	}
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...)
}

func appendID(ids []string, id string) []string {
	out := make([]string, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, id)
}
