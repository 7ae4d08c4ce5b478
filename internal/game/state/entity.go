package state

// CardComponent marks an entity as a card.
type CardComponent struct {
	Name    string
	Types   []string
	OwnerID string
}

// HasType reports whether the card carries the given type line entry.
func (c CardComponent) HasType(cardType string) bool {
	for _, t := range c.Types {
		if t == cardType {
			return true
		}
	}
	return false
}

// ControllerComponent records who controls a permanent.
type ControllerComponent struct {
	PlayerID string
}

// PlayerComponent marks an entity as a player.
type PlayerComponent struct {
	Name string
}

// LifeComponent holds a player's life total.
type LifeComponent struct {
	Life int
}

// DamageComponent holds damage marked on a permanent.
type DamageComponent struct {
	Marked int
}

// Entity is an id plus the components attached to it. Components are
// replaced, never mutated, so entities can be shared between states.
type Entity struct {
	ID         string
	Card       *CardComponent
	Controller *ControllerComponent
	Player     *PlayerComponent
	Life       *LifeComponent
	Damage     *DamageComponent
}

// IsPlayer reports whether the entity is a player.
func (e Entity) IsPlayer() bool { return e.Player != nil }

// IsCard reports whether the entity is a card.
func (e Entity) IsCard() bool { return e.Card != nil }

// ControllerID returns the controlling player, falling back to the owner.
func (e Entity) ControllerID() string {
	if e.Controller != nil {
		return e.Controller.PlayerID
	}
	if e.Card != nil {
		return e.Card.OwnerID
	}
	return ""
}

// Name returns the card or player name.
func (e Entity) Name() string {
	switch {
	case e.Card != nil:
		return e.Card.Name
	case e.Player != nil:
		return e.Player.Name
	default:
		return ""
	}
}
