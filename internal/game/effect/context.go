package effect

import "strings"

// TargetRef names a player or object relative to an effect's context.
type TargetRef string

const (
	TargetController   TargetRef = "CONTROLLER"
	TargetOpponent     TargetRef = "OPPONENT"
	TargetActivePlayer TargetRef = "ACTIVE_PLAYER"
	TargetChosen       TargetRef = "TARGET"

	playerRefPrefix = "PLAYER:"
)

// Player returns a reference to a specific player id.
func Player(id string) TargetRef {
	return TargetRef(playerRefPrefix + id)
}

// PlayerID returns the explicit player id for refs created with Player.
func (r TargetRef) PlayerID() (string, bool) {
	if !strings.HasPrefix(string(r), playerRefPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(string(r), playerRefPrefix)
	return id, id != ""
}

// OrController returns r, or TargetController when r is empty.
func (r TargetRef) OrController() TargetRef {
	if r == "" {
		return TargetController
	}
	return r
}

// Duration represents how long a floating effect lasts.
type Duration string

const (
	// DurationEndOfTurn expires at the end of the current turn.
	DurationEndOfTurn Duration = "END_OF_TURN"
	// DurationEndOfCombat expires when combat ends.
	DurationEndOfCombat Duration = "END_OF_COMBAT"
	// DurationPermanent never expires on its own.
	DurationPermanent Duration = "PERMANENT"
)

// Context is the immutable environment of one effect invocation.
type Context struct {
	ControllerID string
	SourceID     string
	SourceName   string
	OpponentID   string
	Targets      []string
	X            *int
}

// NewContext creates a context controlled by controllerID.
func NewContext(controllerID string) Context {
	return Context{ControllerID: controllerID}
}

// WithSource returns a copy of the context with source information.
func (c Context) WithSource(sourceID, sourceName string) Context {
	out := c.clone()
	out.SourceID = sourceID
	out.SourceName = sourceName
	return out
}

// WithOpponent returns a copy of the context with the opponent set.
func (c Context) WithOpponent(opponentID string) Context {
	out := c.clone()
	out.OpponentID = opponentID
	return out
}

// WithTargets returns a copy of the context with resolved targets.
func (c Context) WithTargets(targets ...string) Context {
	out := c.clone()
	out.Targets = append([]string(nil), targets...)
	return out
}

// WithX returns a copy of the context with X set.
func (c Context) WithX(x int) Context {
	out := c.clone()
	out.X = &x
	return out
}

// XValue returns X, or 0 when unset.
func (c Context) XValue() int {
	if c.X == nil {
		return 0
	}
	return *c.X
}

func (c Context) clone() Context {
	out := c
	out.Targets = append([]string(nil), c.Targets...)
	if c.X != nil {
		x := *c.X
		out.X = &x
	}
	return out
}
