package engine

import (
	"encoding/gob"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

// DiscardContinuation finishes a "discard N of your choice" effect.
type DiscardContinuation struct {
	ID       string
	PlayerID string
	Context  effect.Context
}

// RevealPhase selects the stage of a reveal-and-discard effect.
type RevealPhase string

const (
	// RevealPhaseReveal waits for the hand owner to pick cards to reveal.
	RevealPhaseReveal RevealPhase = "REVEAL"
	// RevealPhaseChoose waits for the controller to pick among revealed cards.
	RevealPhaseChoose RevealPhase = "CHOOSE"
)

// RevealDiscardContinuation drives the two-player reveal-then-discard loop.
type RevealDiscardContinuation struct {
	ID           string
	Phase        RevealPhase
	HandOwnerID  string
	ChooserID    string
	DiscardCount int
	Revealed     []string
	Context      effect.Context
}

// PlayerCount records how many cards one player discarded.
type PlayerCount struct {
	PlayerID string
	Count    int
}

// EachPlayerDiscardContinuation waits for Current's discard choice. Players
// in Remaining still have to choose; Counts holds the results so far.
type EachPlayerDiscardContinuation struct {
	ID         string
	Current    string
	Remaining  []string
	Counts     []PlayerCount
	MaxDiscard int
	Context    effect.Context
}

// SacrificePhase selects the stage of a sacrifice-or-discard iteration.
type SacrificePhase string

const (
	SacrificePhaseChooseMode      SacrificePhase = "CHOOSE_MODE"
	SacrificePhaseChoosePermanent SacrificePhase = "CHOOSE_PERMANENT"
	SacrificePhaseChooseCard      SacrificePhase = "CHOOSE_CARD"
)

// SacrificeOrDiscardContinuation waits for one iteration's choice.
// Remaining counts the iterations after the current one.
type SacrificeOrDiscardContinuation struct {
	ID        string
	Phase     SacrificePhase
	PlayerID  string
	Remaining int
	Context   effect.Context
}

// MayContinuation runs Effect if the player answers yes.
type MayContinuation struct {
	ID       string
	PlayerID string
	Effect   effect.Effect
	Context  effect.Context
}

// ChooseNumberContinuation runs Then with the chosen number as X.
type ChooseNumberContinuation struct {
	ID       string
	PlayerID string
	Then     effect.Effect
	Context  effect.Context
}

// SearchLibraryContinuation moves the found cards and optionally shuffles.
type SearchLibraryContinuation struct {
	ID          string
	PlayerID    string
	Destination rules.Zone
	Shuffle     bool
	Context     effect.Context
}

// SequenceContinuation is a deferred frame holding the rest of a sequence.
type SequenceContinuation struct {
	Remaining []effect.Effect
	Context   effect.Context
}

// DrawRemainingContinuation is a deferred frame holding the draws left
// after one was replaced by a shield.
type DrawRemainingContinuation struct {
	PlayerID  string
	Remaining int
	Context   effect.Context
}

func (c DiscardContinuation) DecisionID() string            { return c.ID }
func (c RevealDiscardContinuation) DecisionID() string      { return c.ID }
func (c EachPlayerDiscardContinuation) DecisionID() string  { return c.ID }
func (c SacrificeOrDiscardContinuation) DecisionID() string { return c.ID }
func (c MayContinuation) DecisionID() string                { return c.ID }
func (c ChooseNumberContinuation) DecisionID() string       { return c.ID }
func (c SearchLibraryContinuation) DecisionID() string      { return c.ID }
func (SequenceContinuation) DecisionID() string             { return "" }
func (DrawRemainingContinuation) DecisionID() string        { return "" }

func init() {
	gob.Register(DiscardContinuation{})
	gob.Register(RevealDiscardContinuation{})
	gob.Register(EachPlayerDiscardContinuation{})
	gob.Register(SacrificeOrDiscardContinuation{})
	gob.Register(MayContinuation{})
	gob.Register(ChooseNumberContinuation{})
	gob.Register(SearchLibraryContinuation{})
	gob.Register(SequenceContinuation{})
	gob.Register(DrawRemainingContinuation{})
}
