// Package effect describes requested game actions as plain data.
//
// Effects form a closed set of variants: every variant implements Effect
// through an unexported marker method, so new variants can only be added in
// this package. Variants carry no behavior; the engine package dispatches
// them to executors by Kind.
package effect

import (
	"encoding/gob"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

// Kind tags an effect variant.
type Kind string

const (
	KindDrawCards                   Kind = "DrawCards"
	KindDiscardCards                Kind = "DiscardCards"
	KindDiscardRandom               Kind = "DiscardRandom"
	KindDiscardHand                 Kind = "DiscardHand"
	KindMill                        Kind = "Mill"
	KindShuffleLibrary              Kind = "ShuffleLibrary"
	KindDealDamage                  Kind = "DealDamage"
	KindGainLife                    Kind = "GainLife"
	KindLoseLife                    Kind = "LoseLife"
	KindSearchLibrary               Kind = "SearchLibrary"
	KindRevealAndDiscard            Kind = "RevealAndDiscard"
	KindEachPlayerDiscardsThenDraws Kind = "EachPlayerDiscardsThenDraws"
	KindSacrificeOrDiscard          Kind = "SacrificeOrDiscard"
	KindMayDo                       Kind = "MayDo"
	KindChooseNumber                Kind = "ChooseNumber"
	KindSequence                    Kind = "Sequence"
	KindPhaseRestricted             Kind = "PhaseRestricted"
	KindCreateDrawReplacement       Kind = "CreateDrawReplacement"
	KindCreateDamagePrevention      Kind = "CreateDamagePrevention"
)

// Effect is a requested game action.
type Effect interface {
	Kind() Kind
	isEffect()
}

// DrawCards makes a player draw Count cards. When CountFromX is set the
// context's X value is used instead of Count.
type DrawCards struct {
	Count      int
	Player     TargetRef
	CountFromX bool
}

// DiscardCards makes a player discard Count cards of their choice.
type DiscardCards struct {
	Count  int
	Player TargetRef
}

// DiscardRandom makes a player discard Count cards at random.
type DiscardRandom struct {
	Count  int
	Player TargetRef
}

// DiscardHand makes a player discard their whole hand.
type DiscardHand struct {
	Player TargetRef
}

// Mill moves the top Count cards of a library to the graveyard.
type Mill struct {
	Count  int
	Player TargetRef
}

// ShuffleLibrary randomizes a player's library.
type ShuffleLibrary struct {
	Player TargetRef
}

// DealDamage deals Amount damage to a player or permanent.
type DealDamage struct {
	Amount int
	Target TargetRef
	Combat bool
}

// GainLife increases a player's life total.
type GainLife struct {
	Amount int
	Player TargetRef
}

// LoseLife decreases a player's life total.
type LoseLife struct {
	Amount int
	Player TargetRef
}

// SearchLibrary lets a player find up to Count cards, optionally restricted
// to CardType, and put them into Destination.
type SearchLibrary struct {
	Player      TargetRef
	CardType    string
	Count       int
	Destination rules.Zone
	Shuffle     bool
}

// RevealAndDiscard makes Player reveal RevealCount cards of their choice from
// hand; the effect's controller then picks DiscardCount of them to discard.
type RevealAndDiscard struct {
	Player       TargetRef
	RevealCount  int
	DiscardCount int
}

// EachPlayerDiscardsThenDraws lets each player discard up to MaxDiscard
// cards, then each player draws as many cards as they discarded.
type EachPlayerDiscardsThenDraws struct {
	MaxDiscard int
}

// SacrificeOrDiscard repeats Iterations times: the player sacrifices a
// permanent or discards a card. Iterations where neither is possible are
// skipped.
type SacrificeOrDiscard struct {
	Player     TargetRef
	Iterations int
}

// MayDo asks Player whether to perform Effect.
type MayDo struct {
	Player TargetRef
	Prompt string
	Effect Effect
}

// ChooseNumber asks Player for a number in [Min, Max] and executes Then with
// the chosen value as X.
type ChooseNumber struct {
	Player TargetRef
	Min    int
	Max    int
	Then   Effect
}

// Sequence executes Effects in order.
type Sequence struct {
	Effects []Effect
}

// PhaseRestricted executes Effect only during one of Steps.
type PhaseRestricted struct {
	Steps  []rules.Step
	Effect Effect
}

// CreateDrawReplacement installs a shield: the next time Player would draw a
// card, Replacement is executed instead.
type CreateDrawReplacement struct {
	Player      TargetRef
	Replacement Effect
	Duration    Duration
}

// CreateDamagePrevention installs a shield preventing the next Amount damage
// that would be dealt to Player.
type CreateDamagePrevention struct {
	Player   TargetRef
	Amount   int
	Duration Duration
}

func (DrawCards) Kind() Kind                   { return KindDrawCards }
func (DiscardCards) Kind() Kind                { return KindDiscardCards }
func (DiscardRandom) Kind() Kind               { return KindDiscardRandom }
func (DiscardHand) Kind() Kind                 { return KindDiscardHand }
func (Mill) Kind() Kind                        { return KindMill }
func (ShuffleLibrary) Kind() Kind              { return KindShuffleLibrary }
func (DealDamage) Kind() Kind                  { return KindDealDamage }
func (GainLife) Kind() Kind                    { return KindGainLife }
func (LoseLife) Kind() Kind                    { return KindLoseLife }
func (SearchLibrary) Kind() Kind               { return KindSearchLibrary }
func (RevealAndDiscard) Kind() Kind            { return KindRevealAndDiscard }
func (EachPlayerDiscardsThenDraws) Kind() Kind { return KindEachPlayerDiscardsThenDraws }
func (SacrificeOrDiscard) Kind() Kind          { return KindSacrificeOrDiscard }
func (MayDo) Kind() Kind                       { return KindMayDo }
func (ChooseNumber) Kind() Kind                { return KindChooseNumber }
func (Sequence) Kind() Kind                    { return KindSequence }
func (PhaseRestricted) Kind() Kind             { return KindPhaseRestricted }
func (CreateDrawReplacement) Kind() Kind       { return KindCreateDrawReplacement }
func (CreateDamagePrevention) Kind() Kind      { return KindCreateDamagePrevention }

func (DrawCards) isEffect()                   {}
func (DiscardCards) isEffect()                {}
func (DiscardRandom) isEffect()               {}
func (DiscardHand) isEffect()                 {}
func (Mill) isEffect()                        {}
func (ShuffleLibrary) isEffect()              {}
func (DealDamage) isEffect()                  {}
func (GainLife) isEffect()                    {}
func (LoseLife) isEffect()                    {}
func (SearchLibrary) isEffect()               {}
func (RevealAndDiscard) isEffect()            {}
func (EachPlayerDiscardsThenDraws) isEffect() {}
func (SacrificeOrDiscard) isEffect()          {}
func (MayDo) isEffect()                       {}
func (ChooseNumber) isEffect()                {}
func (Sequence) isEffect()                    {}
func (PhaseRestricted) isEffect()             {}
func (CreateDrawReplacement) isEffect()       {}
func (CreateDamagePrevention) isEffect()      {}

func init() {
	// Effects are stored behind interfaces in floating effects and
	// continuations, so every variant must be known to gob.
	gob.Register(DrawCards{})
	gob.Register(DiscardCards{})
	gob.Register(DiscardRandom{})
	gob.Register(DiscardHand{})
	gob.Register(Mill{})
	gob.Register(ShuffleLibrary{})
	gob.Register(DealDamage{})
	gob.Register(GainLife{})
	gob.Register(LoseLife{})
	gob.Register(SearchLibrary{})
	gob.Register(RevealAndDiscard{})
	gob.Register(EachPlayerDiscardsThenDraws{})
	gob.Register(SacrificeOrDiscard{})
	gob.Register(MayDo{})
	gob.Register(ChooseNumber{})
	gob.Register(Sequence{})
	gob.Register(PhaseRestricted{})
	gob.Register(CreateDrawReplacement{})
	gob.Register(CreateDamagePrevention{})
}
