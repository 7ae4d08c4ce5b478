package state

import (
	"encoding/gob"
	"sort"
	"time"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
)

// ModificationKind identifies the base operation a floating effect changes.
type ModificationKind string

const (
	ModReplaceDraw   ModificationKind = "REPLACE_DRAW"
	ModPreventDamage ModificationKind = "PREVENT_DAMAGE"
)

// Modification is the payload of a floating effect.
type Modification interface {
	ModificationKind() ModificationKind
}

// ReplaceDrawWithEffect replaces the next draw with Effect, executed with
// the Context it was created under.
type ReplaceDrawWithEffect struct {
	Effect  effect.Effect
	Context effect.Context
}

// PreventDamage prevents up to Amount damage from one damage event.
type PreventDamage struct {
	Amount int
}

func (ReplaceDrawWithEffect) ModificationKind() ModificationKind { return ModReplaceDraw }
func (PreventDamage) ModificationKind() ModificationKind         { return ModPreventDamage }

// FloatingEffect is a single-use interceptor active until consumed or until
// its duration ends.
type FloatingEffect struct {
	ID              string
	Modification    Modification
	Duration        effect.Duration
	SourceID        string
	ControllerID    string
	AffectedPlayers []string
	Timestamp       time.Time
}

// Affects reports whether the effect applies to playerID.
func (f FloatingEffect) Affects(playerID string) bool {
	for _, id := range f.AffectedPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

// FloatingEffects returns the active floating effects in creation order.
func (s *State) FloatingEffects() []FloatingEffect {
	return append([]FloatingEffect(nil), s.floating...)
}

// AddFloatingEffect appends a floating effect.
func (s *State) AddFloatingEffect(f FloatingEffect) *State {
	f.AffectedPlayers = append([]string(nil), f.AffectedPlayers...)
	out := s.clone()
	out.floating = make([]FloatingEffect, len(s.floating), len(s.floating)+1)
	copy(out.floating, s.floating)
	out.floating = append(out.floating, f)
	return out
}

// RemoveFloatingEffect drops the floating effect with the given id.
func (s *State) RemoveFloatingEffect(id string) *State {
	return s.FilterFloatingEffects(func(f FloatingEffect) bool { return f.ID != id })
}

// FilterFloatingEffects keeps only the effects for which keep returns true.
func (s *State) FilterFloatingEffects(keep func(FloatingEffect) bool) *State {
	kept := make([]FloatingEffect, 0, len(s.floating))
	for _, f := range s.floating {
		if keep(f) {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(s.floating) {
		return s
	}
	out := s.clone()
	out.floating = kept
	return out
}

// FirstShield returns the oldest floating effect of the given kind that
// affects playerID. Ties on timestamp keep creation order.
func (s *State) FirstShield(kind ModificationKind, playerID string) (FloatingEffect, bool) {
	matches := make([]FloatingEffect, 0, len(s.floating))
	for _, f := range s.floating {
		if f.Modification != nil && f.Modification.ModificationKind() == kind && f.Affects(playerID) {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		return FloatingEffect{}, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.Before(matches[j].Timestamp)
	})
	return matches[0], true
}

func init() {
	gob.Register(ReplaceDrawWithEffect{})
	gob.Register(PreventDamage{})
}
