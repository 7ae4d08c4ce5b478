// Package triggers matches emitted game events against registered triggered
// abilities and orders the results APNAP: all of the active player's
// triggers first, then each other player's in turn order.
package triggers

import (
	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

// TriggerContext describes what caused a trigger.
type TriggerContext struct {
	EventType rules.EventType
	// SubjectID is the moved card, the damaged entity or the affected player.
	SubjectID string
	PlayerID  string
	FromZone  rules.Zone
	ToZone    rules.Zone
	Amount    int
	Combat    bool
	Phase     rules.Phase
	Step      rules.Step
}

// PendingTrigger is a matched ability instance waiting to be stacked.
type PendingTrigger struct {
	Ability      TriggeredAbility
	SourceID     string
	SourceName   string
	ControllerID string
	Context      TriggerContext
}

// StackedTrigger is a pending trigger with an identity.
type StackedTrigger struct {
	ID string
	PendingTrigger
}

// EffectContext builds the context the ability's effect resolves with. The
// trigger subject becomes the chosen target.
func (t StackedTrigger) EffectContext() effect.Context {
	ctx := effect.NewContext(t.ControllerID).WithSource(t.SourceID, t.SourceName)
	if t.Context.SubjectID != "" {
		ctx = ctx.WithTargets(t.Context.SubjectID)
	}
	return ctx
}

// DetectTriggers scans events in order and returns every matching triggered
// ability of permanents on the battlefield. Abilities of a card that just
// left the battlefield look back at the card and may still trigger on that
// move.
func DetectTriggers(st *state.State, events []rules.Event, registry *Registry, opts ...DetectOption) []StackedTrigger {
	if registry == nil || registry.Len() == 0 {
		return nil
	}
	var pending []PendingTrigger
	for _, evt := range events {
		for _, sourceID := range candidateSources(st, evt) {
			pending = append(pending, matchSource(st, evt, sourceID, registry)...)
		}
	}
	return stack(st, pending, newDetectConfig(opts))
}

// DetectPhaseStepTriggers returns the step-based triggers that fire when the
// game enters phase/step.
func DetectPhaseStepTriggers(st *state.State, phase rules.Phase, step rules.Step, registry *Registry, opts ...DetectOption) []StackedTrigger {
	if registry == nil || registry.Len() == 0 {
		return nil
	}
	var pending []PendingTrigger
	for _, sourceID := range st.Zone(state.Battlefield) {
		source, ok := st.Entity(sourceID)
		if !ok || source.Card == nil {
			continue
		}
		abilities, ok := registry.Lookup(source.Card.Name)
		if !ok {
			continue
		}
		controller := source.ControllerID()
		for _, ability := range abilities.Triggered {
			tr := ability.Trigger
			if tr.Kind != KindPhaseStep || !stepListed(tr.Steps, step) {
				continue
			}
			if tr.ControllerTurnOnly && st.ActivePlayer() != controller {
				continue
			}
			pending = append(pending, PendingTrigger{
				Ability:      ability,
				SourceID:     sourceID,
				SourceName:   source.Card.Name,
				ControllerID: controller,
				Context: TriggerContext{
					EventType: rules.EventStepChanged,
					PlayerID:  st.ActivePlayer(),
					Phase:     phase,
					Step:      step,
				},
			})
		}
	}
	return stack(st, pending, newDetectConfig(opts))
}

func candidateSources(st *state.State, evt rules.Event) []string {
	sources := st.Zone(state.Battlefield)
	if evt.Type == rules.EventZoneChange && evt.FromZone == rules.ZoneBattlefield && evt.TargetID != "" {
		if !st.InZone(state.Battlefield, evt.TargetID) {
			sources = append(sources, evt.TargetID)
		}
	}
	return sources
}

func matchSource(st *state.State, evt rules.Event, sourceID string, registry *Registry) []PendingTrigger {
	source, ok := st.Entity(sourceID)
	if !ok || source.Card == nil {
		return nil
	}
	abilities, ok := registry.Lookup(source.Card.Name)
	if !ok {
		return nil
	}
	controller := source.ControllerID()
	lookBack := !st.InZone(state.Battlefield, sourceID)

	var out []PendingTrigger
	for _, ability := range abilities.Triggered {
		// a card that has left only sees its own departure
		if lookBack && !(ability.Trigger.Kind == KindZoneChange && evt.TargetID == sourceID) {
			continue
		}
		if !matches(st, ability.Trigger, evt, sourceID, controller) {
			continue
		}
		out = append(out, PendingTrigger{
			Ability:      ability,
			SourceID:     sourceID,
			SourceName:   source.Card.Name,
			ControllerID: controller,
			Context:      contextFor(evt),
		})
	}
	return out
}

func matches(st *state.State, tr Trigger, evt rules.Event, sourceID, controller string) bool {
	if tr.ControllerTurnOnly && st.ActivePlayer() != controller {
		return false
	}

	switch tr.Kind {
	case KindZoneChange:
		if evt.Type != rules.EventZoneChange {
			return false
		}
		if tr.FromZone != rules.ZoneNone && tr.FromZone != evt.FromZone {
			return false
		}
		if tr.ToZone != rules.ZoneNone && tr.ToZone != evt.ToZone {
			return false
		}
		if tr.SelfOnly && evt.TargetID != sourceID {
			return false
		}
		if tr.CardType != "" {
			card, ok := st.Card(evt.TargetID)
			if !ok || !card.HasType(tr.CardType) {
				return false
			}
		}
		return playerFilter(tr, evt.PlayerID, controller)

	case KindCardsDrawn, KindCardsDiscarded:
		want := rules.EventCardsDrawn
		if tr.Kind == KindCardsDiscarded {
			want = rules.EventCardsDiscarded
		}
		if evt.Type != want {
			return false
		}
		return playerFilter(tr, evt.PlayerID, controller)

	case KindDamageDealt:
		if evt.Type != rules.EventDamageDealt {
			return false
		}
		if tr.CombatOnly && !evt.Combat {
			return false
		}
		if tr.ToPlayerOnly && !st.IsPlayer(evt.TargetID) {
			return false
		}
		if tr.SelfOnly && evt.SourceID != sourceID {
			return false
		}
		if tr.ControllerOnly && evt.TargetID != controller {
			return false
		}
		if tr.OpponentOnly && (!st.IsPlayer(evt.TargetID) || evt.TargetID == controller) {
			return false
		}
		return true

	case KindLifeGained, KindLifeLost:
		if evt.Type != rules.EventLifeChanged {
			return false
		}
		if tr.Kind == KindLifeGained && evt.Amount <= 0 {
			return false
		}
		if tr.Kind == KindLifeLost && evt.Amount >= 0 {
			return false
		}
		return playerFilter(tr, evt.PlayerID, controller)

	default:
		return false
	}
}

func playerFilter(tr Trigger, playerID, controller string) bool {
	if tr.ControllerOnly && playerID != controller {
		return false
	}
	if tr.OpponentOnly && (playerID == "" || playerID == controller) {
		return false
	}
	return true
}

func contextFor(evt rules.Event) TriggerContext {
	ctx := TriggerContext{
		EventType: evt.Type,
		SubjectID: evt.TargetID,
		PlayerID:  evt.PlayerID,
		FromZone:  evt.FromZone,
		ToZone:    evt.ToZone,
		Amount:    evt.Amount,
		Combat:    evt.Combat,
		Phase:     evt.Phase,
		Step:      evt.Step,
	}
	if ctx.SubjectID == "" && evt.Type != rules.EventLifeChanged {
		ctx.SubjectID = evt.PlayerID
	}
	return ctx
}

func stepListed(steps []rules.Step, step rules.Step) bool {
	if len(steps) == 0 {
		return true
	}
	for _, s := range steps {
		if s == step {
			return true
		}
	}
	return false
}

// stack orders pending triggers APNAP and assigns ids. Order among one
// controller's triggers is preserved.
func stack(st *state.State, pending []PendingTrigger, cfg detectConfig) []StackedTrigger {
	if len(pending) == 0 {
		return nil
	}
	byController := make(map[string][]PendingTrigger)
	for _, p := range pending {
		byController[p.ControllerID] = append(byController[p.ControllerID], p)
	}

	order := rules.APNAPOrder(st.TurnOrder(), st.ActivePlayer())
	seated := make(map[string]bool, len(order))
	for _, id := range order {
		seated[id] = true
	}
	// controllers outside the turn order go last, in detection order
	for _, p := range pending {
		if !seated[p.ControllerID] {
			seated[p.ControllerID] = true
			order = append(order, p.ControllerID)
		}
	}

	out := make([]StackedTrigger, 0, len(pending))
	for _, controller := range order {
		for _, p := range byController[controller] {
			out = append(out, StackedTrigger{ID: cfg.newID(), PendingTrigger: p})
		}
	}
	return out
}
