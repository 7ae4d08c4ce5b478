package triggers

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

// Kind is the event family a trigger listens to.
type Kind string

const (
	KindZoneChange     Kind = "ZONE_CHANGE"
	KindCardsDrawn     Kind = "CARDS_DRAWN"
	KindCardsDiscarded Kind = "CARDS_DISCARDED"
	KindDamageDealt    Kind = "DAMAGE_DEALT"
	KindLifeGained     Kind = "LIFE_GAINED"
	KindLifeLost       Kind = "LIFE_LOST"
	KindPhaseStep      Kind = "PHASE_STEP"
)

// Trigger describes when a triggered ability fires. The boolean flags narrow
// the match; unset flags do not filter.
type Trigger struct {
	Kind     Kind         `yaml:"kind"`
	FromZone rules.Zone   `yaml:"from_zone,omitempty"`
	ToZone   rules.Zone   `yaml:"to_zone,omitempty"`
	Steps    []rules.Step `yaml:"steps,omitempty"`

	// SelfOnly: the subject of the event is the ability's own source.
	SelfOnly bool `yaml:"self_only,omitempty"`
	// ControllerOnly: the event concerns the ability's controller.
	ControllerOnly bool `yaml:"controller_only,omitempty"`
	// OpponentOnly: the event concerns an opponent of the controller.
	OpponentOnly bool `yaml:"opponent_only,omitempty"`
	CombatOnly   bool `yaml:"combat_only,omitempty"`
	ToPlayerOnly bool `yaml:"to_player_only,omitempty"`
	// CardType restricts zone-change triggers to subjects of this type.
	CardType           string `yaml:"card_type,omitempty"`
	ControllerTurnOnly bool   `yaml:"controller_turn_only,omitempty"`
}

// TriggeredAbility pairs a trigger with the effect it puts on the stack.
type TriggeredAbility struct {
	Name     string        `yaml:"name"`
	Trigger  Trigger       `yaml:"trigger"`
	Spec     effect.Spec   `yaml:"effect"`
	Optional bool          `yaml:"optional,omitempty"`
	Effect   effect.Effect `yaml:"-"`
}

// StaticAbility is carried for completeness; static abilities never trigger.
type StaticAbility struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// CardAbilities lists the abilities printed on one card.
type CardAbilities struct {
	Triggered []TriggeredAbility `yaml:"triggered,omitempty"`
	Static    []StaticAbility    `yaml:"static,omitempty"`
}

// Registry maps card names to their abilities. It is read-only once built
// and safe to share between sessions.
type Registry struct {
	cards map[string]CardAbilities
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cards: make(map[string]CardAbilities)}
}

// Register adds or replaces a card. Triggered abilities built in code may set
// Effect directly; otherwise Spec is built.
func (r *Registry) Register(cardName string, abilities CardAbilities) error {
	triggered := make([]TriggeredAbility, 0, len(abilities.Triggered))
	for i, ability := range abilities.Triggered {
		if ability.Trigger.Kind == "" {
			return fmt.Errorf("%s: triggered ability %d has no trigger kind", cardName, i)
		}
		if ability.Effect == nil {
			built, err := ability.Spec.Build()
			if err != nil {
				return fmt.Errorf("%s: triggered ability %q: %w", cardName, ability.Name, err)
			}
			ability.Effect = built
		}
		if ability.Spec.Type == "" {
			ability.Spec = effect.SpecOf(ability.Effect)
		}
		triggered = append(triggered, ability)
	}
	abilities.Triggered = triggered
	r.cards[cardName] = abilities
	return nil
}

// Lookup returns a card's abilities.
func (r *Registry) Lookup(cardName string) (CardAbilities, bool) {
	abilities, ok := r.cards[cardName]
	return abilities, ok
}

// Names returns the registered card names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cards))
	for name := range r.cards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered cards.
func (r *Registry) Len() int { return len(r.cards) }

type registryFile struct {
	Cards []struct {
		Name          string `yaml:"name"`
		CardAbilities `yaml:",inline"`
	} `yaml:"cards"`
}

// LoadRegistry parses a YAML ability registry.
func LoadRegistry(rd io.Reader) (*Registry, error) {
	var file registryFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	reg := NewRegistry()
	for _, card := range file.Cards {
		if card.Name == "" {
			return nil, fmt.Errorf("registry entry without a card name")
		}
		if _, dup := reg.cards[card.Name]; dup {
			return nil, fmt.Errorf("duplicate registry entry %q", card.Name)
		}
		if err := reg.Register(card.Name, card.CardAbilities); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadRegistryFile reads a YAML ability registry from disk.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}
