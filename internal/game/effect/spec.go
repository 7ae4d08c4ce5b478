package effect

import (
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

// Spec is the flat, tagged form of an effect used in registry files and on
// the wire. Type selects the variant; only the fields that variant uses are
// read.
type Spec struct {
	Type         Kind         `yaml:"type" json:"type"`
	Count        int          `yaml:"count,omitempty" json:"count,omitempty"`
	Amount       int          `yaml:"amount,omitempty" json:"amount,omitempty"`
	Player       TargetRef    `yaml:"player,omitempty" json:"player,omitempty"`
	Target       TargetRef    `yaml:"target,omitempty" json:"target,omitempty"`
	Combat       bool         `yaml:"combat,omitempty" json:"combat,omitempty"`
	CountFromX   bool         `yaml:"count_from_x,omitempty" json:"count_from_x,omitempty"`
	CardType     string       `yaml:"card_type,omitempty" json:"card_type,omitempty"`
	Destination  rules.Zone   `yaml:"destination,omitempty" json:"destination,omitempty"`
	Shuffle      bool         `yaml:"shuffle,omitempty" json:"shuffle,omitempty"`
	RevealCount  int          `yaml:"reveal_count,omitempty" json:"reveal_count,omitempty"`
	DiscardCount int          `yaml:"discard_count,omitempty" json:"discard_count,omitempty"`
	MaxDiscard   int          `yaml:"max_discard,omitempty" json:"max_discard,omitempty"`
	Iterations   int          `yaml:"iterations,omitempty" json:"iterations,omitempty"`
	Min          int          `yaml:"min,omitempty" json:"min,omitempty"`
	Max          int          `yaml:"max,omitempty" json:"max,omitempty"`
	Prompt       string       `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Steps        []rules.Step `yaml:"steps,omitempty" json:"steps,omitempty"`
	Duration     Duration     `yaml:"duration,omitempty" json:"duration,omitempty"`
	Effect       *Spec        `yaml:"effect,omitempty" json:"effect,omitempty"`
	Then         *Spec        `yaml:"then,omitempty" json:"then,omitempty"`
	Replacement  *Spec        `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Effects      []Spec       `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// Build validates the spec and produces the effect it describes.
func (s Spec) Build() (Effect, error) {
	if s.Count < 0 || s.Amount < 0 || s.Iterations < 0 {
		return nil, fmt.Errorf("%s: negative amounts are not allowed", s.Type)
	}

	switch s.Type {
	case KindDrawCards:
		return DrawCards{Count: s.Count, Player: s.Player.OrController(), CountFromX: s.CountFromX}, nil
	case KindDiscardCards:
		return DiscardCards{Count: s.Count, Player: s.Player.OrController()}, nil
	case KindDiscardRandom:
		return DiscardRandom{Count: s.Count, Player: s.Player.OrController()}, nil
	case KindDiscardHand:
		return DiscardHand{Player: s.Player.OrController()}, nil
	case KindMill:
		return Mill{Count: s.Count, Player: s.Player.OrController()}, nil
	case KindShuffleLibrary:
		return ShuffleLibrary{Player: s.Player.OrController()}, nil
	case KindDealDamage:
		if s.Target == "" {
			return nil, fmt.Errorf("%s: target is required", s.Type)
		}
		return DealDamage{Amount: s.Amount, Target: s.Target, Combat: s.Combat}, nil
	case KindGainLife:
		return GainLife{Amount: s.Amount, Player: s.Player.OrController()}, nil
	case KindLoseLife:
		return LoseLife{Amount: s.Amount, Player: s.Player.OrController()}, nil
	case KindSearchLibrary:
		dest := s.Destination
		if dest == rules.ZoneNone {
			dest = rules.ZoneHand
		}
		if !dest.IsValid() {
			return nil, fmt.Errorf("%s: unknown destination %q", s.Type, dest)
		}
		return SearchLibrary{Player: s.Player.OrController(), CardType: s.CardType, Count: s.Count, Destination: dest, Shuffle: s.Shuffle}, nil
	case KindRevealAndDiscard:
		if s.RevealCount <= 0 || s.DiscardCount <= 0 {
			return nil, fmt.Errorf("%s: reveal_count and discard_count must be positive", s.Type)
		}
		player := s.Player
		if player == "" {
			player = TargetOpponent
		}
		return RevealAndDiscard{Player: player, RevealCount: s.RevealCount, DiscardCount: s.DiscardCount}, nil
	case KindEachPlayerDiscardsThenDraws:
		return EachPlayerDiscardsThenDraws{MaxDiscard: s.MaxDiscard}, nil
	case KindSacrificeOrDiscard:
		return SacrificeOrDiscard{Player: s.Player.OrController(), Iterations: s.Iterations}, nil
	case KindMayDo:
		inner, err := s.nested("effect", s.Effect)
		if err != nil {
			return nil, err
		}
		return MayDo{Player: s.Player.OrController(), Prompt: s.Prompt, Effect: inner}, nil
	case KindChooseNumber:
		if s.Max < s.Min {
			return nil, fmt.Errorf("%s: max %d is below min %d", s.Type, s.Max, s.Min)
		}
		then, err := s.nested("then", s.Then)
		if err != nil {
			return nil, err
		}
		return ChooseNumber{Player: s.Player.OrController(), Min: s.Min, Max: s.Max, Then: then}, nil
	case KindSequence:
		effects := make([]Effect, 0, len(s.Effects))
		for i, child := range s.Effects {
			built, err := child.Build()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", s.Type, i, err)
			}
			effects = append(effects, built)
		}
		return Sequence{Effects: effects}, nil
	case KindPhaseRestricted:
		if len(s.Steps) == 0 {
			return nil, fmt.Errorf("%s: at least one step is required", s.Type)
		}
		inner, err := s.nested("effect", s.Effect)
		if err != nil {
			return nil, err
		}
		return PhaseRestricted{Steps: append([]rules.Step(nil), s.Steps...), Effect: inner}, nil
	case KindCreateDrawReplacement:
		replacement, err := s.nested("replacement", s.Replacement)
		if err != nil {
			return nil, err
		}
		return CreateDrawReplacement{Player: s.Player.OrController(), Replacement: replacement, Duration: s.durationOrDefault()}, nil
	case KindCreateDamagePrevention:
		return CreateDamagePrevention{Player: s.Player.OrController(), Amount: s.Amount, Duration: s.durationOrDefault()}, nil
	case "":
		return nil, fmt.Errorf("effect type is required")
	default:
		return nil, fmt.Errorf("unknown effect type %q", s.Type)
	}
}

func (s Spec) nested(field string, child *Spec) (Effect, error) {
	if child == nil {
		return nil, fmt.Errorf("%s: %s is required", s.Type, field)
	}
	built, err := child.Build()
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", s.Type, field, err)
	}
	return built, nil
}

func (s Spec) durationOrDefault() Duration {
	if s.Duration == "" {
		return DurationEndOfTurn
	}
	return s.Duration
}

// SpecOf converts an effect back into its tagged form.
func SpecOf(e Effect) Spec {
	switch v := e.(type) {
	case DrawCards:
		return Spec{Type: v.Kind(), Count: v.Count, Player: v.Player, CountFromX: v.CountFromX}
	case DiscardCards:
		return Spec{Type: v.Kind(), Count: v.Count, Player: v.Player}
	case DiscardRandom:
		return Spec{Type: v.Kind(), Count: v.Count, Player: v.Player}
	case DiscardHand:
		return Spec{Type: v.Kind(), Player: v.Player}
	case Mill:
		return Spec{Type: v.Kind(), Count: v.Count, Player: v.Player}
	case ShuffleLibrary:
		return Spec{Type: v.Kind(), Player: v.Player}
	case DealDamage:
		return Spec{Type: v.Kind(), Amount: v.Amount, Target: v.Target, Combat: v.Combat}
	case GainLife:
		return Spec{Type: v.Kind(), Amount: v.Amount, Player: v.Player}
	case LoseLife:
		return Spec{Type: v.Kind(), Amount: v.Amount, Player: v.Player}
	case SearchLibrary:
		return Spec{Type: v.Kind(), Player: v.Player, CardType: v.CardType, Count: v.Count, Destination: v.Destination, Shuffle: v.Shuffle}
	case RevealAndDiscard:
		return Spec{Type: v.Kind(), Player: v.Player, RevealCount: v.RevealCount, DiscardCount: v.DiscardCount}
	case EachPlayerDiscardsThenDraws:
		return Spec{Type: v.Kind(), MaxDiscard: v.MaxDiscard}
	case SacrificeOrDiscard:
		return Spec{Type: v.Kind(), Player: v.Player, Iterations: v.Iterations}
	case MayDo:
		inner := SpecOf(v.Effect)
		return Spec{Type: v.Kind(), Player: v.Player, Prompt: v.Prompt, Effect: &inner}
	case ChooseNumber:
		then := SpecOf(v.Then)
		return Spec{Type: v.Kind(), Player: v.Player, Min: v.Min, Max: v.Max, Then: &then}
	case Sequence:
		children := make([]Spec, 0, len(v.Effects))
		for _, child := range v.Effects {
			children = append(children, SpecOf(child))
		}
		return Spec{Type: v.Kind(), Effects: children}
	case PhaseRestricted:
		inner := SpecOf(v.Effect)
		return Spec{Type: v.Kind(), Steps: append([]rules.Step(nil), v.Steps...), Effect: &inner}
	case CreateDrawReplacement:
		replacement := SpecOf(v.Replacement)
		return Spec{Type: v.Kind(), Player: v.Player, Replacement: &replacement, Duration: v.Duration}
	case CreateDamagePrevention:
		return Spec{Type: v.Kind(), Player: v.Player, Amount: v.Amount, Duration: v.Duration}
	default:
		return Spec{}
	}
}
