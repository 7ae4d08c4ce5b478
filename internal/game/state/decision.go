package state

import (
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
)

// ErrInvalidResponse is returned when a response does not fit its decision.
var ErrInvalidResponse = errors.New("invalid response")

// DecisionKind tags a decision variant.
type DecisionKind string

const (
	DecisionCardSelection DecisionKind = "CARD_SELECTION"
	DecisionNumber        DecisionKind = "NUMBER"
	DecisionYesNo         DecisionKind = "YES_NO"
	DecisionSearchLibrary DecisionKind = "SEARCH_LIBRARY"
)

// DecisionContext carries what a client needs to render a prompt.
type DecisionContext struct {
	SourceID   string
	SourceName string
	Phase      rules.Phase
	Step       rules.Step
	Prompt     string
}

// DecisionHeader is shared by every decision variant.
type DecisionHeader struct {
	ID       string
	PlayerID string
	Context  DecisionContext
}

// Header returns the shared decision fields.
func (h DecisionHeader) Header() DecisionHeader { return h }

// Decision is a request for one player's input.
type Decision interface {
	Header() DecisionHeader
	Kind() DecisionKind
	// Validate checks that r answers this decision within its bounds.
	Validate(r Response) error
	// DefaultResponse is the smallest legal answer, used when a player runs
	// out of time.
	DefaultResponse() Response
}

// CardSelectionDecision asks for between Min and Max of Options.
type CardSelectionDecision struct {
	DecisionHeader
	Options []string
	Min     int
	Max     int
	Ordered bool
}

// NumberDecision asks for an integer in [Min, Max].
type NumberDecision struct {
	DecisionHeader
	Min int
	Max int
}

// YesNoDecision asks a yes or no question.
type YesNoDecision struct {
	DecisionHeader
}

// SearchLibraryDecision asks for up to Max cards found in a library.
type SearchLibraryDecision struct {
	DecisionHeader
	Options []string
	Min     int
	Max     int
}

func (CardSelectionDecision) Kind() DecisionKind { return DecisionCardSelection }
func (NumberDecision) Kind() DecisionKind        { return DecisionNumber }
func (YesNoDecision) Kind() DecisionKind         { return DecisionYesNo }
func (SearchLibraryDecision) Kind() DecisionKind { return DecisionSearchLibrary }

func (d CardSelectionDecision) Validate(r Response) error {
	return validateSelection(r, d.Options, d.Min, d.Max)
}

func (d SearchLibraryDecision) Validate(r Response) error {
	return validateSelection(r, d.Options, d.Min, d.Max)
}

func (d NumberDecision) Validate(r Response) error {
	n, ok := r.(NumberResponse)
	if !ok {
		return fmt.Errorf("%w: expected number, got %T", ErrInvalidResponse, r)
	}
	if n.Value < d.Min || n.Value > d.Max {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidResponse, n.Value, d.Min, d.Max)
	}
	return nil
}

func (d YesNoDecision) Validate(r Response) error {
	if _, ok := r.(YesNoResponse); !ok {
		return fmt.Errorf("%w: expected yes/no, got %T", ErrInvalidResponse, r)
	}
	return nil
}

func (d CardSelectionDecision) DefaultResponse() Response {
	return CardsResponse{CardIDs: firstN(d.Options, d.Min)}
}

func (d SearchLibraryDecision) DefaultResponse() Response {
	return CardsResponse{CardIDs: firstN(d.Options, d.Min)}
}

func (d NumberDecision) DefaultResponse() Response { return NumberResponse{Value: d.Min} }

func (d YesNoDecision) DefaultResponse() Response { return YesNoResponse{Yes: false} }

func validateSelection(r Response, options []string, min, max int) error {
	cards, ok := r.(CardsResponse)
	if !ok {
		return fmt.Errorf("%w: expected card selection, got %T", ErrInvalidResponse, r)
	}
	if len(cards.CardIDs) < min || len(cards.CardIDs) > max {
		return fmt.Errorf("%w: selected %d cards, need %d to %d", ErrInvalidResponse, len(cards.CardIDs), min, max)
	}
	allowed := make(map[string]bool, len(options))
	for _, id := range options {
		allowed[id] = true
	}
	for _, id := range cards.CardIDs {
		if !allowed[id] {
			return fmt.Errorf("%w: %s is not an option", ErrInvalidResponse, id)
		}
		// each option may be picked once
		allowed[id] = false
	}
	return nil
}

func firstN(ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	if n <= 0 {
		return nil
	}
	return append([]string(nil), ids[:n]...)
}

// Response is a player's answer to a decision.
type Response interface {
	isResponse()
}

// CardsResponse answers a card selection or library search.
type CardsResponse struct {
	CardIDs []string
}

// NumberResponse answers a number decision.
type NumberResponse struct {
	Value int
}

// YesNoResponse answers a yes/no decision.
type YesNoResponse struct {
	Yes bool
}

// Answer is the loosely typed form of a response used by clients and
// scenario files. Answer.For turns it into the response shape a specific
// decision expects.
type Answer struct {
	CardIDs []string `json:"card_ids,omitempty" yaml:"card_ids,omitempty"`
	Value   *int     `json:"value,omitempty" yaml:"value,omitempty"`
	Yes     *bool    `json:"yes,omitempty" yaml:"yes,omitempty"`
}

// For converts the answer into the response kind d expects. A nil d takes a
// card selection.
func (a Answer) For(d Decision) (Response, error) {
	if d == nil {
		return CardsResponse{CardIDs: a.CardIDs}, nil
	}
	switch d.Kind() {
	case DecisionCardSelection, DecisionSearchLibrary:
		return CardsResponse{CardIDs: a.CardIDs}, nil
	case DecisionNumber:
		if a.Value == nil {
			return nil, fmt.Errorf("%w: number decision needs a value", ErrInvalidResponse)
		}
		return NumberResponse{Value: *a.Value}, nil
	case DecisionYesNo:
		if a.Yes == nil {
			return nil, fmt.Errorf("%w: yes/no decision needs an answer", ErrInvalidResponse)
		}
		return YesNoResponse{Yes: *a.Yes}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported decision kind %s", ErrInvalidResponse, d.Kind())
	}
}

func (CardsResponse) isResponse()  {}
func (NumberResponse) isResponse() {}
func (YesNoResponse) isResponse()  {}

// Continuation is a resumable record stacked on the state. DecisionID is
// empty for deferred frames that resume automatically once everything above
// them has completed.
type Continuation interface {
	DecisionID() string
}

func init() {
	gob.Register(CardSelectionDecision{})
	gob.Register(NumberDecision{})
	gob.Register(YesNoDecision{})
	gob.Register(SearchLibraryDecision{})
}
