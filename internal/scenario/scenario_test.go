package scenario

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/game/triggers"
	"github.com/thraizz/mage-engine-go/internal/session"
)

const registryYAML = `
cards:
  - name: Underworld Dreams
    triggered:
      - name: opponent draws
        trigger: {kind: CARDS_DRAWN, opponent_only: true}
        effect: {type: DealDamage, amount: 1, target: TARGET}
`

const dreamsScenario = `
name: dreams
seed: 7
setup:
  players:
    - id: p1
      name: Alice
      hand: [{id: p1-h1}, {id: p1-h2}]
      library: [{id: p1-l1}, {id: p1-l2}]
      battlefield: [{id: dreams, name: Underworld Dreams}]
    - id: p2
      name: Bob
      hand: [{id: p2-h1}]
      library: [{id: p2-l1}, {id: p2-l2}, {id: p2-l3}]
steps:
  - execute: {type: DrawCards, count: 2, player: OPPONENT}
    expect:
      hand_size: {p2: 3}
      pending_triggers: 1
  - resolve_triggers: true
    expect:
      life: {p2: 19, p1: 20}
      pending_triggers: 0
  - execute: {type: DiscardCards, count: 1}
    expect:
      decision_pending: true
  - respond: {card_ids: [p1-h2]}
    expect:
      graveyard_size: {p1: 1}
      hand_size: {p1: 1}
  - advance: 2
    expect:
      step: DRAW
      turn: 1
`

func loadRegistry(t *testing.T) *triggers.Registry {
	t.Helper()
	reg, err := triggers.LoadRegistry(strings.NewReader(registryYAML))
	require.NoError(t, err)
	return reg
}

func TestRun(t *testing.T) {
	sc, err := Load(strings.NewReader(dreamsScenario))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 5)

	var seen []session.NotificationType
	report, err := Run(sc, Options{
		Registry:       loadRegistry(t),
		Logger:         zaptest.NewLogger(t),
		OnNotification: func(n session.Notification) { seen = append(seen, n.Type) },
	})
	require.NoError(t, err)

	assert.Equal(t, "dreams", report.Name)
	assert.Equal(t, 5, report.Steps)
	assert.Equal(t, rules.StepDraw, report.Final.Step())
	assert.Equal(t, []string{"p1-h2"}, report.Final.Zone(state.GraveyardOf("p1")))
	assert.Contains(t, seen, session.NotifyTriggers)
	assert.Contains(t, seen, session.NotifyDecision)
}

func TestRunFailsOnExpectation(t *testing.T) {
	sc, err := Load(strings.NewReader(`
setup:
  players: [{id: p1, hand: [{id: c1}]}, {id: p2}]
steps:
  - execute: {type: GainLife, amount: 3}
    expect:
      life: {p1: 22}
`))
	require.NoError(t, err)

	_, err = Run(sc, Options{})
	require.ErrorIs(t, err, ErrExpectation)
	assert.Contains(t, err.Error(), "step 1")
}

func TestRunAutoRespond(t *testing.T) {
	doc := `
setup:
  players: [{id: p1, hand: [{id: c1}, {id: c2}, {id: c3}]}, {id: p2}]
steps:
  - execute: {type: DiscardCards, count: 2}
  - execute: {type: GainLife, amount: 1}
    expect:
      graveyard_size: {p1: 2}
      life: {p1: 21}
`
	sc, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	_, err = Run(sc, Options{})
	require.Error(t, err, "an open decision blocks the next effect")

	report, err := Run(sc, Options{AutoRespond: true})
	require.NoError(t, err)
	assert.Equal(t, 21, report.Final.Life("p1"))
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"two actions":   "steps: [{advance: 1, resolve_triggers: true}]",
		"empty step":    "steps: [{}]",
		"unknown field": "steps: [{jump: 1}]",
		"bad effect":    "steps: [{execute: {type: Explode}}]",
		"empty":         "",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
