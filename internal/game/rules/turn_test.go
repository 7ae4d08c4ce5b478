package rules

import "testing"

func TestNextStepSequence(t *testing.T) {
	expected := []struct {
		phase Phase
		step  Step
	}{
		{PhaseBeginning, StepUpkeep},
		{PhaseBeginning, StepDraw},
		{PhasePrecombatMain, StepMain1},
		{PhaseCombat, StepBeginCombat},
		{PhaseCombat, StepDeclareAttackers},
		{PhaseCombat, StepDeclareBlockers},
		{PhaseCombat, StepCombatDamage},
		{PhaseCombat, StepEndCombat},
		{PhasePostcombatMain, StepMain2},
		{PhaseEnding, StepEnd},
		{PhaseEnding, StepCleanup},
	}

	step := StepUntap
	for i, exp := range expected {
		next, phase, wrapped := NextStep(step)
		if wrapped {
			t.Fatalf("step %d: unexpected wrap", i)
		}
		if phase != exp.phase {
			t.Fatalf("step %d: expected phase %s, got %s", i, exp.phase, phase)
		}
		if next != exp.step {
			t.Fatalf("step %d: expected step %s, got %s", i, exp.step, next)
		}
		step = next
	}
}

func TestNextStepWrapsTurn(t *testing.T) {
	next, phase, wrapped := NextStep(StepCleanup)
	if !wrapped {
		t.Fatalf("expected cleanup to wrap into a new turn")
	}
	if phase != PhaseBeginning || next != StepUntap {
		t.Fatalf("expected new turn to start at BEGINNING/UNTAP, got %s/%s", phase, next)
	}
}

func TestNextPlayerWraps(t *testing.T) {
	order := []string{"Alice", "Bob", "Carol"}
	if got := NextPlayer(order, "Alice"); got != "Bob" {
		t.Fatalf("expected Bob, got %s", got)
	}
	if got := NextPlayer(order, "Carol"); got != "Alice" {
		t.Fatalf("expected Alice, got %s", got)
	}
	if got := NextPlayer(order, "Mallory"); got != "Alice" {
		t.Fatalf("expected unknown player to fall back to first, got %s", got)
	}
}

func TestAPNAPOrderRotatesToActive(t *testing.T) {
	got := APNAPOrder([]string{"Alice", "Bob", "Carol"}, "Bob")
	want := []string{"Bob", "Carol", "Alice"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestStepTextRoundTrip(t *testing.T) {
	var step Step
	if err := step.UnmarshalText([]byte("upkeep")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step != StepUpkeep {
		t.Fatalf("expected UPKEEP, got %s", step)
	}
	if PhaseOf(StepDeclareBlockers) != PhaseCombat {
		t.Fatalf("expected declare blockers to be in combat phase")
	}
	if _, err := ParseStep("second breakfast"); err == nil {
		t.Fatalf("expected unknown step to fail")
	}
}
