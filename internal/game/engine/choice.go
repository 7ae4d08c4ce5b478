package engine

import (
	"fmt"
	"strconv"

	"github.com/thraizz/mage-engine-go/internal/game/effect"
	"github.com/thraizz/mage-engine-go/internal/game/rules"
	"github.com/thraizz/mage-engine-go/internal/game/state"
)

func executeMayDo(p *Pipeline, st *state.State, e effect.MayDo, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	if e.Effect == nil {
		return failure(st, fmt.Errorf("%w: may without effect", ErrUnknownEffect))
	}
	prompt := e.Prompt
	if prompt == "" {
		prompt = fmt.Sprintf("Do you want to %s?", e.Effect.Kind())
	}
	d := state.YesNoDecision{DecisionHeader: p.header(st, playerID, ctx, prompt)}
	return p.pause(st, nil, d, MayContinuation{ID: d.ID, PlayerID: playerID, Effect: e.Effect, Context: ctx})
}

func (c MayContinuation) resume(p *Pipeline, st *state.State, resp state.Response) Result {
	answer, _ := resp.(state.YesNoResponse)
	choice := rules.NewEvent(rules.EventChoiceMade, c.PlayerID, c.Context.SourceID)
	choice.Reason = "no"
	if !answer.Yes {
		return success(st, []rules.Event{choice})
	}
	choice.Reason = "yes"

	res := p.execute(st, c.Effect, c.Context)
	if res.Status == StatusError {
		return failure(st, res.Err)
	}
	return res.withPrefix([]rules.Event{choice})
}

func executeChooseNumber(p *Pipeline, st *state.State, e effect.ChooseNumber, ctx effect.Context) Result {
	playerID, err := resolvePlayer(st, e.Player, ctx)
	if err != nil {
		return failure(st, err)
	}
	d := state.NumberDecision{
		DecisionHeader: p.header(st, playerID, ctx, fmt.Sprintf("Choose a number from %d to %d", e.Min, e.Max)),
		Min:            e.Min,
		Max:            e.Max,
	}
	return p.pause(st, nil, d, ChooseNumberContinuation{ID: d.ID, PlayerID: playerID, Then: e.Then, Context: ctx})
}

func (c ChooseNumberContinuation) resume(p *Pipeline, st *state.State, resp state.Response) Result {
	number, _ := resp.(state.NumberResponse)
	choice := rules.NewEvent(rules.EventChoiceMade, c.PlayerID, c.Context.SourceID)
	choice.Amount = number.Value
	choice.Reason = strconv.Itoa(number.Value)

	res := p.execute(st, c.Then, c.Context.WithX(number.Value))
	if res.Status == StatusError {
		return failure(st, res.Err)
	}
	return res.withPrefix([]rules.Event{choice})
}
