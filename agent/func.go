package agent

import (
	"context"

	"go.uber.org/zap"
)

// ProcessFunc is the signature of an agent written as a function.
type ProcessFunc func(ctx context.Context, base *BaseAgent, state State) (State, error)

type funcAgent struct {
	*BaseAgent
	fn ProcessFunc
}

// Func adapts fn into an Agent. It fails under the same rules as NewBaseAgent.
func Func(name, description string, fn ProcessFunc, logger *zap.Logger) (Agent, error) {
	base, err := NewBaseAgent(name, description, logger)
	if err != nil {
		return nil, err
	}
	return &funcAgent{BaseAgent: base, fn: fn}, nil
}

func (a *funcAgent) Process(ctx context.Context, state State) (State, error) {
	if a.fn == nil {
		return state.Clone(), nil
	}
	return a.fn(ctx, a.BaseAgent, state)
}
