package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/internal/logging"
	"github.com/BaSui01/agentscaffold/types"
)

// State is the structured record an agent receives and returns.
type State map[string]any

// Clone returns a shallow copy. A nil State clones to an empty, non-nil map.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Agent is the contract every agent satisfies.
type Agent interface {
	Name() string
	Description() string
	// Process maps the input state to a new state. A nil state is treated as empty.
	Process(ctx context.Context, state State) (State, error)
}

// BaseAgent carries identity and logging helpers. Concrete agents embed it and
// implement Process.
type BaseAgent struct {
	name        string
	description string
	logger      *zap.Logger
}

// NewBaseAgent validates the name and logs the initialization.
func NewBaseAgent(name, description string, logger *zap.Logger) (*BaseAgent, error) {
	if name == "" {
		return nil, types.NewValidationError("agent name cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &BaseAgent{
		name:        name,
		description: description,
		logger:      logger.With(zap.String("agent", name)),
	}
	b.logger.Info(fmt.Sprintf("Initialized agent: %s", name))
	return b, nil
}

func (b *BaseAgent) Name() string        { return b.name }
func (b *BaseAgent) Description() string { return b.description }

// Logger returns the agent-scoped logger.
func (b *BaseAgent) Logger() *zap.Logger { return b.logger }

// HumanMessage builds a human-kind message.
func (b *BaseAgent) HumanMessage(content string) types.Message {
	return types.NewHumanMessage(content)
}

// AIMessage builds an ai-kind message attributed to this agent.
func (b *BaseAgent) AIMessage(content string) types.Message {
	return types.NewAIMessage(content).WithName(b.name)
}

// Log writes message at info level.
func (b *BaseAgent) Log(message string) {
	logging.Emit(b.logger, "info", fmt.Sprintf("[%s] %s", b.name, message))
}

// LogAt writes "[<name>] <message>" at the named level. Levels other than
// debug, info, warning (warn) and error are logged at info.
func (b *BaseAgent) LogAt(level, message string) {
	logging.Emit(b.logger, level, fmt.Sprintf("[%s] %s", b.name, message))
}
