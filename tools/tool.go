package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/internal/logging"
)

// defaultFailureMessage replaces an empty failure diagnostic.
const defaultFailureMessage = "tool execution failed"

// Input is the argument record of a tool.
type Input interface {
	Validate() error
}

// BaseInput is the empty input. Concrete inputs embed it and may override Validate.
type BaseInput struct{}

func (BaseInput) Validate() error { return nil }

// Output is the uniform result envelope. Exactly one of Result or Error is
// meaningful, selected by Success.
type Output struct {
	Success bool   `json:"success"`
	Result  any    `json:"result"`
	Error   string `json:"error,omitempty"`
}

// Success wraps a successful result.
func Success(result any) Output {
	return Output{Success: true, Result: result}
}

// Failure wraps a failure message. An empty message is replaced with a
// generic diagnostic so failed envelopes always explain themselves.
func Failure(message string) Output {
	if message == "" {
		message = defaultFailureMessage
	}
	return Output{Success: false, Error: message}
}

// Failuref formats a failure message.
func Failuref(format string, args ...any) Output {
	return Failure(fmt.Sprintf(format, args...))
}

// Tool is the contract every tool satisfies. Execute never panics or
// returns an error; failures travel in the Output.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input Input) Output
}

// BaseTool carries identity, envelope and logging helpers.
type BaseTool struct {
	name        string
	description string
	logger      *zap.Logger
}

// NewBaseTool logs the initialization. Construction never fails.
func NewBaseTool(name, description string, logger *zap.Logger) *BaseTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &BaseTool{
		name:        name,
		description: description,
		logger:      logger.With(zap.String("tool", name)),
	}
	t.logger.Info(fmt.Sprintf("Initialized tool: %s", name))
	return t
}

func (t *BaseTool) Name() string        { return t.name }
func (t *BaseTool) Description() string { return t.description }

// Logger returns the tool-scoped logger.
func (t *BaseTool) Logger() *zap.Logger { return t.logger }

func (t *BaseTool) Success(result any) Output { return Success(result) }
func (t *BaseTool) Error(message string) Output { return Failure(message) }

// Log writes message at info level.
func (t *BaseTool) Log(message string) {
	logging.Emit(t.logger, "info", fmt.Sprintf("[%s] %s", t.name, message))
}

// LogAt writes "[<name>] <message>" at the named level. Levels other than
// debug, info, warning (warn) and error are logged at info.
func (t *BaseTool) LogAt(level, message string) {
	logging.Emit(t.logger, level, fmt.Sprintf("[%s] %s", t.name, message))
}

// ExecuteFunc is the signature of a tool written as a function.
type ExecuteFunc func(ctx context.Context, base *BaseTool, input Input) Output

type funcTool struct {
	*BaseTool
	fn ExecuteFunc
}

// Func adapts fn into a Tool.
func Func(name, description string, fn ExecuteFunc, logger *zap.Logger) Tool {
	return &funcTool{BaseTool: NewBaseTool(name, description, logger), fn: fn}
}

func (t *funcTool) Execute(ctx context.Context, input Input) Output {
	if t.fn == nil {
		return Failuref("tool %s has no implementation", t.name)
	}
	return t.fn(ctx, t.BaseTool, input)
}
