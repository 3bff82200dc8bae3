package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentscaffold/agent"
	"github.com/BaSui01/agentscaffold/internal/metrics"
	"github.com/BaSui01/agentscaffold/tools"
	"github.com/BaSui01/agentscaffold/types"
	"github.com/BaSui01/agentscaffold/workflow"
)

const (
	demoWorkflowName = "demo"
	echoAgentName    = "echo"
	wordCountTool    = "word_count"
)

// wordCountInput is the argument record of the word_count tool.
type wordCountInput struct {
	tools.BaseInput
	Text string `json:"text"`
}

func (in wordCountInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return types.NewValidationError("text is required")
	}
	return nil
}

// wordCountResult is the word_count success payload.
type wordCountResult struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
}

func newWordCountTool(logger *zap.Logger, collector *metrics.Collector) tools.Tool {
	t := tools.Func(wordCountTool, "Counts the words and characters of a text",
		func(ctx context.Context, base *tools.BaseTool, input tools.Input) tools.Output {
			in, ok := input.(wordCountInput)
			if !ok {
				return base.Error(fmt.Sprintf("unexpected input type %T", input))
			}
			base.LogAt("debug", "counting words")
			return base.Success(wordCountResult{
				Words:      len(strings.Fields(in.Text)),
				Characters: len([]rune(in.Text)),
			})
		}, logger)

	return tools.Chain(t,
		func(t tools.Tool) tools.Tool { return tools.Recover(t, logger) },
		func(t tools.Tool) tools.Tool { return tools.Instrument(t, collector) },
		tools.Validate,
		func(t tools.Tool) tools.Tool { return tools.RateLimit(t, rate.NewLimiter(rate.Limit(50), 10)) },
		func(t tools.Tool) tools.Tool { return tools.Timeout(t, 5*time.Second) },
	)
}

// newEchoAgent replies with the last human message and its word count.
func newEchoAgent(registry *tools.Registry, logger *zap.Logger) (agent.Agent, error) {
	return agent.Func(echoAgentName, "Echoes the last human message",
		func(ctx context.Context, base *agent.BaseAgent, state agent.State) (agent.State, error) {
			msgs, _ := state[agent.KeyMessages].([]types.Message)

			var text string
			for i := len(msgs) - 1; i >= 0; i-- {
				if msgs[i].Type == types.MessageHuman {
					text = msgs[i].Content
					break
				}
			}
			if text == "" {
				base.LogAt("warning", "no human message to echo")
				return agent.State{agent.KeyFinalResponse: ""}, nil
			}

			reply := base.AIMessage("Echo: " + text)
			out := registry.Execute(ctx, wordCountTool, wordCountInput{Text: text})
			if out.Success {
				reply = reply.WithMetadata(map[string]any{wordCountTool: out.Result})
			} else {
				base.LogAt("warning", "word count failed: "+out.Error)
			}

			base.Log("replied")
			return agent.State{
				agent.KeyMessages:      []types.Message{reply},
				agent.KeyFinalResponse: reply.Content,
			}, nil
		}, logger)
}

// demoDeps are the collaborators of the demo workflow.
type demoDeps struct {
	Logger         *zap.Logger
	Metrics        *metrics.Collector
	Checkpointer   workflow.CheckpointStore
	RecursionLimit int
}

// newDemoRunner wires the echo agent and the word_count tool into a
// single-node graph behind a lazily initialized Runner.
func newDemoRunner(deps demoDeps) *workflow.Runner[workflow.State] {
	create := func() (workflow.Invoker[workflow.State], error) {
		registry := tools.NewRegistry(deps.Logger)
		if err := registry.Register(newWordCountTool(deps.Logger, deps.Metrics)); err != nil {
			return nil, err
		}

		echo, err := newEchoAgent(registry, deps.Logger)
		if err != nil {
			return nil, err
		}
		agents := agent.NewRegistry(deps.Logger)
		if err := agents.Register(agent.Instrument(echo, deps.Metrics)); err != nil {
			return nil, err
		}

		entry, ok := agents.Get(echoAgentName)
		if !ok {
			return nil, types.NewError(types.ErrCodeWorkflowBuild,
				fmt.Sprintf("agent %s not registered", echoAgentName))
		}

		g := workflow.NewStateGraph().
			AddNode(entry.Name(), agent.AsWorkflowNode(entry)).
			SetEntryPoint(entry.Name()).
			SetFinishPoint(entry.Name())

		opts := []workflow.CompileOption{
			workflow.WithLogger(deps.Logger),
			workflow.WithNodeRecorder(deps.Metrics),
		}
		if deps.Checkpointer != nil {
			opts = append(opts, workflow.WithCheckpointer(deps.Checkpointer))
		}
		if deps.RecursionLimit > 0 {
			opts = append(opts, workflow.WithRecursionLimit(deps.RecursionLimit))
		}

		compiled, err := g.Compile(opts...)
		if err != nil {
			return nil, err
		}
		return compiled, nil
	}

	return workflow.NewRunner(demoWorkflowName, create,
		workflow.WithRunnerLogger(deps.Logger),
		workflow.WithRunnerMetrics(deps.Metrics),
	)
}
