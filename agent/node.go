package agent

import (
	"context"

	"github.com/BaSui01/agentscaffold/types"
	"github.com/BaSui01/agentscaffold/workflow"
)

// Keys used when an agent runs inside a workflow.State graph.
const (
	KeyMessages      = "messages"
	KeyCurrentAgent  = "current_agent"
	KeyFinalResponse = "final_response"
)

// NewGraph returns a graph over agent State whose updates are merged key by key.
func NewGraph() *workflow.Graph[State] {
	merge := workflow.MergeMapReducer[string, any]()
	return workflow.NewGraph[State](func(current, update State) State {
		return merge(current, update)
	})
}

// AsNode adapts a into a node for graphs built with NewGraph.
func AsNode(a Agent) workflow.NodeFunc[State] {
	return func(ctx context.Context, s State) (State, error) {
		return a.Process(ctx, s)
	}
}

// AsWorkflowNode adapts a into a node over workflow.State. The agent sees the
// conversation under KeyMessages. Messages it returns under the same key are
// appended; when the returned slice starts with the conversation it was given,
// only the messages after it are new. The other keys update the matching
// fields. CurrentAgent defaults to the agent name.
func AsWorkflowNode(a Agent) workflow.NodeFunc[workflow.State] {
	return func(ctx context.Context, s workflow.State) (workflow.State, error) {
		in := State{
			KeyMessages:      types.CloneMessages(s.Messages),
			KeyCurrentAgent:  s.CurrentAgent,
			KeyFinalResponse: s.FinalResponse,
		}

		out, err := a.Process(ctx, in)
		if err != nil {
			return workflow.State{}, err
		}

		update := workflow.State{CurrentAgent: a.Name()}
		if msgs, ok := out[KeyMessages].([]types.Message); ok {
			update.Messages = newMessages(s.Messages, msgs)
		}
		if v, ok := out[KeyCurrentAgent].(string); ok && v != "" {
			update.CurrentAgent = v
		}
		if v, ok := out[KeyFinalResponse].(string); ok {
			update.FinalResponse = v
		}
		return update, nil
	}
}

// newMessages drops history from the front of returned when the agent echoed
// the conversation back.
func newMessages(history, returned []types.Message) []types.Message {
	if len(history) == 0 || len(returned) < len(history) {
		return returned
	}
	for i := range history {
		if !sameMessage(history[i], returned[i]) {
			return returned
		}
	}
	return returned[len(history):]
}

func sameMessage(a, b types.Message) bool {
	return a.Type == b.Type &&
		a.Content == b.Content &&
		a.Name == b.Name &&
		a.Timestamp.Equal(b.Timestamp)
}
