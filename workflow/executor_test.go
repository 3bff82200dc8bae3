package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/BaSui01/agentscaffold/types"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// say returns a node that appends one AI message.
func say(content string) NodeFunc[State] {
	return func(ctx context.Context, s State) (State, error) {
		return State{Messages: []types.Message{types.NewAIMessage(content)}}, nil
	}
}

func contents(s State) []string {
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, m.Content)
	}
	return out
}

type nodeRecord struct {
	node   string
	status string
}

type fakeNodeRecorder struct {
	mu      sync.Mutex
	records []nodeRecord
}

func (f *fakeNodeRecorder) RecordNode(node, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, nodeRecord{node: node, status: status})
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func TestCompiled_SequentialChain(t *testing.T) {
	compiled, err := NewStateGraph().
		AddNode("a", say("a")).
		AddNode("b", say("b")).
		AddNode("c", say("c")).
		SetEntryPoint("a").
		AddEdge("a", "b").
		AddEdge("b", "c").
		SetFinishPoint("c").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Invoke(context.Background(), State{
		Messages: []types.Message{types.NewHumanMessage("in")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "a", "b", "c"}, contents(result))
}

func TestCompiled_FanOutRunsInOneSuperstep(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := func(content string) NodeFunc[State] {
		return func(ctx context.Context, s State) (State, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return State{Messages: []types.Message{types.NewAIMessage(content)}}, nil
		}
	}

	compiled, err := NewStateGraph().
		AddNode("start", say("start")).
		AddNode("left", slow("left")).
		AddNode("right", slow("right")).
		AddNode("join", say("join")).
		SetEntryPoint("start").
		AddEdge("start", "left").
		AddEdge("start", "right").
		AddEdge("left", "join").
		AddEdge("right", "join").
		SetFinishPoint("join").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Invoke(context.Background(), State{})
	require.NoError(t, err)

	// join is scheduled once even though two edges lead to it
	assert.Equal(t, []string{"start", "left", "right", "join"}, contents(result))
	assert.Equal(t, int32(2), peak.Load())
}

func TestCompiled_FanOutNodesSeeSameSnapshot(t *testing.T) {
	var seen sync.Map
	observe := func(name string) NodeFunc[State] {
		return func(ctx context.Context, s State) (State, error) {
			seen.Store(name, len(s.Messages))
			return State{Messages: []types.Message{types.NewAIMessage(name)}}, nil
		}
	}

	compiled, err := NewStateGraph().
		AddNode("start", say("start")).
		AddNode("x", observe("x")).
		AddNode("y", observe("y")).
		SetEntryPoint("start").
		AddEdge("start", "x").
		AddEdge("start", "y").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Invoke(context.Background(), State{})
	require.NoError(t, err)

	x, _ := seen.Load("x")
	y, _ := seen.Load("y")
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, y)
}

func TestCompiled_ConditionalRouting(t *testing.T) {
	build := func() *Compiled[State] {
		compiled, err := NewStateGraph().
			AddNode("classify", func(ctx context.Context, s State) (State, error) {
				return State{CurrentAgent: "classifier"}, nil
			}).
			AddNode("greet", say("hello")).
			AddNode("refuse", say("no")).
			SetEntryPoint("classify").
			AddConditionalEdges("classify", func(ctx context.Context, s State) (string, error) {
				last, ok := s.LastMessage()
				if ok && last.Content == "hi" {
					return "friendly", nil
				}
				return "hostile", nil
			}, map[string]string{"friendly": "greet", "hostile": "refuse"}).
			SetFinishPoint("greet").
			SetFinishPoint("refuse").
			Compile()
		require.NoError(t, err)
		return compiled
	}

	result, err := build().Invoke(context.Background(), State{Messages: []types.Message{types.NewHumanMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "hello"}, contents(result))
	assert.Equal(t, "classifier", result.CurrentAgent)

	result, err = build().Invoke(context.Background(), State{Messages: []types.Message{types.NewHumanMessage("go away")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"go away", "no"}, contents(result))
}

func TestCompiled_RouteWithoutPathMapAndEnd(t *testing.T) {
	var visits atomic.Int32
	compiled, err := NewStateGraph().
		AddNode("loop", func(ctx context.Context, s State) (State, error) {
			visits.Add(1)
			return State{Messages: []types.Message{types.NewAIMessage("tick")}}, nil
		}).
		SetEntryPoint("loop").
		AddConditionalEdges("loop", func(ctx context.Context, s State) (string, error) {
			if len(s.Messages) >= 3 {
				return END, nil
			}
			return "loop", nil
		}, nil).
		Compile()
	require.NoError(t, err)

	result, err := compiled.Invoke(context.Background(), State{})
	require.NoError(t, err)
	assert.Len(t, result.Messages, 3)
	assert.Equal(t, int32(3), visits.Load())
}

func TestCompiled_RecursionLimit(t *testing.T) {
	compiled, err := NewStateGraph().
		AddNode("spin", say("again")).
		SetEntryPoint("spin").
		AddEdge("spin", "spin").
		Compile(WithRecursionLimit(3))
	require.NoError(t, err)

	_, err = compiled.Invoke(context.Background(), State{})
	require.Error(t, err)
	assert.True(t, IsRecursionLimit(err))
	assert.True(t, types.IsErrorCode(err, types.ErrCodeRecursionLimit))
}

func TestCompiled_NodeErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	rec := &fakeNodeRecorder{}
	compiled, err := NewStateGraph().
		AddNode("ok", say("ok")).
		AddNode("broken", func(ctx context.Context, s State) (State, error) {
			return State{}, boom
		}).
		SetEntryPoint("ok").
		AddEdge("ok", "broken").
		Compile(WithNodeRecorder(rec))
	require.NoError(t, err)

	_, err = compiled.Invoke(context.Background(), State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, types.IsErrorCode(err, types.ErrCodeWorkflowExecution))
	assert.Contains(t, err.Error(), "node broken failed")

	assert.Equal(t, []nodeRecord{
		{node: "ok", status: "success"},
		{node: "broken", status: "error"},
	}, rec.records)
}

func TestCompiled_UnknownRouteKey(t *testing.T) {
	compiled, err := NewStateGraph().
		AddNode("a", say("a")).
		AddNode("b", say("b")).
		SetEntryPoint("a").
		AddConditionalEdges("a", func(ctx context.Context, s State) (string, error) {
			return "missing", nil
		}, map[string]string{"next": "b"}).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Invoke(context.Background(), State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key "missing"`)
}

func TestCompiled_RouteToUnknownNode(t *testing.T) {
	compiled, err := NewStateGraph().
		AddNode("a", say("a")).
		SetEntryPoint("a").
		AddConditionalEdges("a", func(ctx context.Context, s State) (string, error) {
			return "nowhere", nil
		}, nil).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Invoke(context.Background(), State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node "nowhere"`)
}

func TestCompiled_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	compiled, err := NewStateGraph().
		AddNode("a", func(ctx context.Context, s State) (State, error) {
			cancel()
			return State{}, nil
		}).
		AddNode("b", say("b")).
		SetEntryPoint("a").
		AddEdge("a", "b").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Invoke(ctx, State{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompiled_DefaultReducerReplacesState(t *testing.T) {
	compiled, err := NewGraph[int](nil).
		AddNode("double", func(ctx context.Context, n int) (int, error) { return n * 2, nil }).
		AddNode("inc", func(ctx context.Context, n int) (int, error) { return n + 1, nil }).
		SetEntryPoint("double").
		AddEdge("double", "inc").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Invoke(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 11, result)
}

func TestCompiled_EmptyGraphIsPassThrough(t *testing.T) {
	compiled, err := NewStateGraph().Compile()
	require.NoError(t, err)

	in := State{CurrentAgent: "start"}
	out, err := compiled.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, compiled.Nodes())
}

func TestCompiled_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	compiled, err := NewStateGraph().
		AddNode("a", say("a")).
		AddNode("b", say("b")).
		SetEntryPoint("a").
		AddEdge("a", "b").
		Compile(WithTracerProvider(tp))
	require.NoError(t, err)

	_, err = compiled.Invoke(context.Background(), State{})
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{"workflow.node", "workflow.node", "workflow.invoke"}, names)
}

// ---------------------------------------------------------------------------
// Checkpoints
// ---------------------------------------------------------------------------

func TestCompiled_CheckpointsEverySuperstep(t *testing.T) {
	store := NewMemoryCheckpointStore()
	compiled, err := NewStateGraph().
		AddNode("a", say("a")).
		AddNode("b", say("b")).
		SetEntryPoint("a").
		AddEdge("a", "b").
		Compile(WithCheckpointer(store))
	require.NoError(t, err)

	ctx := types.WithThreadID(context.Background(), "thread-1")
	_, err = compiled.Invoke(ctx, State{})
	require.NoError(t, err)

	list, err := store.List(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].Step)
	assert.Equal(t, []string{"b"}, list[0].Next)
	assert.Equal(t, 1, list[1].Step)
	assert.Empty(t, list[1].Next)

	latest, err := store.Latest(ctx, "thread-1")
	require.NoError(t, err)
	assert.Contains(t, string(latest.State), `"content":"b"`)
}

func TestCompiled_Resume(t *testing.T) {
	store := NewMemoryCheckpointStore()
	failing := true
	compiled, err := NewStateGraph().
		AddNode("a", say("a")).
		AddNode("b", func(ctx context.Context, s State) (State, error) {
			if failing {
				return State{}, errors.New("transient")
			}
			return State{FinalResponse: "done"}, nil
		}).
		SetEntryPoint("a").
		AddEdge("a", "b").
		Compile(WithCheckpointer(store))
	require.NoError(t, err)

	ctx := types.WithThreadID(context.Background(), "resumable")
	_, err = compiled.Invoke(ctx, State{})
	require.Error(t, err)

	failing = false
	result, err := compiled.Resume(context.Background(), "resumable")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, contents(result))
	assert.Equal(t, "done", result.FinalResponse)
}

func TestCompiled_ResumeWithoutCheckpointer(t *testing.T) {
	compiled, err := NewStateGraph().AddNode("a", say("a")).SetEntryPoint("a").Compile()
	require.NoError(t, err)

	_, err = compiled.Resume(context.Background(), "x")
	assert.True(t, types.IsErrorCode(err, types.ErrCodeCheckpoint))
}

func TestMemoryCheckpointStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()

	_, err := store.Latest(ctx, "none")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)

	assert.ErrorIs(t, store.Save(ctx, &Checkpoint{}), types.ErrValidation)

	// a re-invoked thread restarts at step 0; the latest save still wins
	require.NoError(t, store.Save(ctx, &Checkpoint{ID: "old", ThreadID: "t", Step: 4}))
	require.NoError(t, store.Save(ctx, &Checkpoint{ID: "new", ThreadID: "t", Step: 0}))

	latest, err := store.Latest(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)

	list, err := store.List(ctx, "t")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "old", list[0].ID)

	// returned checkpoints are copies
	latest.Next = append(latest.Next, "mutated")
	again, err := store.Latest(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, again.Next)
}
