package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/types"
)

// Invoker is anything that can execute a workflow over state S.
// *Compiled satisfies it.
type Invoker[S any] interface {
	Invoke(ctx context.Context, state S) (S, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc[S any] func(ctx context.Context, state S) (S, error)

func (f InvokerFunc[S]) Invoke(ctx context.Context, state S) (S, error) {
	return f(ctx, state)
}

// CreateFunc builds the workflow a Runner delegates to. It is called at most
// once per successful Runner lifetime.
type CreateFunc[S any] func() (Invoker[S], error)

// DefaultWorkflow builds an empty graph with no nodes or edges. Its Invoke
// returns the input state unchanged; real workflows replace it.
func DefaultWorkflow[S any]() (Invoker[S], error) {
	g := NewGraph[S](nil)

	// Add nodes:      g.AddNode("node_name", fn)
	// Add edges:      g.AddEdge("node1", "node2")
	// Route:          g.AddConditionalEdges("node", route, nil)
	// Entry / finish: g.SetEntryPoint("first_node"); g.AddEdge("last_node", END)

	compiled, err := g.Compile()
	if err != nil {
		return nil, err
	}
	return compiled, nil
}

// RunRecorder receives per-run metrics.
type RunRecorder interface {
	RecordWorkflowRun(workflow, status string, duration time.Duration)
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	logger   *zap.Logger
	recorder RunRecorder
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(o *runnerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRunnerMetrics reports run counts and durations.
func WithRunnerMetrics(r RunRecorder) RunnerOption {
	return func(o *runnerOptions) {
		o.recorder = r
	}
}

// Runner owns a lazily built workflow. The first Run builds it through the
// CreateFunc and caches it for the Runner's lifetime; later runs reuse it.
type Runner[S any] struct {
	name     string
	create   CreateFunc[S]
	logger   *zap.Logger
	recorder RunRecorder

	mu       sync.Mutex
	workflow Invoker[S]
}

// NewRunner creates a runner. A nil create uses DefaultWorkflow.
func NewRunner[S any](name string, create CreateFunc[S], opts ...RunnerOption) *Runner[S] {
	o := runnerOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if create == nil {
		create = DefaultWorkflow[S]
	}

	r := &Runner[S]{
		name:     name,
		create:   create,
		logger:   o.logger.With(zap.String("workflow", name)),
		recorder: o.recorder,
	}
	r.logger.Info(fmt.Sprintf("Initialized graph: %s", name))
	return r
}

// Name returns the runner name.
func (r *Runner[S]) Name() string {
	return r.name
}

// Ready reports whether the workflow has been built.
func (r *Runner[S]) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workflow != nil
}

// workflowOnce builds the workflow on first use. A failed build leaves the
// runner uninitialized so the next Run tries again.
func (r *Runner[S]) workflowOnce() (Invoker[S], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.workflow != nil {
		return r.workflow, nil
	}
	wf, err := r.create()
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow %s: create returned nil", r.name)
	}
	r.workflow = wf
	return wf, nil
}

// Run executes the workflow with the initial state and returns exactly what
// the workflow returns. Errors are propagated unchanged.
func (r *Runner[S]) Run(ctx context.Context, initial S) (S, error) {
	wf, err := r.workflowOnce()
	if err != nil {
		var zero S
		return zero, err
	}

	r.logger.Info(fmt.Sprintf("Running workflow: %s", r.name))
	return r.observe(func() (S, error) { return wf.Invoke(ctx, initial) })
}

// Resumer is implemented by workflows that can continue a checkpointed thread.
// *Compiled satisfies it.
type Resumer[S any] interface {
	Resume(ctx context.Context, threadID string) (S, error)
}

// Resume continues threadID from its latest checkpoint. The workflow must
// implement Resumer.
func (r *Runner[S]) Resume(ctx context.Context, threadID string) (S, error) {
	var zero S
	wf, err := r.workflowOnce()
	if err != nil {
		return zero, err
	}
	res, ok := wf.(Resumer[S])
	if !ok {
		return zero, types.NewError(types.ErrCodeCheckpoint,
			fmt.Sprintf("workflow %s does not support resume", r.name))
	}

	r.logger.Info(fmt.Sprintf("Resuming workflow: %s", r.name), zap.String("thread_id", threadID))
	return r.observe(func() (S, error) { return res.Resume(ctx, threadID) })
}

func (r *Runner[S]) observe(exec func() (S, error)) (S, error) {
	start := time.Now()
	final, err := exec()
	if r.recorder != nil {
		r.recorder.RecordWorkflowRun(r.name, types.Status(err), time.Since(start))
	}
	if err != nil {
		return final, err
	}

	r.logger.Info(fmt.Sprintf("Workflow completed: %s", r.name))
	return final, nil
}
