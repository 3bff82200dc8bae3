package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentscaffold/types"
)

const (
	// DefaultRecursionLimit bounds the number of supersteps per invocation.
	DefaultRecursionLimit = 25

	tracerName = "github.com/BaSui01/agentscaffold/workflow"
)

// ErrRecursionLimit is returned when an invocation exceeds its superstep budget.
var ErrRecursionLimit = types.NewError(types.ErrCodeRecursionLimit, "recursion limit reached")

// NodeRecorder receives per-node execution metrics.
type NodeRecorder interface {
	RecordNode(node, status string, duration time.Duration)
}

type compileOptions struct {
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	recorder       NodeRecorder
	checkpointer   CheckpointStore
	recursionLimit int
}

func defaultCompileOptions() compileOptions {
	return compileOptions{
		logger:         zap.NewNop(),
		recursionLimit: DefaultRecursionLimit,
	}
}

// CompileOption configures a compiled graph.
type CompileOption func(*compileOptions)

// WithLogger sets the logger used during execution.
func WithLogger(logger *zap.Logger) CompileOption {
	return func(o *compileOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) CompileOption {
	return func(o *compileOptions) {
		o.tracerProvider = tp
	}
}

// WithNodeRecorder reports node durations and outcomes.
func WithNodeRecorder(r NodeRecorder) CompileOption {
	return func(o *compileOptions) {
		o.recorder = r
	}
}

// WithCheckpointer persists the state after every superstep.
func WithCheckpointer(store CheckpointStore) CompileOption {
	return func(o *compileOptions) {
		o.checkpointer = store
	}
}

// WithRecursionLimit sets the superstep budget. Non-positive values are ignored.
func WithRecursionLimit(limit int) CompileOption {
	return func(o *compileOptions) {
		if limit > 0 {
			o.recursionLimit = limit
		}
	}
}

// Compiled is an immutable, invocable graph. It is safe for concurrent use.
type Compiled[S any] struct {
	nodes    map[string]NodeFunc[S]
	order    []string
	rank     map[string]int
	edges    map[string][]string
	branches map[string][]branch[S]
	entry    string
	reducer  Reducer[S]
	opts     compileOptions

	logger *zap.Logger
	tracer trace.Tracer
}

func (c *Compiled[S]) init() {
	c.rank = make(map[string]int, len(c.order))
	for i, name := range c.order {
		c.rank[name] = i
	}
	c.logger = c.opts.logger.With(zap.String("component", "graph_executor"))
	tp := c.opts.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	c.tracer = tp.Tracer(tracerName)
}

// Invoke runs the graph from its entry point until no node is scheduled and
// returns the final state.
func (c *Compiled[S]) Invoke(ctx context.Context, input S) (S, error) {
	if len(c.nodes) == 0 {
		return input, nil
	}
	return c.run(ctx, input, []string{c.entry}, 0)
}

// Resume continues the latest checkpoint of threadID. It requires a checkpointer.
func (c *Compiled[S]) Resume(ctx context.Context, threadID string) (S, error) {
	var zero S
	if c.opts.checkpointer == nil {
		return zero, types.NewError(types.ErrCodeCheckpoint, "no checkpointer configured")
	}

	cp, err := c.opts.checkpointer.Latest(ctx, threadID)
	if err != nil {
		return zero, err
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, types.WrapError(err, types.ErrCodeCheckpoint, "decode checkpoint state")
	}

	c.logger.Info("resuming from checkpoint",
		zap.String("thread_id", threadID),
		zap.String("checkpoint_id", cp.ID),
		zap.Int("step", cp.Step),
	)

	return c.run(types.WithThreadID(ctx, threadID), state, cp.Next, cp.Step+1)
}

func (c *Compiled[S]) run(ctx context.Context, state S, frontier []string, firstStep int) (S, error) {
	var zero S

	runID := uuid.NewString()
	ctx = types.WithRunID(ctx, runID)
	threadID, ok := types.ThreadID(ctx)
	if !ok {
		threadID = runID
	}

	ctx, span := c.tracer.Start(ctx, "workflow.invoke", trace.WithAttributes(
		attribute.String("workflow.run_id", runID),
		attribute.String("workflow.thread_id", threadID),
	))
	defer span.End()

	c.logger.Debug("starting graph execution",
		zap.String("run_id", runID),
		zap.Strings("frontier", frontier),
	)

	steps := 0
	for step := firstStep; len(frontier) > 0; step++ {
		if steps >= c.opts.recursionLimit {
			err := fmt.Errorf("%w: %d supersteps without reaching END", ErrRecursionLimit, c.opts.recursionLimit)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return zero, err
		}
		steps++

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		updates, err := c.superstep(ctx, frontier, state)
		if err != nil {
			c.logger.Error("graph execution failed",
				zap.String("run_id", runID),
				zap.Int("step", step),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return zero, err
		}
		for _, update := range updates {
			state = c.reducer(state, update)
		}

		next, err := c.resolveNext(ctx, frontier, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return zero, err
		}

		c.checkpoint(ctx, threadID, runID, step, next, state)
		frontier = next
	}

	c.logger.Debug("graph execution completed",
		zap.String("run_id", runID),
		zap.Int("supersteps", steps),
	)
	return state, nil
}

// superstep runs every node of the frontier against the same snapshot and
// returns their updates in frontier order.
func (c *Compiled[S]) superstep(ctx context.Context, frontier []string, state S) ([]S, error) {
	updates := make([]S, len(frontier))

	if len(frontier) == 1 {
		update, err := c.executeNode(ctx, frontier[0], state)
		if err != nil {
			return nil, err
		}
		updates[0] = update
		return updates, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range frontier {
		g.Go(func() error {
			update, err := c.executeNode(gctx, name, state)
			if err != nil {
				return err
			}
			updates[i] = update
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return updates, nil
}

// executeNode executes a single node inside its own span
func (c *Compiled[S]) executeNode(ctx context.Context, name string, state S) (S, error) {
	ctx, span := c.tracer.Start(ctx, "workflow.node", trace.WithAttributes(
		attribute.String("workflow.node", name),
	))
	defer span.End()

	c.logger.Debug("executing node", zap.String("node", name))

	start := time.Now()
	update, err := c.nodes[name](ctx, state)
	duration := time.Since(start)

	if c.opts.recorder != nil {
		c.opts.recorder.RecordNode(name, types.Status(err), duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("node execution failed",
			zap.String("node", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		var zero S
		return zero, types.NewError(types.ErrCodeWorkflowExecution, fmt.Sprintf("node %s failed", name)).WithCause(err)
	}

	c.logger.Debug("node execution completed",
		zap.String("node", name),
		zap.Duration("duration", duration),
	)
	return update, nil
}

// resolveNext collects static successors and conditional routes of the
// frontier. END is dropped and the result is ordered by node registration.
func (c *Compiled[S]) resolveNext(ctx context.Context, frontier []string, state S) ([]string, error) {
	seen := make(map[string]bool)
	var next []string
	add := func(name string) {
		if name == END || seen[name] {
			return
		}
		seen[name] = true
		next = append(next, name)
	}

	for _, name := range frontier {
		for _, to := range c.edges[name] {
			add(to)
		}
		for _, b := range c.branches[name] {
			key, err := b.route(ctx, state)
			if err != nil {
				return nil, types.NewError(types.ErrCodeWorkflowExecution, fmt.Sprintf("route from %s failed", name)).WithCause(err)
			}
			target := key
			if b.pathMap != nil {
				mapped, ok := b.pathMap[key]
				if !ok {
					return nil, types.NewError(types.ErrCodeWorkflowExecution,
						fmt.Sprintf("route from %s returned unknown key %q", name, key))
				}
				target = mapped
			}
			if _, exists := c.nodes[target]; !exists && target != END {
				return nil, types.NewError(types.ErrCodeWorkflowExecution,
					fmt.Sprintf("route from %s targets unknown node %q", name, target))
			}
			add(target)
		}
	}

	sortByRank(next, c.rank)
	return next, nil
}

// checkpoint saves the post-superstep state. Failures are logged and do not
// abort the run.
func (c *Compiled[S]) checkpoint(ctx context.Context, threadID, runID string, step int, next []string, state S) {
	if c.opts.checkpointer == nil {
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		c.logger.Warn("failed to encode checkpoint state", zap.Int("step", step), zap.Error(err))
		return
	}

	cp := &Checkpoint{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		RunID:     runID,
		Step:      step,
		Next:      append([]string(nil), next...),
		State:     data,
		CreatedAt: time.Now(),
	}
	if err := c.opts.checkpointer.Save(ctx, cp); err != nil {
		c.logger.Error("failed to save checkpoint",
			zap.String("thread_id", threadID),
			zap.Int("step", step),
			zap.Error(err),
		)
	}
}

// Nodes returns the node names in registration order.
func (c *Compiled[S]) Nodes() []string {
	return append([]string(nil), c.order...)
}

// IsRecursionLimit reports whether err was caused by the superstep budget.
func IsRecursionLimit(err error) bool {
	return errors.Is(err, ErrRecursionLimit)
}

func sortByRank(names []string, rank map[string]int) {
	sort.SliceStable(names, func(i, j int) bool {
		return rank[names[i]] < rank[names[j]]
	})
}
