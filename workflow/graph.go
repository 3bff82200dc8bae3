package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Sentinel node names. They can be used as edge endpoints but never as node names.
const (
	START = "__start__"
	END   = "__end__"
)

// NodeFunc processes the state and returns an update, which the graph folds
// into the running state with its Reducer.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouteFunc picks the next node (or a path-map key) from the merged state.
type RouteFunc[S any] func(ctx context.Context, state S) (string, error)

type branch[S any] struct {
	route   RouteFunc[S]
	pathMap map[string]string
}

// Graph is a typed directed graph keyed by the state schema S.
// It is a builder: wire it up, then Compile it into an invocable workflow.
type Graph[S any] struct {
	nodes    map[string]NodeFunc[S]
	order    []string
	edges    map[string][]string
	branches map[string][]branch[S]
	entry    string
	reducer  Reducer[S]
	errs     []error
}

// NewGraph creates an empty graph. A nil reducer makes every node update
// replace the state wholesale.
func NewGraph[S any](reducer Reducer[S]) *Graph[S] {
	if reducer == nil {
		reducer = LastValueReducer[S]()
	}
	return &Graph[S]{
		nodes:    make(map[string]NodeFunc[S]),
		edges:    make(map[string][]string),
		branches: make(map[string][]branch[S]),
		reducer:  reducer,
	}
}

// NewStateGraph creates a graph over State that appends messages.
func NewStateGraph() *Graph[State] {
	return NewGraph[State](MergeState)
}

// AddNode registers a node. Problems are reported by Compile.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	switch {
	case name == "":
		g.errs = append(g.errs, errors.New("node name cannot be empty"))
	case name == START || name == END:
		g.errs = append(g.errs, fmt.Errorf("node name %q is reserved", name))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("node %s has no function", name))
	default:
		if _, exists := g.nodes[name]; exists {
			g.errs = append(g.errs, fmt.Errorf("node %s already exists", name))
			return g
		}
		g.nodes[name] = fn
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge adds a directed edge. AddEdge(START, n) sets the entry point.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	switch {
	case from == START:
		return g.SetEntryPoint(to)
	case from == END:
		g.errs = append(g.errs, errors.New("END cannot have outgoing edges"))
	case to == START:
		g.errs = append(g.errs, errors.New("START cannot be an edge target"))
	default:
		g.edges[from] = append(g.edges[from], to)
	}
	return g
}

// AddConditionalEdges routes from a node through route. When pathMap is
// non-nil the route result is looked up in it; otherwise it names the target.
func (g *Graph[S]) AddConditionalEdges(from string, route RouteFunc[S], pathMap map[string]string) *Graph[S] {
	if route == nil {
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %s has no route function", from))
		return g
	}
	var pm map[string]string
	if pathMap != nil {
		pm = make(map[string]string, len(pathMap))
		for k, v := range pathMap {
			pm[k] = v
		}
	}
	g.branches[from] = append(g.branches[from], branch[S]{route: route, pathMap: pm})
	return g
}

// SetEntryPoint sets the first node to run.
func (g *Graph[S]) SetEntryPoint(name string) *Graph[S] {
	g.entry = name
	return g
}

// SetFinishPoint is shorthand for AddEdge(name, END).
func (g *Graph[S]) SetFinishPoint(name string) *Graph[S] {
	return g.AddEdge(name, END)
}

// Compile validates the graph and returns an invocable workflow. A graph with
// no nodes compiles to a pass-through.
func (g *Graph[S]) Compile(opts ...CompileOption) (*Compiled[S], error) {
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	o := defaultCompileOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Compiled[S]{
		nodes:    make(map[string]NodeFunc[S], len(g.nodes)),
		order:    append([]string(nil), g.order...),
		edges:    make(map[string][]string, len(g.edges)),
		branches: make(map[string][]branch[S], len(g.branches)),
		entry:    g.entry,
		reducer:  g.reducer,
		opts:     o,
	}
	for k, v := range g.nodes {
		c.nodes[k] = v
	}
	for k, v := range g.edges {
		c.edges[k] = append([]string(nil), v...)
	}
	for k, v := range g.branches {
		c.branches[k] = append([]branch[S](nil), v...)
	}
	c.init()

	c.logger.Debug("graph compiled",
		zap.Int("nodes", len(c.nodes)),
		zap.String("entry", c.entry),
	)

	return c, nil
}

// validate performs structural validation of the graph
func (g *Graph[S]) validate() error {
	if len(g.errs) > 0 {
		return errors.Join(g.errs...)
	}

	if len(g.nodes) == 0 {
		if g.entry != "" || len(g.edges) > 0 || len(g.branches) > 0 {
			return errors.New("graph has edges but no nodes")
		}
		return nil
	}

	if g.entry == "" {
		return errors.New("entry point not set")
	}
	if _, exists := g.nodes[g.entry]; !exists {
		return fmt.Errorf("entry node does not exist: %s", g.entry)
	}

	for from, tos := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			return fmt.Errorf("edge references non-existent source node: %s", from)
		}
		for _, to := range tos {
			if !g.isTarget(to) {
				return fmt.Errorf("edge references non-existent target node: %s", to)
			}
		}
	}

	for from, bs := range g.branches {
		if _, exists := g.nodes[from]; !exists {
			return fmt.Errorf("conditional edge references non-existent source node: %s", from)
		}
		for _, b := range bs {
			for key, to := range b.pathMap {
				if !g.isTarget(to) {
					return fmt.Errorf("conditional edge %s[%s] references non-existent node: %s", from, key, to)
				}
			}
		}
	}

	return g.detectOrphanedNodes()
}

func (g *Graph[S]) isTarget(name string) bool {
	if name == END {
		return true
	}
	_, exists := g.nodes[name]
	return exists
}

// detectOrphanedNodes reports nodes not reachable from the entry node. A
// reachable branch without a path map may route anywhere, so the check is
// skipped in that case.
func (g *Graph[S]) detectOrphanedNodes() error {
	reachable := make(map[string]bool)
	open := g.markReachable(g.entry, reachable)
	if open {
		return nil
	}

	var orphaned []string
	for _, name := range g.order {
		if !reachable[name] {
			orphaned = append(orphaned, name)
		}
	}
	if len(orphaned) > 0 {
		sort.Strings(orphaned)
		return fmt.Errorf("orphaned nodes detected (not reachable from entry): %v", orphaned)
	}
	return nil
}

// markReachable marks nodes reachable from name and reports whether an
// unmapped branch was encountered.
func (g *Graph[S]) markReachable(name string, reachable map[string]bool) bool {
	if name == END || reachable[name] {
		return false
	}
	reachable[name] = true

	open := false
	for _, next := range g.edges[name] {
		if g.markReachable(next, reachable) {
			open = true
		}
	}
	for _, b := range g.branches[name] {
		if b.pathMap == nil {
			open = true
			continue
		}
		for _, next := range b.pathMap {
			if g.markReachable(next, reachable) {
				open = true
			}
		}
	}
	return open
}
