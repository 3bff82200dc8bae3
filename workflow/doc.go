// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow provides the state-graph engine and the lazily built
workflow runner.

# Overview

A workflow is a directed graph of nodes that share a single state value.
Nodes return partial updates which a Reducer folds into the state. Execution
proceeds in supersteps: every scheduled node runs concurrently against the
same snapshot, updates are merged in registration order, and the next set of
nodes is computed from static edges and conditional routes. Cycles are
allowed and bounded by a recursion limit.

# Core Types

  - Graph[S]: builder with AddNode, AddEdge, AddConditionalEdges
  - Compiled[S]: immutable, concurrency-safe executable graph
  - Runner[S]: named runner that builds its workflow on first Run
  - State / MergeState: default message-list state and its reducer
  - CheckpointStore: persistence of post-superstep snapshots

# Usage

	g := workflow.NewStateGraph().
		AddNode("agent", agent.AsWorkflowNode(myAgent)).
		AddEdge(workflow.START, "agent").
		AddEdge("agent", workflow.END)

	runner := workflow.NewRunner("assistant", func() (workflow.Invoker[workflow.State], error) {
		compiled, err := g.Compile()
		if err != nil {
			return nil, err
		}
		return compiled, nil
	})
	final, err := runner.Run(ctx, workflow.State{})
*/
package workflow
