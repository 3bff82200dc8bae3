// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package agent defines the agent contract and its reusable base.

# Overview

An Agent is a named unit of work that turns a State into a new State. The
package ships BaseAgent for identity, message construction and prefixed
logging, Func for agents written as plain functions, and adapters that
place any Agent into a workflow graph.

# Core Types

  - Agent: Name, Description and Process(ctx, State)
  - BaseAgent: embeddable base with HumanMessage, AIMessage, Log and LogAt
  - State: map[string]any threaded through Process
  - Registry: concurrency-safe lookup of agents by name

# Usage

	type Echo struct{ *agent.BaseAgent }

	func (e *Echo) Process(ctx context.Context, s agent.State) (agent.State, error) {
		out := s.Clone()
		out["reply"] = e.AIMessage("echo")
		return out, nil
	}
*/
package agent
