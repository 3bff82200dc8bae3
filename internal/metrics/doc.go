// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package metrics collects Prometheus metrics for workflow runs, graph nodes,
agents and tools.

Collector satisfies the small recorder interfaces declared by the public
packages (workflow.RunRecorder, workflow.NodeRecorder, agent.Recorder and
tools.Recorder), so callers wire it in without those packages importing
Prometheus. Every metric is a counter labelled by status ("success" or
"error") plus a duration histogram.

Handler serves the collector's registry for the /metrics route.
*/
package metrics
