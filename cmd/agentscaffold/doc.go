// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main is the agentscaffold command.

# Commands

  - run      builds the demo workflow, runs it once and prints the final state
  - serve    serves /healthz, /metrics and POST /v1/run until SIGINT or SIGTERM
  - config   prints the effective settings with secrets redacted
  - version  prints build information

Version, BuildTime and GitCommit are injected with -ldflags at build time.
*/
package main
