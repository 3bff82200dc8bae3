// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package server runs the operational HTTP endpoint of the scaffold.

# Overview

Manager wraps net/http.Server with non-blocking start, graceful shutdown and
signal handling. NewHandler builds the routes served by the `serve` command:

  - GET /healthz  reports liveness plus the result of each registered check
  - GET /metrics  exposes the Prometheus collector
  - POST /v1/run  runs a workflow with {"input", "thread_id"} when a RunFunc is set
*/
package server
