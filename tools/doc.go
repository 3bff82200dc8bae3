// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package tools defines the tool contract and its uniform result envelope.

# Overview

A Tool is a named capability that takes an Input and always returns an
Output. Failures are reported inside the envelope rather than as Go errors,
so callers branch on Output.Success. Middleware wraps a Tool to add panic
recovery, input validation, rate limiting, timeouts and metrics.

# Core Types

  - Tool: Name, Description and Execute(ctx, Input) Output
  - Input: tool input with a Validate hook; embed BaseInput
  - Output: {success, result, error} envelope
  - BaseTool: embeddable base with Success, Error, Log and LogAt
  - Registry: lookup and dispatch of tools by name
*/
package tools
