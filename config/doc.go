// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package config loads application Settings from defaults, an optional YAML
// file, a dotenv file and the process environment, in that order of
// increasing precedence.
package config
