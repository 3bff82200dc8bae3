package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentscaffold/types"
)

// Middleware wraps a Tool.
type Middleware func(Tool) Tool

// Chain applies mws so that the first one is the outermost.
func Chain(t Tool, mws ...Middleware) Tool {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

type wrapped struct {
	Tool
	exec func(ctx context.Context, input Input) Output
}

func (w *wrapped) Execute(ctx context.Context, input Input) Output {
	return w.exec(ctx, input)
}

// Recover turns a panic inside Execute into a failure envelope.
func Recover(t Tool, logger *zap.Logger) Tool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &wrapped{Tool: t, exec: func(ctx context.Context, input Input) (out Output) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("tool panicked",
					zap.String("tool", t.Name()),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				out = Failuref("tool %s panicked: %v", t.Name(), r)
			}
		}()
		return t.Execute(ctx, input)
	}}
}

// Validate rejects nil inputs and inputs whose Validate fails.
func Validate(t Tool) Tool {
	return &wrapped{Tool: t, exec: func(ctx context.Context, input Input) Output {
		if input == nil {
			return Failure("invalid input: input is nil")
		}
		if err := input.Validate(); err != nil {
			return Failuref("invalid input: %s", err.Error())
		}
		return t.Execute(ctx, input)
	}}
}

// RateLimit waits for a token from limiter before each execution.
func RateLimit(t Tool, limiter *rate.Limiter) Tool {
	if limiter == nil {
		return t
	}
	return &wrapped{Tool: t, exec: func(ctx context.Context, input Input) Output {
		if err := limiter.Wait(ctx); err != nil {
			return Failuref("rate limit exceeded: %s", err.Error())
		}
		return t.Execute(ctx, input)
	}}
}

// Timeout bounds each execution. The tool keeps running in the background
// after the deadline; its late result is discarded. A panic in the tool is
// returned as a failure envelope since it happens on another goroutine.
func Timeout(t Tool, d time.Duration) Tool {
	if d <= 0 {
		return t
	}
	return &wrapped{Tool: t, exec: func(ctx context.Context, input Input) Output {
		execCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan Output, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- Failuref("tool %s panicked: %v", t.Name(), r)
				}
			}()
			done <- t.Execute(execCtx, input)
		}()

		select {
		case out := <-done:
			return out
		case <-execCtx.Done():
			return Failure(fmt.Sprintf("execution timeout after %s", d))
		}
	}}
}

// Recorder receives tool execution metrics.
type Recorder interface {
	RecordToolExecution(tool, status string, duration time.Duration)
}

// Instrument reports each execution by envelope status.
func Instrument(t Tool, recorder Recorder) Tool {
	if recorder == nil {
		return t
	}
	return &wrapped{Tool: t, exec: func(ctx context.Context, input Input) Output {
		start := time.Now()
		out := t.Execute(ctx, input)
		status := types.StatusSuccess
		if !out.Success {
			status = types.StatusError
		}
		recorder.RecordToolExecution(t.Name(), status, time.Since(start))
		return out
	}}
}
