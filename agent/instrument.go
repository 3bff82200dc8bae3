package agent

import (
	"context"
	"time"

	"github.com/BaSui01/agentscaffold/types"
)

// Recorder receives agent processing metrics.
type Recorder interface {
	RecordAgentProcess(agent, status string, duration time.Duration)
}

type instrumented struct {
	Agent
	recorder Recorder
}

// Instrument reports the outcome and duration of every Process call.
func Instrument(a Agent, recorder Recorder) Agent {
	if recorder == nil {
		return a
	}
	return &instrumented{Agent: a, recorder: recorder}
}

func (i *instrumented) Process(ctx context.Context, state State) (State, error) {
	start := time.Now()
	out, err := i.Agent.Process(ctx, state)
	i.recorder.RecordAgentProcess(i.Agent.Name(), types.Status(err), time.Since(start))
	return out, err
}
