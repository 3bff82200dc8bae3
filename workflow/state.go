package workflow

import "github.com/BaSui01/agentscaffold/types"

// Reducer defines how to merge a node update into the current state.
type Reducer[T any] func(current T, update T) T

// LastValueReducer returns the most recent value.
func LastValueReducer[T any]() Reducer[T] {
	return func(_, update T) T {
		return update
	}
}

// AppendReducer appends slices together without aliasing either input.
func AppendReducer[T any]() Reducer[[]T] {
	return func(current, update []T) []T {
		if len(current) == 0 && len(update) == 0 {
			return current
		}
		result := make([]T, 0, len(current)+len(update))
		result = append(result, current...)
		result = append(result, update...)
		return result
	}
}

// MergeMapReducer merges maps, with update values taking precedence.
func MergeMapReducer[K comparable, V any]() Reducer[map[K]V] {
	return func(current, update map[K]V) map[K]V {
		result := make(map[K]V, len(current)+len(update))
		for k, v := range current {
			result[k] = v
		}
		for k, v := range update {
			result[k] = v
		}
		return result
	}
}

// State is the base schema threaded through workflows. Extend it by embedding
// it in your own struct together with a matching reducer.
type State struct {
	Messages      []types.Message `json:"messages"`
	CurrentAgent  string          `json:"current_agent"`
	FinalResponse string          `json:"final_response"`
}

var appendMessages = AppendReducer[types.Message]()

// MergeState appends update.Messages to current.Messages and overwrites the
// scalar fields that the update sets.
func MergeState(current, update State) State {
	out := current
	out.Messages = appendMessages(current.Messages, update.Messages)
	if update.CurrentAgent != "" {
		out.CurrentAgent = update.CurrentAgent
	}
	if update.FinalResponse != "" {
		out.FinalResponse = update.FinalResponse
	}
	return out
}

// LastMessage returns the most recent message, if any.
func (s State) LastMessage() (types.Message, bool) {
	if len(s.Messages) == 0 {
		return types.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
