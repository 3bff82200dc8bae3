package tools

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

type queryInput struct {
	BaseInput
	Query string `json:"query"`
}

func (q queryInput) Validate() error {
	if q.Query == "" {
		return errors.New("query is required")
	}
	return nil
}

// searchTool returns the query reversed, or fails on "fail".
type searchTool struct {
	*BaseTool
}

func (s *searchTool) Execute(ctx context.Context, input Input) Output {
	q, ok := input.(queryInput)
	if !ok {
		return s.Error("unexpected input type")
	}
	if q.Query == "fail" {
		return s.Error("search backend unavailable")
	}
	return s.Success(map[string]any{"hits": 1, "query": q.Query})
}

func newSearchTool(logger *zap.Logger) *searchTool {
	return &searchTool{BaseTool: NewBaseTool("search", "searches things", logger)}
}

func TestNewBaseTool(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tool := NewBaseTool("test_tool", "A test tool", zap.New(core))

	assert.Equal(t, "test_tool", tool.Name())
	assert.Equal(t, "A test tool", tool.Description())
	assert.Equal(t, 1, logs.FilterMessage("Initialized tool: test_tool").Len())
}

func TestNewBaseTool_EmptyNameAllowed(t *testing.T) {
	tool := NewBaseTool("", "", nil)
	assert.Equal(t, "", tool.Name())
}

func TestBaseTool_Envelopes(t *testing.T) {
	tool := NewBaseTool("test_tool", "", nil)

	ok := tool.Success("test result")
	assert.True(t, ok.Success)
	assert.Equal(t, "test result", ok.Result)
	assert.Empty(t, ok.Error)

	failed := tool.Error("test error")
	assert.False(t, failed.Success)
	assert.Nil(t, failed.Result)
	assert.Equal(t, "test error", failed.Error)
}

func TestFailure_EmptyMessageGetsDiagnostic(t *testing.T) {
	out := Failure("")
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}

func TestOutput_JSON(t *testing.T) {
	data, err := json.Marshal(Success(42))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"result":42}`, string(data))

	data, err = json.Marshal(Failure("nope"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"result":null,"error":"nope"}`, string(data))
}

func TestEnvelopeInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		result := rapid.OneOf(
			rapid.Map(rapid.Int(), func(v int) any { return v }),
			rapid.Map(rapid.String(), func(v string) any { return v }),
			rapid.Map(rapid.SliceOf(rapid.String()), func(v []string) any { return v }),
		).Draw(t, "result")

		ok := Success(result)
		if !ok.Success || ok.Error != "" {
			t.Fatalf("success envelope carries an error: %+v", ok)
		}
		assert.Equal(t, result, ok.Result)

		message := rapid.String().Draw(t, "message")
		failed := Failure(message)
		if failed.Success || failed.Result != nil || failed.Error == "" {
			t.Fatalf("failure envelope is inconsistent: %+v", failed)
		}
		if message != "" && failed.Error != message {
			t.Fatalf("failure message changed: %q != %q", failed.Error, message)
		}
	})
}

func TestBaseTool_LogAt(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tool := NewBaseTool("logger", "", zap.New(core))

	tool.LogAt("warning", "careful")
	tool.LogAt("bogus", "fallback")
	tool.Log("plain")

	warn := logs.FilterMessage("[logger] careful").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)

	fallback := logs.FilterMessage("[logger] fallback").All()
	require.Len(t, fallback, 1)
	assert.Equal(t, zapcore.InfoLevel, fallback[0].Level)

	assert.Equal(t, 1, logs.FilterMessage("[logger] plain").Len())
}

func TestBaseTool_LogAtOutsideKnownLevels(t *testing.T) {
	for _, level := range []string{"critical", "CRITICAL", "trace", "fatal"} {
		t.Run(level, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			tool := NewBaseTool("logger", "", zap.New(core))

			tool.LogAt(level, "message")

			entries := logs.FilterMessage("[logger] message").All()
			require.Len(t, entries, 1)
			assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		})
	}
}

func TestBaseTool_LogReportsCallerSite(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tool := NewBaseTool("logger", "", zap.New(core, zap.AddCaller()))

	tool.LogAt("info", "located")
	tool.Log("located")

	entries := logs.FilterMessage("[logger] located").All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.True(t, e.Caller.Defined)
		assert.Equal(t, "tool_test.go", filepath.Base(e.Caller.File))
	}
}

func TestConcreteTool(t *testing.T) {
	tool := newSearchTool(nil)

	out := tool.Execute(context.Background(), queryInput{Query: "go"})
	require.True(t, out.Success)
	assert.Equal(t, map[string]any{"hits": 1, "query": "go"}, out.Result)

	out = tool.Execute(context.Background(), queryInput{Query: "fail"})
	assert.False(t, out.Success)
	assert.Equal(t, "search backend unavailable", out.Error)
}

func TestFunc(t *testing.T) {
	tool := Func("echo", "echoes", func(ctx context.Context, base *BaseTool, input Input) Output {
		return base.Success(input.(queryInput).Query)
	}, nil)

	out := tool.Execute(context.Background(), queryInput{Query: "hi"})
	assert.Equal(t, Success("hi"), out)

	empty := Func("empty", "", nil, nil)
	out = empty.Execute(context.Background(), BaseInput{})
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "no implementation")
}

func TestBaseInput_Validate(t *testing.T) {
	assert.NoError(t, BaseInput{}.Validate())
}
