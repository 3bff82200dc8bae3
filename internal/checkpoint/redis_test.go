package checkpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/config"
	"github.com/BaSui01/agentscaffold/types"
	"github.com/BaSui01/agentscaffold/workflow"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client, "test:", ttl, zap.NewNop())
}

func sampleCheckpoint(thread, id string, step int, at time.Time) *workflow.Checkpoint {
	return &workflow.Checkpoint{
		ID:        id,
		ThreadID:  thread,
		RunID:     "run-1",
		Step:      step,
		Next:      []string{"next"},
		State:     json.RawMessage(`{"messages":[],"current_agent":"a","final_response":""}`),
		CreatedAt: at,
	}
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := DialRedis(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = DialRedis(config.RedisConfig{Addr: mr.Addr()}, nil)
	assert.Error(t, err)
}

func TestRedisStore_SaveAndLatest(t *testing.T) {
	mr, store := setupTestRedis(t, 0)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, sampleCheckpoint("thread-1", "cp-1", 0, base)))
	require.NoError(t, store.Save(ctx, sampleCheckpoint("thread-1", "cp-2", 1, base.Add(time.Millisecond))))

	assert.True(t, mr.Exists("test:checkpoint:thread-1:cp-1"))
	assert.True(t, mr.Exists("test:thread:thread-1"))

	latest, err := store.Latest(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "cp-2", latest.ID)
	assert.Equal(t, 1, latest.Step)
	assert.Equal(t, []string{"next"}, latest.Next)
	assert.JSONEq(t, `{"messages":[],"current_agent":"a","final_response":""}`, string(latest.State))

	list, err := store.List(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "cp-1", list[0].ID)
	assert.Equal(t, "cp-2", list[1].ID)
}

func TestRedisStore_NotFound(t *testing.T) {
	_, store := setupTestRedis(t, 0)

	_, err := store.Latest(context.Background(), "missing")
	assert.ErrorIs(t, err, workflow.ErrCheckpointNotFound)

	_, err = store.Load(context.Background(), "missing", "nope")
	assert.ErrorIs(t, err, workflow.ErrCheckpointNotFound)
}

func TestRedisStore_SaveValidation(t *testing.T) {
	_, store := setupTestRedis(t, 0)

	err := store.Save(context.Background(), &workflow.Checkpoint{ID: "x"})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.ErrorIs(t, store.Save(context.Background(), nil), types.ErrValidation)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, store := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleCheckpoint("t", "old", 0, time.Now())))
	assert.Equal(t, time.Minute, mr.TTL("test:checkpoint:t:old"))
	assert.Equal(t, time.Minute, mr.TTL("test:thread:t"))
	assert.Equal(t, time.Minute, mr.TTL("test:seq:t"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Latest(ctx, "t")
	assert.ErrorIs(t, err, workflow.ErrCheckpointNotFound)
}

func TestRedisStore_LatestSkipsExpiredEntries(t *testing.T) {
	mr, store := setupTestRedis(t, 0)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, sampleCheckpoint("t", "a", 0, base)))
	require.NoError(t, store.Save(ctx, sampleCheckpoint("t", "b", 1, base.Add(time.Second))))
	mr.Del("test:checkpoint:t:b")

	latest, err := store.Latest(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "a", latest.ID)

	list, err := store.List(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRedisStore_DeleteThread(t *testing.T) {
	mr, store := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleCheckpoint("t", "a", 0, time.Now())))
	require.NoError(t, store.DeleteThread(ctx, "t"))

	assert.False(t, mr.Exists("test:checkpoint:t:a"))
	assert.False(t, mr.Exists("test:thread:t"))
	assert.False(t, mr.Exists("test:seq:t"))
	assert.NoError(t, store.Ping(ctx))
}

func TestRedisStore_LatestFollowsSaveOrder(t *testing.T) {
	_, store := setupTestRedis(t, 0)
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// equal and backwards timestamps must not reorder the thread
	require.NoError(t, store.Save(ctx, sampleCheckpoint("t", "first", 0, at)))
	require.NoError(t, store.Save(ctx, sampleCheckpoint("t", "second", 1, at)))
	require.NoError(t, store.Save(ctx, sampleCheckpoint("t", "third", 2, at.Add(-time.Hour))))

	latest, err := store.Latest(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "third", latest.ID)

	list, err := store.List(ctx, "t")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, cp := range list {
		ids = append(ids, cp.ID)
	}
	assert.Equal(t, []string{"first", "second", "third"}, ids)
}

func TestRedisStore_WithGraphResume(t *testing.T) {
	_, store := setupTestRedis(t, 0)

	attempts := 0
	compiled, err := workflow.NewStateGraph().
		AddNode("greet", func(ctx context.Context, s workflow.State) (workflow.State, error) {
			return workflow.State{Messages: []types.Message{types.NewAIMessage("hello")}}, nil
		}).
		AddNode("finish", func(ctx context.Context, s workflow.State) (workflow.State, error) {
			attempts++
			if attempts == 1 {
				return workflow.State{}, assert.AnError
			}
			return workflow.State{FinalResponse: "done"}, nil
		}).
		AddEdge(workflow.START, "greet").
		AddEdge("greet", "finish").
		AddEdge("finish", workflow.END).
		Compile(workflow.WithCheckpointer(store))
	require.NoError(t, err)

	ctx := types.WithThreadID(context.Background(), "durable")
	_, err = compiled.Invoke(ctx, workflow.State{})
	require.Error(t, err)

	result, err := compiled.Resume(context.Background(), "durable")
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "hello", result.Messages[0].Content)
	assert.Equal(t, "done", result.FinalResponse)
}

func TestNewRedisStore_Defaults(t *testing.T) {
	store := NewRedisStore(redis.NewClient(&redis.Options{}), "", 0, nil)
	assert.Equal(t, defaultRedisPrefix, store.prefix)
	assert.Equal(t, "agentscaffold:thread:x", store.threadKey("x"))
}
