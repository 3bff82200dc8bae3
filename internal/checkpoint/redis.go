package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/config"
	"github.com/BaSui01/agentscaffold/types"
	"github.com/BaSui01/agentscaffold/workflow"
)

const defaultRedisPrefix = "agentscaffold:"

// DialRedis connects to Redis and verifies the connection.
func DialRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}

// RedisStore keeps each checkpoint as a JSON string and indexes the
// checkpoints of a thread in a sorted set scored by a per-thread save
// sequence.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

var _ workflow.CheckpointStore = (*RedisStore)(nil)

// NewRedisStore creates a store. An empty prefix uses "agentscaffold:"; a
// zero ttl keeps checkpoints forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(zap.String("store", "redis_checkpoint")),
	}
}

func (s *RedisStore) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	if cp == nil || cp.ThreadID == "" || cp.ID == "" {
		return types.NewValidationError("checkpoint requires an id and a thread id")
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to marshal checkpoint")
	}

	// index order is save order; CreatedAt may tie or go backwards
	seqKey := s.seqKey(cp.ThreadID)
	seq, err := s.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to allocate checkpoint sequence")
	}

	threadKey := s.threadKey(cp.ThreadID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.checkpointKey(cp.ThreadID, cp.ID), data, s.ttl)
		pipe.ZAdd(ctx, threadKey, redis.Z{
			Score:  float64(seq),
			Member: cp.ID,
		})
		if s.ttl > 0 {
			pipe.Expire(ctx, threadKey, s.ttl)
			pipe.Expire(ctx, seqKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to save checkpoint")
	}

	s.logger.Debug("checkpoint saved to redis",
		zap.String("checkpoint_id", cp.ID),
		zap.String("thread_id", cp.ThreadID),
		zap.Int("step", cp.Step),
	)
	return nil
}

// Load returns a single checkpoint of a thread.
func (s *RedisStore) Load(ctx context.Context, threadID, checkpointID string) (*workflow.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(threadID, checkpointID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, workflow.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to load checkpoint")
	}

	var cp workflow.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to unmarshal checkpoint")
	}
	return &cp, nil
}

func (s *RedisStore) Latest(ctx context.Context, threadID string) (*workflow.Checkpoint, error) {
	ids, err := s.client.ZRevRange(ctx, s.threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to read thread index")
	}

	// index entries may outlive expired checkpoints
	for _, id := range ids {
		cp, err := s.Load(ctx, threadID, id)
		if errors.Is(err, workflow.ErrCheckpointNotFound) {
			continue
		}
		return cp, err
	}
	return nil, workflow.ErrCheckpointNotFound
}

func (s *RedisStore) List(ctx context.Context, threadID string) ([]*workflow.Checkpoint, error) {
	ids, err := s.client.ZRange(ctx, s.threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to read thread index")
	}

	checkpoints := make([]*workflow.Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := s.Load(ctx, threadID, id)
		if err != nil {
			s.logger.Warn("failed to load checkpoint", zap.String("id", id), zap.Error(err))
			continue
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, nil
}

// DeleteThread removes every checkpoint of a thread and its index.
func (s *RedisStore) DeleteThread(ctx context.Context, threadID string) error {
	threadKey := s.threadKey(threadID)
	ids, err := s.client.ZRange(ctx, threadKey, 0, -1).Result()
	if err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to read thread index")
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.checkpointKey(threadID, id))
	}
	keys = append(keys, threadKey, s.seqKey(threadID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to delete thread")
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) checkpointKey(threadID, id string) string {
	return fmt.Sprintf("%scheckpoint:%s:%s", s.prefix, threadID, id)
}

func (s *RedisStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s", s.prefix, threadID)
}

func (s *RedisStore) seqKey(threadID string) string {
	return fmt.Sprintf("%sseq:%s", s.prefix, threadID)
}
