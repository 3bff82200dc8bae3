package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/BaSui01/agentscaffold/types"
)

// ErrCheckpointNotFound is returned when a thread has no checkpoint.
var ErrCheckpointNotFound = types.NewError(types.ErrCodeNotFound, "checkpoint not found")

// Checkpoint is the state of a thread after one superstep.
type Checkpoint struct {
	ID        string          `json:"id"`
	ThreadID  string          `json:"thread_id"`
	RunID     string          `json:"run_id"`
	Step      int             `json:"step"`
	Next      []string        `json:"next,omitempty"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	out := *c
	out.Next = append([]string(nil), c.Next...)
	out.State = append(json.RawMessage(nil), c.State...)
	return &out
}

// CheckpointStore persists checkpoints per thread.
type CheckpointStore interface {
	Save(ctx context.Context, cp *Checkpoint) error
	// Latest returns the most recently saved checkpoint, or ErrCheckpointNotFound.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)
	// List returns all checkpoints of a thread in save order.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)
}

// MemoryCheckpointStore keeps checkpoints in process memory.
type MemoryCheckpointStore struct {
	mu      sync.RWMutex
	threads map[string][]*Checkpoint
}

// NewMemoryCheckpointStore creates an empty in-memory store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{threads: make(map[string][]*Checkpoint)}
}

func (s *MemoryCheckpointStore) Save(_ context.Context, cp *Checkpoint) error {
	if cp == nil || cp.ThreadID == "" {
		return types.NewValidationError("checkpoint requires a thread id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[cp.ThreadID] = append(s.threads[cp.ThreadID], cp.Clone())
	return nil
}

func (s *MemoryCheckpointStore) Latest(_ context.Context, threadID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.threads[threadID]
	if len(list) == 0 {
		return nil, ErrCheckpointNotFound
	}
	return list[len(list)-1].Clone(), nil
}

func (s *MemoryCheckpointStore) List(_ context.Context, threadID string) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.threads[threadID]
	out := make([]*Checkpoint, 0, len(list))
	for _, cp := range list {
		out = append(out, cp.Clone())
	}
	return out, nil
}
