package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/agentscaffold/config"
	"github.com/BaSui01/agentscaffold/types"
	"github.com/BaSui01/agentscaffold/workflow"
)

// PoolConfig tunes the underlying database/sql pool.
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool settings for networked databases.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// OpenSQL opens a gorm connection for the configured driver. SQLite is
// limited to one open connection so in-memory databases stay shared.
func OpenSQL(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool := DefaultPoolConfig()
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	logger.Info("database opened",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", pool.MaxOpenConns),
	)
	return db, nil
}

// checkpointRecord is the row layout of workflow_checkpoints. Seq orders
// checkpoints by save time.
type checkpointRecord struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"column:checkpoint_id;size:64;uniqueIndex"`
	ThreadID  string    `gorm:"size:255;index"`
	RunID     string    `gorm:"size:64"`
	Step      int       `gorm:"not null"`
	Next      string    `gorm:"type:text"`
	State     []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (checkpointRecord) TableName() string { return "workflow_checkpoints" }

func toRecord(cp *workflow.Checkpoint) (*checkpointRecord, error) {
	next, err := json.Marshal(cp.Next)
	if err != nil {
		return nil, err
	}
	return &checkpointRecord{
		ID:        cp.ID,
		ThreadID:  cp.ThreadID,
		RunID:     cp.RunID,
		Step:      cp.Step,
		Next:      string(next),
		State:     []byte(cp.State),
		CreatedAt: cp.CreatedAt,
	}, nil
}

func (r *checkpointRecord) checkpoint() (*workflow.Checkpoint, error) {
	var next []string
	if r.Next != "" {
		if err := json.Unmarshal([]byte(r.Next), &next); err != nil {
			return nil, err
		}
	}
	return &workflow.Checkpoint{
		ID:        r.ID,
		ThreadID:  r.ThreadID,
		RunID:     r.RunID,
		Step:      r.Step,
		Next:      next,
		State:     json.RawMessage(r.State),
		CreatedAt: r.CreatedAt,
	}, nil
}

// SQLStore persists checkpoints in the workflow_checkpoints table.
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ workflow.CheckpointStore = (*SQLStore)(nil)

// NewSQLStore migrates the checkpoint table and returns the store.
func NewSQLStore(db *gorm.DB, logger *zap.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&checkpointRecord{}); err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to migrate checkpoint table")
	}
	return &SQLStore{
		db:     db,
		logger: logger.With(zap.String("store", "sql_checkpoint")),
	}, nil
}

func (s *SQLStore) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	if cp == nil || cp.ThreadID == "" || cp.ID == "" {
		return types.NewValidationError("checkpoint requires an id and a thread id")
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	rec, err := toRecord(cp)
	if err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to encode checkpoint")
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to save checkpoint")
	}

	s.logger.Debug("checkpoint saved to database",
		zap.String("checkpoint_id", cp.ID),
		zap.String("thread_id", cp.ThreadID),
		zap.Int("step", cp.Step),
	)
	return nil
}

func (s *SQLStore) Latest(ctx context.Context, threadID string) (*workflow.Checkpoint, error) {
	var rec checkpointRecord
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("seq DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workflow.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to load checkpoint")
	}

	cp, err := rec.checkpoint()
	if err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to decode checkpoint")
	}
	return cp, nil
}

func (s *SQLStore) List(ctx context.Context, threadID string) ([]*workflow.Checkpoint, error) {
	var recs []checkpointRecord
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, types.WrapError(err, types.ErrCodeCheckpoint, "failed to list checkpoints")
	}

	out := make([]*workflow.Checkpoint, 0, len(recs))
	for i := range recs {
		cp, err := recs[i].checkpoint()
		if err != nil {
			s.logger.Warn("failed to decode checkpoint", zap.String("id", recs[i].ID), zap.Error(err))
			continue
		}
		out = append(out, cp)
	}
	return out, nil
}

// DeleteThread removes every checkpoint of a thread.
func (s *SQLStore) DeleteThread(ctx context.Context, threadID string) error {
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&checkpointRecord{}).Error
	if err != nil {
		return types.WrapError(err, types.ErrCodeCheckpoint, "failed to delete thread")
	}
	return nil
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
