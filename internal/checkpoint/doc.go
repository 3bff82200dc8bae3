// Package checkpoint provides durable workflow.CheckpointStore
// implementations backed by Redis and by SQL databases through gorm.
package checkpoint
