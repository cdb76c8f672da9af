// Package jobs runs background work over Asynq: durable retries of failed
// cloud syncs and the nightly snapshot backup sweep.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotSync retries the cloud sync for one user. The handler
	// re-reads the user's current local snapshot at execution time, so a
	// queued retry never pushes stale data.
	TaskSnapshotSync = "snapshot:sync"
	// TaskSnapshotBackup sweeps every local snapshot into the cloud store.
	TaskSnapshotBackup = "snapshot:backup"
)

// SnapshotSyncPayload identifies the user whose snapshot to push.
type SnapshotSyncPayload struct {
	UserID string `json:"userId"`
}

// NewSnapshotSyncTask builds a sync-retry task for one user.
func NewSnapshotSyncTask(userID string) (*asynq.Task, error) {
	body, err := json.Marshal(SnapshotSyncPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotSync, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewSnapshotBackupTask builds the sweep task registered on a cron spec.
func NewSnapshotBackupTask() *asynq.Task {
	return asynq.NewTask(TaskSnapshotBackup, nil, asynq.Queue(QueueDefault))
}

// Syncer pushes local snapshots to the cloud store. Implemented by the
// tracker manager.
type Syncer interface {
	SyncUser(ctx context.Context, userID string) error
	BackupAll(ctx context.Context) error
}

// SnapshotSyncHandler returns the Asynq handler for sync-retry tasks.
func SnapshotSyncHandler(syncer Syncer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SnapshotSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.UserID == "" {
			return asynq.SkipRetry
		}
		return syncer.SyncUser(ctx, payload.UserID)
	}
}

// SnapshotBackupHandler returns the Asynq handler for the backup sweep.
func SnapshotBackupHandler(syncer Syncer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		return syncer.BackupAll(ctx)
	}
}
