package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/orderdesk/orderdesk/internal/observability"
	"github.com/orderdesk/orderdesk/internal/snapshot"
)

// startSyncLocked launches a cloud sync for the current draft, superseding
// any sync still in flight: the previous context is cancelled and its
// completion callback is invalidated by the generation token.
func (e *Engine) startSyncLocked() {
	if e.syncCancel != nil {
		e.syncCancel()
	}
	e.syncGen++
	gen := e.syncGen
	e.attempt++
	attempt := e.attempt

	ctx, cancel := context.WithCancel(context.Background())
	e.syncCancel = cancel
	store := e.draft.Clone()

	slow := time.AfterFunc(e.cfg.SlowSyncAfter, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || e.syncGen != gen {
			return
		}
		e.pushNoteLocked(Notification{
			Kind:     NoteSyncing,
			Severity: SeverityInfo,
			Message:  "Syncing to cloud…",
		})
	})

	go func() {
		defer cancel()
		id, err := e.cfg.Identities.Identity(ctx)
		if err == nil {
			err = e.cfg.Cloud.Save(ctx, id, store)
		}
		slow.Stop()

		e.mu.Lock()
		defer e.mu.Unlock()
		// A superseded or torn-down sync stays silent.
		if e.closed || e.syncGen != gen {
			e.cfg.Metrics.ObserveSync(observability.SyncCancelled)
			return
		}
		e.syncCancel = nil
		if err == nil {
			e.cfg.Metrics.ObserveSync(observability.SyncOK)
			message := "Saved to cloud"
			if attempt > 1 {
				message = "Cloud sync recovered"
			}
			e.pushNoteLocked(Notification{Kind: NoteSynced, Severity: SeveritySuccess, Message: message})
			e.attempt = 0
			return
		}
		if errors.Is(err, context.Canceled) {
			e.cfg.Metrics.ObserveSync(observability.SyncCancelled)
			return
		}
		e.cfg.Metrics.ObserveSync(observability.SyncFailed)
		e.cfg.Logger.Warn("cloud sync failed", slog.Any("error", err))
		e.failSyncLocked(err)
	}()
}

// RetrySync re-runs the cloud sync with the current draft. Edits made after
// the original failure are included; stale data is never replayed.
func (e *Engine) RetrySync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.startSyncLocked()
}

// failSyncLocked classifies the failure into the user-facing taxonomy and
// emits a persistent, dismissible error notification carrying a retry hint.
// Network and unknown failures additionally enqueue a durable background
// retry; auth and permission failures need human action first.
func (e *Engine) failSyncLocked(err error) {
	note := Notification{Kind: NoteSyncError, Severity: SeverityError, Persistent: true}
	enqueue := false
	switch {
	case errors.Is(err, snapshot.ErrAuthExpired):
		note.Message = "Cloud sync failed: your session expired. Please log in again."
	case errors.Is(err, snapshot.ErrPermission):
		note.Message = "Cloud sync failed: access denied. Contact your administrator."
		note.Retryable = true
	case errors.Is(err, snapshot.ErrNetwork):
		note.Message = "Cloud sync failed: network problem. Your changes are already saved locally."
		note.Retryable = true
		enqueue = true
	default:
		note.Message = "Cloud sync failed: " + err.Error()
		note.Retryable = true
		enqueue = true
	}
	e.pushNoteLocked(note)
	if enqueue && e.cfg.Enqueuer != nil {
		if qerr := e.cfg.Enqueuer.EnqueueSyncRetry(e.cfg.Identity.UserID); qerr != nil {
			e.cfg.Logger.Warn("enqueue sync retry", slog.Any("error", qerr))
		}
	}
}
