// Package tracker owns the draft/persisted reconciliation engine: the
// working copy of a user's Store versus the last confirmed save, the dirty
// flag, debounced auto-save, and best-effort cloud sync with explicit retry.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/orderdesk/orderdesk/internal/observability"
	"github.com/orderdesk/orderdesk/internal/orders"
	"github.com/orderdesk/orderdesk/internal/snapshot"
)

// SaveState is the user-visible save indicator. It reflects local-save
// completion, not cloud-sync completion.
type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveSaving SaveState = "saving"
	SaveSaved  SaveState = "saved"
)

// LocalStore is the on-device persistence port used by the engine.
type LocalStore interface {
	Load(userID string) orders.Store
	Save(userID string, store orders.Store) error
	LoadAutoSave(userID string) bool
	SaveAutoSave(userID string, enabled bool) error
}

// IdentitySource refreshes the caller's cloud identity before each sync.
// It fails with snapshot.ErrAuthExpired (wrapped) when re-login is required.
type IdentitySource interface {
	Identity(ctx context.Context) (snapshot.Identity, error)
}

// RetryEnqueuer schedules a durable background retry of a failed sync.
type RetryEnqueuer interface {
	EnqueueSyncRetry(userID string) error
}

// staticIdentity satisfies IdentitySource for a fixed identity.
type staticIdentity snapshot.Identity

func (s staticIdentity) Identity(ctx context.Context) (snapshot.Identity, error) {
	return snapshot.Identity(s), nil
}

// Config collects engine dependencies and tunables.
type Config struct {
	Identity   snapshot.Identity
	Local      LocalStore
	Cloud      snapshot.CloudStore
	Identities IdentitySource // optional; defaults to the static Identity
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Enqueuer   RetryEnqueuer // optional

	Debounce      time.Duration // auto-save quiet period
	SlowSyncAfter time.Duration // latency before a "syncing" notice
	SavedAfter    time.Duration // saving -> saved delay
	SavedDisplay  time.Duration // saved -> idle delay
}

func (c *Config) applyDefaults() {
	if c.Identities == nil {
		c.Identities = staticIdentity(c.Identity)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Debounce <= 0 {
		c.Debounce = 800 * time.Millisecond
	}
	if c.SlowSyncAfter <= 0 {
		c.SlowSyncAfter = 600 * time.Millisecond
	}
	if c.SavedAfter <= 0 {
		c.SavedAfter = 150 * time.Millisecond
	}
	if c.SavedDisplay <= 0 {
		c.SavedDisplay = 1500 * time.Millisecond
	}
}

// Engine owns one user's draft/persisted pair. It is safe for concurrent use;
// every operation takes the engine lock, and async completions (debounce,
// sync, status timers) check a generation token before acting so a torn-down
// or superseded callback is a no-op.
type Engine struct {
	cfg Config

	mu        sync.Mutex
	persisted orders.Store
	draft     orders.Store
	autoSave  bool
	state     SaveState
	stateGen  uint64
	notes     []Notification

	debounce   *time.Timer
	syncGen    uint64
	syncCancel context.CancelFunc
	attempt    int
	closed     bool
}

// NewEngine loads the user's local snapshot and preference into a fresh
// engine. Cloud reconciliation is a separate step (Reconcile).
func NewEngine(cfg Config) *Engine {
	cfg.applyDefaults()
	store := cfg.Local.Load(cfg.Identity.UserID)
	return &Engine{
		cfg:       cfg,
		persisted: store,
		draft:     store.Clone(),
		autoSave:  cfg.Local.LoadAutoSave(cfg.Identity.UserID),
		state:     SaveIdle,
	}
}

// Reconcile performs the startup cloud-vs-local reconciliation: when the
// cloud holds a snapshot that differs from local state, the cloud copy wins
// and local persistence is rewritten to match. Any cloud failure is absorbed;
// cloud is a best-effort enhancement, never a hard dependency.
func (e *Engine) Reconcile(ctx context.Context) {
	remote, err := e.cfg.Cloud.Load(ctx, e.cfg.Identity)
	if err != nil {
		e.cfg.Logger.Warn("cloud load on startup", slog.Any("error", err))
		return
	}
	if remote == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || orders.CanonicalEqual(remote.Store, e.persisted) {
		return
	}
	e.persisted = remote.Store.Clone()
	e.draft = remote.Store.Clone()
	if err := e.cfg.Local.Save(e.cfg.Identity.UserID, e.persisted); err != nil {
		e.cfg.Logger.Error("write local after cloud reconcile", slog.Any("error", err))
	}
}

// Draft returns a copy of the working store.
func (e *Engine) Draft() orders.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Persisted returns a copy of the last confirmed save.
func (e *Engine) Persisted() orders.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persisted.Clone()
}

// SetDraft transforms the working copy. No validation happens here; editors
// validate before applying. With auto-save on, the debounce timer restarts on
// every change so rapid edits coalesce into a single save.
func (e *Engine) SetDraft(update func(orders.Store) orders.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.draft = update(e.draft.Clone())
	if e.autoSave && e.dirtyLocked() {
		e.restartDebounceLocked()
	}
}

// Dirty reports whether the draft differs from the persisted snapshot under
// canonical comparison.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirtyLocked()
}

func (e *Engine) dirtyLocked() bool {
	return !orders.CanonicalEqual(e.persisted, e.draft)
}

// State returns the current save indicator.
func (e *Engine) State() SaveState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// AutoSave reports the auto-save preference.
func (e *Engine) AutoSave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoSave
}

// SetAutoSave updates and persists the auto-save preference. Enabling it
// with unsaved edits schedules a save after the quiet period.
func (e *Engine) SetAutoSave(enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.autoSave = enabled
	if enabled && e.dirtyLocked() {
		e.restartDebounceLocked()
	}
	if !enabled {
		e.stopDebounceLocked()
	}
	return e.cfg.Local.SaveAutoSave(e.cfg.Identity.UserID, enabled)
}

// Save commits the draft: persisted takes the draft's content, the local
// snapshot is written synchronously, and a cloud sync is fired asynchronously.
// A cloud failure never rolls back the local commit.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitLocked()
}

// Discard resets the draft to the persisted snapshot, dropping unsaved edits.
func (e *Engine) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.stopDebounceLocked()
	e.draft = e.persisted.Clone()
}

// Close cancels the debounce timer and any in-flight sync. Callbacks from a
// torn-down engine never fire a write or a notification.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.stopDebounceLocked()
	if e.syncCancel != nil {
		e.syncCancel()
		e.syncCancel = nil
	}
}

func (e *Engine) commitLocked() error {
	if e.closed {
		return nil
	}
	e.stopDebounceLocked()
	e.persisted = e.draft.Clone()
	e.setStateLocked(SaveSaving)
	if err := e.cfg.Local.Save(e.cfg.Identity.UserID, e.persisted); err != nil {
		return err
	}
	e.scheduleStateLocked()
	e.attempt = 0
	e.startSyncLocked()
	return nil
}

// setStateLocked bumps the state generation so stale status timers no-op.
func (e *Engine) setStateLocked(s SaveState) {
	e.state = s
	e.stateGen++
}

func (e *Engine) scheduleStateLocked() {
	gen := e.stateGen
	time.AfterFunc(e.cfg.SavedAfter, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || e.stateGen != gen {
			return
		}
		e.state = SaveSaved
		time.AfterFunc(e.cfg.SavedDisplay, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.closed || e.stateGen != gen {
				return
			}
			e.state = SaveIdle
		})
	})
}

func (e *Engine) restartDebounceLocked() {
	e.stopDebounceLocked()
	e.debounce = time.AfterFunc(e.cfg.Debounce, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || !e.dirtyLocked() {
			return
		}
		if err := e.commitLocked(); err != nil {
			e.cfg.Logger.Error("auto-save", slog.Any("error", err))
		}
	})
}

func (e *Engine) stopDebounceLocked() {
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
}
