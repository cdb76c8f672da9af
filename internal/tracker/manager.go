package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orderdesk/orderdesk/internal/observability"
	"github.com/orderdesk/orderdesk/internal/snapshot"
)

// SweepLister lists users owning a local snapshot, for the backup sweep.
type SweepLister interface {
	UserIDs() ([]string, error)
}

// ManagerConfig collects dependencies shared by all engines.
type ManagerConfig struct {
	Local    LocalStore
	Lister   SweepLister // usually the same *snapshot.LocalStore
	Cloud    snapshot.CloudStore
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Enqueuer RetryEnqueuer
	// Identities builds the per-user identity refresher; optional.
	Identities func(userID string) IdentitySource

	Debounce      time.Duration
	SlowSyncAfter time.Duration
}

// Manager owns one engine per authenticated user, created lazily on first
// request and torn down on shutdown.
type Manager struct {
	cfg     ManagerConfig
	mu      sync.Mutex
	engines map[string]*Engine
	group   singleflight.Group
}

// NewManager constructs a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{cfg: cfg, engines: make(map[string]*Engine)}
}

// Engine returns the user's engine, creating and reconciling it on first
// use. Concurrent first requests for the same user collapse into a single
// construction via singleflight.
func (m *Manager) Engine(ctx context.Context, id snapshot.Identity) (*Engine, error) {
	m.mu.Lock()
	if eng, ok := m.engines[id.UserID]; ok {
		m.mu.Unlock()
		return eng, nil
	}
	m.mu.Unlock()

	result, err, _ := m.group.Do(id.UserID, func() (any, error) {
		cfg := Config{
			Identity:      id,
			Local:         m.cfg.Local,
			Cloud:         m.cfg.Cloud,
			Logger:        m.cfg.Logger,
			Metrics:       m.cfg.Metrics,
			Enqueuer:      m.cfg.Enqueuer,
			Debounce:      m.cfg.Debounce,
			SlowSyncAfter: m.cfg.SlowSyncAfter,
		}
		if m.cfg.Identities != nil {
			cfg.Identities = m.cfg.Identities(id.UserID)
		}
		eng := NewEngine(cfg)
		eng.Reconcile(ctx)
		m.mu.Lock()
		m.engines[id.UserID] = eng
		m.mu.Unlock()
		return eng, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Engine), nil
}

// CloseAll tears down every engine. Pending debounce timers and in-flight
// syncs are cancelled.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, eng := range m.engines {
		eng.Close()
		delete(m.engines, id)
	}
}

// SyncUser pushes the user's latest persisted local snapshot to the cloud.
// Used by the background worker; it re-reads current state at execution
// time, so a queued retry never replays stale data.
func (m *Manager) SyncUser(ctx context.Context, userID string) error {
	store := m.cfg.Local.Load(userID)
	id := snapshot.Identity{UserID: userID}
	if err := m.cfg.Cloud.Save(ctx, id, store); err != nil {
		m.cfg.Metrics.ObserveSync(observability.SyncFailed)
		return fmt.Errorf("tracker: background sync %s: %w", userID, err)
	}
	m.cfg.Metrics.ObserveSync(observability.SyncOK)
	return nil
}

// BackupAll sweeps every local snapshot into the cloud store.
func (m *Manager) BackupAll(ctx context.Context) error {
	if m.cfg.Lister == nil {
		return nil
	}
	ids, err := m.cfg.Lister.UserIDs()
	if err != nil {
		return err
	}
	var errs []error
	for _, userID := range ids {
		if err := m.SyncUser(ctx, userID); err != nil {
			m.cfg.Logger.Warn("backup sweep", slog.String("user", userID), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
