// Package snapshot persists Store snapshots: a per-user on-device JSON file
// and a chunked per-user record in the cloud table store.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/orderdesk/orderdesk/internal/orders"
)

// LocalStore keeps one snapshot file per user under a data directory.
// Load never fails: missing, unparseable, or wrong-version files fall back
// to the seed store.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

// NewLocalStore constructs a LocalStore rooted at dir.
func NewLocalStore(dir string, logger *slog.Logger) *LocalStore {
	return &LocalStore{dir: dir, logger: logger}
}

// Load reads the user's snapshot, applying forward migrations, or returns
// the seed store when no usable snapshot exists.
func (s *LocalStore) Load(userID string) orders.Store {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if !os.IsNotExist(err) && s.logger != nil {
			s.logger.Warn("read local snapshot", slog.Any("error", err))
		}
		return orders.Seed()
	}
	var store orders.Store
	if err := json.Unmarshal(data, &store); err != nil {
		if s.logger != nil {
			s.logger.Warn("parse local snapshot, reseeding", slog.Any("error", err))
		}
		return orders.Seed()
	}
	if store.Version != orders.StoreVersion {
		if s.logger != nil {
			s.logger.Warn("local snapshot version mismatch, reseeding", slog.Int("version", store.Version))
		}
		return orders.Seed()
	}
	return orders.Migrate(store)
}

// Save writes the full snapshot, replacing any previous one. The write goes
// through a temp file and rename so a crash never leaves a torn snapshot.
func (s *LocalStore) Save(userID string, store orders.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("snapshot: encode local: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: data dir: %w", err)
	}
	path := s.path(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write local: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("snapshot: write local: %w", err)
	}
	return nil
}

// UserIDs lists every user with a stored snapshot. Used by the backup sweep.
func (s *LocalStore) UserIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: list local: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".prefs.json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

type localPrefs struct {
	AutoSave bool `json:"autoSave"`
}

// LoadAutoSave reads the user's auto-save preference; default off.
func (s *LocalStore) LoadAutoSave(userID string) bool {
	data, err := os.ReadFile(s.prefsPath(userID))
	if err != nil {
		return false
	}
	var prefs localPrefs
	if err := json.Unmarshal(data, &prefs); err != nil {
		return false
	}
	return prefs.AutoSave
}

// SaveAutoSave persists the auto-save preference alongside the snapshot.
func (s *LocalStore) SaveAutoSave(userID string, enabled bool) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: data dir: %w", err)
	}
	data, err := json.Marshal(localPrefs{AutoSave: enabled})
	if err != nil {
		return fmt.Errorf("snapshot: encode prefs: %w", err)
	}
	if err := os.WriteFile(s.prefsPath(userID), data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write prefs: %w", err)
	}
	return nil
}

func (s *LocalStore) path(userID string) string {
	return filepath.Join(s.dir, SanitizeKey(userID)+".json")
}

func (s *LocalStore) prefsPath(userID string) string {
	return filepath.Join(s.dir, SanitizeKey(userID)+".prefs.json")
}
