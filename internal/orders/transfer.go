package orders

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExportFilename returns the download name for an export taken now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("orderdesk-export-%s.json", now.Format(isoDate))
}

// Export renders the store as pretty-printed JSON for download.
func Export(store Store) ([]byte, error) {
	return json.MarshalIndent(store, "", "  ")
}

// Import parses an exported snapshot. The version tag is validated before
// anything replaces the draft; bad JSON and a wrong version are distinct
// failures so callers can surface the right message.
func Import(data []byte) (Store, error) {
	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Store{}, fmt.Errorf("orders: parse import: %w", err)
	}
	if probe.Version == nil || *probe.Version != StoreVersion {
		return Store{}, ErrUnsupportedVersion
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return Store{}, fmt.Errorf("orders: parse import: %w", err)
	}
	return Migrate(store), nil
}

// Migrate applies the additive forward migrations: POs missing a status are
// assigned draft.
func Migrate(store Store) Store {
	for i := range store.POs {
		if store.POs[i].Status == "" {
			store.POs[i].Status = POStatusDraft
		}
	}
	return store
}
