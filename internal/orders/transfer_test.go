package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	store := Seed()
	data, err := Export(store)
	require.NoError(t, err)

	back, err := Import(data)
	require.NoError(t, err)
	require.True(t, CanonicalEqual(store, back))
}

func TestImportRejectsUnsupportedVersion(t *testing.T) {
	_, err := Import([]byte(`{"version":2,"trainings":[],"customers":[],"producers":[],"pos":[]}`))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Import([]byte(`{"trainings":[]}`))
	require.ErrorIs(t, err, ErrUnsupportedVersion, "missing version tag is unsupported, not malformed")
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	_, err := Import([]byte(`{"version":1,`))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedVersion)
}

func TestImportAssignsDefaultStatus(t *testing.T) {
	store, err := Import([]byte(`{"version":1,"pos":[{"id":"po1","poNumber":"PO-1","sessions":[]}]}`))
	require.NoError(t, err)
	require.Equal(t, POStatusDraft, store.POs[0].Status)
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
	require.Equal(t, "orderdesk-export-2026-08-31.json", ExportFilename(now))
}
