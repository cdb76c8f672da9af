package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/orderdesk/orderdesk/internal/orders"
)

const (
	// CloudRowKey is the fixed row key: one logical document per user.
	CloudRowKey = "store"
	// CloudRecordVersion tags the cloud record layout, distinct from the
	// Store's own integer version.
	CloudRecordVersion = "orderdesk-v1"
	// ChunkSize is the slice length for the JSON-encoded store, chosen
	// safely below the backing store's per-field size limit.
	ChunkSize = 32 * 1024
)

// Classified cloud failures; each maps to a distinct user-facing remediation.
var (
	// ErrAuthExpired means the user must log in again; not retried automatically.
	ErrAuthExpired = errors.New("snapshot: authentication expired")
	// ErrNetwork is a connectivity failure; the local save already succeeded.
	ErrNetwork = errors.New("snapshot: cloud unreachable")
	// ErrPermission is a storage-layer authorization failure.
	ErrPermission = errors.New("snapshot: cloud access denied")
	// ErrCorruptRecord means the chunked record cannot be reassembled.
	ErrCorruptRecord = errors.New("snapshot: corrupt cloud record")
)

// Identity is the authenticated caller scoping every cloud operation. The
// partition key derives solely from the stable UserID, never from an email
// or display name and never from caller-supplied free text.
type Identity struct {
	UserID string
}

// PartitionKey returns the sanitized per-user partition key.
func (id Identity) PartitionKey() string {
	return SanitizeKey(id.UserID)
}

// Remote is a snapshot loaded from the cloud with its write timestamp.
type Remote struct {
	Store     orders.Store
	UpdatedAt time.Time
}

// CloudStore is the contract of the chunked per-user cloud table record.
// Save is an upsert-replace (last writer wins, no merge). Load returns
// (nil, nil) when no record exists or its snapshot version is unsupported;
// not-found is not an error.
type CloudStore interface {
	Save(ctx context.Context, id Identity, store orders.Store) error
	Load(ctx context.Context, id Identity) (*Remote, error)
}

// SanitizeKey maps an identifier onto the backing store's key alphabet:
// letters, digits, '-' and '_' pass through, everything else becomes '-'.
func SanitizeKey(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

// SplitChunks slices data into size-byte pieces, in order.
func SplitChunks(data []byte, size int) []string {
	if size <= 0 {
		return []string{string(data)}
	}
	var chunks []string
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, string(data[:n]))
		data = data[n:]
	}
	if chunks == nil {
		chunks = []string{""}
	}
	return chunks
}

// JoinChunks reassembles chunks by concatenation in index order.
func JoinChunks(chunks []string) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
