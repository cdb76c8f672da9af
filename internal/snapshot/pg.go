package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderdesk/orderdesk/internal/orders"
)

// PGCloudStore implements CloudStore on a PostgreSQL table: one row per
// (partition_key, row_key) holding the update timestamp, the record version
// tag, the chunk count, and the ordered chunks.
type PGCloudStore struct {
	pool *pgxpool.Pool
}

// NewPGCloudStore constructs a PGCloudStore.
func NewPGCloudStore(pool *pgxpool.Pool) *PGCloudStore {
	return &PGCloudStore{pool: pool}
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS store_snapshots (
	partition_key TEXT NOT NULL,
	row_key       TEXT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	version       TEXT NOT NULL,
	chunk_count   INT NOT NULL,
	chunks        TEXT[] NOT NULL,
	PRIMARY KEY (partition_key, row_key)
)`

// EnsureSchema creates the snapshot table when missing.
func (s *PGCloudStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, snapshotSchema); err != nil {
		return classify(fmt.Errorf("snapshot: ensure schema: %w", err))
	}
	return nil
}

// Save upserts the user's record, replacing any previous content.
func (s *PGCloudStore) Save(ctx context.Context, id Identity, store orders.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("snapshot: encode cloud: %w", err)
	}
	chunks := SplitChunks(data, ChunkSize)
	const query = `
		INSERT INTO store_snapshots (partition_key, row_key, updated_at, version, chunk_count, chunks)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (partition_key, row_key) DO UPDATE
		SET updated_at = EXCLUDED.updated_at,
		    version = EXCLUDED.version,
		    chunk_count = EXCLUDED.chunk_count,
		    chunks = EXCLUDED.chunks`
	_, err = s.pool.Exec(ctx, query, id.PartitionKey(), CloudRowKey, time.Now().UTC(), CloudRecordVersion, len(chunks), chunks)
	if err != nil {
		return classify(fmt.Errorf("snapshot: save cloud: %w", err))
	}
	return nil
}

// Load reads and reassembles the user's record. A missing record or an
// unsupported snapshot version yields (nil, nil); a chunk-count mismatch is
// a corrupt record, not an assumption.
func (s *PGCloudStore) Load(ctx context.Context, id Identity) (*Remote, error) {
	const query = `
		SELECT updated_at, version, chunk_count, chunks
		FROM store_snapshots
		WHERE partition_key = $1 AND row_key = $2`
	var (
		updatedAt  time.Time
		version    string
		chunkCount int
		chunks     []string
	)
	err := s.pool.QueryRow(ctx, query, id.PartitionKey(), CloudRowKey).Scan(&updatedAt, &version, &chunkCount, &chunks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("snapshot: load cloud: %w", err))
	}
	if version != CloudRecordVersion {
		return nil, nil
	}
	if chunkCount != len(chunks) {
		return nil, fmt.Errorf("%w: %d chunks, expected %d", ErrCorruptRecord, len(chunks), chunkCount)
	}
	var store orders.Store
	if err := json.Unmarshal(JoinChunks(chunks), &store); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if store.Version != orders.StoreVersion {
		return nil, nil
	}
	return &Remote{Store: orders.Migrate(store), UpdatedAt: updatedAt}, nil
}

// classify maps driver failures onto the cloud error taxonomy. Context
// cancellation passes through untouched so a superseded sync stays silent.
func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501", "28000", "28P01":
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return err
}

var _ CloudStore = (*PGCloudStore)(nil)
