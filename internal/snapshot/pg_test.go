package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestClassifyCloudErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"insufficient privilege", &pgconn.PgError{Code: "42501"}, ErrPermission},
		{"invalid authorization", &pgconn.PgError{Code: "28000"}, ErrPermission},
		{"bad password", &pgconn.PgError{Code: "28P01"}, ErrPermission},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ErrNetwork},
		{"deadline exceeded", context.DeadlineExceeded, ErrNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(fmt.Errorf("snapshot: save cloud: %w", tc.err))
			require.ErrorIs(t, got, tc.want)
		})
	}
}

func TestClassifyLeavesOtherErrorsAlone(t *testing.T) {
	// A constraint violation is a bug, not a permission or network problem.
	unique := fmt.Errorf("snapshot: save cloud: %w", &pgconn.PgError{Code: "23505"})
	got := classify(unique)
	require.NotErrorIs(t, got, ErrPermission)
	require.NotErrorIs(t, got, ErrNetwork)

	plain := errors.New("snapshot: encode cloud: boom")
	require.Equal(t, plain, classify(plain))
}

func TestClassifyPassesCancellationThrough(t *testing.T) {
	cancelled := fmt.Errorf("snapshot: save cloud: %w", context.Canceled)
	got := classify(cancelled)
	require.ErrorIs(t, got, context.Canceled)
	require.NotErrorIs(t, got, ErrNetwork, "a superseded sync is not a network failure")

	require.NoError(t, classify(nil))
}
