// Package auth provides email/password authentication, redis-backed
// sessions, and the stable per-user identity used to scope cloud snapshots.
package auth

import "time"

// User represents an authenticated user account. ID is the stable
// identifier partitioning cloud data; email and display name may change and
// are never used as keys.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
