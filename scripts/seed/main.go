// Seeds the users table with a demo account for local development.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/orderdesk/orderdesk/internal/app"
	"github.com/orderdesk/orderdesk/internal/platform/db"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func main() {
	ctx := context.Background()
	logger := slog.Default()

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, usersSchema); err != nil {
		logger.Error("ensure users schema", slog.Any("error", err))
		os.Exit(1)
	}

	email := os.Getenv("SEED_EMAIL")
	if email == "" {
		email = "demo@orderdesk.local"
	}
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "orderdesk-demo"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", slog.Any("error", err))
		os.Exit(1)
	}

	const insert = `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, is_active = TRUE`
	if _, err := pool.Exec(ctx, insert, uuid.NewString(), email, string(hash)); err != nil {
		logger.Error("seed user", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seeded user", slog.String("email", email))
}
