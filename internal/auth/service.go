package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/orderdesk/orderdesk/internal/shared"
	"github.com/orderdesk/orderdesk/internal/snapshot"
	"github.com/orderdesk/orderdesk/internal/tracker"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// IdentitySource returns the engine's identity refresher for a user. Every
// cloud sync re-checks the account; a disabled or vanished account surfaces
// as an authentication-expired failure so the UI can prompt re-login.
func (s *Service) IdentitySource(userID string) tracker.IdentitySource {
	return identitySource{repo: s.repo, userID: userID}
}

type identitySource struct {
	repo   Repository
	userID string
}

func (src identitySource) Identity(ctx context.Context) (snapshot.Identity, error) {
	user, err := src.repo.FindByID(ctx, src.userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return snapshot.Identity{}, fmt.Errorf("%w: account no longer exists", snapshot.ErrAuthExpired)
		}
		return snapshot.Identity{}, err
	}
	if !user.IsActive {
		return snapshot.Identity{}, fmt.Errorf("%w: account disabled", snapshot.ErrAuthExpired)
	}
	return snapshot.Identity{UserID: user.ID}, nil
}
