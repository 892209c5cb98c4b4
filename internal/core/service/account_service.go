package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type AccountService struct {
	users  port.UserRepository
	logger *slog.Logger
}

func NewAccountService(users port.UserRepository, logger *slog.Logger) *AccountService {
	return &AccountService{users: users, logger: logger}
}

// CreateAccount relies on the store rejecting a duplicate username, so two
// concurrent creations of the same name cannot both succeed.
func (s *AccountService) CreateAccount(ctx context.Context, user domain.User) error {
	if user.Username == "" {
		return ErrInvalidArgument
	}

	err := s.users.InsertUser(ctx, user)
	if errors.Is(err, domain.ErrDuplicateKey) {
		return ErrAccountExists
	}
	if err != nil {
		return storeFailure("insert user", err)
	}

	s.logger.DebugContext(ctx, "account created", "username", user.Username)
	return nil
}

// Authorize returns the user matching both username and password.
func (s *AccountService) Authorize(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.FindUser(ctx, username)
	if err != nil {
		return nil, storeFailure("find user", err)
	}
	if user == nil || user.Password != password {
		return nil, ErrAuthorizationFailed
	}
	return user, nil
}
