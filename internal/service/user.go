package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/listenupapp/library-server/internal/domain"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/id"
	"github.com/listenupapp/library-server/internal/store"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// UserService manages library patrons.
type UserService struct {
	store  *sqlite.Store
	logger *slog.Logger
	now    Clock
}

// NewUserService creates a new user service.
func NewUserService(store *sqlite.Store, logger *slog.Logger, now Clock) *UserService {
	return &UserService{store: store, logger: logger, now: clockOrNow(now)}
}

// CreateUserRequest holds the fields of a new patron.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name,omitempty" validate:"max=100"`
	Phone    string `json:"phone,omitempty" validate:"max=20"`
}

// CreateUser registers a patron. Username and email must be unique.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" {
		return nil, domainerrors.Validation("username and email are required")
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:       userID,
		Username: username,
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
	}
	u.InitTimestamps(s.now())

	err = s.store.CreateUser(ctx, u)
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil, domainerrors.Conflict("username or email already registered")
	}
	if err != nil {
		return nil, translate(err, "user", userID)
	}

	s.logger.Info("user created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// GetUser returns a user or NOT_FOUND.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "user", userID)
	}
	return u, nil
}

// ListUsers returns all users ordered by username.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, translate(err, "users", "")
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}
