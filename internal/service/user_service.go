package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/aryan0dhankhar/memedata/internal/validation"
)

// RegisterInput is the payload of a registration
type RegisterInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=1024"`
}

// UserService manages accounts
type UserService struct {
	users             domain.UserRepository
	hasher            PasswordHasher
	validator         *validation.Validator
	minPasswordLength int
	logger            *slog.Logger
}

// NewUserService creates a user service
func NewUserService(
	users domain.UserRepository,
	hasher PasswordHasher,
	validator *validation.Validator,
	minPasswordLength int,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.New()
	}
	return &UserService{
		users:             users,
		hasher:            hasher,
		validator:         validator,
		minPasswordLength: minPasswordLength,
		logger:            logger,
	}
}

// Register creates a new user
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	fields := s.validator.Fields(in)
	if strings.IndexFunc(in.Username, unicode.IsSpace) >= 0 {
		fields = append(fields, apperror.FieldError{Field: "username", Message: "must not contain whitespace"})
	}
	if in.Password != "" && len(in.Password) < s.minPasswordLength {
		fields = append(fields, apperror.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", s.minPasswordLength),
		})
	}
	if len(fields) > 0 {
		return nil, apperror.NewValidationFields(fields)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.NewInternal("failed to register user", err)
	}

	user := &domain.User{Username: in.Username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, apperror.NewConflict(fmt.Sprintf("username '%s' already taken", in.Username), err)
		}
		return nil, apperror.NewInternal("failed to register user", err)
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// List returns all users
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to list users", err)
	}
	return users, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("user %d not found", id))
		}
		return nil, apperror.NewInternal("failed to get user", err)
	}
	return user, nil
}

// Delete removes a user
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("user %d not found", id))
		}
		return apperror.NewInternal("failed to delete user", err)
	}
	s.logger.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// EnsureSuperusers creates each named account that does not exist yet,
// all with the given password. It returns how many were created.
func (s *UserService) EnsureSuperusers(ctx context.Context, usernames []string, password string) (int, error) {
	created := 0
	for _, name := range usernames {
		_, err := s.users.GetByUsername(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return created, fmt.Errorf("failed to look up superuser %q: %w", name, err)
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return created, fmt.Errorf("failed to hash superuser password: %w", err)
		}
		if err := s.users.Create(ctx, &domain.User{Username: name, PasswordHash: hash}); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("failed to create superuser %q: %w", name, err)
		}
		created++
		s.logger.Info("superuser created", slog.String("username", name))
	}
	return created, nil
}
