package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusjobs/jobboard/internal/apperror"
	"github.com/campusjobs/jobboard/internal/metrics"
	"github.com/campusjobs/jobboard/internal/model"
	"github.com/campusjobs/jobboard/internal/repository"
)

// Reasons reported by the identity service.
const (
	ReasonInvalidUserData     = "invalid user data"
	ReasonCredentialsRequired = "name and password are required"
	ReasonUserNotFound        = "user not found"
	ReasonIncorrectPassword   = "incorrect password"
)

// DefaultUsers are seeded into an empty registry at startup.
func DefaultUsers() []*model.User {
	return []*model.User{
		{Name: "Employer User", Secret: "employerpass", Role: model.RoleEmployer},
		{Name: "Student User", Secret: "studentpass", Role: model.RoleStudent},
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Name     string `validate:"required"`
	Password string `validate:"required"`
	Role     string `validate:"required,oneof=employer student"`
}

// LoginInput defines input for logging in.
type LoginInput struct {
	Name     string `validate:"required"`
	Password string `validate:"required"`
}

// IdentityService handles registration, login and user lookup.
type IdentityService struct {
	repo    *repository.Repository
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(repo *repository.Repository, logger *slog.Logger, recorder metrics.Recorder) *IdentityService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &IdentityService{
		repo:    repo,
		logger:  logger.With("component", "service.identity"),
		metrics: recorder,
	}
}

// Register creates a user with the next id. Names are unique ignoring case.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	input.Name = trim(input.Name)
	if err := validate.Struct(forValidation(input)); err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidInput, ReasonInvalidUserData, err)
	}

	user := &model.User{
		Name:   input.Name,
		Secret: input.Password,
		Role:   model.Role(input.Role),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNameExists) {
			return nil, apperror.Conflict(repository.ErrNameExists.Error())
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncRegistration()
	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return user, nil
}

// Login checks credentials and returns the public view of the user.
func (s *IdentityService) Login(ctx context.Context, input LoginInput) (model.UserView, error) {
	input.Name = trim(input.Name)
	if err := validate.Struct(LoginInput{Name: input.Name, Password: trim(input.Password)}); err != nil {
		s.metrics.IncLogin(metrics.LoginFailure)
		return model.UserView{}, apperror.Wrap(apperror.KindInvalidInput, ReasonCredentialsRequired, err)
	}

	user, err := s.repo.GetUserByName(ctx, input.Name)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin(metrics.LoginFailure)
			return model.UserView{}, apperror.Unauthenticated(ReasonUserNotFound)
		}
		return model.UserView{}, fmt.Errorf("lookup user: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.Secret), []byte(input.Password)) != 1 {
		s.metrics.IncLogin(metrics.LoginFailure)
		s.logger.Warn("login rejected", slog.Int64("user_id", user.ID))
		return model.UserView{}, apperror.Unauthenticated(ReasonIncorrectPassword)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return user.View(), nil
}

// forValidation returns a copy of input with the password trimmed for the
// required check. The stored secret keeps its original bytes.
func forValidation(input RegisterInput) RegisterInput {
	input.Password = trim(input.Password)
	return input
}

// FindByID returns the user with the given id.
func (s *IdentityService) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound(ReasonUserNotFound)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// SeedDefaults inserts DefaultUsers if the registry is empty.
// Returns true if the users were inserted.
func (s *IdentityService) SeedDefaults(ctx context.Context) (bool, error) {
	seeded, err := s.repo.SeedUsers(ctx, DefaultUsers())
	if err != nil {
		return false, fmt.Errorf("seed users: %w", err)
	}
	if seeded {
		s.logger.Info("seeded default users")
	}
	return seeded, nil
}
