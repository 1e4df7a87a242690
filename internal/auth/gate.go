package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusjobs/jobboard/internal/apperror"
	"github.com/campusjobs/jobboard/internal/metrics"
	"github.com/campusjobs/jobboard/internal/model"
)

// Reasons reported when a caller cannot be authenticated.
const (
	ReasonMissingCaller   = "user id header missing"
	ReasonMalformedCaller = "invalid user id header"
	ReasonUnknownCaller   = "user not found"
)

// UserFinder resolves a user by id. A missing user is an apperror NotFound.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// Requirement describes what an operation demands of its caller.
// Zero fields impose no constraint.
type Requirement struct {
	Role    model.Role
	OwnerID int64
	// Reason is reported when the role or ownership check fails.
	Reason string
}

// Gate authenticates claimed callers and checks requirements against them.
type Gate struct {
	users   UserFinder
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewGate creates a Gate backed by users.
func NewGate(users UserFinder, logger *slog.Logger, recorder metrics.Recorder) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Gate{
		users:   users,
		logger:  logger.With("component", "auth.gate"),
		metrics: recorder,
	}
}

// Authenticate resolves the claimed caller to a registered user.
func (g *Gate) Authenticate(ctx context.Context, caller Caller) (*model.User, error) {
	switch {
	case caller.Malformed:
		return nil, g.fail(caller, apperror.Unauthenticated(ReasonMalformedCaller))
	case !caller.Present():
		return nil, g.fail(caller, apperror.Unauthenticated(ReasonMissingCaller))
	}

	user, err := g.users.FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, g.fail(caller, apperror.Unauthenticated(ReasonUnknownCaller))
		}
		return nil, fmt.Errorf("resolve caller: %w", err)
	}

	return user, nil
}

// Check verifies an authenticated user against req.
// The role is checked before ownership.
func (g *Gate) Check(user *model.User, req Requirement) error {
	if req.Role != "" && user.Role != req.Role {
		return g.fail(AsUser(user.ID), apperror.Forbidden(req.Reason))
	}
	if req.OwnerID != 0 && user.ID != req.OwnerID {
		return g.fail(AsUser(user.ID), apperror.Forbidden(req.Reason))
	}
	return nil
}

// Authorize authenticates the caller and checks req in one step.
func (g *Gate) Authorize(ctx context.Context, caller Caller, req Requirement) (*model.User, error) {
	user, err := g.Authenticate(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := g.Check(user, req); err != nil {
		return nil, err
	}
	return user, nil
}

func (g *Gate) fail(caller Caller, err *apperror.Error) error {
	g.metrics.IncAuthFailure(string(err.Kind))
	g.logger.Warn("authorization failed",
		slog.String("kind", string(err.Kind)),
		slog.String("reason", err.Reason),
		slog.Int64("caller_id", caller.ID),
	)
	return err
}
