package repository

import (
	"context"
	"errors"

	"github.com/campusjobs/jobboard/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrNameExists   = errors.New("username already exists")
)

// CreateUser assigns the next user ID and stores the user.
// Names are unique case-insensitively.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	if r.closed.Load() {
		return ErrClosed
	}

	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if _, exists := r.usersByKey[user.NameKey()]; exists {
		return ErrNameExists
	}

	r.insertUserLocked(user)
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	r.usersMu.RLock()
	defer r.usersMu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	u := *user
	return &u, nil
}

// GetUserByName retrieves a user by display name, ignoring case.
func (r *Repository) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	r.usersMu.RLock()
	defer r.usersMu.RUnlock()

	id, ok := r.usersByKey[model.NameKey(name)]
	if !ok {
		return nil, ErrUserNotFound
	}

	u := *r.users[id]
	return &u, nil
}

// SeedUsers stores the given users only if no user exists yet.
// Returns true if the users were inserted.
func (r *Repository) SeedUsers(ctx context.Context, users []*model.User) (bool, error) {
	if r.closed.Load() {
		return false, ErrClosed
	}

	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if len(r.users) > 0 {
		return false, nil
	}

	for _, user := range users {
		if _, exists := r.usersByKey[user.NameKey()]; exists {
			return false, ErrNameExists
		}
	}

	for _, user := range users {
		r.insertUserLocked(user)
	}

	return true, nil
}

// CountUsers returns the number of registered users.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}

	r.usersMu.RLock()
	defer r.usersMu.RUnlock()

	return len(r.users), nil
}

// insertUserLocked must be called with usersMu held for writing.
func (r *Repository) insertUserLocked(user *model.User) {
	user.ID = r.userSeq.Add(1)
	stored := *user
	r.users[stored.ID] = &stored
	r.usersByKey[stored.NameKey()] = stored.ID
}
