package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUniqueViolation is returned by repositories when an insert collides with a
// unique constraint (for example a second registration of the same email).
var ErrUniqueViolation = errors.New("unique constraint violation")

// CredentialRow is a row of the login table. Only the Logic layer sees the hash;
// it is never serialised to clients.
type CredentialRow struct {
	Email string
	Hash  string
}

// NewUser carries the fields written at registration time.
type NewUser struct {
	Email  string
	Name   string
	Hash   string
	Joined time.Time
}

// ProfileUpdate holds the optional profile fields; nil means "leave unchanged".
type ProfileUpdate struct {
	Name   *string
	Age    *int
	Pet    *string
	Avatar *string
}

// Empty reports whether no field is set.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Age == nil && u.Pet == nil && u.Avatar == nil
}

// UserRepository defines the data-access contract for credentials and user profiles.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on SQL or pgx directly.
type UserRepository interface {
	// GetCredential returns the login row for email.
	// Returns (nil, nil) when no credential exists.
	GetCredential(ctx context.Context, email string) (*CredentialRow, error)

	// EmailExists reports whether a credential for email already exists.
	EmailExists(ctx context.Context, email string) (bool, error)

	// CreateWithCredential inserts the login row and the users row in one
	// transaction and returns the created user. Either both rows persist or neither.
	// Returns ErrUniqueViolation (wrapped) when the email is already taken.
	CreateWithCredential(ctx context.Context, u NewUser) (*User, error)

	// GetByEmail returns the user with the given email.
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int) (*User, error)

	// UpdateProfile applies the non-nil fields of upd and returns the updated user.
	// Returns (nil, nil) when no user has the given id.
	UpdateProfile(ctx context.Context, id int, upd ProfileUpdate) (*User, error)

	// IncrementEntries bumps the image entry counter and returns the new value.
	// Returns (0, false, nil) when no user has the given id.
	IncrementEntries(ctx context.Context, id int) (int64, bool, error)
}
