package domain

import "context"

// SessionRepository defines the session store contract: token -> user id.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Create stores token -> userID.
	Create(ctx context.Context, token, userID string) error

	// GetUserID returns the user id stored for token.
	// Returns ("", nil) when the token does not match any session.
	GetUserID(ctx context.Context, token string) (string, error)

	// Delete removes the session and returns the number of entries removed (0 or 1).
	Delete(ctx context.Context, token string) (int64, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}
