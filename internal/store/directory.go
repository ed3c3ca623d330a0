package store

import "context"

// Directory is the user identity registry. A user must be registered here
// before the engine lets them book.
type Directory interface {
	// SetDisplayName upserts the user's display name.
	SetDisplayName(ctx context.Context, userID int64, name string) error

	// DisplayName returns the registered name, or ErrNotFound.
	DisplayName(ctx context.Context, userID int64) (string, error)
}
