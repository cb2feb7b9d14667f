package broadcast

import "context"

// ListOptions contains options for listing broadcasts.
type ListOptions struct {
	// Statuses filters the result; empty means all.
	Statuses []Status

	Limit int
}

// Repository defines the interface for broadcast persistence.
type Repository interface {
	// Get retrieves a broadcast by ID.
	// Returns ErrBroadcastNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Broadcast, error)

	// List retrieves broadcasts, newest first.
	List(ctx context.Context, opts ListOptions) ([]*Broadcast, error)

	// Create creates a new broadcast record.
	Create(ctx context.Context, b *Broadcast) error

	// Update updates an existing broadcast record.
	Update(ctx context.Context, b *Broadcast) error
}
