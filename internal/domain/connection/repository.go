package connection

import (
	"context"
	"time"
)

// Repository persists connections. The access token column is encrypted
// at rest by the implementation.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Connection, error)
	GetByID(ctx context.Context, id string) (*Connection, error)
	GetByItemID(ctx context.Context, itemID string) (*Connection, error)
	List(ctx context.Context) ([]*Connection, error)
	ListByStatus(ctx context.Context, status Status) ([]*Connection, error)
	// UpdateSyncState advances the cursor and last-synced timestamp after a
	// sync pass, regardless of partial per-account failures.
	UpdateSyncState(ctx context.Context, id, cursor string, syncedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status Status, errorDetails *string) error
	// UpdateAccessToken stores a fresh credential after a re-link and flips
	// the connection back to connected.
	UpdateAccessToken(ctx context.Context, id, accessToken string) error
	Delete(ctx context.Context, id string) error
}
