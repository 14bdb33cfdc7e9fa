package transaction

import "context"

// Repository persists transactions. Uniqueness of the external identifier
// is enforced at the storage layer; Upsert is a single atomic
// insert-on-conflict-update keyed on it.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Transaction, error)
	// GetByExternalID returns (nil, nil) when absent.
	GetByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	// ListByAccountID returns newest-first, bounded by limit.
	ListByAccountID(ctx context.Context, accountID string, limit int) ([]*Transaction, error)
	// DeleteByExternalID reports whether a row was removed.
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
}
