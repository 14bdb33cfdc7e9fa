package account

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository persists accounts.
type Repository interface {
	// CreateBatch bulk-inserts accounts for a new connection. A duplicate
	// external identifier fails the batch with ErrDuplicateAccount.
	CreateBatch(ctx context.Context, params []CreateParams) ([]*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	// GetByExternalID resolves the provider's account identifier.
	// Returns (nil, nil) when absent.
	GetByExternalID(ctx context.Context, externalID string) (*Account, error)
	ListByConnectionID(ctx context.Context, connectionID string) ([]*Account, error)
	UpdateBalances(ctx context.Context, id string, current, available decimal.NullDecimal) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
}
