package provider

import "context"

// ClientInterface is the boundary the reconciliation service depends on.
// Implemented by Client; faked in tests.
type ClientInterface interface {
	CreateLinkToken(ctx context.Context, userID, existingAccessToken string) (*LinkTokenResult, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error)
	GetAccounts(ctx context.Context, accessToken string) (*AccountsResult, error)
	GetTransactions(ctx context.Context, q TransactionQuery) (*TransactionsResult, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncResult, error)
	GetStatus(ctx context.Context, accessToken string) (*Status, error)
	RemoveConnection(ctx context.Context, accessToken string) error
}
