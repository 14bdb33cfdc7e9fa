package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/domain/account"
	"ledgersync/internal/domain/connection"
	"ledgersync/internal/domain/transaction"
	"ledgersync/internal/infrastructure/provider"
)

// ErrReauthRequired marks a connection whose credentials the provider no
// longer accepts. The connection is already flagged disconnected when this
// is returned; callers should surface a re-link flow, not retry.
var ErrReauthRequired = errors.New("connection requires re-authentication")

// Notifier pushes connection lifecycle events to registered devices.
// A nil Notifier disables pushes without changing the sync flow.
type Notifier interface {
	NotifySyncComplete(ctx context.Context, conn *connection.Connection, result *Result)
	NotifyReconnectRequired(ctx context.Context, conn *connection.Connection)
}

// Result accumulates the outcome of one reconciliation pass.
type Result struct {
	ConnectionID string   `json:"connectionId"`
	Added        int      `json:"added"`
	Updated      int      `json:"updated"`
	Removed      int      `json:"removed"`
	Skipped      int      `json:"skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// ConnectionDetail is a connection with its accounts attached, the shape
// the listing endpoints return.
type ConnectionDetail struct {
	connection.Connection
	Accounts []*account.Account `json:"accounts"`
}

// Options configures optional service behavior.
type Options struct {
	Notifier      Notifier
	RetryAttempts int
	RetryDelay    time.Duration
}

// Service reconciles provider state into local storage.
type Service struct {
	client          provider.ClientInterface
	connectionRepo  connection.Repository
	accountRepo     account.Repository
	transactionRepo transaction.Repository
	notifier        Notifier
	retryAttempts   int
	retryDelay      time.Duration
}

func NewService(
	client provider.ClientInterface,
	connectionRepo connection.Repository,
	accountRepo account.Repository,
	transactionRepo transaction.Repository,
	opts Options,
) *Service {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}
	return &Service{
		client:          client,
		connectionRepo:  connectionRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		notifier:        opts.Notifier,
		retryAttempts:   opts.RetryAttempts,
		retryDelay:      opts.RetryDelay,
	}
}

// EstablishConnection persists a freshly exchanged access token, imports the
// institution's accounts, and runs the initial reconciliation. The initial
// pull is retried because providers report transaction data as not ready for
// a short window after linking.
func (s *Service) EstablishConnection(ctx context.Context, accessToken, itemID string) (*ConnectionDetail, error) {
	accountsResult, err := s.client.GetAccounts(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching accounts for new connection: %w", err)
	}

	conn, err := s.connectionRepo.Create(ctx, connection.CreateParams{
		ItemID:          itemID,
		AccessToken:     accessToken,
		InstitutionID:   accountsResult.Institution.InstitutionID,
		InstitutionName: accountsResult.Institution.Name,
		InstitutionLogo: accountsResult.Institution.Logo,
	})
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}

	accounts, err := s.CreateAccounts(ctx, conn.ID, accountsResult.Accounts)
	if err != nil {
		return nil, fmt.Errorf("importing accounts for connection %s: %w", conn.ID, err)
	}

	err = Retry(ctx, s.retryAttempts, s.retryDelay, func() error {
		_, syncErr := s.SyncConnection(ctx, conn.ID)
		return syncErr
	})
	if err != nil {
		log.Printf("Initial sync for connection %s did not complete: %v", conn.ID, err)
	}

	return &ConnectionDetail{Connection: *conn, Accounts: accounts}, nil
}

// CreateAccounts maps and stores provider accounts under a connection.
// Accounts already present for the connection are skipped.
func (s *Service) CreateAccounts(ctx context.Context, connectionID string, provAccounts []provider.Account) ([]*account.Account, error) {
	params := make([]account.CreateParams, 0, len(provAccounts))
	for _, a := range provAccounts {
		params = append(params, MapAccount(connectionID, a))
	}

	created, err := s.accountRepo.CreateBatch(ctx, params)
	if err != nil && !errors.Is(err, account.ErrDuplicateAccount) {
		return nil, err
	}
	if len(created) > 0 {
		return created, nil
	}
	return s.accountRepo.ListByConnectionID(ctx, connectionID)
}

// Reconnect swaps a disconnected connection's access token after the user
// re-authenticated through the provider's update flow.
func (s *Service) Reconnect(ctx context.Context, connectionID, accessToken string) (*connection.Connection, error) {
	if err := s.connectionRepo.UpdateAccessToken(ctx, connectionID, accessToken); err != nil {
		return nil, err
	}
	return s.connectionRepo.GetByID(ctx, connectionID)
}

// SyncConnection runs one reconciliation pass: refresh balances, then walk
// the provider's transaction feed from the stored cursor until it reports no
// more pages. Per-account and per-record failures are recorded in the result
// and do not stop the pass; a failed page fetch aborts it so no cursor is
// skipped.
func (s *Service) SyncConnection(ctx context.Context, connectionID string) (*Result, error) {
	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.Status == connection.StatusDisconnected {
		return nil, fmt.Errorf("connection %s: %w", conn.ID, ErrReauthRequired)
	}

	accounts, err := s.accountRepo.ListByConnectionID(ctx, conn.ID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts for connection %s: %w", conn.ID, err)
	}
	byExternalID := make(map[string]*account.Account, len(accounts))
	for _, a := range accounts {
		byExternalID[a.AccountID] = a
	}

	result := &Result{ConnectionID: conn.ID}

	s.refreshBalances(ctx, conn, byExternalID, result)

	cursor := conn.SyncCursor
	for {
		page, err := s.client.SyncTransactions(ctx, conn.AccessToken, cursor)
		if err != nil {
			if reauthErr := s.handleReauth(ctx, conn, err); reauthErr != nil {
				return result, reauthErr
			}
			return result, fmt.Errorf("syncing transactions for connection %s: %w", conn.ID, err)
		}

		for _, t := range append(page.Added, page.Modified...) {
			s.upsertTransaction(ctx, t, byExternalID, result)
		}
		for _, r := range page.Removed {
			deleted, err := s.transactionRepo.DeleteByExternalID(ctx, r.TransactionID)
			if err != nil {
				log.Printf("Failed to remove transaction %s: %v", r.TransactionID, err)
				result.Errors = append(result.Errors, fmt.Sprintf("remove %s: %v", r.TransactionID, err))
				continue
			}
			if deleted {
				result.Removed++
			}
		}

		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	syncedAt := time.Now().UTC()
	if err := s.connectionRepo.UpdateSyncState(ctx, conn.ID, cursor, syncedAt); err != nil {
		return result, fmt.Errorf("persisting sync state for connection %s: %w", conn.ID, err)
	}

	log.Printf("Synced connection %s: %d added, %d updated, %d removed, %d skipped, %d errors",
		conn.ID, result.Added, result.Updated, result.Removed, result.Skipped, len(result.Errors))

	if s.notifier != nil {
		s.notifier.NotifySyncComplete(ctx, conn, result)
	}
	return result, nil
}

// SyncAll reconciles every connected connection, isolating failures so one
// broken connection never blocks the rest.
func (s *Service) SyncAll(ctx context.Context) []*Result {
	conns, err := s.connectionRepo.ListByStatus(ctx, connection.StatusConnected)
	if err != nil {
		log.Printf("Failed to list connections for sync: %v", err)
		return nil
	}

	results := make([]*Result, 0, len(conns))
	for _, conn := range conns {
		result, err := s.SyncConnection(ctx, conn.ID)
		if err != nil {
			log.Printf("Sync failed for connection %s: %v", conn.ID, err)
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results
}

// ListConnections returns every connection with its accounts attached.
func (s *Service) ListConnections(ctx context.Context) ([]*ConnectionDetail, error) {
	conns, err := s.connectionRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]*ConnectionDetail, 0, len(conns))
	for _, conn := range conns {
		accounts, err := s.accountRepo.ListByConnectionID(ctx, conn.ID)
		if err != nil {
			return nil, fmt.Errorf("listing accounts for connection %s: %w", conn.ID, err)
		}
		details = append(details, &ConnectionDetail{Connection: *conn, Accounts: accounts})
	}
	return details, nil
}

// AccountTransactions returns stored transactions for an account, newest
// first. A non-positive limit falls back to 100.
func (s *Service) AccountTransactions(ctx context.Context, accountID string, limit int) ([]*transaction.Transaction, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.transactionRepo.ListByAccountID(ctx, accountID, limit)
}

// RemoveConnection revokes the provider-side item before deleting local
// state, so a failed revoke never strands an orphaned upstream grant.
func (s *Service) RemoveConnection(ctx context.Context, connectionID string) error {
	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}

	if err := s.client.RemoveConnection(ctx, conn.AccessToken); err != nil {
		var provErr *provider.Error
		if !errors.As(err, &provErr) || !provErr.ReauthRequired() {
			return fmt.Errorf("revoking provider access for connection %s: %w", conn.ID, err)
		}
		// Dead credentials mean the upstream grant is already unusable;
		// proceed with the local delete.
		log.Printf("Provider revoke for connection %s skipped, credentials already invalid: %v", conn.ID, err)
	}

	return s.connectionRepo.Delete(ctx, conn.ID)
}

func (s *Service) refreshBalances(ctx context.Context, conn *connection.Connection, byExternalID map[string]*account.Account, result *Result) {
	accountsResult, err := s.client.GetAccounts(ctx, conn.AccessToken)
	if err != nil {
		log.Printf("Balance refresh failed for connection %s: %v", conn.ID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("balance refresh: %v", err))
		return
	}

	for _, a := range accountsResult.Accounts {
		internal, ok := byExternalID[a.AccountID]
		if !ok || !internal.Enabled {
			continue
		}
		err := s.accountRepo.UpdateBalances(ctx, internal.ID, nullDecimal(a.Balances.Current), nullDecimal(a.Balances.Available))
		if err != nil {
			log.Printf("Failed to update balances for account %s: %v", internal.ID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("balances %s: %v", internal.ID, err))
		}
	}
}

func (s *Service) upsertTransaction(ctx context.Context, t provider.Transaction, byExternalID map[string]*account.Account, result *Result) {
	internal, ok := byExternalID[t.AccountID]
	if !ok || !internal.Enabled {
		result.Skipped++
		return
	}

	params, err := MapTransaction(internal.ID, t)
	if err != nil {
		log.Printf("Failed to map transaction %s: %v", t.TransactionID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("map %s: %v", t.TransactionID, err))
		return
	}

	existing, err := s.transactionRepo.GetByExternalID(ctx, t.TransactionID)
	if err != nil {
		log.Printf("Failed to look up transaction %s: %v", t.TransactionID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("lookup %s: %v", t.TransactionID, err))
		return
	}

	if _, err := s.transactionRepo.Upsert(ctx, params); err != nil {
		log.Printf("Failed to upsert transaction %s: %v", t.TransactionID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("upsert %s: %v", t.TransactionID, err))
		return
	}

	if existing == nil {
		result.Added++
	} else {
		result.Updated++
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// handleReauth marks the connection disconnected when the provider reports
// the credentials dead. Returns nil when err is not a re-auth failure.
func (s *Service) handleReauth(ctx context.Context, conn *connection.Connection, err error) error {
	var provErr *provider.Error
	if !errors.As(err, &provErr) || !provErr.ReauthRequired() {
		return nil
	}

	detail := fmt.Sprintf("%s: %s", provErr.Code, provErr.Message)
	if updateErr := s.connectionRepo.UpdateStatus(ctx, conn.ID, connection.StatusDisconnected, &detail); updateErr != nil {
		log.Printf("Failed to mark connection %s disconnected: %v", conn.ID, updateErr)
	}
	log.Printf("Connection %s requires re-authentication: %s", conn.ID, detail)

	if s.notifier != nil {
		s.notifier.NotifyReconnectRequired(ctx, conn)
	}
	return fmt.Errorf("connection %s: %w", conn.ID, ErrReauthRequired)
}
