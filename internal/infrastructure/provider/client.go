// Package provider wraps the banking-aggregation API behind a stable
// internal interface. All calls are JSON-over-POST with the client
// credentials injected into the request body.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 60 * time.Second

	linkTokenPath    = "/link/token/create"
	exchangePath     = "/item/public_token/exchange"
	balancesPath     = "/accounts/balance/get"
	institutionPath  = "/institutions/get_by_id"
	transactionsPath = "/transactions/get"
	syncPath         = "/transactions/sync"
	itemPath         = "/item/get"
	removePath       = "/item/remove"

	// Window applied to date-range queries when the caller gives no bounds.
	defaultWindowDays = 90
	// Window applied when the caller asks for the latest activity only.
	latestWindowDays = 5

	placeholderInstitution = "Unknown Institution"
)

var environmentURLs = map[string]string{
	"sandbox":     "https://sandbox.provider.com",
	"development": "https://development.provider.com",
	"production":  "https://production.provider.com",
}

// Config holds everything needed to construct a Client. No global state:
// the client is built explicitly and injected where needed.
type Config struct {
	ClientID    string
	Secret      string
	Environment string
	// BaseURL overrides the environment URL. Used by tests.
	BaseURL string
	// HTTPClient overrides the default client. Used by tests.
	HTTPClient *http.Client
	// WindowDays and LatestDays override the date-range windows when > 0.
	WindowDays int
	LatestDays int
}

// Client talks to the banking-aggregation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	windowDays int
	latestDays int
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// New creates a provider client from explicit configuration.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		var ok bool
		baseURL, ok = environmentURLs[cfg.Environment]
		if !ok {
			return nil, fmt.Errorf("unknown provider environment %q", cfg.Environment)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	latestDays := cfg.LatestDays
	if latestDays <= 0 {
		latestDays = latestWindowDays
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
		windowDays: windowDays,
		latestDays: latestDays,
	}, nil
}

// Account is an account record as returned by the aggregation API.
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName *string  `json:"official_name"`
	Mask         *string  `json:"mask"`
	Type         string   `json:"type"`
	Subtype      *string  `json:"subtype"`
	Balances     Balances `json:"balances"`
}

// Balances carries the current/available pair for an account.
type Balances struct {
	Available    *decimal.Decimal `json:"available"`
	Current      *decimal.Decimal `json:"current"`
	CurrencyCode string           `json:"iso_currency_code"`
}

// Institution is display metadata for the bank behind an item.
type Institution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
	Logo          string `json:"logo"`
}

// Transaction is a ledger entry as returned by the aggregation API.
// Amount follows the provider convention: positive = outflow.
type Transaction struct {
	TransactionID       string          `json:"transaction_id"`
	AccountID           string          `json:"account_id"`
	Date                string          `json:"date"` // "2006-01-02"
	Name                string          `json:"name"`
	MerchantName        *string         `json:"merchant_name"`
	OriginalDescription *string         `json:"original_description"`
	Amount              decimal.Decimal `json:"amount"`
	CurrencyCode        string          `json:"iso_currency_code"`
	PaymentChannel      string          `json:"payment_channel"`  // "online", "in store", "other"
	TransactionType     string          `json:"transaction_type"` // "digital", "place", "special", "unresolved"
	Category            *Category       `json:"personal_finance_category"`
	Pending             bool            `json:"pending"`
}

// Category is the provider's structured category pair.
type Category struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// RemovedTransaction identifies a transaction the provider has deleted.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// LinkTokenResult is the result of initializing a link session.
type LinkTokenResult struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
}

// ExchangeResult is the result of the one-time public token exchange.
// AccessToken is permanent until revoked and must be persisted encrypted.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// AccountsResult bundles accounts with resolved institution metadata.
type AccountsResult struct {
	Accounts    []Account
	Institution Institution
}

// TransactionQuery parameterizes a date-range transaction fetch.
type TransactionQuery struct {
	AccessToken string
	AccountID   string
	StartDate   string // "2006-01-02"; derived from the window when empty
	EndDate     string
	// Latest narrows the window for a fast incremental refresh.
	Latest bool
	// PostedOnly drops not-yet-settled entries from the result.
	PostedOnly bool
}

// TransactionsResult is the date-range fetch result.
type TransactionsResult struct {
	Transactions []Transaction
	HasMore      bool
}

// SyncResult is one page of the cursor-based sync primitive. The three
// sets are disjoint; NextCursor resumes where this page left off.
type SyncResult struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	HasMore    bool                 `json:"has_more"`
	NextCursor string               `json:"next_cursor"`
}

// Status is the non-throwing connection health result.
type Status struct {
	Connected   bool       `json:"connected"`
	Error       string     `json:"error,omitempty"`
	LastRefresh *time.Time `json:"lastRefresh,omitempty"`
}

type errorEnvelope struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// post issues one API call. The client credentials are merged into the
// request body; they never appear in URLs or logs.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	payload := map[string]any{
		"client_id": c.clientID,
		"secret":    c.secret,
	}
	for k, v := range body {
		payload[k] = v
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var env errorEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || env.ErrorCode == "" {
			return fmt.Errorf("provider request failed with status %d", resp.StatusCode)
		}
		return &Error{
			Type:       env.ErrorType,
			Code:       env.ErrorCode,
			Message:    env.ErrorMessage,
			HTTPStatus: resp.StatusCode,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// CreateLinkToken initializes a link session. A non-empty existing access
// token switches the session to update mode for re-authentication.
func (c *Client) CreateLinkToken(ctx context.Context, userID, existingAccessToken string) (*LinkTokenResult, error) {
	body := map[string]any{
		"user":          map[string]string{"client_user_id": userID},
		"client_name":   "ledgersync",
		"products":      []string{"transactions"},
		"country_codes": []string{"US"},
		"language":      "en",
	}
	if existingAccessToken != "" {
		body["access_token"] = existingAccessToken
	}

	var result LinkTokenResult
	if err := c.post(ctx, linkTokenPath, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExchangePublicToken performs the one-time exchange after the user
// completes the linking UI.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	var result ExchangeResult
	err := c.post(ctx, exchangePath, map[string]any{"public_token": publicToken}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAccounts returns current balances plus institution display metadata.
// The institution lookup is best-effort: its failure degrades to a
// placeholder name instead of failing the whole call.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResult, error) {
	var balanceResp struct {
		Accounts []Account `json:"accounts"`
		Item     struct {
			InstitutionID string `json:"institution_id"`
		} `json:"item"`
	}
	if err := c.post(ctx, balancesPath, map[string]any{"access_token": accessToken}, &balanceResp); err != nil {
		return nil, err
	}

	result := &AccountsResult{
		Accounts:    balanceResp.Accounts,
		Institution: Institution{Name: placeholderInstitution},
	}

	if balanceResp.Item.InstitutionID != "" {
		inst, err := c.getInstitution(ctx, balanceResp.Item.InstitutionID)
		if err != nil {
			log.Printf("Institution lookup failed for %s, using placeholder: %v", balanceResp.Item.InstitutionID, err)
		} else {
			result.Institution = *inst
		}
		result.Institution.InstitutionID = balanceResp.Item.InstitutionID
	}

	return result, nil
}

func (c *Client) getInstitution(ctx context.Context, institutionID string) (*Institution, error) {
	var resp struct {
		Institution Institution `json:"institution"`
	}
	body := map[string]any{
		"institution_id": institutionID,
		"country_codes":  []string{"US"},
		"options":        map[string]bool{"include_optional_metadata": true},
	}
	if err := c.post(ctx, institutionPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Institution, nil
}

// GetTransactions runs a date-range query. The window defaults to the
// configured range and narrows to the latest few days when q.Latest is set.
func (c *Client) GetTransactions(ctx context.Context, q TransactionQuery) (*TransactionsResult, error) {
	startDate, endDate := q.StartDate, q.EndDate
	if endDate == "" {
		endDate = time.Now().UTC().Format("2006-01-02")
	}
	if startDate == "" {
		days := c.windowDays
		if q.Latest {
			days = c.latestDays
		}
		startDate = time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	}

	body := map[string]any{
		"access_token": q.AccessToken,
		"start_date":   startDate,
		"end_date":     endDate,
	}
	if q.AccountID != "" {
		body["options"] = map[string]any{"account_ids": []string{q.AccountID}}
	}

	var resp struct {
		Transactions      []Transaction `json:"transactions"`
		TotalTransactions int           `json:"total_transactions"`
	}
	if err := c.post(ctx, transactionsPath, body, &resp); err != nil {
		return nil, err
	}

	transactions := resp.Transactions
	if q.PostedOnly {
		posted := transactions[:0]
		for _, t := range transactions {
			if !t.Pending {
				posted = append(posted, t)
			}
		}
		transactions = posted
	}

	return &TransactionsResult{
		Transactions: transactions,
		HasMore:      resp.TotalTransactions > len(resp.Transactions),
	}, nil
}

// SyncTransactions is the cursor-based sync primitive: the preferred
// steady-state strategy since it reports removed transactions explicitly.
// An empty cursor starts from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncResult, error) {
	body := map[string]any{"access_token": accessToken}
	if cursor != "" {
		body["cursor"] = cursor
	}

	var result SyncResult
	if err := c.post(ctx, syncPath, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStatus is a non-throwing health check: provider-reported item errors
// come back as a structured Status, not a Go error.
func (c *Client) GetStatus(ctx context.Context, accessToken string) (*Status, error) {
	var resp struct {
		Item struct {
			Error *errorEnvelope `json:"error"`
		} `json:"item"`
		Status struct {
			Transactions struct {
				LastSuccessfulUpdate *time.Time `json:"last_successful_update"`
			} `json:"transactions"`
		} `json:"status"`
	}

	err := c.post(ctx, itemPath, map[string]any{"access_token": accessToken}, &resp)
	if err != nil {
		var provErr *Error
		if errors.As(err, &provErr) {
			return &Status{Connected: false, Error: provErr.Code}, nil
		}
		return nil, err
	}

	if resp.Item.Error != nil {
		return &Status{Connected: false, Error: resp.Item.Error.ErrorCode}, nil
	}

	return &Status{
		Connected:   true,
		LastRefresh: resp.Status.Transactions.LastSuccessfulUpdate,
	}, nil
}

// RemoveConnection revokes the credential upstream. Must run before the
// local connection row is deleted: a local-only delete leaks a live
// credential.
func (c *Client) RemoveConnection(ctx context.Context, accessToken string) error {
	return c.post(ctx, removePath, map[string]any{"access_token": accessToken}, nil)
}
