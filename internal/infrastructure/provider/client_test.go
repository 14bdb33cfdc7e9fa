package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordedRequest struct {
	path string
	body map[string]any
}

// newTestClient spins up a stub API server and a client pointed at it.
// Each handler receives the decoded request body and writes its response.
func newTestClient(t *testing.T, handlers map[string]func(w http.ResponseWriter, body map[string]any)) (*Client, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request to %s: %v", r.URL.Path, err)
		}
		requests = append(requests, recordedRequest{path: r.URL.Path, body: body})

		handler, ok := handlers[r.URL.Path]
		if !ok {
			t.Fatalf("unexpected request to %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{
		ClientID:   "test-client-id",
		Secret:     "test-secret",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, &requests
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_UnknownEnvironment(t *testing.T) {
	if _, err := New(Config{Environment: "staging"}); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestPost_InjectsCredentials(t *testing.T) {
	client, requests := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		exchangePath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]string{"access_token": "access-1", "item_id": "item-1"})
		},
	})

	result, err := client.ExchangePublicToken(context.Background(), "public-1")
	if err != nil {
		t.Fatalf("ExchangePublicToken() error = %v", err)
	}
	if result.AccessToken != "access-1" || result.ItemID != "item-1" {
		t.Errorf("result = %+v", result)
	}

	body := (*requests)[0].body
	if body["client_id"] != "test-client-id" || body["secret"] != "test-secret" {
		t.Error("client credentials missing from request body")
	}
	if body["public_token"] != "public-1" {
		t.Errorf("public_token = %v", body["public_token"])
	}
}

func TestPost_DecodesErrorEnvelope(t *testing.T) {
	client, _ := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		syncPath: func(w http.ResponseWriter, body map[string]any) {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{
				"error_type":    "ITEM_ERROR",
				"error_code":    "ITEM_LOGIN_REQUIRED",
				"error_message": "the login details of this item have changed",
			})
		},
	})

	_, err := client.SyncTransactions(context.Background(), "access-1", "")
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if provErr.Code != CodeItemLoginRequired {
		t.Errorf("code = %s", provErr.Code)
	}
	if provErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("status = %d", provErr.HTTPStatus)
	}
	if !provErr.ReauthRequired() {
		t.Error("ITEM_LOGIN_REQUIRED should require re-auth")
	}
}

func TestPost_NonEnvelopeFailure(t *testing.T) {
	client, _ := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		syncPath: func(w http.ResponseWriter, body map[string]any) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream timeout"))
		},
	})

	_, err := client.SyncTransactions(context.Background(), "access-1", "")
	if err == nil {
		t.Fatal("expected error")
	}
	var provErr *Error
	if errors.As(err, &provErr) {
		t.Errorf("plain HTTP failure should not decode to *Error, got %+v", provErr)
	}
}

func TestCreateLinkToken_UpdateMode(t *testing.T) {
	client, requests := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		linkTokenPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{"link_token": "link-1", "expiration": time.Now().Add(time.Hour)})
		},
	})

	if _, err := client.CreateLinkToken(context.Background(), "user-1", ""); err != nil {
		t.Fatalf("CreateLinkToken() error = %v", err)
	}
	if _, ok := (*requests)[0].body["access_token"]; ok {
		t.Error("fresh link session must not carry an access token")
	}

	if _, err := client.CreateLinkToken(context.Background(), "user-1", "access-1"); err != nil {
		t.Fatalf("CreateLinkToken() update mode error = %v", err)
	}
	if (*requests)[1].body["access_token"] != "access-1" {
		t.Error("update-mode session must carry the existing access token")
	}
}

func TestGetAccounts(t *testing.T) {
	client, _ := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		balancesPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{
				"accounts": []map[string]any{
					{
						"account_id": "ext-acc-1",
						"name":       "Checking",
						"type":       "depository",
						"balances":   map[string]any{"current": 100.25, "available": 90.5, "iso_currency_code": "USD"},
					},
				},
				"item": map[string]string{"institution_id": "ins_1"},
			})
		},
		institutionPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{
				"institution": map[string]string{"name": "First Platypus Bank", "logo": "bG9nbw=="},
			})
		},
	})

	result, err := client.GetAccounts(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("GetAccounts() error = %v", err)
	}
	if len(result.Accounts) != 1 {
		t.Fatalf("accounts = %d, want 1", len(result.Accounts))
	}
	a := result.Accounts[0]
	if a.AccountID != "ext-acc-1" || a.Type != "depository" {
		t.Errorf("account = %+v", a)
	}
	if a.Balances.Current == nil || a.Balances.Current.String() != "100.25" {
		t.Errorf("current balance = %v", a.Balances.Current)
	}
	if result.Institution.Name != "First Platypus Bank" || result.Institution.InstitutionID != "ins_1" {
		t.Errorf("institution = %+v", result.Institution)
	}
}

func TestGetAccounts_InstitutionLookupDegrades(t *testing.T) {
	client, _ := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		balancesPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{
				"accounts": []map[string]any{{"account_id": "ext-acc-1", "name": "Checking", "type": "depository"}},
				"item":     map[string]string{"institution_id": "ins_1"},
			})
		},
		institutionPath: func(w http.ResponseWriter, body map[string]any) {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]string{
				"error_type": "API_ERROR", "error_code": "INTERNAL_SERVER_ERROR", "error_message": "oops",
			})
		},
	})

	result, err := client.GetAccounts(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("GetAccounts() error = %v", err)
	}
	if result.Institution.Name != "Unknown Institution" {
		t.Errorf("institution name = %q, want placeholder", result.Institution.Name)
	}
	if result.Institution.InstitutionID != "ins_1" {
		t.Errorf("institution id = %q, want ins_1", result.Institution.InstitutionID)
	}
}

func TestGetTransactions_Windows(t *testing.T) {
	tests := []struct {
		name     string
		query    TransactionQuery
		wantDays int
	}{
		{"default window", TransactionQuery{AccessToken: "access-1"}, 90},
		{"latest window", TransactionQuery{AccessToken: "access-1", Latest: true}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, requests := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
				transactionsPath: func(w http.ResponseWriter, body map[string]any) {
					writeJSON(w, map[string]any{"transactions": []any{}, "total_transactions": 0})
				},
			})

			if _, err := client.GetTransactions(context.Background(), tt.query); err != nil {
				t.Fatalf("GetTransactions() error = %v", err)
			}

			body := (*requests)[0].body
			start, _ := time.Parse("2006-01-02", body["start_date"].(string))
			end, _ := time.Parse("2006-01-02", body["end_date"].(string))
			if days := int(end.Sub(start).Hours() / 24); days != tt.wantDays {
				t.Errorf("window = %d days, want %d", days, tt.wantDays)
			}
		})
	}
}

func TestGetTransactions_ExplicitRangeAndAccountFilter(t *testing.T) {
	client, requests := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		transactionsPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{"transactions": []any{}, "total_transactions": 0})
		},
	})

	q := TransactionQuery{
		AccessToken: "access-1",
		AccountID:   "ext-acc-1",
		StartDate:   "2025-01-01",
		EndDate:     "2025-02-01",
	}
	if _, err := client.GetTransactions(context.Background(), q); err != nil {
		t.Fatalf("GetTransactions() error = %v", err)
	}

	body := (*requests)[0].body
	if body["start_date"] != "2025-01-01" || body["end_date"] != "2025-02-01" {
		t.Errorf("dates = %v..%v", body["start_date"], body["end_date"])
	}
	options, ok := body["options"].(map[string]any)
	if !ok {
		t.Fatal("options missing from request")
	}
	ids, _ := options["account_ids"].([]any)
	if len(ids) != 1 || ids[0] != "ext-acc-1" {
		t.Errorf("account_ids = %v", ids)
	}
}

func TestGetTransactions_PostedOnly(t *testing.T) {
	client, _ := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		transactionsPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{
				"transactions": []map[string]any{
					{"transaction_id": "t1", "pending": true},
					{"transaction_id": "t2", "pending": false},
				},
				"total_transactions": 2,
			})
		},
	})

	result, err := client.GetTransactions(context.Background(), TransactionQuery{AccessToken: "access-1", PostedOnly: true})
	if err != nil {
		t.Fatalf("GetTransactions() error = %v", err)
	}
	if len(result.Transactions) != 1 || result.Transactions[0].TransactionID != "t2" {
		t.Errorf("transactions = %+v, want only t2", result.Transactions)
	}
}

func TestSyncTransactions(t *testing.T) {
	client, requests := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		syncPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{
				"added":       []map[string]any{{"transaction_id": "t1", "account_id": "ext-acc-1", "amount": 12.5}},
				"modified":    []any{},
				"removed":     []map[string]any{{"transaction_id": "t0"}},
				"has_more":    true,
				"next_cursor": "cursor-2",
			})
		},
	})

	result, err := client.SyncTransactions(context.Background(), "access-1", "cursor-1")
	if err != nil {
		t.Fatalf("SyncTransactions() error = %v", err)
	}
	if len(result.Added) != 1 || result.Added[0].Amount.String() != "12.5" {
		t.Errorf("added = %+v", result.Added)
	}
	if len(result.Removed) != 1 || result.Removed[0].TransactionID != "t0" {
		t.Errorf("removed = %+v", result.Removed)
	}
	if !result.HasMore || result.NextCursor != "cursor-2" {
		t.Errorf("paging = %v/%q", result.HasMore, result.NextCursor)
	}
	if (*requests)[0].body["cursor"] != "cursor-1" {
		t.Errorf("cursor = %v", (*requests)[0].body["cursor"])
	}
}

func TestSyncTransactions_EmptyCursorOmitted(t *testing.T) {
	client, requests := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		syncPath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{"next_cursor": "cursor-1"})
		},
	})

	if _, err := client.SyncTransactions(context.Background(), "access-1", ""); err != nil {
		t.Fatalf("SyncTransactions() error = %v", err)
	}
	if _, ok := (*requests)[0].body["cursor"]; ok {
		t.Error("empty cursor must be omitted so the provider starts from the beginning")
	}
}

func TestGetStatus(t *testing.T) {
	refresh := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		handler       func(w http.ResponseWriter, body map[string]any)
		wantConnected bool
		wantError     string
	}{
		{
			name: "healthy item",
			handler: func(w http.ResponseWriter, body map[string]any) {
				writeJSON(w, map[string]any{
					"item": map[string]any{"error": nil},
					"status": map[string]any{
						"transactions": map[string]any{"last_successful_update": refresh},
					},
				})
			},
			wantConnected: true,
		},
		{
			name: "item-level error in healthy response",
			handler: func(w http.ResponseWriter, body map[string]any) {
				writeJSON(w, map[string]any{
					"item": map[string]any{
						"error": map[string]string{"error_code": "ITEM_LOGIN_REQUIRED"},
					},
				})
			},
			wantConnected: false,
			wantError:     "ITEM_LOGIN_REQUIRED",
		},
		{
			name: "provider error becomes status",
			handler: func(w http.ResponseWriter, body map[string]any) {
				w.WriteHeader(http.StatusBadRequest)
				writeJSON(w, map[string]string{
					"error_type": "ITEM_ERROR", "error_code": "ITEM_LOCKED", "error_message": "locked",
				})
			},
			wantConnected: false,
			wantError:     "ITEM_LOCKED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
				itemPath: tt.handler,
			})

			status, err := client.GetStatus(context.Background(), "access-1")
			if err != nil {
				t.Fatalf("GetStatus() error = %v", err)
			}
			if status.Connected != tt.wantConnected {
				t.Errorf("connected = %v, want %v", status.Connected, tt.wantConnected)
			}
			if status.Error != tt.wantError {
				t.Errorf("error = %q, want %q", status.Error, tt.wantError)
			}
		})
	}
}

func TestRemoveConnection(t *testing.T) {
	client, requests := newTestClient(t, map[string]func(http.ResponseWriter, map[string]any){
		removePath: func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, map[string]any{"removed": true})
		},
	})

	if err := client.RemoveConnection(context.Background(), "access-1"); err != nil {
		t.Fatalf("RemoveConnection() error = %v", err)
	}
	if (*requests)[0].body["access_token"] != "access-1" {
		t.Error("access token missing from revoke request")
	}
}
