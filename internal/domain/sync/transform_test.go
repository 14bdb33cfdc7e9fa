package sync

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledgersync/internal/domain/account"
	"ledgersync/internal/domain/transaction"
	"ledgersync/internal/infrastructure/provider"
)

func strPtr(s string) *string { return &s }

func TestMapAccountType(t *testing.T) {
	tests := []struct {
		name         string
		providerType string
		want         account.Type
	}{
		{"depository", "depository", account.TypeDepository},
		{"credit", "credit", account.TypeCredit},
		{"loan", "loan", account.TypeLoan},
		{"investment", "investment", account.TypeInvestment},
		{"other", "other", account.TypeOther},
		{"uppercase", "DEPOSITORY", account.TypeDepository},
		{"unknown maps to other", "brokerage", account.TypeOther},
		{"empty maps to other", "", account.TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapAccountType(tt.providerType); got != tt.want {
				t.Errorf("MapAccountType(%q) = %q, want %q", tt.providerType, got, tt.want)
			}
		})
	}
}

func TestMapTransaction_SignInversion(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"outflow becomes negative", "42.50", "-42.5"},
		{"inflow becomes positive", "-1250.00", "1250"},
		{"zero stays zero", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := MapTransaction("acc-1", provider.Transaction{
				TransactionID: "txn-1",
				AccountID:     "ext-1",
				Date:          "2025-03-14",
				Name:          "Coffee Shop",
				Amount:        decimal.RequireFromString(tt.amount),
			})
			if err != nil {
				t.Fatalf("MapTransaction() error = %v", err)
			}
			if params.Amount.String() != tt.want {
				t.Errorf("Amount = %s, want %s", params.Amount.String(), tt.want)
			}
		})
	}
}

func TestMapTransaction_StatusMapping(t *testing.T) {
	pending, err := MapTransaction("acc-1", provider.Transaction{
		TransactionID: "t1",
		Date:          "2025-03-14",
		Pending:       true,
	})
	if err != nil {
		t.Fatalf("MapTransaction() error = %v", err)
	}
	if pending.Status != transaction.StatusPending {
		t.Errorf("Status = %q, want pending", pending.Status)
	}

	posted, err := MapTransaction("acc-1", provider.Transaction{
		TransactionID: "t2",
		Date:          "2025-03-14",
		Pending:       false,
	})
	if err != nil {
		t.Fatalf("MapTransaction() error = %v", err)
	}
	if posted.Status != transaction.StatusPosted {
		t.Errorf("Status = %q, want posted", posted.Status)
	}
}

func TestMapTransaction_InvalidDate(t *testing.T) {
	_, err := MapTransaction("acc-1", provider.Transaction{
		TransactionID: "t1",
		Date:          "03/14/2025",
	})
	if err == nil {
		t.Error("expected error for invalid date format")
	}
}

func TestClassifyMethod_Priority(t *testing.T) {
	tests := []struct {
		name            string
		paymentChannel  string
		transactionType string
		category        *provider.Category
		want            transaction.Method
	}{
		{
			name:           "in store channel wins",
			paymentChannel: "in store",
			want:           transaction.MethodCardPurchase,
		},
		{
			name:           "online channel wins",
			paymentChannel: "online",
			want:           transaction.MethodPayment,
		},
		{
			name:            "channel beats type",
			paymentChannel:  "in store",
			transactionType: "special",
			want:            transaction.MethodCardPurchase,
		},
		{
			name:            "type used when channel unknown",
			paymentChannel:  "other",
			transactionType: "special",
			want:            transaction.MethodTransfer,
		},
		{
			name:            "type beats category",
			paymentChannel:  "other",
			transactionType: "digital",
			category:        &provider.Category{Primary: "BANK_FEES"},
			want:            transaction.MethodPayment,
		},
		{
			name:           "category used when channel and type unknown",
			paymentChannel: "other",
			category:       &provider.Category{Primary: "TRANSFER_OUT"},
			want:           transaction.MethodTransfer,
		},
		{
			name:           "fee category",
			paymentChannel: "other",
			category:       &provider.Category{Primary: "BANK_FEES"},
			want:           transaction.MethodFee,
		},
		{
			name:           "income category maps to deposit",
			paymentChannel: "other",
			category:       &provider.Category{Primary: "INCOME"},
			want:           transaction.MethodDeposit,
		},
		{
			name: "nothing matches defaults to other",
			want: transaction.MethodOther,
		},
		{
			name:           "unmapped category defaults to other",
			paymentChannel: "other",
			category:       &provider.Category{Primary: "ENTERTAINMENT"},
			want:           transaction.MethodOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMethod(tt.paymentChannel, tt.transactionType, tt.category)
			if got != tt.want {
				t.Errorf("ClassifyMethod() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		name         string
		category     *provider.Category
		want         *string
		wantDetailed *string
	}{
		{
			name: "uncategorized yields nil",
		},
		{
			name:     "empty primary yields nil",
			category: &provider.Category{},
		},
		{
			name:         "known category maps to vocabulary",
			category:     &provider.Category{Primary: "FOOD_AND_DRINK", Detailed: "FOOD_AND_DRINK_COFFEE"},
			want:         strPtr("food"),
			wantDetailed: strPtr("FOOD_AND_DRINK_COFFEE"),
		},
		{
			name:     "transfer in and out collapse",
			category: &provider.Category{Primary: "TRANSFER_IN"},
			want:     strPtr("transfer"),
		},
		{
			name:     "unknown category passes through lowercase",
			category: &provider.Category{Primary: "CRYPTO_EXCHANGES"},
			want:     strPtr("crypto_exchanges"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotDetailed := NormalizeCategory(tt.category)
			if !equalStrPtr(got, tt.want) {
				t.Errorf("normalized = %v, want %v", deref(got), deref(tt.want))
			}
			if !equalStrPtr(gotDetailed, tt.wantDetailed) {
				t.Errorf("detailed = %v, want %v", deref(gotDetailed), deref(tt.wantDetailed))
			}
		})
	}
}

func TestResolveDescription(t *testing.T) {
	tests := []struct {
		name     string
		original *string
		merchant *string
		want     *string
	}{
		{"original preferred", strPtr("POS DEBIT 1234"), strPtr("Coffee Shop"), strPtr("POS DEBIT 1234")},
		{"merchant fallback", nil, strPtr("Coffee Shop"), strPtr("Coffee Shop")},
		{"empty original falls back", strPtr(""), strPtr("Coffee Shop"), strPtr("Coffee Shop")},
		{"both absent yields nil", nil, nil, nil},
		{"both empty yields nil", strPtr(""), strPtr(""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDescription(tt.original, tt.merchant); !equalStrPtr(got, tt.want) {
				t.Errorf("ResolveDescription() = %v, want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func TestMapAccount(t *testing.T) {
	current := decimal.RequireFromString("1500.25")
	available := decimal.RequireFromString("1400.00")

	params := MapAccount("conn-1", provider.Account{
		AccountID:    "ext-acc-1",
		Name:         "Checking",
		OfficialName: strPtr("Premier Checking"),
		Mask:         strPtr("4321"),
		Type:         "depository",
		Subtype:      strPtr("checking"),
		Balances: provider.Balances{
			Current:      &current,
			Available:    &available,
			CurrencyCode: "USD",
		},
	})

	if params.ConnectionID != "conn-1" || params.AccountID != "ext-acc-1" {
		t.Errorf("identity fields wrong: %+v", params)
	}
	if params.Type != account.TypeDepository {
		t.Errorf("Type = %q, want depository", params.Type)
	}
	if !params.CurrentBalance.Valid || !params.CurrentBalance.Decimal.Equal(current) {
		t.Errorf("CurrentBalance = %+v, want %s", params.CurrentBalance, current)
	}
	if !params.AvailableBalance.Valid || !params.AvailableBalance.Decimal.Equal(available) {
		t.Errorf("AvailableBalance = %+v, want %s", params.AvailableBalance, available)
	}

	// Null balances stay null
	empty := MapAccount("conn-1", provider.Account{AccountID: "ext-acc-2", Type: "credit"})
	if empty.CurrentBalance.Valid || empty.AvailableBalance.Valid {
		t.Errorf("expected null balances, got %+v", empty)
	}
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
