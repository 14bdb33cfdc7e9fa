// Package sync reconciles provider data into the local store: a pure
// transform layer plus the orchestration service that runs sync passes.
package sync

import (
	"fmt"
	"strings"
	"time"

	"ledgersync/internal/domain/account"
	"ledgersync/internal/domain/transaction"
	"ledgersync/internal/infrastructure/provider"
)

// accountTypes is the closed enum; anything else maps to other.
var accountTypes = map[string]account.Type{
	"depository": account.TypeDepository,
	"credit":     account.TypeCredit,
	"loan":       account.TypeLoan,
	"investment": account.TypeInvestment,
	"other":      account.TypeOther,
}

// channelMethods maps the provider's payment-channel field. Checked first.
var channelMethods = map[string]transaction.Method{
	"in store": transaction.MethodCardPurchase,
	"online":   transaction.MethodPayment,
}

// typeMethods maps the provider's transaction-type field. Checked second.
var typeMethods = map[string]transaction.Method{
	"place":   transaction.MethodCardPurchase,
	"digital": transaction.MethodPayment,
	"special": transaction.MethodTransfer,
}

// categoryMethods maps the structured category primary. Checked third.
var categoryMethods = map[string]transaction.Method{
	"TRANSFER_IN":   transaction.MethodTransfer,
	"TRANSFER_OUT":  transaction.MethodTransfer,
	"LOAN_PAYMENTS": transaction.MethodPayment,
	"BANK_FEES":     transaction.MethodFee,
	"INCOME":        transaction.MethodDeposit,
}

// categories maps the provider's structured primary category to the
// internal vocabulary. Unrecognized categories pass through lower-cased.
var categories = map[string]string{
	"INCOME":                    "income",
	"TRANSFER_IN":               "transfer",
	"TRANSFER_OUT":              "transfer",
	"LOAN_PAYMENTS":             "loans",
	"BANK_FEES":                 "fees",
	"ENTERTAINMENT":             "entertainment",
	"FOOD_AND_DRINK":            "food",
	"GENERAL_MERCHANDISE":       "shopping",
	"HOME_IMPROVEMENT":          "home",
	"MEDICAL":                   "health",
	"PERSONAL_CARE":             "personal",
	"GENERAL_SERVICES":          "services",
	"GOVERNMENT_AND_NON_PROFIT": "government",
	"TRANSPORTATION":            "transport",
	"TRAVEL":                    "travel",
	"RENT_AND_UTILITIES":        "utilities",
}

// MapAccountType maps a provider account type string to the closed enum.
// Unrecognized types default to other, never fail.
func MapAccountType(providerType string) account.Type {
	if t, ok := accountTypes[strings.ToLower(providerType)]; ok {
		return t
	}
	return account.TypeOther
}

// MapAccount maps a provider account record into creation parameters for
// the given connection. Balances and currency pass through unchanged.
func MapAccount(connectionID string, a provider.Account) account.CreateParams {
	params := account.CreateParams{
		ConnectionID: connectionID,
		AccountID:    a.AccountID,
		Name:         a.Name,
		OfficialName: a.OfficialName,
		Type:         MapAccountType(a.Type),
		Subtype:      a.Subtype,
		Mask:         a.Mask,
		Currency:     a.Balances.CurrencyCode,
	}
	if a.Balances.Current != nil {
		params.CurrentBalance.Valid = true
		params.CurrentBalance.Decimal = *a.Balances.Current
	}
	if a.Balances.Available != nil {
		params.AvailableBalance.Valid = true
		params.AvailableBalance.Decimal = *a.Balances.Available
	}
	return params
}

// ClassifyMethod derives the transaction method by priority: payment
// channel, then transaction type, then structured category, then other.
func ClassifyMethod(paymentChannel, transactionType string, category *provider.Category) transaction.Method {
	if m, ok := channelMethods[strings.ToLower(paymentChannel)]; ok {
		return m
	}
	if m, ok := typeMethods[strings.ToLower(transactionType)]; ok {
		return m
	}
	if category != nil {
		if m, ok := categoryMethods[category.Primary]; ok {
			return m
		}
	}
	return transaction.MethodOther
}

// NormalizeCategory maps the structured category to the internal
// vocabulary and preserves the provider-native detailed category.
// An uncategorized transaction yields nil, not an error.
func NormalizeCategory(category *provider.Category) (normalized, detailed *string) {
	if category == nil || category.Primary == "" {
		return nil, nil
	}

	name, ok := categories[category.Primary]
	if !ok {
		name = strings.ToLower(category.Primary)
	}
	normalized = &name

	if category.Detailed != "" {
		d := category.Detailed
		detailed = &d
	}
	return normalized, detailed
}

// ResolveDescription prefers the provider's raw original description,
// falls back to the merchant name, then nil. The generic transaction name
// is preserved separately and never used here.
func ResolveDescription(original, merchant *string) *string {
	if original != nil && *original != "" {
		return original
	}
	if merchant != nil && *merchant != "" {
		return merchant
	}
	return nil
}

// MapTransaction maps a provider transaction into upsert parameters for
// the given internal account. The amount sign is inverted: the provider
// reports positive = outflow, canonically positive = inflow.
func MapTransaction(internalAccountID string, t provider.Transaction) (transaction.UpsertParams, error) {
	date, err := time.Parse("2006-01-02", t.Date)
	if err != nil {
		return transaction.UpsertParams{}, fmt.Errorf("failed to parse date %q: %w", t.Date, err)
	}

	category, detailed := NormalizeCategory(t.Category)

	status := transaction.StatusPosted
	if t.Pending {
		status = transaction.StatusPending
	}

	return transaction.UpsertParams{
		AccountID:        internalAccountID,
		TransactionID:    t.TransactionID,
		Date:             date,
		Name:             t.Name,
		Description:      ResolveDescription(t.OriginalDescription, t.MerchantName),
		MerchantName:     t.MerchantName,
		Amount:           t.Amount.Neg(),
		Currency:         t.CurrencyCode,
		Category:         category,
		DetailedCategory: detailed,
		Method:           ClassifyMethod(t.PaymentChannel, t.TransactionType, t.Category),
		Status:           status,
	}, nil
}
