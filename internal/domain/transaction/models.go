// Package transaction models one ledger entry under an account.
// Canonical sign convention: positive = inflow, negative = outflow,
// inverted from the provider's convention at ingestion time.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method classifies how a transaction moved money.
type Method string

const (
	MethodPayment      Method = "payment"
	MethodCardPurchase Method = "card_purchase"
	MethodCardPayment  Method = "card_payment"
	MethodTransfer     Method = "transfer"
	MethodACH          Method = "ach"
	MethodWire         Method = "wire"
	MethodATM          Method = "atm"
	MethodFee          Method = "fee"
	MethodInterest     Method = "interest"
	MethodDeposit      Method = "deposit"
	MethodWithdrawal   Method = "withdrawal"
	MethodOther        Method = "other"
)

// Status is the settlement state of a transaction.
type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
)

// Transaction is one canonical ledger entry. TransactionID is the
// provider's globally unique identifier; ID is ours and survives
// update-in-place when the same external identifier reappears.
type Transaction struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"accountId"`
	TransactionID    string          `json:"transactionId"`
	Date             time.Time       `json:"date"`
	Name             string          `json:"name"`
	Description      *string         `json:"description,omitempty"`
	MerchantName     *string         `json:"merchantName,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Category         *string         `json:"category,omitempty"`
	DetailedCategory *string         `json:"detailedCategory,omitempty"`
	Method           Method          `json:"method"`
	Status           Status          `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// UpsertParams carries the mutable fields of a synced transaction.
// The internal identifier and account foreign key are preserved when the
// row already exists.
type UpsertParams struct {
	AccountID        string
	TransactionID    string
	Date             time.Time
	Name             string
	Description      *string
	MerchantName     *string
	Amount           decimal.Decimal
	Currency         string
	Category         *string
	DetailedCategory *string
	Method           Method
	Status           Status
}
