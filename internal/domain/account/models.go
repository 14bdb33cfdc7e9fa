// Package account models one balance-bearing financial account under a
// connection.
package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound is returned when an account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when a bulk insert hits an external
	// identifier that already exists. This is a data-integrity bug in the
	// caller, not a recoverable condition.
	ErrDuplicateAccount = errors.New("account with this external identifier already exists")
)

// Type is the closed account type enum. Provider types outside this set
// map to TypeOther at ingestion.
type Type string

const (
	TypeDepository Type = "depository"
	TypeCredit     Type = "credit"
	TypeLoan       Type = "loan"
	TypeInvestment Type = "investment"
	TypeOther      Type = "other"
)

// Account is one financial account under a connection. AccountID is the
// provider's globally unique identifier; ID is ours.
type Account struct {
	ID               string              `json:"id"`
	ConnectionID     string              `json:"connectionId"`
	AccountID        string              `json:"accountId"`
	Name             string              `json:"name"`
	OfficialName     *string             `json:"officialName,omitempty"`
	Type             Type                `json:"type"`
	Subtype          *string             `json:"subtype,omitempty"`
	Mask             *string             `json:"mask,omitempty"`
	Currency         string              `json:"currency"`
	CurrentBalance   decimal.NullDecimal `json:"currentBalance"`
	AvailableBalance decimal.NullDecimal `json:"availableBalance"`
	// Enabled accounts participate in sync; the flag is a user-facing
	// control toggled outside the reconciliation flow.
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateParams holds the fields persisted when accounts are bulk-created
// for a newly established connection.
type CreateParams struct {
	ConnectionID     string
	AccountID        string
	Name             string
	OfficialName     *string
	Type             Type
	Subtype          *string
	Mask             *string
	Currency         string
	CurrentBalance   decimal.NullDecimal
	AvailableBalance decimal.NullDecimal
}
