package provider

import "fmt"

// Error codes reported by the aggregation API that need special handling.
const (
	CodeItemLoginRequired   = "ITEM_LOGIN_REQUIRED"
	CodeItemLocked          = "ITEM_LOCKED"
	CodeAccessNotGranted    = "ACCESS_NOT_GRANTED"
	CodeProductNotReady     = "PRODUCT_NOT_READY"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Error is a structured error returned by the aggregation API.
type Error struct {
	Type       string
	Code       string
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (status %d): %s - %s", e.HTTPStatus, e.Code, e.Message)
}

// Retryable reports whether the caller may retry the request after a delay.
// Covers rate limiting, transient provider failures and freshly linked items
// whose transaction history is still being indexed.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeProductNotReady, CodeRateLimitExceeded, CodeInternalServerError:
		return true
	}
	return false
}

// ReauthRequired reports whether the item needs the user to re-link.
// Terminal for automated sync: the connection must be flagged for user action.
func (e *Error) ReauthRequired() bool {
	switch e.Code {
	case CodeItemLoginRequired, CodeItemLocked, CodeAccessNotGranted:
		return true
	}
	return false
}
