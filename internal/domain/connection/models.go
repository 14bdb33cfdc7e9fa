// Package connection models one linked financial institution session.
package connection

import (
	"errors"
	"time"
)

// ErrConnectionNotFound is returned when a connection does not exist.
var ErrConnectionNotFound = errors.New("connection not found")

// Status is the connection lifecycle state.
type Status string

const (
	// StatusConnected means automated sync is allowed.
	StatusConnected Status = "connected"
	// StatusDisconnected means the provider requires the user to re-link.
	StatusDisconnected Status = "disconnected"
)

// Connection holds the long-lived access credential for one linked
// institution. The credential is decrypted only in memory and never
// serialized to API responses.
type Connection struct {
	ID              string     `json:"id"`
	InstitutionID   string     `json:"institutionId"`
	ItemID          string     `json:"itemId"`
	AccessToken     string     `json:"-"`
	InstitutionName string     `json:"institutionName"`
	InstitutionLogo string     `json:"institutionLogo,omitempty"`
	Status          Status     `json:"status"`
	SyncCursor      string     `json:"-"`
	LastSyncedAt    *time.Time `json:"lastSyncedAt,omitempty"`
	ErrorDetails    *string    `json:"errorDetails,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CreateParams holds the fields persisted when a connection is first
// established after a successful token exchange.
type CreateParams struct {
	InstitutionID   string
	ItemID          string
	AccessToken     string
	InstitutionName string
	InstitutionLogo string
}
