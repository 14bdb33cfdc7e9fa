// Package notification delivers connection lifecycle alerts to registered
// devices.
package notification

import "time"

// Device is one push notification target.
type Device struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterDeviceParams carries a device registration. Re-registering an
// existing token is a no-op refresh, not an error.
type RegisterDeviceParams struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
