package notification

import "context"

// DeviceRepository persists push notification targets.
type DeviceRepository interface {
	Register(ctx context.Context, params RegisterDeviceParams) (*Device, error)
	ListTokens(ctx context.Context) ([]string, error)
	// DeleteByToken drops a registration, typically after the push service
	// reports the token dead.
	DeleteByToken(ctx context.Context, token string) error
}
