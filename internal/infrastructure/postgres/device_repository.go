package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ledgersync/internal/domain/notification"
)

type DeviceRepository struct {
	db *DB
}

func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

var _ notification.DeviceRepository = (*DeviceRepository)(nil)

// Register stores a device token, refreshing the platform when the token
// is already known.
func (r *DeviceRepository) Register(ctx context.Context, params notification.RegisterDeviceParams) (*notification.Device, error) {
	query := `
		INSERT INTO devices (id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET platform = EXCLUDED.platform
		RETURNING id, token, platform, created_at
	`

	var d notification.Device
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), params.Token, params.Platform).Scan(
		&d.ID, &d.Token, &d.Platform, &d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return &d, nil
}

func (r *DeviceRepository) ListTokens(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM devices ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}
	return tokens, nil
}

func (r *DeviceRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return nil
}
