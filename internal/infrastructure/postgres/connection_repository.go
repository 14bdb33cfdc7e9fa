package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgersync/internal/domain/connection"
	"ledgersync/internal/infrastructure/crypto"
)

const connectionColumns = `id, institution_id, item_id, access_token, institution_name,
		institution_logo, status, sync_cursor, last_synced_at, error_details,
		created_at, updated_at`

// ConnectionRepository stores connections with the access token encrypted
// at rest. Tokens are decrypted on read and never leave this package in
// ciphertext form.
type ConnectionRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

func NewConnectionRepository(db *DB, encryptor *crypto.Encryptor) *ConnectionRepository {
	return &ConnectionRepository{db: db, encryptor: encryptor}
}

var _ connection.Repository = (*ConnectionRepository)(nil)

func (r *ConnectionRepository) Create(ctx context.Context, params connection.CreateParams) (*connection.Connection, error) {
	encrypted, err := r.encryptor.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	query := `
		INSERT INTO bank_connections (id, institution_id, item_id, access_token, institution_name, institution_logo)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + connectionColumns

	row := r.db.QueryRowContext(ctx, query,
		uuid.New().String(), params.InstitutionID, params.ItemID,
		encrypted, params.InstitutionName, params.InstitutionLogo,
	)

	conn, err := r.scanConnection(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE id = $1`

	conn, err := r.scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, connection.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) GetByItemID(ctx context.Context, itemID string) (*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE item_id = $1`

	conn, err := r.scanConnection(r.db.QueryRowContext(ctx, query, itemID))
	if err == sql.ErrNoRows {
		return nil, connection.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection by item: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) List(ctx context.Context) ([]*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections ORDER BY created_at`
	return r.queryConnections(ctx, query)
}

func (r *ConnectionRepository) ListByStatus(ctx context.Context, status connection.Status) ([]*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE status = $1 ORDER BY created_at`
	return r.queryConnections(ctx, query, string(status))
}

func (r *ConnectionRepository) UpdateSyncState(ctx context.Context, id, cursor string, syncedAt time.Time) error {
	query := `
		UPDATE bank_connections
		SET sync_cursor = $2, last_synced_at = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, cursor, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return requireRow(result, connection.ErrConnectionNotFound)
}

func (r *ConnectionRepository) UpdateStatus(ctx context.Context, id string, status connection.Status, errorDetails *string) error {
	query := `
		UPDATE bank_connections
		SET status = $2, error_details = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, string(status), errorDetails)
	if err != nil {
		return fmt.Errorf("failed to update connection status: %w", err)
	}
	return requireRow(result, connection.ErrConnectionNotFound)
}

func (r *ConnectionRepository) UpdateAccessToken(ctx context.Context, id, accessToken string) error {
	encrypted, err := r.encryptor.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	query := `
		UPDATE bank_connections
		SET access_token = $2, status = 'connected', error_details = NULL, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, encrypted)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	return requireRow(result, connection.ErrConnectionNotFound)
}

func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bank_connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return requireRow(result, connection.ErrConnectionNotFound)
}

func (r *ConnectionRepository) queryConnections(ctx context.Context, query string, args ...any) ([]*connection.Connection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var conns []*connection.Connection
	for rows.Next() {
		conn, err := r.scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return conns, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *ConnectionRepository) scanConnection(row scanner) (*connection.Connection, error) {
	var conn connection.Connection
	var encrypted string
	var lastSyncedAt sql.NullTime
	var errorDetails sql.NullString

	err := row.Scan(
		&conn.ID, &conn.InstitutionID, &conn.ItemID, &encrypted,
		&conn.InstitutionName, &conn.InstitutionLogo, &conn.Status,
		&conn.SyncCursor, &lastSyncedAt, &errorDetails,
		&conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conn.AccessToken, err = r.encryptor.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	if lastSyncedAt.Valid {
		conn.LastSyncedAt = &lastSyncedAt.Time
	}
	if errorDetails.Valid {
		conn.ErrorDetails = &errorDetails.String
	}
	return &conn, nil
}

// requireRow converts a zero-row update into notFound.
func requireRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
