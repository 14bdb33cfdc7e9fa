package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ledgersync/internal/domain/account"
)

const accountColumns = `id, connection_id, account_id, name, official_name, account_type,
		subtype, mask, currency, current_balance, available_balance, enabled,
		created_at, updated_at`

type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ account.Repository = (*AccountRepository)(nil)

// CreateBatch inserts all accounts inside one transaction so a partial
// import never persists.
func (r *AccountRepository) CreateBatch(ctx context.Context, params []account.CreateParams) ([]*account.Account, error) {
	if len(params) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bank_accounts (id, connection_id, account_id, name, official_name,
			account_type, subtype, mask, currency, current_balance, available_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + accountColumns

	accounts := make([]*account.Account, 0, len(params))
	for _, p := range params {
		row := tx.QueryRowContext(ctx, query,
			uuid.New().String(), p.ConnectionID, p.AccountID, p.Name, p.OfficialName,
			string(p.Type), p.Subtype, p.Mask, p.Currency,
			nullDecimalValue(p.CurrentBalance), nullDecimalValue(p.AvailableBalance),
		)

		a, err := scanAccount(row)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return nil, fmt.Errorf("account %s: %w", p.AccountID, account.ErrDuplicateAccount)
			}
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE account_id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by external id: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) ListByConnectionID(ctx context.Context, connectionID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE connection_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) UpdateBalances(ctx context.Context, id string, current, available decimal.NullDecimal) error {
	query := `
		UPDATE bank_accounts
		SET current_balance = $2, available_balance = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, nullDecimalValue(current), nullDecimalValue(available))
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	return requireRow(result, account.ErrAccountNotFound)
}

func (r *AccountRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE bank_accounts SET enabled = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(result, account.ErrAccountNotFound)
}

func scanAccount(row scanner) (*account.Account, error) {
	var a account.Account
	var officialName, subtype, mask sql.NullString
	var current, available decimal.NullDecimal

	err := row.Scan(
		&a.ID, &a.ConnectionID, &a.AccountID, &a.Name, &officialName, &a.Type,
		&subtype, &mask, &a.Currency, &current, &available, &a.Enabled,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if officialName.Valid {
		a.OfficialName = &officialName.String
	}
	if subtype.Valid {
		a.Subtype = &subtype.String
	}
	if mask.Valid {
		a.Mask = &mask.String
	}
	a.CurrentBalance = current
	a.AvailableBalance = available
	return &a, nil
}

// nullDecimalValue renders a NullDecimal as a driver value, because lib/pq
// handles decimal.Decimal via its Valuer but not the NullDecimal wrapper on
// all paths we use.
func nullDecimalValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
