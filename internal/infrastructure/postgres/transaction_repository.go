package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"ledgersync/internal/domain/transaction"
)

const transactionColumns = `id, account_id, transaction_id, transaction_date, name, description,
		merchant_name, amount, currency, category, detailed_category, method,
		status, created_at, updated_at`

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

var _ transaction.Repository = (*TransactionRepository)(nil)

// Upsert inserts or updates in one statement keyed on the provider's
// transaction identifier. An update leaves id, account_id and created_at
// untouched, so a pending transaction settling to posted keeps its row.
func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	query := `
		INSERT INTO transactions (id, account_id, transaction_id, transaction_date, name,
			description, merchant_name, amount, currency, category, detailed_category,
			method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (transaction_id) DO UPDATE SET
			transaction_date = EXCLUDED.transaction_date,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			merchant_name = EXCLUDED.merchant_name,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			category = EXCLUDED.category,
			detailed_category = EXCLUDED.detailed_category,
			method = EXCLUDED.method,
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING ` + transactionColumns

	row := r.db.QueryRowContext(ctx, query,
		uuid.New().String(), params.AccountID, params.TransactionID, params.Date,
		params.Name, params.Description, params.MerchantName, params.Amount.String(),
		params.Currency, params.Category, params.DetailedCategory,
		string(params.Method), string(params.Status),
	)

	t, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID string, limit int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func (r *TransactionRepository) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, externalID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func scanTransaction(row scanner) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var description, merchantName, category, detailedCategory sql.NullString

	err := row.Scan(
		&t.ID, &t.AccountID, &t.TransactionID, &t.Date, &t.Name, &description,
		&merchantName, &t.Amount, &t.Currency, &category, &detailedCategory,
		&t.Method, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	if merchantName.Valid {
		t.MerchantName = &merchantName.String
	}
	if category.Valid {
		t.Category = &category.String
	}
	if detailedCategory.Valid {
		t.DetailedCategory = &detailedCategory.String
	}
	return &t, nil
}
