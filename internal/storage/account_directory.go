package storage

import (
	"context"
	"fmt"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
)

// AccountDirectory reads the fleet of known ledger accounts. The accounts
// table is owned by the identity service; this core only ever reads it.
type AccountDirectory struct {
	db *PostgresDB
}

// NewAccountDirectory creates a new account directory
func NewAccountDirectory(db *PostgresDB) *AccountDirectory {
	return &AccountDirectory{db: db}
}

// ListAccounts returns every account known to the directory, active or
// not. Callers filter on IsActive.
func (d *AccountDirectory) ListAccounts(ctx context.Context) ([]types.AccountDescriptor, error) {
	query := `
		SELECT hedera_account_id, is_active
		FROM accounts
		WHERE hedera_account_id IS NOT NULL
		ORDER BY hedera_account_id
	`

	rows, err := d.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.AccountDescriptor
	for rows.Next() {
		var acct types.AccountDescriptor
		if err := rows.Scan(&acct.AccountID, &acct.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}

	return accounts, nil
}
