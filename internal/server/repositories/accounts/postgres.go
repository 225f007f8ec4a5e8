// Package accounts provides a PostgreSQL-backed repository for identity
// accounts: the off-chain records that passwords, verification flags, and
// wallet bindings hang off.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/dbx"
	"github.com/Vraj260105/Block-Vote/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (email, password_hash)
         VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash).Scan(&account.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, accountID string) (*models.Account, error) {
	query :=
		`SELECT id, email, password_hash, verified, bound_wallet, active FROM accounts
		 WHERE id = $1
		 `

	return r.scanAccount(r.db.QueryRowContext(ctx, query, accountID))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query :=
		`SELECT id, email, password_hash, verified, bound_wallet, active FROM accounts
		 WHERE email = $1
		 `

	return r.scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByWallet(ctx context.Context, address string) (*models.Account, error) {
	query :=
		`SELECT id, email, password_hash, verified, bound_wallet, active FROM accounts
		 WHERE bound_wallet = $1
		 `

	return r.scanAccount(r.db.QueryRowContext(ctx, query, address))
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, accountID string) error {
	query :=
		`UPDATE accounts SET verified = true, updated_at = now()
		 WHERE id = $1
		 `

	return r.execExpectingRow(ctx, query, accountID)
}

func (r *PostgresRepository) UpdateBoundWallet(ctx context.Context, accountID string, address string) error {
	query :=
		`UPDATE accounts SET bound_wallet = NULLIF($2, ''), updated_at = now()
		 WHERE id = $1
		 `

	return r.execExpectingRow(ctx, query, accountID, address)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, accountID string, passwordHash []byte) error {
	query :=
		`UPDATE accounts SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `

	return r.execExpectingRow(ctx, query, accountID, passwordHash)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, accountID string) error {
	query :=
		`UPDATE accounts SET active = false, updated_at = now()
		 WHERE id = $1
		 `

	return r.execExpectingRow(ctx, query, accountID)
}

func (r *PostgresRepository) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var wallet sql.NullString

	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash,
		&account.Verified, &wallet, &account.Active)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.BoundWallet = wallet.String
	return account, nil
}

func (r *PostgresRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
