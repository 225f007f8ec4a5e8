// Package passcodes provides a PostgreSQL-backed repository for one-time
// passcodes used in the identity-proving flows.
package passcodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"database/sql"

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

func (r *PostgresRepository) Create(ctx context.Context, passcode *models.Passcode) (*models.Passcode, error) {

	query :=
		`INSERT INTO passcodes (email, purpose, code, expires_at)
         VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		passcode.Email, passcode.Purpose, passcode.Code, passcode.ExpiresAt).Scan(&passcode.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return passcode, nil
}

func (r *PostgresRepository) InvalidateOutstanding(ctx context.Context, email, purpose string) error {
	query :=
		`UPDATE passcodes SET used = true
		 WHERE email = $1 AND purpose = $2 AND NOT used
		 `

	if _, err := r.db.ExecContext(ctx, query, email, purpose); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume is a single UPDATE so two concurrent verifications of the same code
// cannot both succeed.
func (r *PostgresRepository) Consume(ctx context.Context, email, purpose, code string, now time.Time) error {
	query :=
		`UPDATE passcodes SET used = true
		 WHERE id = (
		     SELECT id FROM passcodes
		     WHERE email = $1 AND purpose = $2 AND code = $3
		       AND NOT used AND expires_at > $4
		     ORDER BY created_at DESC
		     LIMIT 1
		 )
		 RETURNING id
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query, email, purpose, code, now).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`DELETE FROM passcodes
		 WHERE expires_at <= $1
		 `

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return affected, nil
}
