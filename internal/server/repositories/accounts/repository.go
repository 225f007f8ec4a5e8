package accounts

import (
	"context"

	"github.com/Vraj260105/Block-Vote/internal/server/models"
)

// Repository is the persistence contract for identity accounts. Lookups
// return common.ErrorNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, accountID string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByWallet(ctx context.Context, address string) (*models.Account, error)
	MarkVerified(ctx context.Context, accountID string) error
	// UpdateBoundWallet sets the account's bound wallet address;
	// an empty address clears the binding.
	UpdateBoundWallet(ctx context.Context, accountID string, address string) error
	UpdatePassword(ctx context.Context, accountID string, passwordHash []byte) error
	Deactivate(ctx context.Context, accountID string) error
}
