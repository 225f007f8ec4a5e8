package passcodes

import (
	"context"
	"time"

	"github.com/Vraj260105/Block-Vote/internal/server/models"
)

// Repository is the persistence contract for one-time passcodes.
type Repository interface {
	Create(ctx context.Context, passcode *models.Passcode) (*models.Passcode, error)
	// InvalidateOutstanding marks every unused passcode for (email, purpose)
	// as used, so a freshly issued code is the only live one.
	InvalidateOutstanding(ctx context.Context, email, purpose string) error
	// Consume atomically marks the newest matching unused, unexpired passcode
	// as used. It returns common.ErrorNotFound when nothing matches, without
	// distinguishing wrong, expired, or already-used codes.
	Consume(ctx context.Context, email, purpose, code string, now time.Time) error
	// DeleteExpired removes passcodes past their expiry and reports how many
	// rows went away. Safe to run concurrently; idempotent.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
