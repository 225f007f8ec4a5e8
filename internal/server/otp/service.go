// Package otp implements the one-time-passcode gate. Every identity-proving
// transition (registration completion, login completion, password reset) must
// pass through Issue/Verify here before the orchestrator lets it proceed.
package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/dbx"
	"github.com/Vraj260105/Block-Vote/internal/server/config"
	"github.com/Vraj260105/Block-Vote/internal/server/models"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/repomanager"
)

// ReasonInvalidOrExpired is the one reason string verification failures carry.
// It deliberately does not distinguish wrong, expired, consumed, or absent
// codes, so callers cannot probe which identities exist.
const ReasonInvalidOrExpired = "invalid or expired code"

// IssueResult reports a freshly persisted passcode. Code is returned so the
// delivery collaborator (and tests) can see it; HTTP handlers must never
// echo it to clients.
type IssueResult struct {
	Code      string
	ExpiresAt time.Time
}

// Service issues, verifies, and sweeps one-time passcodes.
type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sender      Sender
	codeLength  int
	validity    time.Duration
	now         func() time.Time
}

// NewService constructs the passcode gate using repositories and server config.
func NewService(db *sql.DB, m repomanager.RepositoryManager, sender Sender, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		repomanager: m,
		sender:      sender,
		codeLength:  cfg.PasscodeLength,
		validity:    cfg.PasscodeValidityDuration,
		now:         time.Now,
	}
}

func validPurpose(purpose string) bool {
	switch purpose {
	case models.PurposeRegistration, models.PurposeLogin, models.PurposePasswordReset:
		return true
	}
	return false
}

// Issue generates a fixed-length numeric code for (email, purpose), atomically
// superseding any outstanding unused code for the same pair, and hands it to
// the delivery collaborator.
//
// Delivery failure does not undo persistence: the code stays retrievable for
// a resend, and the error returned wraps common.ErrorTransient alongside the
// populated IssueResult so callers can tell "code exists, delivery flaked"
// from a hard failure.
func (s *Service) Issue(ctx context.Context, email, purpose string) (*IssueResult, error) {
	if !validPurpose(purpose) {
		return nil, fmt.Errorf("%w: unknown passcode purpose %q", common.ErrorValidation, purpose)
	}

	code, err := common.MakeRandNumericCode(s.codeLength)
	if err != nil {
		return nil, common.ErrorInternal
	}

	expiresAt := s.now().Add(s.validity)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Passcodes(tx)
		if err := repo.InvalidateOutstanding(ctx, email, purpose); err != nil {
			return err
		}
		_, err := repo.Create(ctx, &models.Passcode{
			Email:     email,
			Purpose:   purpose,
			Code:      code,
			ExpiresAt: expiresAt,
		})
		return err
	})
	if err != nil {
		return nil, common.ErrorInternal
	}

	result := &IssueResult{Code: code, ExpiresAt: expiresAt}

	if err := s.sender.Send(ctx, email, code, purpose); err != nil {
		return result, fmt.Errorf("%w: passcode delivery: %v", common.ErrorTransient, err)
	}

	return result, nil
}

// Verify consumes the newest unused, unexpired passcode matching the
// arguments. It is single-use: a replayed correct code fails after the first
// success. Any miss reports valid=false with ReasonInvalidOrExpired and no
// further detail.
func (s *Service) Verify(ctx context.Context, email, purpose, code string) (bool, error) {
	if !validPurpose(purpose) || len(code) != s.codeLength {
		return false, nil
	}

	repo := s.repomanager.Passcodes(s.db)
	err := repo.Consume(ctx, email, purpose, code, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, common.ErrorInternal
	}

	return true, nil
}

// SweepExpired deletes passcodes past expiry and returns how many were
// removed. Idempotent; safe to run on a timer alongside live traffic.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	repo := s.repomanager.Passcodes(s.db)
	count, err := repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, common.ErrorInternal
	}
	return count, nil
}
