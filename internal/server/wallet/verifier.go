// Package wallet implements the wallet binding verifier: the single gate
// deciding whether a presented wallet address may act as a given identity
// on the voting ledger.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/dbx"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/repomanager"
)

var (
	// ErrInvalidAddress marks a syntactically malformed wallet address.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrAlreadyBoundElsewhere marks an address already held by another account.
	ErrAlreadyBoundElsewhere = errors.New("wallet address already bound to another account")
)

// Status reports whether an identity has a bound wallet. Address is the
// stored (full) value; redaction for third parties happens at the
// presentation boundary, never here.
type Status struct {
	HasWallet bool
	Address   string
}

// MatchResult is the outcome of comparing a presented address against the
// identity's stored binding.
type MatchResult struct {
	IsValid           bool
	IsMatching        bool
	NeedsRegistration bool
	Message           string
}

// Service checks and records wallet bindings.
type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewService constructs a wallet binding verifier over the account store.
func NewService(db *sql.DB, m repomanager.RepositoryManager) *Service {
	return &Service{db: db, repomanager: m}
}

// NormalizeAddress validates that s is a 20-byte hex wallet address and
// returns it in lowercase hex form.
func NormalizeAddress(s string) (string, error) {
	if !ethcommon.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(ethcommon.HexToAddress(s).Hex()), nil
}

// Status reports the identity's current binding.
func (s *Service) Status(ctx context.Context, email string) (*Status, error) {
	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	return &Status{
		HasWallet: account.BoundWallet != "",
		Address:   account.BoundWallet,
	}, nil
}

// Bind records address as the identity's bound wallet. Re-binding the same
// address to the same identity is a no-op; an address held by any other
// account fails with ErrAlreadyBoundElsewhere. The uniqueness check and the
// update run in one transaction; the partial unique index underneath settles
// the race where two transactions pass the check concurrently, and that
// violation surfaces as ErrAlreadyBoundElsewhere too.
func (s *Service) Bind(ctx context.Context, email, address string) error {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return common.ErrorInternal
		}

		if account.BoundWallet == normalized {
			return nil
		}

		holder, err := repo.GetByWallet(ctx, normalized)
		if err == nil && holder.ID != account.ID {
			return ErrAlreadyBoundElsewhere
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return common.ErrorInternal
		}

		if err := repo.UpdateBoundWallet(ctx, account.ID, normalized); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyBoundElsewhere
			}
			return common.ErrorInternal
		}
		return nil
	})
}

// isUniqueViolation reports whether err is a postgres unique-index violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// VerifyMatch decides whether presentedAddress may act as the identity.
// It fails fast on a malformed address, reports NeedsRegistration when the
// identity has no binding, and otherwise compares case-insensitively.
// Every ledger-facing action re-runs this check immediately before the
// ledger call.
func (s *Service) VerifyMatch(ctx context.Context, email, presentedAddress string) (*MatchResult, error) {
	normalized, err := NormalizeAddress(presentedAddress)
	if err != nil {
		return &MatchResult{
			IsValid: false,
			Message: "invalid wallet address format",
		}, nil
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if account.BoundWallet == "" {
		return &MatchResult{
			IsValid:           true,
			NeedsRegistration: true,
			Message:           "no wallet is bound to this account",
		}, nil
	}

	if strings.EqualFold(account.BoundWallet, normalized) {
		return &MatchResult{IsValid: true, IsMatching: true}, nil
	}

	return &MatchResult{
		IsValid: true,
		Message: "connected wallet does not match the bound wallet",
	}, nil
}

// Unbind clears the identity's bound wallet. Only the owning identity may
// unbind; the orchestrator enforces that the session identity equals email.
func (s *Service) Unbind(ctx context.Context, email string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return common.ErrorInternal
		}

		if account.BoundWallet == "" {
			return nil
		}

		if err := repo.UpdateBoundWallet(ctx, account.ID, ""); err != nil {
			return common.ErrorInternal
		}
		return nil
	})
}
