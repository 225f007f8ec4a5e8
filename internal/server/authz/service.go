// Package authz is the authorization orchestrator. It owns the account
// lifecycle (registration, login, password reset), session tokens, wallet
// binding, and the identity checks that gate every ledger-facing action.
package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/bcrypt"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/dbx"
	"github.com/Vraj260105/Block-Vote/internal/logging"
	"github.com/Vraj260105/Block-Vote/internal/server/audit"
	"github.com/Vraj260105/Block-Vote/internal/server/auth"
	"github.com/Vraj260105/Block-Vote/internal/server/config"
	"github.com/Vraj260105/Block-Vote/internal/server/ledger"
	"github.com/Vraj260105/Block-Vote/internal/server/models"
	"github.com/Vraj260105/Block-Vote/internal/server/otp"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/repomanager"
	"github.com/Vraj260105/Block-Vote/internal/server/wallet"
)

const minPasswordLength = 8

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service composes the identity store, the passcode service, the wallet
// binding service, and the ledger. All enumeration-sensitive operations
// answer identically whether or not the account exists.
type Service struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	otp                          *otp.Service
	wallet                       *wallet.Service
	ledger                       ledger.Ledger
	auditor                      *audit.Auditor
	logger                       logging.Logger
	ownerAddress                 ethcommon.Address
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	allowSelfRegistration        bool
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, otpService *otp.Service,
	walletService *wallet.Service, l ledger.Ledger, auditor *audit.Auditor,
	logger logging.Logger, ownerAddress ethcommon.Address, cfg *config.Config) *Service {
	return &Service{
		db:                           db,
		repomanager:                  m,
		otp:                          otpService,
		wallet:                       walletService,
		ledger:                       l,
		auditor:                      auditor,
		logger:                       logger.With("module", "authz"),
		ownerAddress:                 ownerAddress,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		allowSelfRegistration:        cfg.AllowSelfRegistration,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return "", common.ErrorValidation
	}
	return email, nil
}

// Register creates an unverified account and sends a registration passcode.
// Registering an email that already holds an unverified account re-sends the
// passcode, superseding any outstanding one, so a lost or expired code never
// strands the signup. A verified email gets the same nil result with nothing
// sent; account existence stays undisclosed either way.
func (s *Service) Register(ctx context.Context, email, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return common.ErrorValidation
	}
	if len(password) < minPasswordLength {
		return common.ErrorValidation
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByEmail(ctx, email)
	if err == nil {
		if !account.Verified && account.Active {
			if _, err := s.otp.Issue(ctx, email, models.PurposeRegistration); err != nil {
				s.logger.Error(ctx, "registration passcode delivery failed", "error", err)
				return common.ErrorTransient
			}
			s.auditor.Emit(ctx, email, "register", audit.OutcomeSuccess,
				map[string]string{"detail": "passcode reissued"})
			return nil
		}
		s.auditor.Emit(ctx, email, "register", audit.OutcomeDenied,
			map[string]string{"reason": "email taken"})
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return common.ErrorInternal
	}

	if _, err := repo.Create(ctx, &models.Account{Email: email, PasswordHash: hash}); err != nil {
		return common.ErrorInternal
	}

	if _, err := s.otp.Issue(ctx, email, models.PurposeRegistration); err != nil {
		// account exists but the code did not go out; registering the same
		// email again reissues it
		s.logger.Error(ctx, "registration passcode delivery failed", "error", err)
		return common.ErrorTransient
	}

	s.auditor.Emit(ctx, email, "register", audit.OutcomeSuccess, nil)
	return nil
}

// CompleteRegistration consumes the registration passcode and marks the
// account verified.
func (s *Service) CompleteRegistration(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return common.ErrorValidation
	}

	ok, err := s.otp.Verify(ctx, email, models.PurposeRegistration, code)
	if err != nil {
		return common.ErrorInternal
	}
	if !ok {
		s.auditor.Emit(ctx, email, "complete_registration", audit.OutcomeDenied,
			map[string]string{"reason": otp.ReasonInvalidOrExpired})
		return common.ErrorUnauthorized
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}
	if err := repo.MarkVerified(ctx, account.ID); err != nil {
		return common.ErrorInternal
	}

	s.auditor.Emit(ctx, email, "complete_registration", audit.OutcomeSuccess, nil)
	return nil
}

// Login checks the password and, when it holds, sends a login passcode.
// A wrong email, a wrong password, an unverified account, and a deactivated
// account are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return common.ErrorUnauthorized
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn comparable time so the miss is not observable
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)) != nil {
		s.auditor.Emit(ctx, email, "login", audit.OutcomeDenied,
			map[string]string{"reason": "bad password"})
		return common.ErrorUnauthorized
	}
	if !account.Verified || !account.Active {
		s.auditor.Emit(ctx, email, "login", audit.OutcomeDenied,
			map[string]string{"reason": "account not eligible"})
		return common.ErrorUnauthorized
	}

	if _, err := s.otp.Issue(ctx, email, models.PurposeLogin); err != nil {
		s.logger.Error(ctx, "login passcode delivery failed", "error", err)
		return common.ErrorTransient
	}

	s.auditor.Emit(ctx, email, "login", audit.OutcomeSuccess, nil)
	return nil
}

var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// CompleteLogin consumes the login passcode and issues a token pair.
func (s *Service) CompleteLogin(ctx context.Context, email, code string) (*TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	ok, err := s.otp.Verify(ctx, email, models.PurposeLogin, code)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		s.auditor.Emit(ctx, email, "complete_login", audit.OutcomeDenied,
			map[string]string{"reason": otp.ReasonInvalidOrExpired})
		return nil, common.ErrorUnauthorized
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !account.Verified || !account.Active {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, s.db, account.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.auditor.Emit(ctx, email, "complete_login", audit.OutcomeSuccess, nil)
	return pair, nil
}

// RefreshSession rotates the refresh token: the old token is deleted and a
// new pair issued in one transaction, so a replayed token can never yield
// two live sessions.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, tx, token.AccountID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Logout revokes the refresh token. Revoking an unknown token succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// RequestPasswordReset sends a reset passcode when the account exists and
// reports success either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return common.ErrorValidation
	}

	if _, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}

	if _, err := s.otp.Issue(ctx, email, models.PurposePasswordReset); err != nil {
		s.logger.Error(ctx, "reset passcode delivery failed", "error", err)
		return common.ErrorTransient
	}

	s.auditor.Emit(ctx, email, "request_password_reset", audit.OutcomeSuccess, nil)
	return nil
}

// ResetPassword consumes the reset passcode and replaces the password.
// All outstanding sessions keep working; only the password changes.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return common.ErrorValidation
	}
	if len(newPassword) < minPasswordLength {
		return common.ErrorValidation
	}

	ok, err := s.otp.Verify(ctx, email, models.PurposePasswordReset, code)
	if err != nil {
		return common.ErrorInternal
	}
	if !ok {
		s.auditor.Emit(ctx, email, "reset_password", audit.OutcomeDenied,
			map[string]string{"reason": otp.ReasonInvalidOrExpired})
		return common.ErrorUnauthorized
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.UpdatePassword(ctx, account.ID, hash); err != nil {
		return common.ErrorInternal
	}

	s.auditor.Emit(ctx, email, "reset_password", audit.OutcomeSuccess, nil)
	return nil
}

// DeactivateAccount soft-deactivates the caller's account and disconnects
// its wallet. The row survives so audit linkage to past ledger activity does.
func (s *Service) DeactivateAccount(ctx context.Context, accountID string) error {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		if account.BoundWallet != "" {
			if err := repo.UpdateBoundWallet(ctx, account.ID, ""); err != nil {
				return err
			}
		}
		return repo.Deactivate(ctx, account.ID)
	})
	if err != nil {
		return common.ErrorInternal
	}

	s.auditor.Emit(ctx, account.Email, "deactivate_account", audit.OutcomeSuccess, nil)
	return nil
}

func (s *Service) account(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !account.Active {
		return nil, common.ErrorUnauthorized
	}
	return account, nil
}

func (s *Service) generateTokenPair(ctx context.Context, db dbx.DBTX, accountID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(accountID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.RefreshTokens(db).Create(ctx, accountID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
