package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/server/auth"
	"github.com/Vraj260105/Block-Vote/internal/server/models"
)

func TestRegisterAndCompleteRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.expectTx()
	if err := env.svc.Register(ctx, "Voter@Example.com", "correct horse battery"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	account, err := env.accounts.GetByEmail(ctx, "voter@example.com")
	if err != nil {
		t.Fatalf("expected account to exist: %v", err)
	}
	if account.Verified {
		t.Error("expected account to start unverified")
	}
	if env.sender.sent != 1 || env.sender.lastPurpose != models.PurposeRegistration {
		t.Fatalf("expected one registration passcode, got %+v", env.sender)
	}

	if err := env.svc.CompleteRegistration(ctx, "voter@example.com", env.sender.lastCode); err != nil {
		t.Fatalf("CompleteRegistration error: %v", err)
	}
	account, _ = env.accounts.GetByEmail(ctx, "voter@example.com")
	if !account.Verified {
		t.Error("expected account to be verified")
	}

	// replaying the consumed code fails
	if err := env.svc.CompleteRegistration(ctx, "voter@example.com", env.sender.lastCode); !errors.Is(err, common.ErrorUnauthorized) {
		t.Errorf("expected ErrorUnauthorized on replay, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.svc.Register(ctx, "not-an-email", "long enough password"); !errors.Is(err, common.ErrorValidation) {
		t.Errorf("expected ErrorValidation for bad email, got %v", err)
	}
	if err := env.svc.Register(ctx, "voter@example.com", "short"); !errors.Is(err, common.ErrorValidation) {
		t.Errorf("expected ErrorValidation for short password, got %v", err)
	}
}

func TestRegisterExistingEmailDisclosesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "voter@example.com", "password123", "", true, true)

	if err := env.svc.Register(ctx, "voter@example.com", "another password"); err != nil {
		t.Fatalf("expected generic success, got %v", err)
	}
	if env.sender.sent != 0 {
		t.Error("no passcode may be issued for a taken email")
	}
	if event := env.lastAudit(); event == nil || event.Outcome != "denied" {
		t.Errorf("expected denied audit event, got %+v", event)
	}
}

func TestRegisterUnverifiedReissuesPasscode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.expectTx()
	if err := env.svc.Register(ctx, "voter@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	firstCode := env.sender.lastCode

	// the signup is still pending, so registering again resends a code
	env.expectTx()
	if err := env.svc.Register(ctx, "voter@example.com", "correct horse battery"); err != nil {
		t.Fatalf("second Register error: %v", err)
	}
	if env.sender.sent != 2 {
		t.Fatalf("expected a reissued passcode, sent %d", env.sender.sent)
	}

	// the first code is superseded, the fresh one completes the signup
	if err := env.svc.CompleteRegistration(ctx, "voter@example.com", firstCode); !errors.Is(err, common.ErrorUnauthorized) {
		t.Errorf("expected superseded code to be rejected, got %v", err)
	}
	if err := env.svc.CompleteRegistration(ctx, "voter@example.com", env.sender.lastCode); err != nil {
		t.Fatalf("CompleteRegistration error: %v", err)
	}

	account, _ := env.accounts.GetByEmail(ctx, "voter@example.com")
	if !account.Verified {
		t.Error("expected account to be verified")
	}
	if account.ID != "acc-1" {
		t.Errorf("expected no second account, got %q", account.ID)
	}
}

func TestLoginAndCompleteLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "voter@example.com", "password123", "", true, true)

	env.expectTx()
	if err := env.svc.Login(ctx, "voter@example.com", "password123"); err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if env.sender.lastPurpose != models.PurposeLogin {
		t.Fatalf("expected login passcode, got %q", env.sender.lastPurpose)
	}

	pair, err := env.svc.CompleteLogin(ctx, "voter@example.com", env.sender.lastCode)
	if err != nil {
		t.Fatalf("CompleteLogin error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", pair)
	}

	accountID, err := auth.GetAccountIDFromToken(pair.AccessToken, []byte(env.cfg.SecretKey))
	if err != nil {
		t.Fatalf("access token did not parse: %v", err)
	}
	if _, err := env.accounts.GetByID(ctx, accountID); err != nil {
		t.Errorf("token subject is not a known account: %v", err)
	}
}

func TestLoginRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "voter@example.com", "password123", "", true, true)
	env.seedAccount(t, "unverified@example.com", "password123", "", false, true)
	env.seedAccount(t, "inactive@example.com", "password123", "", true, false)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "ghost@example.com", "password123"},
		{"wrong password", "voter@example.com", "nope nope nope"},
		{"unverified account", "unverified@example.com", "password123"},
		{"deactivated account", "inactive@example.com", "password123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := env.svc.Login(ctx, tc.email, tc.password); !errors.Is(err, common.ErrorUnauthorized) {
				t.Errorf("expected ErrorUnauthorized, got %v", err)
			}
		})
	}
	if env.sender.sent != 0 {
		t.Errorf("no passcodes may go out on rejected logins, sent %d", env.sender.sent)
	}
}

func TestCompleteLoginWrongCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "voter@example.com", "password123", "", true, true)

	env.expectTx()
	if err := env.svc.Login(ctx, "voter@example.com", "password123"); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if _, err := env.svc.CompleteLogin(ctx, "voter@example.com", "000000"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Errorf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestRefreshSessionRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "voter@example.com", "password123", "", true, true)

	pair, err := env.svc.generateTokenPair(ctx, env.db, account.ID)
	if err != nil {
		t.Fatalf("generateTokenPair error: %v", err)
	}

	env.expectTx()
	next, err := env.svc.RefreshSession(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshSession error: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("expected a fresh refresh token")
	}

	// the old token is gone
	if _, err := env.svc.RefreshSession(ctx, pair.RefreshToken); !errors.Is(err, common.ErrorUnauthorized) {
		t.Errorf("expected ErrorUnauthorized for replayed token, got %v", err)
	}
}

func TestRefreshSessionExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "voter@example.com", "password123", "", true, true)

	if err := env.refresh.Create(ctx, account.ID, "stale-token", -time.Minute); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	if _, err := env.svc.RefreshSession(ctx, "stale-token"); !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Errorf("expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestLogoutUnknownTokenSucceeds(t *testing.T) {
	env := newTestEnv(t)
	if err := env.svc.Logout(context.Background(), "never-issued"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "voter@example.com", "old password 1", "", true, true)

	env.expectTx()
	if err := env.svc.RequestPasswordReset(ctx, "voter@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	if env.sender.lastPurpose != models.PurposePasswordReset {
		t.Fatalf("expected reset passcode, got %q", env.sender.lastPurpose)
	}

	if err := env.svc.ResetPassword(ctx, "voter@example.com", env.sender.lastCode, "new password 1"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("new password 1")) != nil {
		t.Error("expected new password to verify")
	}
	if bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("old password 1")) == nil {
		t.Error("expected old password to stop verifying")
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	if err := env.svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Errorf("expected generic success, got %v", err)
	}
	if env.sender.sent != 0 {
		t.Error("no passcode may be issued for an unknown email")
	}
}

func TestResetPasswordWrongCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "voter@example.com", "old password 1", "", true, true)

	if err := env.svc.ResetPassword(ctx, "voter@example.com", "123456", "new password 1"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Errorf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestDeactivateAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "voter@example.com", "password123", voterHex, true, true)

	env.expectTx()
	if err := env.svc.DeactivateAccount(ctx, account.ID); err != nil {
		t.Fatalf("DeactivateAccount error: %v", err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if stored.Active {
		t.Error("expected account to be deactivated")
	}
	if stored.BoundWallet != "" {
		t.Error("expected wallet binding to be cleared")
	}

	if err := env.svc.Login(ctx, "voter@example.com", "password123"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Errorf("expected deactivated account to be rejected, got %v", err)
	}
}
