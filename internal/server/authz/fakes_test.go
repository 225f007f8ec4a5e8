package authz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/bcrypt"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/dbx"
	"github.com/Vraj260105/Block-Vote/internal/logging"
	"github.com/Vraj260105/Block-Vote/internal/server/audit"
	"github.com/Vraj260105/Block-Vote/internal/server/config"
	"github.com/Vraj260105/Block-Vote/internal/server/ledger"
	"github.com/Vraj260105/Block-Vote/internal/server/models"
	"github.com/Vraj260105/Block-Vote/internal/server/otp"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/accounts"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/passcodes"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/refreshtokens"
	"github.com/Vraj260105/Block-Vote/internal/server/wallet"
)

const (
	ownerHex = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	voterHex = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	otherHex = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type fakeAccountsRepo struct {
	seq      int
	accounts map[string]*models.Account // keyed by id
}

func newFakeAccountsRepo() *fakeAccountsRepo {
	return &fakeAccountsRepo{accounts: make(map[string]*models.Account)}
}

func (r *fakeAccountsRepo) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.seq++
	account.ID = fmt.Sprintf("acc-%d", r.seq)
	account.Active = true
	r.accounts[account.ID] = account
	return account, nil
}

func (r *fakeAccountsRepo) GetByID(ctx context.Context, accountID string) (*models.Account, error) {
	if a, ok := r.accounts[accountID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeAccountsRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeAccountsRepo) GetByWallet(ctx context.Context, address string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.BoundWallet == address && address != "" {
			copied := *a
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeAccountsRepo) MarkVerified(ctx context.Context, accountID string) error {
	a, ok := r.accounts[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	a.Verified = true
	return nil
}

func (r *fakeAccountsRepo) UpdateBoundWallet(ctx context.Context, accountID string, address string) error {
	a, ok := r.accounts[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	a.BoundWallet = address
	return nil
}

func (r *fakeAccountsRepo) UpdatePassword(ctx context.Context, accountID string, passwordHash []byte) error {
	a, ok := r.accounts[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (r *fakeAccountsRepo) Deactivate(ctx context.Context, accountID string) error {
	a, ok := r.accounts[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	a.Active = false
	return nil
}

type fakePasscodesRepo struct {
	seq   int
	codes []*models.Passcode
}

func (r *fakePasscodesRepo) Create(ctx context.Context, passcode *models.Passcode) (*models.Passcode, error) {
	r.seq++
	passcode.ID = fmt.Sprintf("code-%d", r.seq)
	r.codes = append(r.codes, passcode)
	return passcode, nil
}

func (r *fakePasscodesRepo) InvalidateOutstanding(ctx context.Context, email, purpose string) error {
	for _, c := range r.codes {
		if c.Email == email && c.Purpose == purpose {
			c.Used = true
		}
	}
	return nil
}

func (r *fakePasscodesRepo) Consume(ctx context.Context, email, purpose, code string, now time.Time) error {
	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if c.Email == email && c.Purpose == purpose && c.Code == code && !c.Used && c.ExpiresAt.After(now) {
			c.Used = true
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *fakePasscodesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var kept []*models.Passcode
	var removed int64
	for _, c := range r.codes {
		if c.ExpiresAt.After(now) {
			kept = append(kept, c)
		} else {
			removed++
		}
	}
	r.codes = kept
	return removed, nil
}

type fakeRefreshRepo struct {
	seq    int
	tokens map[string]*models.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (r *fakeRefreshRepo) Create(ctx context.Context, accountID string, token string, validity time.Duration) error {
	r.seq++
	r.tokens[token] = &models.RefreshToken{
		ID:        fmt.Sprintf("rt-%d", r.seq),
		AccountID: accountID,
		Token:     token,
		Expires:   time.Now().Add(validity),
	}
	return nil
}

func (r *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := r.tokens[token]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

type fakeRepoManager struct {
	accounts  *fakeAccountsRepo
	passcodes *fakePasscodesRepo
	refresh   *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository            { return m.accounts }
func (m *fakeRepoManager) Passcodes(db dbx.DBTX) passcodes.Repository          { return m.passcodes }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository  { return m.refresh }

type fakeSender struct {
	lastEmail   string
	lastCode    string
	lastPurpose string
	sent        int
}

func (s *fakeSender) Send(ctx context.Context, email, code, purpose string) error {
	s.lastEmail, s.lastCode, s.lastPurpose = email, code, purpose
	s.sent++
	return nil
}

type recordingSink struct {
	events []*audit.Event
}

func (s *recordingSink) Write(ctx context.Context, event *audit.Event) error {
	s.events = append(s.events, event)
	return nil
}

type testEnv struct {
	svc       *Service
	db        *sql.DB
	mock      sqlmock.Sqlmock
	accounts  *fakeAccountsRepo
	passcodes *fakePasscodesRepo
	refresh   *fakeRefreshRepo
	sender    *fakeSender
	machine   *ledger.Machine
	sink      *recordingSink
	cfg       *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	env := &testEnv{
		db:        db,
		mock:      mock,
		accounts:  newFakeAccountsRepo(),
		passcodes: &fakePasscodesRepo{},
		refresh:   newFakeRefreshRepo(),
		sender:    &fakeSender{},
		machine:   ledger.NewMachine(ethcommon.HexToAddress(ownerHex)),
		sink:      &recordingSink{},
		cfg:       cfg,
	}

	m := &fakeRepoManager{accounts: env.accounts, passcodes: env.passcodes, refresh: env.refresh}
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	auditor := audit.NewAuditor(logger, env.sink)

	env.svc = NewService(db, m,
		otp.NewService(db, m, env.sender, cfg),
		wallet.NewService(db, m),
		env.machine, auditor, logger,
		ethcommon.HexToAddress(ownerHex), cfg)

	return env
}

// expectTx queues one begin/commit pair for a flow that runs inside WithTx.
func (env *testEnv) expectTx() {
	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
}

// seedAccount inserts a ready-made account directly into the fake store.
func (env *testEnv) seedAccount(t *testing.T, email, password, boundWallet string, verified, active bool) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	account, err := env.accounts.Create(context.Background(), &models.Account{
		Email:        email,
		PasswordHash: hash,
		BoundWallet:  boundWallet,
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}
	account.Verified = verified
	account.Active = active
	env.accounts.accounts[account.ID].Verified = verified
	env.accounts.accounts[account.ID].Active = active
	return account
}

func (env *testEnv) lastAudit() *audit.Event {
	if len(env.sink.events) == 0 {
		return nil
	}
	return env.sink.events[len(env.sink.events)-1]
}
