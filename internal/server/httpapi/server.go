// Package httpapi exposes the authorization orchestrator over HTTP+JSON.
package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/Vraj260105/Block-Vote/internal/logging"
	"github.com/Vraj260105/Block-Vote/internal/server/authz"
	"github.com/Vraj260105/Block-Vote/internal/server/config"
	"github.com/Vraj260105/Block-Vote/internal/server/ledger"
)

const shutdownTimeout = 5 * time.Second

// Authorizer is the slice of the orchestrator the HTTP layer calls.
// *authz.Service satisfies it.
type Authorizer interface {
	Register(ctx context.Context, email, password string) error
	CompleteRegistration(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) error
	CompleteLogin(ctx context.Context, email, code string) (*authz.TokenPair, error)
	RefreshSession(ctx context.Context, refreshToken string) (*authz.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	DeactivateAccount(ctx context.Context, accountID string) error

	WalletStatus(ctx context.Context, accountID string) (*authz.WalletInfo, error)
	ConnectWallet(ctx context.Context, accountID, address string) (*authz.WalletInfo, error)
	DisconnectWallet(ctx context.Context, accountID string) error

	RegisterToVote(ctx context.Context, accountID, presentedAddress string) (*ledger.Receipt, error)
	CastVote(ctx context.Context, accountID, presentedAddress string, candidateID uint64) (*ledger.Receipt, error)
	VoterStatus(ctx context.Context, accountID string) (*ledger.VoterStatus, error)
	AddCandidate(ctx context.Context, accountID, presentedAddress, name string) (*ledger.Receipt, error)
	OpenVoting(ctx context.Context, accountID, presentedAddress string) (*ledger.Receipt, error)
	CloseVoting(ctx context.Context, accountID, presentedAddress string) (*ledger.Receipt, error)
	Results(ctx context.Context) ([]ledger.Candidate, error)
	State(ctx context.Context) (*authz.ElectionState, error)
}

type Server struct {
	app       *fiber.App
	authz     Authorizer
	logger    logging.Logger
	jwtSecret []byte
	addr      string
}

func NewServer(service Authorizer, logger logging.Logger, cfg *config.Config) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		authz:     service,
		logger:    logger.With("module", "httpapi"),
		jwtSecret: []byte(cfg.SecretKey),
		addr:      cfg.EndpointAddrHTTP,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Use(cors.New())

	api := s.app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", s.handleRegister)
	auth.Post("/register/confirm", s.handleCompleteRegistration)
	auth.Post("/login", s.handleLogin)
	auth.Post("/login/confirm", s.handleCompleteLogin)
	auth.Post("/refresh", s.handleRefresh)
	auth.Post("/logout", s.handleLogout)
	auth.Post("/password-reset/request", s.handleRequestPasswordReset)
	auth.Post("/password-reset/confirm", s.handleResetPassword)

	election := api.Group("/election")
	election.Get("/results", s.handleResults)
	election.Get("/state", s.handleState)

	protected := api.Group("", s.requireSession)
	protected.Get("/wallet", s.handleWalletStatus)
	protected.Post("/wallet/connect", s.handleConnectWallet)
	protected.Post("/wallet/disconnect", s.handleDisconnectWallet)
	protected.Post("/account/deactivate", s.handleDeactivateAccount)
	protected.Post("/election/register", s.handleRegisterToVote)
	protected.Post("/election/vote", s.handleCastVote)
	protected.Get("/election/voter-status", s.handleVoterStatus)
	protected.Post("/election/candidates", s.handleAddCandidate)
	protected.Post("/election/open", s.handleOpenVoting)
	protected.Post("/election/close", s.handleCloseVoting)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.addr)
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info(ctx, "http server shutting down")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}
