// Package server initializes and runs the voting authorization server:
// it wires the database, the ledger, the audit trail, and the HTTP API,
// and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Vraj260105/Block-Vote/internal/logging"
	"github.com/Vraj260105/Block-Vote/internal/server/audit"
	"github.com/Vraj260105/Block-Vote/internal/server/authz"
	"github.com/Vraj260105/Block-Vote/internal/server/config"
	"github.com/Vraj260105/Block-Vote/internal/server/httpapi"
	"github.com/Vraj260105/Block-Vote/internal/server/ledger"
	"github.com/Vraj260105/Block-Vote/internal/server/otp"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/repomanager"
	"github.com/Vraj260105/Block-Vote/internal/server/wallet"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	otpService *otp.Service
	httpServer *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	creds, err := ledger.LoadOrCreateOwnerCredentials(cfg.OwnerKeyPath)
	if err != nil {
		return nil, fmt.Errorf("owner key error: %w", err)
	}
	owner := creds.Address
	logger.Info(ctx, "election owner loaded", "address", wallet.MaskAddress(owner.Hex()))

	machine := ledger.NewMachine(owner)
	ledgerClient := ledger.NewClient(machine)

	sinks := []audit.Sink{audit.NewLogSink(logger)}
	if cfg.S3BaseEndpoint != "" {
		s3Sink, err := audit.NewS3Sink(cfg)
		if err != nil {
			return nil, fmt.Errorf("audit archive init error: %w", err)
		}
		sinks = append(sinks, s3Sink)
	}
	auditor := audit.NewAuditor(logger, sinks...)

	otpService := otp.NewService(db, rm, otp.NewLogSender(logger), cfg)
	walletService := wallet.NewService(db, rm)

	authzService := authz.NewService(db, rm, otpService, walletService,
		ledgerClient, auditor, logger, owner, cfg)

	httpServer := httpapi.NewServer(authzService, logger, cfg)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		otpService: otpService,
		httpServer: httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runPasscodeSweeper deletes expired passcodes on a timer for as long as the
// app runs.
func (app *App) runPasscodeSweeper(ctx context.Context) {
	ticker := time.NewTicker(app.config.PasscodeValidityDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := app.otpService.SweepExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "passcode sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				app.logger.Info(ctx, "expired passcodes removed", "count", removed)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runPasscodeSweeper(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
