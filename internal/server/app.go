// Package server initializes and runs the main application server. It wires
// the database, the ledger, blob storage, and the HTTP API, and handles
// graceful shutdown on OS signals.
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

	"github.com/securecloudx/securecloudx/internal/blob"
	"github.com/securecloudx/securecloudx/internal/ledger"
	"github.com/securecloudx/securecloudx/internal/logging"
	"github.com/securecloudx/securecloudx/internal/server/config"
	"github.com/securecloudx/securecloudx/internal/server/httpapi"
	"github.com/securecloudx/securecloudx/internal/server/repositories/repomanager"
	"github.com/securecloudx/securecloudx/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	chain, err := openLedger(ctx, cfg, db)
	if err != nil {
		return nil, fmt.Errorf("ledger init error: %w", err)
	}
	if lerr := chain.Err(); lerr != nil {
		// Appends continue; auditors see the failure through /api/chain.
		logger.Warn(ctx, "ledger failed validation on load", "error", lerr.Error())
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	userService := services.NewUserService(db, manager, cfg)
	custodyService := services.NewCustodyService(db, manager, chain, blobs, logger)

	server := httpapi.NewServer(cfg.EndpointAddr, userService, custodyService, logger, []byte(cfg.SecretKey))

	return &App{config: cfg, logger: logger, db: db, server: server}, nil
}

// openLedger selects the chain persistence backend: a JSON file when
// ChainFile is set, otherwise the ledger_records table.
func openLedger(ctx context.Context, cfg *config.Config, db *sql.DB) (*ledger.Ledger, error) {
	var store ledger.Store
	if cfg.ChainFile != "" {
		store = ledger.NewFileStore(cfg.ChainFile)
	} else {
		store = ledger.NewPostgresStore(db)
	}
	return ledger.Open(ctx, store)
}

// openBlobStore selects the ciphertext backend: S3 when a bucket is
// configured, otherwise the local filesystem.
func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.S3Bucket != "" {
		return blob.NewS3Store(ctx, blob.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	}
	return blob.NewLocalStore(cfg.BlobDir)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
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
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
