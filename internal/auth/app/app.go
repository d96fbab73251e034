package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/studybuddy/internal/auth/http"
	"github.com/aussiebroadwan/studybuddy/internal/auth/mail"
	"github.com/aussiebroadwan/studybuddy/internal/auth/service"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store/drivers/mongo"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/studybuddy/pkg/cryptox"
	"github.com/aussiebroadwan/studybuddy/pkg/jwtx"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the backend with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	sessions *jwtx.SessionKeys
	mailer   service.Mailer

	// Services
	accountService      *service.AccountService
	housekeepingService *service.HousekeepingService
	aiResolver          *studyai.Resolver

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "studybuddy",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	sessions, err := InitSessionKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize session keys: %w", err)
	}
	app.sessions = sessions

	app.initMailer()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("studybuddy starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.db.Name(),
		"ai_server_keys", app.aiResolver.Keys.Len(),
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down studybuddy...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("studybuddy stopped")
	return nil
}

// initDatabase opens the configured store. Durable drivers are wrapped in a
// Fallback so requests keep working from memory while they are unreachable.
func (app *Application) initDatabase() error {
	var primary store.Store

	switch app.cfg.StoreDriver {
	case "memory":
		app.db = memory.NewStore()
		app.logger.Warn("using in-memory store; accounts are lost on restart")
		return nil

	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
		primary = db

	case "mongo", "":
		db, err := mongo.NewStore(mongo.Config{
			URI:        app.cfg.MongoURI,
			Database:   app.cfg.MongoDatabase,
			Collection: app.cfg.MongoCollection,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		primary = db

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want mongo, sqlite or memory)", app.cfg.StoreDriver)
	}

	fb := store.NewFallback(primary, memory.NewStore(), app.logger)
	app.db = fb

	// The first Active call prepares the primary (mongo creates its unique
	// email index). If it is down now, a later call retries.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if fb.Active(ctx) != primary {
		app.logger.Warn("primary store unavailable at startup, serving from memory", "driver", primary.Name())
	}
	return nil
}

// initMailer picks SMTP when credentials are set. Without them, dev logs
// codes and other environments report every email as unsent.
func (app *Application) initMailer() {
	cfg := mail.Config{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.EmailUser,
		Password: app.cfg.EmailPass,
		From:     app.cfg.EmailFrom,
	}
	switch {
	case cfg.Configured():
		app.mailer = mail.NewSMTPMailer(cfg)
	case app.cfg.Env == "dev":
		app.mailer = &mail.LogMailer{Logger: app.logger}
	default:
		app.logger.Warn("EMAIL_USER/EMAIL_PASS not set; codes will not be delivered")
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.accountService = &service.AccountService{
		Store:    app.db,
		Mailer:   app.mailer,
		Sessions: app.sessions,
		CodeTTL:  app.cfg.OTPTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	app.aiResolver = &studyai.Resolver{
		Keys:     studyai.NewKeyRing(app.cfg.ServerAIKeys...),
		Provider: studyai.NewGenAIProvider(),
	}
	if app.aiResolver.Keys.Len() == 0 {
		app.logger.Warn("no AI_SERVER_API_KEY configured; /api/ai/generate will refuse requests")
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessions,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AccountService = app.accountService
	router.AIResolver = app.aiResolver
	router.AIModel = app.cfg.AIModel
	router.Limits = app.cfg.RateLimits
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
