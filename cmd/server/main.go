package main

import (
	"context"
	"errors"
	"fmt"
	"fyrewiki/internal/auth"
	"fyrewiki/internal/backup"
	"fyrewiki/internal/cache"
	"fyrewiki/internal/config"
	"fyrewiki/internal/data"
	"fyrewiki/internal/editlock"
	"fyrewiki/internal/handler"
	"fyrewiki/internal/logger"
	"fyrewiki/internal/mailer"
	"fyrewiki/internal/middleware"
	"fyrewiki/internal/service"
	"fyrewiki/internal/view"
	"fyrewiki/web"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	// --- Database Initialization and Migration ---
	if cfg.DB.Driver == data.DriverSQLite {
		if dir := filepath.Dir(backup.DatabasePath(cfg.DB.DSN)); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatal(err, "Failed to create database directory")
			}
		}
	}

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(db); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	if cfg.DB.Driver == data.DriverMySQL {
		sessionManager.Store = mysqlstore.New(db.DB)
	} else {
		sessionManager.Store = sqlite3store.New(db.DB)
	}
	sessionManager.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	var authenticator *auth.Authenticator
	if cfg.OIDC.Enabled() {
		authenticator, err = auth.NewAuthenticator(context.Background(), cfg.OIDC)
		if err != nil {
			log.Fatal(err, "Failed to initialize authenticator")
		}
	}
	enforcer, err := auth.NewEnforcer(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	limiter := auth.NewLimiter(cfg.Auth.MaxAttempts, cfg.Auth.AttemptWindow)
	defer limiter.Stop()
	log.Info("Auth components initialized and policies seeded.")

	// --- View Template Initialization ---
	log.Info("Initializing view templates...")
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	log.Info("View templates initialized.")

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	if dir := filepath.Dir(cfg.Cache.FilePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal(err, "Failed to create cache directory")
		}
	}
	pageCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer pageCache.Close()
	stopJanitor := pageCache.StartJanitor(pageCache.TTL(), log)
	defer stopJanitor()
	log.Info("Cache initialized.")

	// --- Edit Locks ---
	locks := editlock.New()
	stopSweeper := editlock.NewSweeper(locks, cfg.Lock.SweepInterval, cfg.Lock.Threshold, log).Start()
	defer stopSweeper()

	// --- Backups ---
	backups := backup.NewManager(db, cfg.DB.DSN, cfg.Backup, log)
	if cfg.Backup.Enabled && cfg.DB.Driver == data.DriverSQLite {
		stopBackups := backups.StartScheduler(cfg.Backup.Interval)
		defer stopBackups()
		log.Info(fmt.Sprintf("Scheduled backups every %s into %s", cfg.Backup.Interval, cfg.Backup.Dir))
	}

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	pageRepository := data.NewSQLPageRepository(db)
	categoryRepository := data.NewCategoryRepository(db)
	userRepository := data.NewSQLUserRepository(db)
	pageService := service.NewPageService(pageRepository, categoryRepository, pageCache, locks, service.NewRetryPolicy(cfg.Retry), log)

	handlers := handler.Handlers{
		Page:   handler.NewPageHandler(pageService, viewService, log, cfg.Lock.PingInterval),
		Auth:   handler.NewAuthHandler(userRepository, sessionManager, mailer.New(cfg.Mail, log), limiter, authenticator, viewService, log, cfg.Auth.CodeTTL),
		Seo:    handler.NewSeoHandler(pageService, cfg.Server.BaseURL, log),
		Backup: handler.NewBackupHandler(backups, log),
	}

	authzMiddleware := middleware.Authorizer(enforcer, sessionManager)
	errorMiddleware := middleware.Error(log, viewService)

	// --- Router Setup ---
	// The router is the central hub that directs incoming requests to the correct handlers.
	router := handler.NewRouter(handlers, sessionManager, authzMiddleware, errorMiddleware, web.Static())

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
