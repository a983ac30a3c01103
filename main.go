package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamvault/config"
	"teamvault/config/database"
	"teamvault/internal/vault/repository"
	"teamvault/internal/vault/service"
	"teamvault/pkg/logger"
	"teamvault/pkg/metrics"
	"teamvault/router"
	"teamvault/socket"
)

func main() {
	// 1. Configuration comes from an optional .env file and the environment.
	cfg, loadedEnv, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	if !loadedEnv {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	// 2. Relative paths (db file, static dir) resolve against the install directory.
	if err := os.Chdir(cfg.WorkDir); err != nil {
		logger.Sugar.Fatalf("Failed to change working directory to %s: %v", cfg.WorkDir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Sugar.Fatalf("Failed to open document storage: %v", err)
	}
	defer closeRepo()

	// 3. The service writes documents; the hub fans every write out to feed subscribers.
	svc := service.NewVaultService(repo, nil)
	hub := socket.NewHub(svc.Snapshot)
	svc.Feed = hub

	m := metrics.New()
	m.TrackSubscribers(hub.Count)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(svc, hub, m, router.Options{
			StaticDir:    cfg.StaticDir,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("TeamVault listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()
	printBanner(cfg)

	// 4. Run until interrupted or the listener fails.
	select {
	case <-ctx.Done():
		logger.Sugar.Info("Interrupt received, shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Errorf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown error: %v", err)
	}
	stopHub()
	<-hub.Done()

	logger.Sugar.Info("Server stopped")
	fmt.Println("\nServer stopped.")
}

// openRepository picks PostgreSQL when a database URL is configured and the
// backing file otherwise. The returned func releases the storage.
func openRepository(ctx context.Context, cfg config.Config) (repository.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Sugar.Infof("Storing document in %s", cfg.DBFile)
		return repository.NewFileRepository(cfg.DBFile), func() {}, nil
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Sugar.Info("Storing document in PostgreSQL")
	return repo, func() { db.Close() }, nil
}

func printBanner(cfg config.Config) {
	store := cfg.DBFile
	if cfg.DatabaseURL != "" {
		store = "PostgreSQL"
	}
	fmt.Printf(`
╔══════════════════════════════════════════════╗
║        TeamVault Server Started!             ║
╠══════════════════════════════════════════════╣
  Open in browser: http://localhost:%d
  Database:        %s
  Press Ctrl+C to stop
╚══════════════════════════════════════════════╝
`, cfg.Port, store)
}
