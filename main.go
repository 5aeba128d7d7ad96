package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"finance-portal/internal/config"
	"finance-portal/internal/database"
	"finance-portal/internal/logger"
	"finance-portal/internal/router"
)

func main() {
	if err := run(); err != nil {
		log.Printf("finance-portal: %v", err)
		os.Exit(1)
	}
}

// run starts the portal and blocks until the server stops.
func run() error {
	// load configuration
	cfg, err := config.Load(os.Getenv("FP_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg, closer, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()

	if err := ensureDir(cfg.Backup.Dir); err != nil {
		logg.Error("create backup dir", "error", err)
		return err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
			logg.Error("create data dir", "error", err)
			return err
		}
	}

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		logg.Error("init database", "driver", cfg.Database.Driver, "error", err)
		return err
	}
	defer database.Close(db)

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		logg.Error("migrate database", "error", err)
		return err
	}

	r, err := router.SetupRouter(cfg, db, logg, nil)
	if err != nil {
		logg.Error("setup router", "error", err)
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logg.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logg.Error("server shutdown", "error", err)
		}
	}()

	logg.Info("server listening", "addr", addr, "driver", cfg.Database.Driver, "env", cfg.Server.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error("run server", "error", err)
		return err
	}
	logg.Info("server stopped")
	return nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
