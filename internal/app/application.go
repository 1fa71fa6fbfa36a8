package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/registry"
)

// Application is the runtime state shared by the binaries: config, logger,
// the registry database and the orchestrator built on top of it.
type Application struct {
	Config *Config
	Logger logging.Logger
	Orch   *Orchestrator

	db *sql.DB
}

// NewApplication prepares the storage root, opens the registry and builds
// the orchestrator.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("mdinject")
	}

	root, err := ExpandPath(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("expanding storage root path: %w", err)
	}
	cfg.StorageRoot = root
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}

	db, err := registry.Open(filepath.Join(root, "registry.db"))
	if err != nil {
		return nil, err
	}
	reg, err := registry.NewRegistry(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating registry: %w", err)
	}
	orch, err := NewOrchestrator(cfg, reg, nil, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("application ready", logging.Field{Key: "storage_root", Value: root})
	return &Application{Config: cfg, Logger: logger, Orch: orch, db: db}, nil
}

// Shutdown stops running jobs and closes the registry database.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	done := make(chan error, 1)
	go func() { done <- a.Orch.Close() }()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var err error
	select {
	case err = <-done:
	case <-shutdownCtx.Done():
		err = shutdownCtx.Err()
	}
	if cerr := a.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
