package db

import (
	"context"
	"fmt"

	"github.com/stoik/trustlayer/internal/config"
	"github.com/stoik/trustlayer/internal/store"
	"github.com/stoik/trustlayer/internal/store/postgres"
	"github.com/stoik/trustlayer/internal/store/sqlite"
)

// Repo is the process-wide report repository, set by Init
var Repo store.Repository

type migrator interface {
	Migrate(ctx context.Context) (int, error)
}

func Init(ctx context.Context, cfg config.DatabaseConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("database.url not configured")
	}

	var err error
	switch cfg.Driver {
	case "sqlite":
		Repo, err = sqlite.Open(ctx, cfg.URL)
	default:
		Repo, err = postgres.Connect(ctx, cfg.URL)
	}
	if err != nil {
		Repo = nil
		return fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	return nil
}

// Migrate applies the schema to the initialized repository
func Migrate(ctx context.Context) (int, error) {
	m, ok := Repo.(migrator)
	if !ok {
		return 0, fmt.Errorf("database not initialized")
	}
	return m.Migrate(ctx)
}

func Close() {
	if Repo != nil {
		_ = Repo.Close()
		Repo = nil
	}
}
