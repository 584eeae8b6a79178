package storage

import (
	"context"
	"fmt"
	"strings"

	"hermes/pkg/config"
	"hermes/pkg/logger"
	"hermes/pkg/models"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Backend loads and saves the full ledger. Save always rewrites the whole
// snapshot.
type Backend interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

// RunRecorder is implemented by backends that keep a history of polling runs
type RunRecorder interface {
	RecordRun(ctx context.Context, stats models.RunStatistics) error
}

// Open creates the backend selected by cfg
func Open(cfg config.StorageConfig, log logger.Logger) (Backend, error) {
	if log == nil {
		log = logger.WithComponent("storage")
	}

	path := cfg.Path
	if path == "" {
		path = config.DefaultStatePath()
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendJSON:
		return NewJSONBackend(path, log), nil
	case BackendSQLite:
		return OpenSQLite(sqlitePath(path), log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// sqlitePath swaps a .json state path for a .db one so both backends can share
// the same default location
func sqlitePath(path string) string {
	if strings.HasSuffix(path, ".json") {
		return strings.TrimSuffix(path, ".json") + ".db"
	}
	return path
}
