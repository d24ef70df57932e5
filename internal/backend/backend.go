// Package backend selects and constructs the key-value store the rest
// of the system persists into.
package backend

import (
	"fmt"
	"log/slog"

	"tally/internal/config"
	"tally/internal/storage"
)

type Type string

const (
	FileBackend   Type = "file"
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case FileBackend, SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{FileBackend, SQLiteBackend, MemoryBackend}
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result bundles a store with its optional cleanup.
type Result struct {
	Store   storage.KV
	Cleanup CleanupFunc
}

// Create builds the store the app config asks for.
func Create(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch backendType {
	case FileBackend:
		store, err := storage.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("initialize file store: %w", err)
		}
		logger.Info("Initialized file backend", "path", cfg.StorePath)
		return &Result{Store: store, Cleanup: store.Close}, nil

	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: store, Cleanup: store.Close}, nil

	default:
		logger.Info("Initialized memory backend")
		return &Result{Store: storage.NewMemoryStore(), Cleanup: nil}, nil
	}
}
