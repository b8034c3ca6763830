// Package backend wires the configured persistence and messaging stack into
// the service layer.
package backend

import (
	"fmt"
	"log/slog"

	"scadenze/internal/amqp"
	"scadenze/internal/config"
	"scadenze/internal/services"
	"scadenze/internal/storage"
	"scadenze/internal/storage/memory"
)

// Type represents the persistence backend.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Result bundles the opened store, the optional event client, and a cleanup
// function releasing both.
type Result struct {
	Store   services.Store
	Events  *amqp.Client
	Cleanup func() error
}

// Open builds the store and AMQP client described by cfg. A failing AMQP
// connection degrades to local-only operation with a warning; a failing
// store is fatal.
func Open(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	var (
		store  services.Store
		closer func() error
	)
	switch t {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		store, closer = repo, repo.Close
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case MemoryBackend:
		mem := memory.NewStore()
		store, closer = mem, mem.Close
		logger.Info("Initialized memory backend")
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			events = client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	cleanup := func() error {
		var firstErr error
		if events != nil {
			if err := events.Close(); err != nil {
				firstErr = fmt.Errorf("close amqp: %w", err)
			}
		}
		if err := closer(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}
		return firstErr
	}

	return &Result{Store: store, Events: events, Cleanup: cleanup}, nil
}
