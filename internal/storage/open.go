package storage

import (
	"context"
	"errors"
	"strings"

	"insightbot/pkg/logx"
)

// Store is the persistence API used by the dedup tracker.
//
// Load methods never fail; they degrade to the empty structure and log.
// Save methods return errors so callers can decide to log and continue.
type Store interface {
	LoadProcessed(ctx context.Context) ProcessedSet
	SaveProcessed(ctx context.Context, set ProcessedSet) error
	LoadCheckpoint(ctx context.Context) Checkpoint
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown state driver: " + cfg.Driver)
	}
}
