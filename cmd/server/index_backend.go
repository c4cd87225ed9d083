package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skirmish.gg/internal/persistence/indexdb"
	"skirmish.gg/internal/sim/arena"
)

type runtimeIndex interface {
	arena.TickLogger
	Close() error
	Stats() indexdb.Stats
}

// leaderboard is implemented by index backends that can be queried locally.
type leaderboard interface {
	TopKillers(ctx context.Context, limit int) ([]indexdb.PlayerStats, error)
}

func openRuntimeIndex(serverDir, serverID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SK_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(serverDir, "index", "combat.sqlite")
		idx, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "http":
		endpoint := strings.TrimSpace(os.Getenv("SK_INDEX_INGEST_URL"))
		token := strings.TrimSpace(os.Getenv("SK_INDEX_INGEST_TOKEN"))
		if endpoint == "" {
			return nil, fmt.Errorf("SK_INDEX_BACKEND=http but SK_INDEX_INGEST_URL is empty")
		}
		flushMS := envInt("SK_INDEX_INGEST_FLUSH_MS", 500)
		batchSize := envInt("SK_INDEX_INGEST_BATCH_SIZE", 128)
		idx, err := indexdb.OpenIngest(indexdb.IngestConfig{
			Endpoint:      endpoint,
			Token:         token,
			ServerID:      serverID,
			BatchSize:     batchSize,
			FlushInterval: time.Duration(flushMS) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported SK_INDEX_BACKEND: %s", backend)
	}
}
