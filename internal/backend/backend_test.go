package backend

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/chatlens/internal/cache"
	"github.com/MikeSquared-Agency/chatlens/internal/config"
	"github.com/MikeSquared-Agency/chatlens/internal/hub"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_Hub(t *testing.T) {
	rows, closeFn, err := Open(context.Background(), Settings{Kind: config.BackendHub, HubTimeout: time.Second}, discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := rows.(*hub.Client); !ok {
		t.Errorf("expected hub client, got %T", rows)
	}
}

func TestOpen_MemoryCache(t *testing.T) {
	rows, closeFn, err := Open(context.Background(), Settings{Kind: config.BackendHub, CacheTTL: time.Minute}, discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := rows.(*cache.RowSource); !ok {
		t.Errorf("expected caching row source, got %T", rows)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	if _, _, err := Open(ctx, Settings{Kind: config.BackendPostgres}, discard()); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
	if _, _, err := Open(ctx, Settings{Kind: "sqlite"}, discard()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
