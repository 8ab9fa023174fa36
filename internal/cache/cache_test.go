package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/provider/providertest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*providertest.Rows, *Memory, *RowSource, provider.Dataset) {
	t.Helper()
	rows := providertest.NewRows()
	ds := provider.Dataset{ID: "org/chat", Config: "default", Split: "train"}
	rows.Put(ds, providertest.MustParse(
		`{"zeta":1,"alpha":"<b>one</b>"}`,
		`{"zeta":2,"alpha":"two"}`,
		`{"zeta":3,"alpha":"three"}`,
	))
	mem := NewMemory()
	return rows, mem, New(rows, mem, time.Minute, discardLogger()), ds
}

func TestRows_CachedAndIdentical(t *testing.T) {
	rows, _, c, ds := setup(t)
	ctx := context.Background()

	first, err := c.Rows(ctx, ds, 0, 2)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	second, err := c.Rows(ctx, ds, 0, 2)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}

	if rows.Calls != 1 {
		t.Errorf("expected 1 backend call, got %d", rows.Calls)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].String() != second[i].String() {
			t.Errorf("row %d differs: %s vs %s", i, first[i], second[i])
		}
	}

	// A different window is a different key.
	if _, err := c.Rows(ctx, ds, 1, 2); err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if rows.Calls != 2 {
		t.Errorf("expected 2 backend calls, got %d", rows.Calls)
	}
}

func TestNumRowsAndConfigs(t *testing.T) {
	_, mem, c, ds := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n, err := c.NumRows(ctx, ds)
		if err != nil || n != 3 {
			t.Fatalf("NumRows = %d, %v", n, err)
		}
		cfgs, err := c.Configs(ctx, ds.ID)
		if err != nil || len(cfgs) != 1 || cfgs[0] != "default" {
			t.Fatalf("Configs = %v, %v", cfgs, err)
		}
	}
	if mem.Len() != 2 {
		t.Errorf("expected 2 cache entries, got %d", mem.Len())
	}
}

func TestErrorsNotCached(t *testing.T) {
	rows, mem, c, _ := setup(t)
	ctx := context.Background()
	missing := provider.Dataset{ID: "org/missing", Split: "train"}

	for i := 0; i < 2; i++ {
		if _, err := c.Rows(ctx, missing, 0, 1); !errors.Is(err, provider.ErrSourceNotFound) {
			t.Fatalf("expected ErrSourceNotFound, got %v", err)
		}
	}
	if rows.Calls != 2 {
		t.Errorf("expected both reads to reach the backend, got %d", rows.Calls)
	}
	if mem.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", mem.Len())
	}
}

type failingBackend struct{}

func (failingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func TestBackendFailureFallsThrough(t *testing.T) {
	rows, _, _, ds := setup(t)
	c := New(rows, failingBackend{}, time.Minute, discardLogger())

	recs, err := c.Rows(context.Background(), ds, 0, 3)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("expected 3 rows, got %d", len(recs))
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	if val, ok, _ := m.Get(ctx, "k"); !ok || string(val) != "v" {
		t.Fatalf("expected hit, got %q %v", val, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
	if _, ok, _ := m.Get(ctx, "forever"); !ok {
		t.Error("expected entry without ttl to survive")
	}
	if m.Len() != 1 {
		t.Errorf("expected expired entry removed, %d left", m.Len())
	}
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory(WithMaxEntries(3))
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := m.Set(ctx, k, []byte(k), time.Hour); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Fatal("expected hit for a")
	}
	if err := m.Set(ctx, "d", []byte("d"), time.Hour); err != nil {
		t.Fatal(err)
	}

	if m.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok, _ := m.Get(ctx, k); !ok {
			t.Errorf("expected %s to survive", k)
		}
	}
}

func TestMemory_SweepsUnreadExpiredEntries(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 500 {
		if err := m.Set(ctx, "rows:"+strconv.Itoa(i), []byte("[]"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if m.Len() != 500 {
		t.Fatalf("expected 500 entries, got %d", m.Len())
	}

	now = now.Add(2 * time.Minute)
	if err := m.Set(ctx, "fresh", []byte("[]"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Errorf("expected only the fresh entry after the sweep, got %d", m.Len())
	}
}

func TestMemory_BoundedUnderRandomReads(t *testing.T) {
	rows := providertest.NewRows()
	ds := provider.Dataset{ID: "org/big", Split: "train"}
	rows.Put(ds, providertest.Numbered(5000))

	mem := NewMemory(WithMaxEntries(100))
	cached := New(rows, mem, 10*time.Minute, discardLogger())
	ctx := context.Background()

	for i := range 2000 {
		if _, err := cached.Rows(ctx, ds, (i*7919)%5000, 1); err != nil {
			t.Fatalf("Rows: %v", err)
		}
	}
	if mem.Len() > 100 {
		t.Errorf("cache grew to %d entries, limit is 100", mem.Len())
	}
}
