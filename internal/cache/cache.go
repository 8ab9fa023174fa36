// Package cache wraps a provider.RowSource with a key/value cache. Results
// are identical with or without it; only successful reads are stored.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
)

const keyPrefix = "chatlens:"

// Backend stores opaque values with a lifetime. Get reports a miss with
// ok == false and a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// RowSource is a caching provider.RowSource.
type RowSource struct {
	next    provider.RowSource
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
}

func New(next provider.RowSource, backend Backend, ttl time.Duration, logger *slog.Logger) *RowSource {
	return &RowSource{next: next, backend: backend, ttl: ttl, logger: logger}
}

func (c *RowSource) Rows(ctx context.Context, ds provider.Dataset, offset, length int) ([]record.Record, error) {
	key := datasetKey("rows", ds) + ":" + strconv.Itoa(offset) + ":" + strconv.Itoa(length)
	if val, ok := c.lookup(ctx, key); ok {
		if recs, err := decodeRecords(val); err == nil {
			return recs, nil
		}
		c.logger.Warn("discarding unreadable cache entry", "key", key)
	}

	recs, err := c.next.Rows(ctx, ds, offset, length)
	if err != nil {
		return nil, err
	}
	if val, err := json.Marshal(recs); err == nil {
		c.store(ctx, key, val)
	}
	return recs, nil
}

func (c *RowSource) NumRows(ctx context.Context, ds provider.Dataset) (int, error) {
	key := datasetKey("num", ds)
	if val, ok := c.lookup(ctx, key); ok {
		if n, err := strconv.Atoi(string(val)); err == nil {
			return n, nil
		}
	}

	n, err := c.next.NumRows(ctx, ds)
	if err != nil {
		return 0, err
	}
	c.store(ctx, key, []byte(strconv.Itoa(n)))
	return n, nil
}

func (c *RowSource) Configs(ctx context.Context, id string) ([]string, error) {
	key := keyPrefix + "configs:" + id
	if val, ok := c.lookup(ctx, key); ok {
		var cfgs []string
		if err := json.Unmarshal(val, &cfgs); err == nil {
			return cfgs, nil
		}
	}

	cfgs, err := c.next.Configs(ctx, id)
	if err != nil {
		return nil, err
	}
	if val, err := json.Marshal(cfgs); err == nil {
		c.store(ctx, key, val)
	}
	return cfgs, nil
}

// lookup treats backend failures as misses.
func (c *RowSource) lookup(ctx context.Context, key string) ([]byte, bool) {
	val, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return val, ok
}

func (c *RowSource) store(ctx context.Context, key string, val []byte) {
	if err := c.backend.Set(ctx, key, val, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func datasetKey(kind string, ds provider.Dataset) string {
	return fmt.Sprintf("%s%s:%q:%q:%q", keyPrefix, kind, ds.ID, ds.Config, ds.Split)
}

func decodeRecords(val []byte) ([]record.Record, error) {
	if !gjson.ValidBytes(val) {
		return nil, fmt.Errorf("invalid cached rows")
	}
	doc := gjson.ParseBytes(val)
	if doc.Type == gjson.Null {
		return nil, nil
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("cached rows are not an array")
	}
	var out []record.Record
	doc.ForEach(func(_, v gjson.Result) bool {
		out = append(out, record.FromResult(v))
		return true
	})
	return out, nil
}
