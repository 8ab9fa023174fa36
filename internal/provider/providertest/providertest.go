// Package providertest provides in-memory row engines and providers for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
)

// Rows is an in-memory provider.RowSource keyed by dataset id, config and split.
// It records the largest single read so tests can check fetch bounds.
type Rows struct {
	mu      sync.Mutex
	data    map[provider.Dataset][]record.Record
	configs map[string][]string

	Calls   int
	MaxRead int
}

func NewRows() *Rows {
	return &Rows{
		data:    make(map[provider.Dataset][]record.Record),
		configs: make(map[string][]string),
	}
}

// Put registers the rows of one split.
func (r *Rows) Put(ds provider.Dataset, recs []record.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[ds] = recs
	for _, c := range r.configs[ds.ID] {
		if c == ds.Config {
			return
		}
	}
	r.configs[ds.ID] = append(r.configs[ds.ID], ds.Config)
}

func (r *Rows) Rows(ctx context.Context, ds provider.Dataset, offset, length int) ([]record.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	r.MaxRead = max(r.MaxRead, length)

	recs, ok := r.data[ds]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ds, provider.ErrSourceNotFound)
	}
	if offset >= len(recs) {
		return nil, nil
	}
	end := min(offset+length, len(recs))
	return recs[offset:end], nil
}

func (r *Rows) NumRows(ctx context.Context, ds provider.Dataset) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs, ok := r.data[ds]
	if !ok {
		return 0, fmt.Errorf("%s: %w", ds, provider.ErrSourceNotFound)
	}
	return len(recs), nil
}

func (r *Rows) Configs(ctx context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfgs, ok := r.configs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, provider.ErrSourceNotFound)
	}
	return append([]string(nil), cfgs...), nil
}

// Static is a provider over a fixed slice of records.
type Static struct {
	Records []record.Record
	Stream  bool
	MaxRead int
}

func (s *Static) Materialize(ctx context.Context, start, count int) ([]record.Record, error) {
	s.MaxRead = max(s.MaxRead, count)
	if count <= 0 || start >= len(s.Records) {
		return nil, nil
	}
	end := min(start+count, len(s.Records))
	return s.Records[start:end], nil
}

func (s *Static) Length(ctx context.Context) (int, error) {
	if s.Stream {
		return provider.UnknownLength, nil
	}
	return len(s.Records), nil
}

func (s *Static) Streaming() bool { return s.Stream }

// MustParse builds records from JSON object literals.
func MustParse(objects ...string) []record.Record {
	out := make([]record.Record, 0, len(objects))
	for _, o := range objects {
		rec, err := record.Parse([]byte(o))
		if err != nil {
			panic(fmt.Sprintf("providertest: parse %s: %v", o, err))
		}
		out = append(out, rec)
	}
	return out
}

// Numbered returns n records of the form {"idx":i,"text":"row i"}.
func Numbered(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		var rec record.Record
		rec.Set("idx", i)
		rec.Set("text", fmt.Sprintf("row %d", i))
		out[i] = rec
	}
	return out
}
