// Package explorer runs the browse, search, sample and chat flows for one
// request: resolve the source, open a provider, then slice or normalize.
package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/MikeSquared-Agency/chatlens/internal/conversation"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
	"github.com/MikeSquared-Agency/chatlens/internal/schema"
	"github.com/MikeSquared-Agency/chatlens/internal/slice"
	"github.com/MikeSquared-Agency/chatlens/internal/source"
)

const (
	DefaultSplit = "train"

	// idScanPage is the read size when looking an item up by id.
	idScanPage = 100
)

// LocalPatterns are the file globs offered as local sources, in display order.
var LocalPatterns = []string{"*.jsonl", "*.json", "*.csv"}

// Request names a source and the split to read from it.
type Request struct {
	Source string `json:"source"`
	Config string `json:"config"`
	Split  string `json:"split"`
}

type Option func(*Options)

type Options struct {
	Rows          provider.RowSource
	Streaming     bool
	DefaultSource string
	DataDir       string
	Logger        *slog.Logger
	Rand          *rand.Rand
}

func WithRows(rows provider.RowSource) Option {
	return func(o *Options) {
		o.Rows = rows
	}
}

func WithStreaming(streaming bool) Option {
	return func(o *Options) {
		o.Streaming = streaming
	}
}

// WithDefaultSource sets the source listed first by Sources.
func WithDefaultSource(src string) Option {
	return func(o *Options) {
		o.DefaultSource = src
	}
}

// WithDataDir sets the directory scanned for local sources.
func WithDataDir(dir string) Option {
	return func(o *Options) {
		o.DataDir = dir
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRand fixes the random source, mostly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(o *Options) {
		o.Rand = rng
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Rand == nil {
		options.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return options
}

// Explorer is safe for concurrent use.
type Explorer struct {
	options Options

	mu sync.Mutex // guards options.Rand
}

func New(opts ...Option) *Explorer {
	return &Explorer{options: NewOptions(opts...)}
}

// Sources lists the default source followed by the local files found in the
// data directory.
func (e *Explorer) Sources() []string {
	out := []string{}
	if e.options.DefaultSource != "" {
		out = append(out, e.options.DefaultSource)
	}
	if e.options.DataDir == "" {
		return out
	}
	for _, pattern := range LocalPatterns {
		matches, err := filepath.Glob(filepath.Join(e.options.DataDir, pattern))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out
}

// Configs lists the configurations of a remote source; local sources have none.
func (e *Explorer) Configs(ctx context.Context, src string) []string {
	return provider.Configs(ctx, e.options.Rows, source.Resolve(src, "", ""))
}

// Fields returns the field names of the first record, or an empty slice when
// the source cannot be read.
func (e *Explorer) Fields(ctx context.Context, req Request) []string {
	p, err := e.open(ctx, req)
	if err != nil {
		e.options.Logger.Debug("fields unavailable", "source", req.Source, "error", err)
		return []string{}
	}
	first, err := provider.Head(ctx, p)
	if err != nil {
		e.options.Logger.Debug("fields unavailable", "source", req.Source, "error", err)
		return []string{}
	}
	return first.Keys()
}

func (e *Explorer) Search(ctx context.Context, req Request, q slice.Query) ([]record.Record, error) {
	p, err := e.open(ctx, req)
	if err != nil {
		return nil, err
	}
	return slice.Search(ctx, p, q)
}

func (e *Explorer) Random(ctx context.Context, req Request) (record.Record, error) {
	p, err := e.open(ctx, req)
	if err != nil {
		return record.Record{}, err
	}
	return slice.RandomOne(ctx, p, e.newRand())
}

// newRand derives a generator for one call so the shared one is only locked
// while seeding.
func (e *Explorer) newRand() *rand.Rand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return rand.New(rand.NewPCG(e.options.Rand.Uint64(), e.options.Rand.Uint64()))
}

// Chat renders one item as turn pairs. item is an index, an id matched
// against the id or dialogue_id field, or empty for the first record.
// Remote records are normalized with the hint of the first record; local
// records are their own sample.
func (e *Explorer) Chat(ctx context.Context, req Request, item string) ([]conversation.TurnPair, error) {
	desc := e.resolve(req)
	p, err := provider.Open(ctx, desc, e.providerOptions()...)
	if err != nil {
		return nil, err
	}

	rec, err := lookup(ctx, p, item)
	if err != nil {
		return nil, err
	}

	if desc.Kind == source.RemoteDataset {
		first, err := provider.Head(ctx, p)
		if err != nil {
			return nil, err
		}
		return conversation.NormalizeWithHint(rec, schema.Detect(first)), nil
	}
	return conversation.Normalize(rec), nil
}

func lookup(ctx context.Context, p provider.Provider, item string) (record.Record, error) {
	if item == "" {
		return provider.Head(ctx, p)
	}
	if idx, err := strconv.Atoi(item); err == nil && isDigits(item) {
		if p.Streaming() && idx >= slice.StreamSampleCap {
			return record.Record{}, fmt.Errorf("item %d beyond the first %d streamed rows: %w", idx, slice.StreamSampleCap, provider.ErrIndexOutOfRange)
		}
		recs, err := p.Materialize(ctx, idx, 1)
		if err != nil {
			return record.Record{}, err
		}
		if len(recs) == 0 {
			return record.Record{}, fmt.Errorf("item %d: %w", idx, provider.ErrIndexOutOfRange)
		}
		return recs[0], nil
	}
	return findByID(ctx, p, item)
}

// findByID scans in pages. Streaming sources, for ids and indices alike, only
// reach their first slice.StreamSampleCap records.
func findByID(ctx context.Context, p provider.Provider, id string) (record.Record, error) {
	if p.Streaming() {
		recs, err := p.Materialize(ctx, 0, slice.StreamSampleCap)
		if err != nil {
			return record.Record{}, err
		}
		if rec, ok := matchID(recs, id); ok {
			return rec, nil
		}
		return record.Record{}, fmt.Errorf("item %q: %w", id, provider.ErrIndexOutOfRange)
	}

	for offset := 0; ; offset += idScanPage {
		recs, err := p.Materialize(ctx, offset, idScanPage)
		if err != nil {
			return record.Record{}, err
		}
		if rec, ok := matchID(recs, id); ok {
			return rec, nil
		}
		if len(recs) < idScanPage {
			return record.Record{}, fmt.Errorf("item %q: %w", id, provider.ErrIndexOutOfRange)
		}
	}
}

func matchID(recs []record.Record, id string) (record.Record, bool) {
	for _, rec := range recs {
		for _, key := range []string{"id", "dialogue_id"} {
			if v, ok := rec.Get(key); ok && v != nil && record.Text(v) == id {
				return rec, true
			}
		}
	}
	return record.Record{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (e *Explorer) resolve(req Request) source.Descriptor {
	split := req.Split
	if split == "" {
		split = DefaultSplit
	}
	return source.Resolve(req.Source, req.Config, split)
}

func (e *Explorer) open(ctx context.Context, req Request) (provider.Provider, error) {
	return provider.Open(ctx, e.resolve(req), e.providerOptions()...)
}

func (e *Explorer) providerOptions() []provider.Option {
	return []provider.Option{
		provider.WithRows(e.options.Rows),
		provider.WithStreaming(e.options.Streaming),
		provider.WithLogger(e.options.Logger),
	}
}
