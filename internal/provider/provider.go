// Package provider yields the records of a resolved source, hiding whether
// they come from a remote row engine or a local file.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/chatlens/internal/record"
	"github.com/MikeSquared-Agency/chatlens/internal/source"
)

var (
	ErrSourceUnresolvable = errors.New("source unresolvable")
	ErrSourceNotFound     = errors.New("source not found")
	ErrDecodeFailure      = errors.New("decode failure")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrEmptySource        = errors.New("empty source")
)

// UnknownLength is returned by Length for streaming sources.
const UnknownLength = -1

// Dataset addresses one split of a remote dataset.
type Dataset struct {
	ID     string
	Config string
	Split  string
}

func (d Dataset) String() string {
	return fmt.Sprintf("%s[%s]/%s", d.ID, d.Config, d.Split)
}

// RowSource is the external engine that materializes rows of remote datasets.
// Rows returns up to length rows starting at offset, fewer at the end of the
// split. Implementations report unknown datasets with ErrSourceNotFound.
type RowSource interface {
	Rows(ctx context.Context, ds Dataset, offset, length int) ([]record.Record, error)
	NumRows(ctx context.Context, ds Dataset) (int, error)
	Configs(ctx context.Context, id string) ([]string, error)
}

// Provider is a per-request handle over an ordered sequence of records.
type Provider interface {
	// Materialize returns up to count records starting at start. A range
	// past the end yields an empty slice, not an error.
	Materialize(ctx context.Context, start, count int) ([]record.Record, error)
	// Length returns the number of records, or UnknownLength.
	Length(ctx context.Context) (int, error)
	// Streaming reports that only prefixes can be read, with no random access.
	Streaming() bool
}

type Option func(*Options)

type Options struct {
	Rows      RowSource
	Streaming bool
	Logger    *slog.Logger
}

// WithRows sets the row engine used for remote datasets.
func WithRows(rows RowSource) Option {
	return func(o *Options) {
		o.Rows = rows
	}
}

// WithStreaming opens remote datasets in streaming mode.
func WithStreaming(streaming bool) Option {
	return func(o *Options) {
		o.Streaming = streaming
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Open returns a provider for desc. Failures to reach the source (missing
// file, unknown dataset, backend error) are returned here or from the first
// read; malformed content is never an error at this layer except for whole
// documents that cannot be decoded at all.
func Open(ctx context.Context, desc source.Descriptor, opts ...Option) (Provider, error) {
	options := NewOptions(opts...)

	if desc.Kind == source.RemoteDataset {
		if options.Rows == nil {
			return nil, fmt.Errorf("open %s: no row source configured", desc.Location)
		}
		return openRemote(ctx, desc, options)
	}
	return openLocal(desc, options)
}

// Configs lists the named configurations of a remote dataset. Local sources
// and row engines that cannot list configurations yield an empty slice.
func Configs(ctx context.Context, rows RowSource, desc source.Descriptor) []string {
	if desc.Kind != source.RemoteDataset || rows == nil {
		return []string{}
	}
	cfgs, err := rows.Configs(ctx, desc.Location)
	if err != nil || cfgs == nil {
		return []string{}
	}
	return cfgs
}

// Head returns the first record of p, or ErrEmptySource.
func Head(ctx context.Context, p Provider) (record.Record, error) {
	recs, err := p.Materialize(ctx, 0, 1)
	if err != nil {
		return record.Record{}, err
	}
	if len(recs) == 0 {
		return record.Record{}, ErrEmptySource
	}
	return recs[0], nil
}
