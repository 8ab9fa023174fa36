package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/MikeSquared-Agency/chatlens/internal/record"
	"github.com/MikeSquared-Agency/chatlens/internal/source"
)

// localProvider decodes its file once, on first use.
type localProvider struct {
	path   string
	logger *slog.Logger

	once    sync.Once
	records []record.Record
	err     error
}

func openLocal(desc source.Descriptor, options Options) (*localProvider, error) {
	info, err := os.Stat(desc.Location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if desc.Indeterminate {
				return nil, fmt.Errorf("%q is neither a dataset id nor an existing path: %w", desc.Location, ErrSourceUnresolvable)
			}
			return nil, fmt.Errorf("open %s: %w", desc.Location, ErrSourceNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", desc.Location, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open %s: is a directory: %w", desc.Location, ErrSourceNotFound)
	}
	return &localProvider{path: desc.Location, logger: options.Logger}, nil
}

func (p *localProvider) load() ([]record.Record, error) {
	p.once.Do(func() {
		p.records, p.err = decodeFile(p.path, p.logger)
	})
	return p.records, p.err
}

func (p *localProvider) Materialize(ctx context.Context, start, count int) ([]record.Record, error) {
	if start < 0 {
		return nil, fmt.Errorf("start %d: %w", start, ErrIndexOutOfRange)
	}
	recs, err := p.load()
	if err != nil {
		return nil, err
	}
	if count <= 0 || start >= len(recs) {
		return nil, nil
	}
	end := min(start+count, len(recs))
	out := make([]record.Record, end-start)
	copy(out, recs[start:end])
	return out, nil
}

func (p *localProvider) Length(ctx context.Context) (int, error) {
	recs, err := p.load()
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (p *localProvider) Streaming() bool { return false }

func decodeFile(path string, logger *slog.Logger) ([]record.Record, error) {
	var (
		recs    []record.Record
		skipped []record.LineError
		err     error
	)

	switch record.FormatOf(path) {
	case record.FormatTable:
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open: %w", openErr)
		}
		defer f.Close()
		recs, err = record.DecodeTable(f, record.CommaFor(path))
	case record.FormatLines:
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open: %w", openErr)
		}
		defer f.Close()
		recs, skipped, err = record.DecodeLines(f)
	default:
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read: %w", readErr)
		}
		recs, skipped, err = record.DecodeDocument(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, path, err)
	}

	for _, s := range skipped {
		logger.Warn("skipped malformed record", "path", path, "line", s.Line, "error", s.Err)
	}
	logger.Debug("decoded local source", "path", path, "records", len(recs), "skipped", len(skipped))

	return recs, nil
}
