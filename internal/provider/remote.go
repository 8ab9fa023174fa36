package provider

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/chatlens/internal/record"
	"github.com/MikeSquared-Agency/chatlens/internal/source"
)

type remoteProvider struct {
	rows      RowSource
	ds        Dataset
	streaming bool
	length    int
}

func openRemote(ctx context.Context, desc source.Descriptor, options Options) (*remoteProvider, error) {
	p := &remoteProvider{
		rows: options.Rows,
		ds: Dataset{
			ID:     desc.Location,
			Config: desc.Config,
			Split:  desc.Split,
		},
		streaming: options.Streaming,
		length:    UnknownLength,
	}
	if p.streaming {
		return p, nil
	}

	n, err := p.rows.NumRows(ctx, p.ds)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.ds, err)
	}
	p.length = n
	return p, nil
}

func (p *remoteProvider) Materialize(ctx context.Context, start, count int) ([]record.Record, error) {
	if start < 0 {
		return nil, fmt.Errorf("start %d: %w", start, ErrIndexOutOfRange)
	}
	if count <= 0 {
		return nil, nil
	}

	if p.streaming {
		// Sequential take: read the prefix and drop what precedes start.
		rows, err := p.rows.Rows(ctx, p.ds, 0, start+count)
		if err != nil {
			return nil, fmt.Errorf("take %s: %w", p.ds, err)
		}
		if start >= len(rows) {
			return nil, nil
		}
		return rows[start:], nil
	}

	if start >= p.length {
		return nil, nil
	}
	if start+count > p.length {
		count = p.length - start
	}
	rows, err := p.rows.Rows(ctx, p.ds, start, count)
	if err != nil {
		return nil, fmt.Errorf("rows %s: %w", p.ds, err)
	}
	return rows, nil
}

func (p *remoteProvider) Length(ctx context.Context) (int, error) {
	return p.length, nil
}

func (p *remoteProvider) Streaming() bool { return p.streaming }
