// Package slice implements bounded keyword search and random sampling over
// record providers.
package slice

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/MikeSquared-Agency/chatlens/internal/conversation"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
)

const (
	// OverFetchFactor bounds a search to limit × OverFetchFactor records.
	OverFetchFactor = 50
	// StreamSampleCap is the prefix random sampling draws from when the
	// source length is unknown.
	StreamSampleCap = 1000
)

// Query selects records for Search. An empty Keyword matches everything; an
// empty Field, or one absent from a record, matches against the whole record.
type Query struct {
	Keyword string
	Field   string
	Limit   int
}

// Search returns up to q.Limit matching records in provider order. At most
// q.Limit × OverFetchFactor records are read from p.
func Search(ctx context.Context, p provider.Provider, q Query) ([]record.Record, error) {
	if q.Limit <= 0 {
		return []record.Record{}, nil
	}

	window := q.Limit * OverFetchFactor
	if !p.Streaming() {
		n, err := p.Length(ctx)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if n != provider.UnknownLength {
			window = min(window, n)
		}
	}

	recs, err := p.Materialize(ctx, 0, window)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	keyword := strings.ToLower(q.Keyword)
	out := []record.Record{}
	for _, rec := range recs {
		if keyword != "" && !strings.Contains(strings.ToLower(matchText(rec, q.Field)), keyword) {
			continue
		}
		out = append(out, rec)
		if len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func matchText(rec record.Record, field string) string {
	if field != "" {
		if v, ok := rec.Get(field); ok {
			return record.Dump(v)
		}
	}
	return record.Dump(rec)
}

// RandomOne draws one record uniformly. Streaming sources are sampled from
// their first StreamSampleCap records.
func RandomOne(ctx context.Context, p provider.Provider, rng *rand.Rand) (record.Record, error) {
	if p.Streaming() {
		recs, err := p.Materialize(ctx, 0, StreamSampleCap)
		if err != nil {
			return record.Record{}, fmt.Errorf("random: %w", err)
		}
		if len(recs) == 0 {
			return record.Record{}, provider.ErrEmptySource
		}
		return recs[rng.IntN(len(recs))], nil
	}

	n, err := p.Length(ctx)
	if err != nil {
		return record.Record{}, fmt.Errorf("random: %w", err)
	}
	if n <= 0 {
		return record.Record{}, provider.ErrEmptySource
	}
	recs, err := p.Materialize(ctx, rng.IntN(n), 1)
	if err != nil {
		return record.Record{}, fmt.Errorf("random: %w", err)
	}
	if len(recs) == 0 {
		return record.Record{}, provider.ErrEmptySource
	}
	return recs[0], nil
}

// FilterDialogues keeps dialogues offering service (when non-empty) whose
// utterances contain keyword (when non-empty), both compared without case.
// It stops after limit matches.
func FilterDialogues(dialogues []conversation.Dialogue, service, keyword string, limit int) []conversation.Dialogue {
	keyword = strings.ToLower(keyword)
	out := []conversation.Dialogue{}
	if limit <= 0 {
		return out
	}
	for _, d := range dialogues {
		if service != "" && !d.HasService(service) {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(d.Utterances()), keyword) {
			continue
		}
		out = append(out, d)
		if len(out) >= limit {
			break
		}
	}
	return out
}
