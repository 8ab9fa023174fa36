package slice

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/MikeSquared-Agency/chatlens/internal/conversation"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/provider/providertest"
)

func TestSearch_BoundedFetch(t *testing.T) {
	ctx := context.Background()
	for _, stream := range []bool{false, true} {
		p := &providertest.Static{Records: providertest.Numbered(5000), Stream: stream}

		got, err := Search(ctx, p, Query{Keyword: "no such text", Limit: 3})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no matches, got %d", len(got))
		}
		if p.MaxRead > 3*OverFetchFactor {
			t.Errorf("stream=%v: read %d records, bound is %d", stream, p.MaxRead, 3*OverFetchFactor)
		}
	}
}

func TestSearch_SmallSourceClipsWindow(t *testing.T) {
	p := &providertest.Static{Records: providertest.Numbered(7)}
	got, err := Search(context.Background(), p, Query{Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 7 {
		t.Errorf("expected 7 records, got %d", len(got))
	}
	if p.MaxRead != 7 {
		t.Errorf("expected window of 7, got %d", p.MaxRead)
	}
}

func TestSearch_KeywordAndField(t *testing.T) {
	recs := providertest.MustParse(
		`{"id":1,"title":"Weather","body":"sunny in Paris"}`,
		`{"id":2,"title":"PARIS guide","body":"museums"}`,
		`{"id":3,"title":"Food","body":"bread"}`,
		`{"id":4,"body":"Paris again"}`,
	)
	p := &providertest.Static{Records: recs}
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []float64
	}{
		{"whole record", Query{Keyword: "paris", Limit: 10}, []float64{1, 2, 4}},
		{"field scoped", Query{Keyword: "paris", Field: "title", Limit: 10}, []float64{2, 4}},
		{"limit", Query{Keyword: "paris", Limit: 2}, []float64{1, 2}},
		{"no keyword", Query{Limit: 10}, []float64{1, 2, 3, 4}},
		{"no match", Query{Keyword: "tokyo", Limit: 10}, nil},
		{"spaced separators", Query{Keyword: `"title": "food"`, Limit: 10}, []float64{3}},
		{"spaced field value", Query{Keyword: `3, "title"`, Limit: 10}, []float64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Search(ctx, p, tt.query)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got == nil {
				t.Fatal("expected non-nil result")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, rec := range got {
				id, _ := rec.Get("id")
				if id != tt.want[i] {
					t.Errorf("record %d id = %v, want %v", i, id, tt.want[i])
				}
			}
		})
	}
}

func TestRandomOne_Empty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, stream := range []bool{false, true} {
		p := &providertest.Static{Stream: stream}
		if _, err := RandomOne(context.Background(), p, rng); !errors.Is(err, provider.ErrEmptySource) {
			t.Errorf("stream=%v: expected ErrEmptySource, got %v", stream, err)
		}
	}
}

func TestRandomOne_StreamingCapped(t *testing.T) {
	p := &providertest.Static{Records: providertest.Numbered(5000), Stream: true}
	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 50; i++ {
		rec, err := RandomOne(context.Background(), p, rng)
		if err != nil {
			t.Fatalf("RandomOne: %v", err)
		}
		idx, _ := rec.Get("idx")
		if idx.(int) >= StreamSampleCap {
			t.Fatalf("sampled index %v beyond the streaming prefix", idx)
		}
	}
	if p.MaxRead != StreamSampleCap {
		t.Errorf("MaxRead = %d, want %d", p.MaxRead, StreamSampleCap)
	}
}

func TestRandomOne_MaterializedCoversRange(t *testing.T) {
	p := &providertest.Static{Records: providertest.Numbered(4)}
	rng := rand.New(rand.NewPCG(3, 4))
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		rec, err := RandomOne(context.Background(), p, rng)
		if err != nil {
			t.Fatalf("RandomOne: %v", err)
		}
		idx, _ := rec.Get("idx")
		seen[idx.(int)] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected all 4 indices drawn, saw %v", seen)
	}
}

func dialogues() []conversation.Dialogue {
	return []conversation.Dialogue{
		{ID: "d1", Services: []string{"hotel"}, Turns: []conversation.Turn{{Speaker: "USER", Text: "Cheap hotel please"}}},
		{ID: "d2", Services: []string{"taxi", "Restaurant"}, Turns: []conversation.Turn{{Speaker: "USER", Text: "Book a taxi"}}},
		{ID: "d3", Services: []string{"restaurant"}, Turns: []conversation.Turn{{Speaker: "USER", Text: "Italian food"}, {Speaker: "SYSTEM", Text: "Cheap?"}}},
		{ID: "d4", Turns: nil},
	}
}

func ids(ds []conversation.Dialogue) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}

func TestFilterDialogues(t *testing.T) {
	tests := []struct {
		name    string
		service string
		keyword string
		limit   int
		want    []string
	}{
		{"no filters keeps order", "", "", 10, []string{"d1", "d2", "d3", "d4"}},
		{"no filters limited", "", "", 2, []string{"d1", "d2"}},
		{"service ignores case", "restaurant", "", 10, []string{"d2", "d3"}},
		{"service is exact", "rest", "", 10, []string{}},
		{"keyword", "", "CHEAP", 10, []string{"d1", "d3"}},
		{"both", "restaurant", "cheap", 10, []string{"d3"}},
		{"zero limit", "", "", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterDialogues(dialogues(), tt.service, tt.keyword, tt.limit))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
