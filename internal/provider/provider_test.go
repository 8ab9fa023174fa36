package provider_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/provider/providertest"
	"github.com/MikeSquared-Agency/chatlens/internal/source"
)

func TestOpenLocal_JSONLWithMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.jsonl")
	writeFile(t, path, `{"id":"a","text":"one"}
{"id":"b","text":
{"id":"c","text":"three"}

{"id":"d","text":"four"}
`)

	p, err := provider.Open(context.Background(), source.Resolve(path, "", "train"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := p.Length(context.Background())
	if err != nil {
		t.Fatalf("length: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}

	recs, err := p.Materialize(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records from index 1, got %d", len(recs))
	}
	if v, _ := recs[0].Get("id"); v != "c" {
		t.Errorf("recs[0].id = %v, want c", v)
	}
	if p.Streaming() {
		t.Error("local provider should not be streaming")
	}
}

func TestOpenLocal_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"rows.csv":    "prompt,response\n2+2?,4\nhi,hello\n",
		"array.json":  `[{"a":1},{"a":2},{"a":3}]`,
		"single.json": `{"prompt":"2+2?","response":"4"}`,
	}
	want := map[string]int{"rows.csv": 2, "array.json": 3, "single.json": 1}

	for name, body := range files {
		path := filepath.Join(dir, name)
		writeFile(t, path, body)

		p, err := provider.Open(context.Background(), source.Resolve(path, "", "train"))
		if err != nil {
			t.Fatalf("%s: open: %v", name, err)
		}
		n, err := p.Length(context.Background())
		if err != nil {
			t.Fatalf("%s: length: %v", name, err)
		}
		if n != want[name] {
			t.Errorf("%s: expected %d records, got %d", name, want[name], n)
		}
	}
}

func TestOpenLocal_DecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	writeFile(t, path, `[{"a":1},`)

	p, err := provider.Open(context.Background(), source.Resolve(path, "", "train"))
	if err != nil {
		t.Fatalf("open should succeed, decoding is lazy: %v", err)
	}
	_, err = p.Materialize(context.Background(), 0, 1)
	if !errors.Is(err, provider.ErrDecodeFailure) {
		t.Fatalf("expected ErrDecodeFailure, got %v", err)
	}
}

func TestOpenLocal_NotFound(t *testing.T) {
	_, err := provider.Open(context.Background(), source.Resolve("/nonexistent/train.jsonl", "", "train"))
	if !errors.Is(err, provider.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}

	_, err = provider.Open(context.Background(), source.Resolve("mystery-source", "", "train"))
	if !errors.Is(err, provider.ErrSourceUnresolvable) {
		t.Fatalf("expected ErrSourceUnresolvable, got %v", err)
	}
}

func TestOpenRemote_Materialized(t *testing.T) {
	rows := providertest.NewRows()
	rows.Put(provider.Dataset{ID: "org/chat", Config: "default", Split: "train"}, providertest.Numbered(5))

	p, err := provider.Open(context.Background(),
		source.Resolve("hf://org/chat", "default", "train"),
		provider.WithRows(rows),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, _ := p.Length(context.Background())
	if n != 5 {
		t.Errorf("expected length 5, got %d", n)
	}

	recs, err := p.Materialize(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if rows.MaxRead != 2 {
		t.Errorf("expected read clipped to 2, got %d", rows.MaxRead)
	}

	recs, err = p.Materialize(context.Background(), 9, 1)
	if err != nil || len(recs) != 0 {
		t.Errorf("expected empty past the end, got %d records, err %v", len(recs), err)
	}
}

func TestOpenRemote_Streaming(t *testing.T) {
	rows := providertest.NewRows()
	rows.Put(provider.Dataset{ID: "org/chat", Split: "train"}, providertest.Numbered(5))

	p, err := provider.Open(context.Background(),
		source.Resolve("org/chat", "", "train"),
		provider.WithRows(rows),
		provider.WithStreaming(true),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Streaming() {
		t.Error("expected streaming provider")
	}
	n, _ := p.Length(context.Background())
	if n != provider.UnknownLength {
		t.Errorf("expected unknown length, got %d", n)
	}

	recs, err := p.Materialize(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if v, _ := recs[0].Get("idx"); v != 2 {
		t.Errorf("first streamed record idx = %v, want 2", v)
	}
}

func TestOpenRemote_UnknownDataset(t *testing.T) {
	rows := providertest.NewRows()
	_, err := provider.Open(context.Background(), source.Resolve("org/missing", "", "train"), provider.WithRows(rows))
	if !errors.Is(err, provider.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestConfigs(t *testing.T) {
	rows := providertest.NewRows()
	rows.Put(provider.Dataset{ID: "org/chat", Config: "a", Split: "train"}, nil)
	rows.Put(provider.Dataset{ID: "org/chat", Config: "b", Split: "train"}, nil)

	cfgs := provider.Configs(context.Background(), rows, source.Resolve("org/chat", "", "train"))
	if len(cfgs) != 2 || cfgs[0] != "a" || cfgs[1] != "b" {
		t.Errorf("configs = %v", cfgs)
	}

	if cfgs := provider.Configs(context.Background(), rows, source.Resolve("org/none", "", "train")); len(cfgs) != 0 {
		t.Errorf("expected empty configs on error, got %v", cfgs)
	}
	if cfgs := provider.Configs(context.Background(), rows, source.Resolve("./local.jsonl", "", "train")); cfgs == nil || len(cfgs) != 0 {
		t.Errorf("expected empty non-nil configs for local source, got %v", cfgs)
	}
}

func TestHead_Empty(t *testing.T) {
	_, err := provider.Head(context.Background(), &providertest.Static{})
	if !errors.Is(err, provider.ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
