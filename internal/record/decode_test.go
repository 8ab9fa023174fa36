package record

import (
	"strings"
	"testing"
)

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"data/train.jsonl":  FormatLines,
		"data/train.NDJSON": FormatLines,
		"data/train.csv":    FormatTable,
		"data/train.tsv":    FormatTable,
		"data/train.json":   FormatDocument,
		"data/train":        FormatDocument,
	}
	for path, want := range tests {
		if got := FormatOf(path); got != want {
			t.Errorf("FormatOf(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDecodeLines_SkipsMalformedLine(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1,"text":"one"}`,
		`{"id":2,"text":`,
		``,
		`   `,
		`{"id":3,"text":"three"}`,
		`[1,2,3]`,
		`{"id":4,"text":"four"}`,
	}, "\n")

	recs, skipped, err := DecodeLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped lines, got %d", len(skipped))
	}
	if skipped[0].Line != 2 || skipped[1].Line != 6 {
		t.Errorf("skipped lines = %d, %d, want 2, 6", skipped[0].Line, skipped[1].Line)
	}
	v, _ := recs[2].Get("text")
	if v != "four" {
		t.Errorf("recs[2].text = %v", v)
	}
}

func TestDecodeLines_Empty(t *testing.T) {
	recs, skipped, err := DecodeLines(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 0 || len(skipped) != 0 {
		t.Errorf("expected nothing, got %d records, %d skipped", len(recs), len(skipped))
	}
}

func TestDecodeDocument(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		recs, skipped, err := DecodeDocument([]byte(`[{"a":1},"stray",{"a":2}]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("expected 2 records, got %d", len(recs))
		}
		if len(skipped) != 1 || skipped[0].Line != 2 {
			t.Errorf("skipped = %+v", skipped)
		}
	})

	t.Run("single object", func(t *testing.T) {
		recs, _, err := DecodeDocument([]byte(`{"prompt":"2+2?","response":"4"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
	})

	t.Run("scalar", func(t *testing.T) {
		if _, _, err := DecodeDocument([]byte(`17`)); err == nil {
			t.Error("expected error for scalar document")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, _, err := DecodeDocument([]byte(`[{"a":1}`)); err == nil {
			t.Error("expected error for truncated document")
		}
	})
}

func TestDecodeTable(t *testing.T) {
	input := "id,prompt,score,ok,note\n1,hello,0.5,True,\n2,\"quoted, text\",3\n"

	recs, err := DecodeTable(strings.NewReader(input), ',')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	first := recs[0]
	if v, _ := first.Get("id"); v != int64(1) {
		t.Errorf("id = %#v, want int64(1)", v)
	}
	if v, _ := first.Get("score"); v != 0.5 {
		t.Errorf("score = %#v, want 0.5", v)
	}
	if v, _ := first.Get("ok"); v != true {
		t.Errorf("ok = %#v, want true", v)
	}
	if v, ok := first.Get("note"); !ok || v != nil {
		t.Errorf("note = %#v (present %v), want nil", v, ok)
	}

	second := recs[1]
	if v, _ := second.Get("prompt"); v != "quoted, text" {
		t.Errorf("prompt = %#v", v)
	}
	if v, ok := second.Get("ok"); !ok || v != nil {
		t.Errorf("short row should leave ok null, got %#v", v)
	}
	if strings.Join(second.Keys(), ",") != "id,prompt,score,ok,note" {
		t.Errorf("keys = %v", second.Keys())
	}
}

func TestDecodeTable_TabSeparated(t *testing.T) {
	recs, err := DecodeTable(strings.NewReader("a\tb\nx\ty\n"), CommaFor("rows.tsv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := recs[0].Get("b"); v != "y" {
		t.Errorf("b = %#v", v)
	}
}

func TestDecodeTable_Empty(t *testing.T) {
	if _, err := DecodeTable(strings.NewReader(""), ','); err == nil {
		t.Error("expected error for table without header")
	}
}
