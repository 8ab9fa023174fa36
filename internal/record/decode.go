package record

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Format is the on-disk shape of a local dataset file.
type Format int

const (
	FormatDocument Format = iota // JSON array of records, or a single record
	FormatLines                  // one JSON record per line
	FormatTable                  // delimited text with a header row
)

// FormatOf picks the decoder for a path from its extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return FormatTable
	case ".jsonl", ".ndjson":
		return FormatLines
	default:
		return FormatDocument
	}
}

// LineError reports one input unit that did not decode into a record.
// Line is 1-based: the line number for line-delimited input, the element
// number for JSON arrays.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

// DecodeLines reads one record per non-blank line. Malformed lines are
// skipped and reported; only a read failure returns an error.
func DecodeLines(r io.Reader) ([]Record, []LineError, error) {
	var (
		records []Record
		skipped []LineError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := Parse(line)
		if err != nil {
			skipped = append(skipped, LineError{Line: lineNo, Err: err})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan: %w", err)
	}
	return records, skipped, nil
}

// DecodeDocument reads a JSON array of records or a single JSON object.
// Array elements that are not objects are skipped and reported.
func DecodeDocument(data []byte) ([]Record, []LineError, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, errInvalidJSON
	}
	res := gjson.ParseBytes(data)
	switch {
	case res.IsObject():
		return []Record{FromResult(res)}, nil, nil
	case res.IsArray():
		var (
			records []Record
			skipped []LineError
		)
		for i, el := range res.Array() {
			if !el.IsObject() {
				skipped = append(skipped, LineError{Line: i + 1, Err: fmt.Errorf("expected object, got %s", kindOf(el))})
				continue
			}
			records = append(records, FromResult(el))
		}
		return records, skipped, nil
	default:
		return nil, nil, fmt.Errorf("expected array or object, got %s", kindOf(res))
	}
}

var errEmptyTable = errors.New("empty table: missing header row")

// DecodeTable reads delimited text with a header row, one record per row.
// Short rows leave the missing columns null; extra cells are dropped.
func DecodeTable(r io.Reader, comma rune) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyTable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		var rec Record
		for i, col := range header {
			rec.Set(col, cellValue(valueAt(row, i)))
		}
		records = append(records, rec)
	}
	return records, nil
}

// CommaFor returns the delimiter for a tabular path.
func CommaFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func valueAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}

// cellValue infers a scalar type for one table cell. Empty cells are null.
func cellValue(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	switch s {
	case "True", "true":
		return true
	case "False", "false":
		return false
	}
	return s
}
