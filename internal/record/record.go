// Package record holds the ordered row type shared by every dataset source,
// plus the primitive decoders for local files.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid json")

// Record is one dataset row. Field order follows the source document and is
// kept when the record is serialized again.
type Record struct {
	keys   []string
	fields map[string]any
}

// Parse decodes a JSON object into a Record.
func Parse(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) {
		return Record{}, errInvalidJSON
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return Record{}, fmt.Errorf("expected object, got %s", kindOf(res))
	}
	return FromResult(res), nil
}

// FromResult builds a Record from an already parsed gjson object. Nested
// objects become Records too, so their field order survives.
func FromResult(res gjson.Result) Record {
	var r Record
	res.ForEach(func(k, v gjson.Result) bool {
		r.Set(k.String(), valueOf(v))
		return true
	})
	return r
}

func valueOf(res gjson.Result) any {
	switch {
	case res.IsObject():
		return FromResult(res)
	case res.IsArray():
		items := res.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = valueOf(item)
		}
		return out
	}
	return res.Value()
}

// Set assigns a field. New fields are appended after the existing ones.
func (r *Record) Set(key string, value any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = value
}

func (r Record) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

func (r Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Keys returns the field names in document order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Record) Len() int { return len(r.keys) }

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := marshal(r.fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// String returns the compact JSON form of the record, or "" if a field
// cannot be encoded.
func (r Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// JSON serializes any field value the way search matching sees it.
// Values that cannot be encoded yield "".
func JSON(v any) string {
	b, err := marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Text renders a field value for display: strings pass through, nil is
// empty, everything else is its Dump.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return Dump(v)
}

// Dump renders v as readers see it and keyword search matches it: JSON with
// ", " and ": " separators and non-ASCII text left as is. Values that cannot
// be encoded yield "".
func Dump(v any) string {
	compact := JSON(v)
	var sb strings.Builder
	sb.Grow(len(compact) + len(compact)/8)
	inString, escaped := false, false
	for i := 0; i < len(compact); i++ {
		c := compact[i]
		sb.WriteByte(c)
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == ',', c == ':':
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// marshal encodes without HTML escaping so non-ASCII and <>& survive as-is.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func kindOf(res gjson.Result) string {
	switch {
	case res.IsArray():
		return "array"
	case res.Type == gjson.String:
		return "string"
	case res.Type == gjson.Number:
		return "number"
	case res.Type == gjson.True, res.Type == gjson.False:
		return "bool"
	case res.Type == gjson.Null:
		return "null"
	}
	return res.Type.String()
}
