package requests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	FieldID        = "id"
	FieldStatus    = "status"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"

	StatusPending = "pending"
)

var errNotObject = errors.New("request must be a JSON object")

// Record is one request, held as its raw JSON object so that field order and
// fields this package knows nothing about survive every rewrite of the list.
type Record json.RawMessage

// ParseRecord validates data as a JSON object.
func ParseRecord(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, errNotObject
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return Record(buf.Bytes()), nil
}

// MustRecord is ParseRecord for literals; it panics on invalid input.
func MustRecord(data string) Record {
	r, err := ParseRecord([]byte(data))
	if err != nil {
		panic(err)
	}
	return r
}

func (r Record) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	parsed, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Get returns the value of a top-level field.
func (r Record) Get(field string) gjson.Result {
	return gjson.GetBytes(r, gjson.Escape(field))
}

// ID returns the record id, or "" if the record has no string id.
func (r Record) ID() string {
	id := r.Get(FieldID)
	if id.Type != gjson.String {
		return ""
	}
	return id.Str
}

// Status returns the status field as text.
func (r Record) Status() string {
	return r.Get(FieldStatus).String()
}

// Set returns a copy of r with field set to value. Existing fields keep their
// position; new fields are appended.
func (r Record) Set(field string, value any) (Record, error) {
	out, err := sjson.SetBytes(clone(r), fieldPath(field), value)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", field, err)
	}
	return Record(out), nil
}

func (r Record) setRaw(field string, raw []byte) (Record, error) {
	out, err := sjson.SetRawBytes(clone(r), fieldPath(field), raw)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", field, err)
	}
	return Record(out), nil
}

// Merge overlays every field of updates onto r, except the id.
func (r Record) Merge(updates Record) (Record, error) {
	out := r
	var err error
	gjson.ParseBytes(updates).ForEach(func(key, value gjson.Result) bool {
		if key.Str == FieldID {
			return true
		}
		out, err = out.setRaw(key.Str, []byte(value.Raw))
		return err == nil
	})
	return out, err
}

// hasValue reports whether field holds a value other than null, false, 0 or
// the empty string.
func (r Record) hasValue(field string) bool {
	v := r.Get(field)
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	}
	return v.Exists()
}

// fieldPath turns a literal key into an sjson path: ':' forces an object key
// and the escape keeps dots and wildcards literal.
func fieldPath(field string) string {
	return ":" + gjson.Escape(field)
}

func clone(r Record) []byte {
	return append([]byte(nil), r...)
}

// DecodeList parses a JSON array of objects. Blank input is an empty list.
func DecodeList(data []byte) ([]Record, error) {
	records := []Record{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	list := gjson.ParseBytes(data)
	if !list.IsArray() {
		return nil, errors.New("expected a JSON array of requests")
	}

	var err error
	list.ForEach(func(_, value gjson.Result) bool {
		var rec Record
		rec, err = ParseRecord([]byte(value.Raw))
		if err != nil {
			err = fmt.Errorf("element %d: %w", len(records), err)
			return false
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// EncodeList renders records as a JSON array indented by two spaces, the
// layout the stored files use.
func EncodeList(records []Record) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, rec := range records {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := json.Compact(&compact, rec); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
