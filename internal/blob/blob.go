// Package blob holds the typed codecs for fields stored as serialized JSON
// text. The store layer treats these fields as opaque strings; callers read
// and write them only through the codec of the blob's schema.
package blob

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

// maxUnwrap bounds how many layers of JSON string encoding Decode peels.
const maxUnwrap = 3

// validator is implemented by schemas that check their own invariants.
type validator interface {
	Validate() error
}

// Codec converts one blob schema to and from its stored text.
type Codec[T any] struct {
	field string
}

// New returns a codec for values stored in field.
func New[T any](field string) Codec[T] {
	return Codec[T]{field: field}
}

// Field returns the name of the field the codec serves.
func (c Codec[T]) Field() string { return c.field }

// Encode serializes v. Values that fail their own validation are refused.
func (c Codec[T]) Encode(v T) (string, error) {
	if err := c.validate(v); err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.field, err)
	}
	return string(b), nil
}

// Decode parses stored text. Empty text decodes to the zero value.
func (c Codec[T]) Decode(s string) (T, error) {
	var v T
	text, err := clean(s)
	if err != nil {
		return v, domain.NewValidationError(c.field, err.Error())
	}
	if text == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return v, domain.NewValidationError(c.field, "malformed JSON: "+err.Error())
	}
	if err := c.validate(v); err != nil {
		return v, err
	}
	return v, nil
}

// DecodeField decodes the blob held by rec, if any.
func (c Codec[T]) DecodeField(rec domain.Record) (T, error) {
	s, _ := rec[c.field].(string)
	return c.Decode(s)
}

func (c Codec[T]) validate(v T) error {
	val, ok := any(v).(validator)
	if !ok {
		return nil
	}
	if err := val.Validate(); err != nil {
		return domain.NewValidationError(c.field, err.Error())
	}
	return nil
}

// clean normalizes blob text written by earlier producers: surrounding
// whitespace, markdown code fences, JSON documents encoded a second time as
// a JSON string, and a literal null. The result is either "" or a JSON
// document other than a string.
func clean(s string) (string, error) {
	for i := 0; ; i++ {
		s = stripFence(strings.TrimSpace(s))
		if s == "" || s == "null" {
			return "", nil
		}
		if s[0] != '"' {
			return s, nil
		}
		if i == maxUnwrap {
			return "", fmt.Errorf("text is encoded more than %d times", maxUnwrap)
		}
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return "", fmt.Errorf("malformed JSON string: %v", err)
		}
		s = inner
	}
}

// stripFence removes a ``` or ```json fence wrapping the whole of s.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[\"") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	return strings.TrimSpace(body)
}
