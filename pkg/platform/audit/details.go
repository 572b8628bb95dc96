package audit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// detailsMessageKey is the wrapper key for free-form detail text. Kept for
// compatibility with historical events written by the previous system.
const detailsMessageKey = "mensaje"

// DetailsNull is the normalized form of absent details.
const DetailsNull = "null"

// MarshalFunc serializes a value to JSON. Swappable so tests can inject
// serializer failures.
type MarshalFunc func(v any) ([]byte, error)

// Normalizer coerces arbitrary detail input into a string that is guaranteed
// to parse as JSON. It has no failure mode observable to the caller: whatever
// goes in, a valid JSON document comes out.
type Normalizer struct {
	marshal MarshalFunc
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithMarshal overrides the JSON serializer. Used by tests to inject failures.
func WithMarshal(fn MarshalFunc) NormalizerOption {
	return func(n *Normalizer) {
		if fn != nil {
			n.marshal = fn
		}
	}
}

// NewNormalizer creates a Normalizer backed by encoding/json.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{marshal: json.Marshal}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns a string that parses as valid JSON, for any input:
//
//   - nil becomes the JSON literal "null"
//   - a string that already parses as JSON is returned unchanged
//   - any other string is wrapped as {"mensaje": ...}
//   - any other value is serialized directly
//
// If serialization itself fails, Normalize falls back to building the wrapper
// object by hand, so it can never fail.
func (n *Normalizer) Normalize(details any) string {
	switch v := details.(type) {
	case nil:
		return DetailsNull
	case string:
		if isValidJSON(v) {
			return v
		}
		return n.wrapMessage(v)
	case json.RawMessage:
		if isValidJSON(string(v)) {
			return string(v)
		}
		return n.wrapMessage(string(v))
	default:
		b, err := n.marshal(details)
		if err != nil {
			return n.wrapMessage(fmt.Sprint(details))
		}
		return string(b)
	}
}

// wrapMessage builds {"mensaje": msg} through the serializer, falling back to
// manual construction when the serializer fails. The fallback does a single
// quote-escape pass and nothing else; it is the last line of defense.
func (n *Normalizer) wrapMessage(msg string) string {
	b, err := n.marshal(map[string]string{detailsMessageKey: msg})
	if err != nil {
		return `{"` + detailsMessageKey + `": "` + strings.ReplaceAll(msg, `"`, `\"`) + `"}`
	}
	return string(b)
}

// isValidJSON reports whether s parses as a JSON document. Empty and
// whitespace-only strings are not valid documents.
func isValidJSON(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return json.Valid([]byte(s))
}
