// Package eventdata gives handlers one consistent way to read semi-structured
// event payloads. Payload shape is not enforced upstream, so every accessor
// resolves absent, null or wrong-typed values to a default instead of failing.
package eventdata

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payload is a read-only view over event_data or event_metadata.
// A nil Payload is valid and behaves as empty.
type Payload map[string]interface{}

// Lookup returns the raw value for key. Explicit JSON null counts as absent.
func (p Payload) Lookup(key string) (interface{}, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether key holds a non-null value.
func (p Payload) Has(key string) bool {
	_, ok := p.Lookup(key)
	return ok
}

// Text returns the string at key, or "" when absent or not a string.
func (p Payload) Text(key string) string {
	return p.TextOr(key, "")
}

// TextOr returns the string at key, or def when absent, blank or not a string.
func (p Payload) TextOr(key, def string) string {
	v, ok := p.Lookup(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// OptionalText returns a pointer to the string at key, or nil when absent or not a string.
// An empty string is returned as a pointer to "" so callers can clear a column on purpose.
func (p Payload) OptionalText(key string) *string {
	v, ok := p.Lookup(key)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// UUID parses the value at key as a UUID.
func (p Payload) UUID(key string) (uuid.UUID, bool) {
	s := p.Text(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// UUIDString returns the canonical form of the UUID at key, or "" when absent or malformed.
func (p Payload) UUIDString(key string) string {
	id, ok := p.UUID(key)
	if !ok {
		return ""
	}
	return id.String()
}

// ID returns the identifier at key. UUIDs are canonicalised; any other
// non-blank string is returned verbatim since not every producer uses UUIDs.
func (p Payload) ID(key string) string {
	if id, ok := p.UUID(key); ok {
		return id.String()
	}
	return strings.TrimSpace(p.Text(key))
}

// Time returns the timestamp at key, or def when absent or unparseable.
// Accepts RFC 3339 strings (with or without fractional seconds) and time.Time values.
func (p Payload) Time(key string, def time.Time) time.Time {
	if t := p.OptionalTime(key); t != nil {
		return *t
	}
	return def
}

// OptionalTime returns the timestamp at key, or nil when absent or unparseable.
func (p Payload) OptionalTime(key string) *time.Time {
	v, ok := p.Lookup(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		u := parsed.UTC()
		return &u
	default:
		return nil
	}
}

// Bool returns the boolean at key. Strings "true"/"false" are accepted.
func (p Payload) Bool(key string, def bool) bool {
	v, ok := p.Lookup(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// Int returns the integer at key. JSON numbers decode as float64, so those are accepted too.
func (p Payload) Int(key string, def int64) int64 {
	v, ok := p.Lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return def
		}
		return i
	default:
		return def
	}
}

// Strings returns the string elements of the array at key, skipping anything else.
func (p Payload) Strings(key string) []string {
	v, ok := p.Lookup(key)
	if !ok {
		return nil
	}
	switch items := v.(type) {
	case []string:
		return append([]string(nil), items...)
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Object returns the nested object at key, or nil.
func (p Payload) Object(key string) Payload {
	v, ok := p.Lookup(key)
	if !ok {
		return nil
	}
	return asPayload(v)
}

// Objects returns the object elements of the array at key, skipping anything else.
func (p Payload) Objects(key string) []Payload {
	v, ok := p.Lookup(key)
	if !ok {
		return nil
	}
	var items []interface{}
	switch arr := v.(type) {
	case []interface{}:
		items = arr
	case []map[string]interface{}:
		for _, m := range arr {
			items = append(items, m)
		}
	default:
		return nil
	}

	out := make([]Payload, 0, len(items))
	for _, item := range items {
		if obj := asPayload(item); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

func asPayload(v interface{}) Payload {
	switch m := v.(type) {
	case map[string]interface{}:
		return Payload(m)
	case Payload:
		return m
	default:
		return nil
	}
}
