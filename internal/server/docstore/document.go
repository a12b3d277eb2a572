package docstore

import "time"

// Document is a decoded JSON object. Numbers are float64, nested objects are
// map[string]any and arrays are []any, exactly as encoding/json produces them.
type Document map[string]any

// Snapshot is a document returned by List together with its path.
type Snapshot struct {
	Path Path
	Data Document
}

// ID is the document id, the last segment of its path.
func (s Snapshot) ID() string { return s.Path.ID() }

func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Has reports whether key is present, even with a null value.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Array returns the array stored under key. ok is false when the key is
// absent or holds something other than an array.
func (d Document) Array(key string) (items []any, ok bool) {
	items, ok = d[key].([]any)
	return items, ok
}

// Strings returns the string elements of the array under key, skipping
// anything that is not a string.
func (d Document) Strings(key string) []string {
	items, _ := d.Array(key)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Map returns the nested object under key, or nil.
func (d Document) Map(key string) map[string]any {
	m, _ := d[key].(map[string]any)
	return m
}

// Time parses an RFC 3339 timestamp stored under key.
func (d Document) Time(key string) (time.Time, bool) {
	s, ok := d[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy, so callers may mutate the result freely.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case Document:
		return cloneValue(map[string]any(t))
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	default:
		return v
	}
}
