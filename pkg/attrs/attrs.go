package attrs

import (
	"fmt"
	"time"
)

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// ToMap converts a key-value attribute slice into an audit payload.
// Times are rendered as RFC 3339 and other Stringers as their text form;
// a trailing key without a value is dropped.
func ToMap(attrs []any) map[string]any {
	if len(attrs) < 2 {
		return nil
	}
	out := make(map[string]any, len(attrs)/2)
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		switch v := attrs[i+1].(type) {
		case time.Time:
			out[k] = v.UTC().Format(time.RFC3339)
		case fmt.Stringer:
			out[k] = v.String()
		default:
			out[k] = v
		}
	}
	return out
}
