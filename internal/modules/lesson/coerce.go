package lesson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// coerceList turns whatever shape the model put in a list-valued field into an
// ordered []any. Arrays pass through, objects flatten to their property values
// in sorted-key order (map iteration is randomized, the output must not be),
// and strings go through the ladder in coerceStringToList. Any other scalar
// wraps as a singleton.
func coerceList(v any) []any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		return t
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			out = append(out, s)
		}
		return out
	case map[string]any:
		out := make([]any, 0, len(t))
		for _, k := range sortedKeys(t) {
			out = append(out, t[k])
		}
		return out
	case string:
		return coerceStringToList(t)
	default:
		return []any{v}
	}
}

// coerceStringToList tries the string as embedded JSON first, then splits on
// commas, then on newlines, then wraps the whole string as a singleton. The
// JSON branch wins even when the payload also contains commas, so a serialized
// array is never mangled by the comma split. A parsed JSON scalar still wraps
// as a singleton; only a parsed array is used element-wise.
func coerceStringToList(s string) []any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return []any{}
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		if arr, ok := parsed.([]any); ok {
			return arr
		}
		return []any{parsed}
	}
	if strings.Contains(trimmed, ",") {
		return splitTrimmed(trimmed, ",")
	}
	if strings.Contains(trimmed, "\n") {
		return splitTrimmed(trimmed, "\n")
	}
	return []any{trimmed}
}

func splitTrimmed(s, sep string) []any {
	parts := strings.Split(s, sep)
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// stringListFromAny coerces v to a list and keeps the non-empty string forms
// of its elements. Object elements contribute their first scalar property
// value rather than a Sprint of the whole map.
func stringListFromAny(v any) []string {
	items := coerceList(v)
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if m, ok := it.(map[string]any); ok {
			s = firstScalarValue(m)
		} else {
			s = strings.TrimSpace(stringFromAny(it))
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstScalarValue walks an object's values in sorted-key order and returns
// the first non-empty scalar as a string.
func firstScalarValue(m map[string]any) string {
	for _, k := range sortedKeys(m) {
		switch m[k].(type) {
		case map[string]any, []any, nil:
			continue
		}
		if s := strings.TrimSpace(stringFromAny(m[k])); s != "" {
			return s
		}
	}
	return ""
}

func stringFromAny(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func intFromAny(v any, def int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		i, _ := t.Int64()
		return int(i)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return def
	default:
		return def
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, uint, uint64, uint32, json.Number:
		return true
	}
	return false
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
