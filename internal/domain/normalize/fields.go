package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// feedTimeLayout is the time_utc format of the aisstream metadata block.
const feedTimeLayout = "2006-01-02 15:04:05.999999999 -0700 MST"

// object returns the first key holding a JSON object.
func object(item map[string]any, keys ...string) map[string]any {
	if item == nil {
		return nil
	}
	for _, key := range keys {
		if value, ok := item[key].(map[string]any); ok {
			return value
		}
	}
	return nil
}

// str returns the first key holding a non-blank string, trimmed.
func str(item map[string]any, keys ...string) string {
	if item == nil {
		return ""
	}
	for _, key := range keys {
		value, ok := item[key].(string)
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

// number returns the first key holding a JSON number. Numeric strings do not
// count: a coordinate has to be a number to be trusted.
func number(item map[string]any, keys ...string) (float64, bool) {
	if item == nil {
		return 0, false
	}
	for _, key := range keys {
		if f, ok := toFloat64(item[key]); ok {
			return f, true
		}
	}
	return 0, false
}

// optionalNumber is number as a pointer, nil when absent.
func optionalNumber(item map[string]any, keys ...string) *float64 {
	if f, ok := number(item, keys...); ok {
		return &f
	}
	return nil
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// mmsi returns the first key holding a usable maritime identifier.
func mmsi(item map[string]any, keys ...string) string {
	if item == nil {
		return ""
	}
	for _, key := range keys {
		if id := toMMSI(item[key]); id != "" {
			return id
		}
	}
	return ""
}

func toMMSI(value any) string {
	var n int64
	switch v := value.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return ""
			}
			i = int64(f)
		}
		n = i
	case float64:
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	case string:
		s := strings.TrimSpace(v)
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ""
		}
		n = i
	default:
		return ""
	}
	if n <= 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// timestamp returns the first key holding a parseable observation time, in
// milliseconds since epoch.
func timestamp(item map[string]any, keys ...string) (int64, bool) {
	if item == nil {
		return 0, false
	}
	for _, key := range keys {
		if ms, ok := toMillis(item[key]); ok {
			return ms, true
		}
	}
	return 0, false
}

func toMillis(value any) (int64, bool) {
	var ms int64
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			ms = i
		} else if f, err := v.Float64(); err == nil {
			ms = int64(f)
		} else {
			return 0, false
		}
	case float64:
		ms = int64(v)
	case int64:
		ms = v
	case int:
		ms = int64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			ms = i
			break
		}
		t, ok := parseTime(s)
		if !ok {
			return 0, false
		}
		ms = t.UnixMilli()
	default:
		return 0, false
	}
	return ms, ms > 0
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, feedTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
