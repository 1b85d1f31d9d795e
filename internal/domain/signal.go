package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseSignal coerces a raw attribute into a finite number. Numbers and
// numeric strings are accepted; everything else (nil, booleans, "", "12 m",
// NaN, ±Inf) is absent and yields nil rather than an error.
func ParseSignal(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// FirstTag normalizes an OSM-style tag that arrives as a single value or a
// list of values (simplified graph edges merge tags into lists). Only the
// first element is significant. Absent and empty values yield "".
func FirstTag(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		if len(x) == 0 {
			return ""
		}
		return x[0]
	case []any:
		if len(x) == 0 {
			return ""
		}
		return FirstTag(x[0])
	case bool:
		if x {
			return "yes"
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// optionalString returns a pointer to the first tag value, or nil when absent.
func optionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := FirstTag(v)
	if s == "" {
		if _, isString := v.(string); !isString {
			return nil
		}
	}
	return &s
}
