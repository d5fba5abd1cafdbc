package normalizer

import (
	"fmt"
	"strconv"
)

// Provider payloads are duck-typed JSON with many optional, renamed fields.
// The helpers below implement the extraction primitive shared by all
// normalizers: try an ordered list of keys and accept the first usable
// value.

// stringField returns the first key whose value is a non-empty string or a
// number (numbers are formatted without a trailing exponent, so numeric ids
// survive the round trip through JSON).
func stringField(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

// floatField returns the first key holding a numeric value.
func floatField(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// mapField returns the first key holding a JSON object.
func mapField(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, key := range keys {
		if v, ok := m[key].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

// timestampField returns the first key holding a timestamp-like value as
// its raw string form. Parsing is deferred to the freshness stage, which
// fails closed on malformed values.
func timestampField(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

// unwrapValue accepts either a scalar or a {value: x} wrapper, which Samsara
// uses interchangeably for kinematic fields.
func unwrapValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case map[string]any:
		if inner, ok := t["value"].(float64); ok {
			return inner, true
		}
	}
	return 0, false
}

// floatPtr is a convenience for optional kinematic fields.
func floatPtr(f float64) *float64 { return &f }

// syntheticName builds the terminal fallback of a name resolution chain.
func syntheticName(prefix, externalID string) string {
	if prefix == "" {
		return fmt.Sprintf("asset %s", externalID)
	}
	return fmt.Sprintf("%s asset %s", prefix, externalID)
}
