// Package masking redacts approval secrets before they reach the audit trail.
package masking

import "strings"

const redacted = "****"

// MaskSecret hides a secret, keeping the last four characters when the value
// is long enough that they reveal nothing useful. Data URLs keep their media
// type so an auditor can still see a signature image was supplied.
func MaskSecret(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case strings.HasPrefix(value, "data:"):
		if comma := strings.IndexByte(value, ','); comma > 0 {
			return value[:comma+1] + redacted
		}
		return redacted
	case len(value) <= 8:
		return redacted
	default:
		return redacted + value[len(value)-4:]
	}
}

// MaskKeys copies input and masks every value stored under one of keys,
// matching case-insensitively at any depth. The result is never nil.
func MaskKeys(input map[string]any, keys ...string) map[string]any {
	sensitive := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sensitive[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	return maskMap(input, sensitive)
}

func maskMap(input map[string]any, sensitive map[string]struct{}) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := sensitive[strings.ToLower(key)]; ok {
			out[key] = redact(value)
			continue
		}
		out[key] = walk(value, sensitive)
	}
	return out
}

func walk(value any, sensitive map[string]struct{}) any {
	switch v := value.(type) {
	case map[string]any:
		return maskMap(v, sensitive)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = walk(item, sensitive)
		}
		return out
	default:
		return value
	}
}

func redact(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return MaskSecret(v)
	default:
		return redacted
	}
}
