package gh

// Helpers translating between raw field maps and the typed wire structs.
// Reads only set keys the provider actually sent, leaving the rest absent
// so the model records them as unset. Writes treat a nil value as an
// explicit null and coerce it to the type's zero.

func putString(raw map[string]any, key string, v *string) {
	if v != nil {
		raw[key] = *v
	}
}

func putBool(raw map[string]any, key string, v *bool) {
	if v != nil {
		raw[key] = *v
	}
}

func putInt(raw map[string]any, key string, v *int) {
	if v != nil {
		raw[key] = *v
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func int64Value(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func stringListValue(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, stringValue(item))
		}
		return out
	}
	return []string{}
}

func int64ListValue(v any) []int64 {
	switch list := v.(type) {
	case []int64:
		return list
	case []any:
		out := make([]int64, 0, len(list))
		for _, item := range list {
			out = append(out, int64Value(item))
		}
		return out
	}
	return []int64{}
}

func hasAny(payload map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}
