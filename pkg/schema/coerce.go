package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/exploopio/artifact/pkg/errors"
)

// Raw input is whatever encoding/json (with or without UseNumber), yaml.v3
// or a caller building literals produces: map[string]any, []any and scalars.

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

// field reads key from m, treating an explicit null as absent.
func field(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (v *validator) str(m map[string]any, path, key string) string {
	raw, ok := field(m, key)
	if !ok {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.add(joinPath(path, key), errors.KindFieldConstraint, "str type expected")
		return ""
	}
	return s
}

// positiveInt accepts integral numbers and decimal strings.
func (v *validator) positiveInt(m map[string]any, path, key string) int64 {
	raw, ok := field(m, key)
	if !ok {
		return 0
	}
	n, ok := toInt64(raw)
	if !ok {
		v.add(joinPath(path, key), errors.KindFieldConstraint, "value is not a valid integer")
		return 0
	}
	if n <= 0 {
		v.add(joinPath(path, key), errors.KindFieldConstraint, "ensure this value is greater than 0")
		return 0
	}
	return n
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func (v *validator) boolean(m map[string]any, path, key string) *bool {
	raw, ok := field(m, key)
	if !ok {
		return nil
	}
	b, ok := raw.(bool)
	if !ok {
		v.add(joinPath(path, key), errors.KindFieldConstraint, "value could not be parsed to a boolean")
		return nil
	}
	return &b
}

// stringList reads an optional list of strings.
func (v *validator) stringList(m map[string]any, path, key string) []string {
	raw, ok := field(m, key)
	if !ok {
		return nil
	}
	list, ok := asList(raw)
	if !ok {
		v.add(joinPath(path, key), errors.KindFieldConstraint, "value is not a valid list")
		return nil
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			v.add(indexPath(joinPath(path, key), i), errors.KindFieldConstraint, "str type expected")
			continue
		}
		out = append(out, s)
	}
	return out
}

// normalizeNumbers turns json.Number into int64 or float64 and copies
// containers so the result shares nothing with the input.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeNumbers(e)
		}
		return out
	}
	return v
}

// cloneValue deep-copies the containers of an arbitrary JSON value.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
