package sitegen

import (
	"encoding/json"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"reflect"
)

// builtinFuncs are available to every template regardless of
// configuration. Filters registered on the config override them.
func builtinFuncs(cfg *Config) map[string]any {
	return map[string]any{
		"slug": Slugify,
		"url": func(u string) string {
			return PrefixURL(cfg.PathPrefix, u)
		},
		"safe": func(s string) htmltemplate.HTML {
			return htmltemplate.HTML(s)
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		"dict":    dict,
		"reverse": reverse,
		"list": func(items ...any) []any {
			return items
		},
	}
}

// dict builds a map from alternating keys and values, for passing more
// than one value into a {{ template }} call.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// reverse returns a reversed copy of a slice, keeping its element type.
// Other values are returned unchanged.
func reverse(seq any) any {
	rv := reflect.ValueOf(seq)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return seq
	}
	n := rv.Len()
	out := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), n, n)
	for i := 0; i < n; i++ {
		out.Index(i).Set(rv.Index(n - 1 - i))
	}
	return out.Interface()
}
