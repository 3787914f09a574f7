package sitegen

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

var dataExts = []string{".json", ".yaml", ".yml"}

// loadGlobalData reads every JSON/YAML file in dir, keyed by base name.
// A missing dir yields empty data.
func loadGlobalData(dir string) (map[string]any, error) {
	out := map[string]any{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		ext := filepath.Ext(ent.Name())
		if !isDataExt(ext) {
			continue
		}
		v, err := readDataFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return nil, err
		}
		out[strings.TrimSuffix(ent.Name(), ext)] = v
	}
	return out, nil
}

func isDataExt(ext string) bool {
	for _, e := range dataExts {
		if e == ext {
			return true
		}
	}
	return false
}

func readDataFile(p string) (any, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var v any
	switch filepath.Ext(p) {
	case ".json":
		err = json.Unmarshal(raw, &v)
	default:
		err = yaml.Unmarshal(raw, &v)
	}
	if err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", p, err)
	}
	return v, nil
}

// dataCascade resolves directory and template data files for content
// templates, caching per directory for the lifetime of one build.
type dataCascade struct {
	input string
	deep  bool
	dirs  map[string]map[string]any
}

func newDataCascade(input string, deep bool) *dataCascade {
	return &dataCascade{input: input, deep: deep, dirs: map[string]map[string]any{}}
}

// forTemplate returns the merged data of every directory data file from
// the input root down to rel's directory, then rel's own data file.
func (dc *dataCascade) forTemplate(rel string) (map[string]any, error) {
	out := map[string]any{}
	dir := path.Dir(rel)
	if dir != "." {
		var walked []string
		for _, part := range strings.Split(dir, "/") {
			walked = append(walked, part)
			d, err := dc.dirData(strings.Join(walked, "/"))
			if err != nil {
				return nil, err
			}
			out = mergeData(out, d, dc.deep)
		}
	}
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	own, err := dc.firstDataFile(stem)
	if err != nil {
		return nil, err
	}
	return mergeData(out, own, dc.deep), nil
}

func (dc *dataCascade) dirData(dir string) (map[string]any, error) {
	if d, ok := dc.dirs[dir]; ok {
		return d, nil
	}
	d, err := dc.firstDataFile(dir + "/" + path.Base(dir))
	if err != nil {
		return nil, err
	}
	dc.dirs[dir] = d
	return d, nil
}

func (dc *dataCascade) firstDataFile(stem string) (map[string]any, error) {
	for _, ext := range dataExts {
		p := filepath.Join(dc.input, filepath.FromSlash(stem+ext))
		if _, err := os.Stat(p); err != nil {
			continue
		}
		v, err := readDataFile(p)
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("data file %s must hold an object", p)
		}
		return m, nil
	}
	return map[string]any{}, nil
}

// mergeData returns a new map with src layered over dst. With deep set,
// nested maps merge recursively and lists concatenate. Tags are always
// treated as lists and deduplicated.
func mergeData(dst, src map[string]any, deep bool) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if k == "tags" {
			var merged []string
			if deep {
				merged = append(normalizeTags(out[k]), normalizeTags(v)...)
			} else {
				merged = normalizeTags(v)
			}
			out[k] = toAnySlice(dedupeStrings(merged))
			continue
		}
		if !deep {
			out[k] = v
			continue
		}
		switch sv := v.(type) {
		case map[string]any:
			if dv, ok := out[k].(map[string]any); ok {
				out[k] = mergeData(dv, sv, true)
				continue
			}
		case []any:
			if dv, ok := out[k].([]any); ok {
				joined := make([]any, 0, len(dv)+len(sv))
				out[k] = append(append(joined, dv...), sv...)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// lookupPath walks keys through nested maps.
func lookupPath(data map[string]any, keys []string) (any, bool) {
	var cur any = data
	for _, k := range keys {
		next, ok := lookupKey(cur, k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func lookupKey(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		x, ok := m[key]
		return x, ok
	case Collections:
		x, ok := m[key]
		return x, ok
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		x := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if x.IsValid() {
			return x.Interface(), true
		}
	}
	return nil, false
}
