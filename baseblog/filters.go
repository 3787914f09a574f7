package baseblog

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/eringen/sitegen"
)

// Date layouts used by the date filters. Dates are always shown in UTC.
const (
	ReadableDateLayout   = "02 Jan 2006"
	HTMLDateStringLayout = "2006-01-02"
)

// ReadableDate formats t for display, e.g. "03 Jan 2024".
func ReadableDate(t time.Time) string {
	return t.UTC().Format(ReadableDateLayout)
}

// HTMLDateString formats t for <time datetime="...">, e.g. "2024-01-03".
func HTMLDateString(t time.Time) string {
	return t.UTC().Format(HTMLDateStringLayout)
}

// Head returns the first n elements of seq, or the last -n when n is
// negative. n is clamped to the length of seq.
func Head[T any](seq []T, n int) []T {
	start, end := headBounds(len(seq), n)
	out := make([]T, end-start)
	copy(out, seq[start:end])
	return out
}

func headBounds(length, n int) (int, int) {
	if n >= 0 {
		return 0, min(n, length)
	}
	return max(length+n, 0), length
}

// HeadAny is Head for values of unknown type. Slices and arrays keep their
// element type; anything else yields an empty []any.
func HeadAny(seq any, n int) any {
	rv := reflect.ValueOf(seq)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return []any{}
	}
	start, end := headBounds(rv.Len(), n)
	out := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), end-start, end-start)
	for i := start; i < end; i++ {
		out.Index(i - start).Set(rv.Index(i))
	}
	return out.Interface()
}

// Min returns the smallest of nums. With no arguments it returns +Inf.
func Min(nums ...float64) float64 {
	m := math.Inf(1)
	for _, n := range nums {
		if n < m {
			m = n
		}
	}
	return m
}

// FilterTagList drops the tags that only group content ("all", "nav",
// "post", "posts") and keeps the rest in order.
func FilterTagList(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !isGroupingTag(t) {
			out = append(out, t)
		}
	}
	return out
}

func isGroupingTag(tag string) bool {
	switch tag {
	case "all", "nav", "post", "posts":
		return true
	}
	return false
}

// TagList collects every content tag across the site, in the order each
// first appears in the "all" collection.
func TagList(api sitegen.CollectionAPI) any {
	var tags []string
	seen := map[string]struct{}{}
	for _, p := range api.GetAll() {
		for _, t := range p.Tags {
			if isGroupingTag(t) {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// Template adapters. The piped value is the last argument:
// {{ .collections.posts | head -3 }}.

func readableDateFilter(v any) (string, error) {
	t, err := sitegen.ToTime(v)
	if err != nil {
		return "", fmt.Errorf("readableDate: %w", err)
	}
	return ReadableDate(t), nil
}

func htmlDateStringFilter(v any) (string, error) {
	t, err := sitegen.ToTime(v)
	if err != nil {
		return "", fmt.Errorf("htmlDateString: %w", err)
	}
	return HTMLDateString(t), nil
}

func headFilter(n int, seq any) any {
	return HeadAny(seq, n)
}

// minFilter returns the argument with the smallest numeric value, keeping
// its original type.
func minFilter(args ...any) (any, error) {
	switch len(args) {
	case 0:
		return math.Inf(1), nil
	case 1:
		return args[0], nil
	}
	best, bestVal := 0, math.Inf(1)
	for i, a := range args {
		f, ok := toFloat(a)
		if !ok {
			return nil, fmt.Errorf("min: %v (%T) is not a number", a, a)
		}
		if i == 0 || f < bestVal {
			best, bestVal = i, f
		}
	}
	return args[best], nil
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func filterTagListFilter(v any) []string {
	switch t := v.(type) {
	case []string:
		return FilterTagList(t)
	case []any:
		tags := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return FilterTagList(tags)
	case string:
		return FilterTagList([]string{t})
	}
	return []string{}
}
