package sitegen

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify converts a title to a URL-safe slug. Accented letters are folded
// to their base form ("Café" -> "cafe") before non-alphanumerics collapse
// into single hyphens.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PrefixURL applies a deployment path prefix to a site-relative URL.
// Absolute URLs, protocol-relative URLs and fragments are returned unchanged.
func PrefixURL(prefix, u string) string {
	if u == "" || strings.HasPrefix(u, "#") || strings.HasPrefix(u, "//") {
		return u
	}
	if parsed, err := url.Parse(u); err == nil && parsed.Scheme != "" {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		return u
	}
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return u
	}
	return prefix + u
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeTags accepts the shapes tags take in front matter (a single
// string, a YAML list, or a []string) and returns them as a clean slice.
func normalizeTags(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return FilterEmpty([]string{t})
	case []string:
		return FilterEmpty(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return FilterEmpty(out)
	default:
		return nil
	}
}

// dedupeStrings keeps the first occurrence of every value.
func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ToTime coerces a template value to a UTC time. It accepts time.Time,
// *time.Time and date strings in the layouts front matter dates use.
func ToTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil date")
		}
		return t.UTC(), nil
	case string:
		return parseDateString(t)
	default:
		return time.Time{}, fmt.Errorf("cannot use %T as a date", v)
	}
}
