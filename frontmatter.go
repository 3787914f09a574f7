package sitegen

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// SplitFrontMatter separates YAML front matter (`---` delimited) from the
// template body. Documents without front matter return a nil map and the
// full input as body.
func SplitFrontMatter(content []byte) (map[string]any, []byte, error) {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}
	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return map[string]any{}, content[start+len(open):], nil
	}

	// The closing delimiter is the first line that is exactly "---".
	closeSeq := []byte(nl + "---")
	for from := start; ; {
		idx := bytes.Index(content[from:], closeSeq)
		if idx < 0 {
			return nil, nil, ErrMissingClosingDelimiter
		}
		end := from + idx
		rest := content[end+len(closeSeq):]
		switch {
		case len(rest) == 0:
		case bytes.HasPrefix(rest, []byte(nl)):
			rest = rest[len(nl):]
		default:
			from = end + len(nl)
			continue
		}
		fields, err := parseYAMLMap(content[start : end+len(nl)])
		if err != nil {
			return nil, nil, err
		}
		return fields, rest, nil
	}
}

func parseYAMLMap(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
