package pathexpr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrPathNotFound = errors.New("path not found")

var indexSegmentRe = regexp.MustCompile(`^\[\d+\]$`)

// Parse splits a dotted/bracketed path into segments. Dots inside brackets
// are not separators and a bracketed token is kept whole, so "a.b[2].c"
// gives ["a", "b", "[2]", "c"].
func Parse(path string) []string {
	segments := make([]string, 0)
	var token strings.Builder
	depth := 0
	flush := func() {
		if token.Len() > 0 {
			segments = append(segments, token.String())
			token.Reset()
		}
	}
	for _, r := range path {
		switch {
		case r == '[':
			if depth == 0 {
				flush()
			}
			depth++
			token.WriteRune(r)
		case r == ']' && depth > 0:
			token.WriteRune(r)
			depth--
			if depth == 0 {
				flush()
			}
		case r == '.' && depth == 0:
			flush()
		default:
			token.WriteRune(r)
		}
	}
	flush()
	return segments
}

func IsIndexSegment(segment string) bool {
	return indexSegmentRe.MatchString(segment)
}

// PropertyName strips brackets and quotes from a non-index segment such as
// ["content-type"].
func PropertyName(segment string) string {
	if strings.HasPrefix(segment, "[") && strings.HasSuffix(segment, "]") {
		segment = segment[1 : len(segment)-1]
		if len(segment) >= 2 {
			first, last := segment[0], segment[len(segment)-1]
			if (first == '\'' || first == '"') && first == last {
				segment = segment[1 : len(segment)-1]
			}
		}
	}
	return segment
}

// Get walks value along path. It never panics: a missing key, a nil value
// mid-walk, a non-array under an index segment or an out of range index all
// report not found. An empty path returns value itself.
func Get(value any, path string) (any, bool) {
	return walk(value, Parse(path))
}

func GetOr(value any, path string, defaultValue any) any {
	if v, ok := Get(value, path); ok {
		return v
	}
	return defaultValue
}

func Find(value any, path string) (any, error) {
	if v, ok := Get(value, path); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
}

func walk(value any, segments []string) (any, bool) {
	current := value
	for _, seg := range segments {
		if current == nil {
			return nil, false
		}
		if IsIndexSegment(seg) {
			idx, err := strconv.Atoi(seg[1 : len(seg)-1])
			if err != nil {
				return nil, false
			}
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
			continue
		}
		name := PropertyName(seg)
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[name]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]string:
			v, ok := m[name]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}
