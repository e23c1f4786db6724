package pathexpr

import (
	"fmt"
	"strings"

	"github.com/oliveagle/jsonpath"
)

const DEFAULT_INDICATOR = "$"

// Evaluator handles JSONPath-style paths that start with Indicator.
type Evaluator struct {
	Indicator string
}

func NewEvaluator(indicator string) Evaluator {
	if indicator == "" {
		indicator = DEFAULT_INDICATOR
	}
	return Evaluator{Indicator: indicator}
}

func (e Evaluator) indicator() string {
	if e.Indicator == "" {
		return DEFAULT_INDICATOR
	}
	return e.Indicator
}

func (e Evaluator) HasIndicator(path string) bool {
	return strings.HasPrefix(path, e.indicator())
}

// Normalize strips the indicator and one following dot. ok is false when the
// path does not start with the indicator.
func (e Evaluator) Normalize(path string) (string, bool) {
	if !e.HasIndicator(path) {
		return "", false
	}
	rest := strings.TrimPrefix(path, e.indicator())
	return strings.TrimPrefix(rest, "."), true
}

// Lookup is strict: a path without the indicator is not found.
func (e Evaluator) Lookup(value any, path string) (any, bool) {
	if !e.HasIndicator(path) {
		return nil, false
	}
	rest := strings.TrimPrefix(path, e.indicator())
	if isQuery(rest) {
		return query(value, rest)
	}
	return Get(value, strings.TrimPrefix(rest, "."))
}

// Resolve accepts both prefixed and plain dotted paths.
func (e Evaluator) Resolve(value any, path string) (any, bool) {
	if e.HasIndicator(path) {
		return e.Lookup(value, path)
	}
	if isQuery(path) {
		return query(value, path)
	}
	return Get(value, path)
}

// Compile validates path. Plain paths always compile; wildcard, slice and
// filter queries are checked by the jsonpath parser.
func (e Evaluator) Compile(path string) error {
	rest := path
	if e.HasIndicator(path) {
		rest = strings.TrimPrefix(path, e.indicator())
	}
	if !isQuery(rest) {
		return nil
	}
	if _, err := jsonpath.Compile(toJsonPath(rest)); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	return nil
}

func isQuery(rest string) bool {
	if strings.Contains(rest, "*") || strings.Contains(rest, "?(") || strings.Contains(rest, "..") {
		return true
	}
	for _, seg := range Parse(rest) {
		if strings.HasPrefix(seg, "[") && strings.Contains(seg, ":") && !IsIndexSegment(seg) {
			return true
		}
	}
	return false
}

func toJsonPath(rest string) string {
	if strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "[") {
		return "$" + rest
	}
	return "$." + rest
}

func query(value any, rest string) (res any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			res, ok = nil, false
		}
	}()
	v, err := jsonpath.JsonPathLookup(value, toJsonPath(rest))
	if err != nil {
		return nil, false
	}
	return v, true
}
