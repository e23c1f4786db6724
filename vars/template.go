package vars

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mohitkumar/flowcall/util"
)

type MarkerStyle string

const MARKER_BRACES MarkerStyle = "braces"
const MARKER_DOLLAR MarkerStyle = "dollar"

var bracesRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_\-]+(?:(?:\.[A-Za-z0-9_\-]+)|(?:\[\d+\]))*)\s*\}\}`)
var dollarRe = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

func ParseMarkerStyle(style string) (MarkerStyle, error) {
	switch strings.ToLower(style) {
	case "", string(MARKER_BRACES), "{{}}", "{{name}}":
		return MARKER_BRACES, nil
	case string(MARKER_DOLLAR), "$", "$name":
		return MARKER_DOLLAR, nil
	}
	return "", fmt.Errorf("unknown template marker style %s", style)
}

func markerRegexp(style MarkerStyle) *regexp.Regexp {
	if style == MARKER_DOLLAR {
		return dollarRe
	}
	return bracesRe
}

func containsMarkers(re *regexp.Regexp, text string) bool {
	return re.MatchString(text)
}

func markerNames(re *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, match := range re.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func replaceMarkers(re *regexp.Regexp, text string, lookup func(name string) (any, bool)) string {
	return re.ReplaceAllStringFunc(text, func(match string) string {
		sub := re.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		value, ok := lookup(sub[1])
		if !ok {
			return match
		}
		return Stringify(value)
	})
}

// formatFloat uses plain digits for ordinary magnitudes and exponent form
// below 1e-6 and from 1e21 up.
func formatFloat(v float64, bitSize int) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(v, 'g', -1, bitSize)
	}
	return strconv.FormatFloat(v, 'f', -1, bitSize)
}

// Stringify renders a variable value the way it appears in substituted text.
// Objects and arrays become compact JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case json.Number:
		return v.String()
	}
	s, err := util.Canonical(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return s
}
