package vars

import (
	json "github.com/goccy/go-json"
	"github.com/mohitkumar/flowcall/logger"
	"go.uber.org/zap"
)

// SubstituteValue resolves markers anywhere inside value. Structured values
// are serialized, substituted and parsed back so markers in nested fields and
// keys resolve. When the substituted text is no longer valid JSON (a value
// carrying quotes, say) the structure is walked and each string resolved
// in place instead.
func (s *Store) SubstituteValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return s.Substitute(v)
	case []byte:
		return s.Substitute(string(v))
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("value can not be serialized for substitution", zap.Error(err))
		return value
	}
	text := string(data)
	if !s.ContainsVariables(text) {
		return value
	}
	var out any
	if err := json.Unmarshal([]byte(s.Substitute(text)), &out); err == nil {
		return out
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return value
	}
	return s.resolveAny(generic)
}

// SubstituteMap resolves each value of a string map.
func (s *Store) SubstituteMap(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = s.Substitute(v)
	}
	return out
}

func (s *Store) resolveAny(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		s.resolveParams(v, out)
		return out
	case []any:
		return s.resolveList(v)
	case string:
		return s.Substitute(v)
	default:
		return v
	}
}

func (s *Store) resolveParams(params map[string]any, output map[string]any) {
	for k, v := range params {
		key := s.Substitute(k)
		switch val := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			output[key] = out
			s.resolveParams(val, out)
		case string:
			output[key] = s.Substitute(val)
		case []any:
			output[key] = s.resolveList(val)
		default:
			output[key] = v
		}
	}
}

func (s *Store) resolveList(list []any) []any {
	output := make([]any, 0, len(list))
	for _, v := range list {
		output = append(output, s.resolveAny(v))
	}
	return output
}
