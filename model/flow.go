package model

import (
	"time"

	json "github.com/goccy/go-json"
)

type Flow struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Steps       []Step    `json:"steps"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Tags        []string  `json:"tags,omitempty"`
}

type Step struct {
	Id               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Method           string            `json:"method"`
	Url              string            `json:"url"`
	Headers          map[string]string `json:"headers,omitempty"`
	Params           map[string]string `json:"params,omitempty"`
	Body             any               `json:"body,omitempty"`
	Delay            int64             `json:"delay,omitempty"` // milliseconds
	SkipIf           string            `json:"skipIf,omitempty"`
	ExtractVariables []ExtractRule     `json:"extractVariables,omitempty"`
}

// ExtractRule stores the value found at Path under the variable Name.
// A nil DefaultValue means no default unless NullDefault is set, which is how
// an explicit `"defaultValue": null` is kept.
type ExtractRule struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	DefaultValue any    `json:"defaultValue,omitempty"`
	Required     bool   `json:"required,omitempty"`
	NullDefault  bool   `json:"-"`
}

type extractRuleFields ExtractRule

func (r ExtractRule) HasDefault() bool {
	return r.DefaultValue != nil || r.NullDefault
}

func (r *ExtractRule) UnmarshalJSON(data []byte) error {
	var fields extractRuleFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ExtractRule(fields)
	if _, ok := raw["defaultValue"]; ok && r.DefaultValue == nil {
		r.NullDefault = true
	}
	return nil
}

func (r ExtractRule) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(extractRuleFields(r))
	if err != nil || r.DefaultValue != nil || !r.NullDefault {
		return data, err
	}
	out := append([]byte{}, data[:len(data)-1]...)
	return append(out, `,"defaultValue":null}`...), nil
}

func (f *Flow) StepIndex(stepId string) int {
	for i := range f.Steps {
		if f.Steps[i].Id == stepId {
			return i
		}
	}
	return -1
}

func (f *Flow) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Endpoint struct {
	Id          string           `json:"id" yaml:"id"`
	Method      string           `json:"method" yaml:"method"`
	Path        string           `json:"path" yaml:"path"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Category    string           `json:"category" yaml:"category"`
	Parameters  []map[string]any `json:"parameters,omitempty" yaml:"parameters"`
	Tags        []string         `json:"tags,omitempty" yaml:"tags"`
}
