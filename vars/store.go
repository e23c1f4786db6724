package vars

import (
	"regexp"
	"sync"

	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/pathexpr"
	"github.com/mohitkumar/flowcall/persistence"
	"github.com/mohitkumar/flowcall/util"
	"go.uber.org/zap"
)

type Store struct {
	mu          sync.RWMutex
	variables   map[string]any
	storage     persistence.Storage
	persist     bool
	style       MarkerStyle
	marker      *regexp.Regexp
	evaluator   pathexpr.Evaluator
	strictPaths bool
	initial     map[string]any
}

type Option func(*Store)

func WithInitial(values map[string]any) Option {
	return func(s *Store) {
		s.initial = values
	}
}

func WithPersistence(enabled bool) Option {
	return func(s *Store) {
		s.persist = enabled
	}
}

func WithMarker(style MarkerStyle) Option {
	return func(s *Store) {
		s.style = style
	}
}

func WithPathIndicator(indicator string) Option {
	return func(s *Store) {
		s.evaluator = pathexpr.NewEvaluator(indicator)
	}
}

// WithStrictPaths makes extraction reject paths that lack the indicator.
func WithStrictPaths(strict bool) Option {
	return func(s *Store) {
		s.strictPaths = strict
	}
}

func New(storage persistence.Storage, opts ...Option) *Store {
	s := &Store{
		variables: make(map[string]any),
		storage:   storage,
		persist:   storage != nil,
		style:     MARKER_BRACES,
		evaluator: pathexpr.NewEvaluator(pathexpr.DEFAULT_INDICATOR),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.storage == nil {
		s.persist = false
	}
	s.marker = markerRegexp(s.style)
	if s.persist {
		s.load()
	}
	if len(s.initial) > 0 {
		for k, v := range s.initial {
			s.variables[k] = v
		}
		s.save()
	}
	s.initial = nil
	return s
}

func (s *Store) load() {
	var persisted map[string]any
	found, err := s.storage.Get(persistence.VARIABLES_KEY, &persisted)
	if err != nil {
		logger.Error("error loading variables, continuing without persisted values", zap.Error(err))
		return
	}
	if !found {
		return
	}
	for k, v := range persisted {
		s.variables[k] = v
	}
	logger.Debug("variables loaded", zap.Int("count", len(persisted)))
}

// save must be called with the write lock held or before the store is shared.
func (s *Store) save() {
	if !s.persist {
		return
	}
	if err := s.storage.Set(persistence.VARIABLES_KEY, s.variables); err != nil {
		logger.Error("error saving variables, in memory values stay authoritative", zap.Error(err))
	}
}

func (s *Store) Set(name string, value any) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, err := util.Canonical(value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setLocked(name, value) {
		s.save()
	}
	return nil
}

// SetMany stores every entry and saves once.
func (s *Store) SetMany(values map[string]any) error {
	for name, value := range values {
		if name == "" {
			return ErrEmptyName
		}
		if _, err := util.Canonical(value); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for name, value := range values {
		if s.setLocked(name, value) {
			changed = true
		}
	}
	if changed {
		s.save()
	}
	return nil
}

func (s *Store) setLocked(name string, value any) bool {
	old, exists := s.variables[name]
	s.variables[name] = value
	return !exists || !sameValue(old, value)
}

func sameValue(a, b any) bool {
	as, err := util.Canonical(a)
	if err != nil {
		return false
	}
	bs, err := util.Canonical(b)
	if err != nil {
		return false
	}
	return as == bs
}

func (s *Store) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variables[name]
	return v, ok
}

func (s *Store) GetAll() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.variables))
	for k, v := range s.variables {
		out[k] = v
	}
	return out
}

func (s *Store) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.variables[name]; !ok {
		return false
	}
	delete(s.variables, name)
	s.save()
	return true
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.variables) == 0 {
		return
	}
	s.variables = make(map[string]any)
	s.save()
}

func (s *Store) MarkerStyle() MarkerStyle {
	return s.style
}

// Substitute replaces every marker with the string form of its variable.
// Unknown names are left in place.
func (s *Store) Substitute(text string) string {
	if text == "" {
		return text
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return replaceMarkers(s.marker, text, s.lookupLocked)
}

func (s *Store) lookupLocked(name string) (any, bool) {
	if v, ok := s.variables[name]; ok {
		return v, true
	}
	segments := pathexpr.Parse(name)
	if len(segments) < 2 {
		return nil, false
	}
	root, ok := s.variables[segments[0]]
	if !ok {
		return nil, false
	}
	rest := name[len(segments[0]):]
	if len(rest) > 0 && rest[0] == '.' {
		rest = rest[1:]
	}
	return pathexpr.Get(root, rest)
}

func (s *Store) ContainsVariables(text string) bool {
	return containsMarkers(s.marker, text)
}

func (s *Store) ExtractNames(text string) []string {
	return markerNames(s.marker, text)
}

func (s *Store) resolvePath(value any, path string) (any, bool) {
	if s.strictPaths {
		return s.evaluator.Lookup(value, path)
	}
	return s.evaluator.Resolve(value, path)
}

// ExtractFromValue applies one rule against value and stores the outcome.
// stored reports whether the variable was written.
func (s *Store) ExtractFromValue(value any, rule model.ExtractRule) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, stored, err := s.extractLocked(value, rule)
	if stored {
		s.save()
	}
	return v, stored, err
}

// ExtractMany applies rules in order and saves once. A required rule that
// cannot be resolved stops the batch; values stored by earlier rules are kept.
func (s *Store) ExtractMany(value any, rules []model.ExtractRule) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	extracted := make(map[string]any)
	var err error
	for _, rule := range rules {
		v, stored, ruleErr := s.extractLocked(value, rule)
		if ruleErr != nil {
			err = ruleErr
			break
		}
		if stored {
			extracted[rule.Name] = v
		}
	}
	if len(extracted) > 0 {
		s.save()
	}
	return extracted, err
}

func (s *Store) extractLocked(value any, rule model.ExtractRule) (any, bool, error) {
	if rule.Name == "" {
		logger.Warn("extraction rule without variable name skipped", zap.String("path", rule.Path))
		return nil, false, nil
	}
	if v, ok := s.resolvePath(value, rule.Path); ok {
		s.variables[rule.Name] = v
		logger.Debug("variable extracted", zap.String("name", rule.Name), zap.String("path", rule.Path))
		return v, true, nil
	}
	if rule.Required {
		logger.Error("required variable not found", zap.String("name", rule.Name), zap.String("path", rule.Path))
		return nil, false, &MissingRequiredVariableError{Name: rule.Name, Path: rule.Path}
	}
	if rule.HasDefault() {
		s.variables[rule.Name] = rule.DefaultValue
		logger.Debug("path not found, default applied", zap.String("name", rule.Name), zap.String("path", rule.Path))
		return rule.DefaultValue, true, nil
	}
	logger.Warn("path not found, variable left unset", zap.String("name", rule.Name), zap.String("path", rule.Path))
	return nil, false, nil
}
