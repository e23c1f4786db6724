package metadata

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mohitkumar/flowcall/catalog"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"go.uber.org/zap"
)

const DEFAULT_FLOW_NAME = "Default Flow"
const GENERATED_TAG = "generated"

var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

type MetadataService interface {
	Flows() []model.Flow
	GetFlow(id string) (*model.Flow, error)
	CreateFlow(name string, description string, tags []string) (*model.Flow, error)
	DeleteFlow(id string) error
	SelectFlow(id string) error
	Selected() (*model.Flow, error)
	AddStep(flowId string, step model.Step) (*model.Step, error)
	UpdateStep(flowId string, stepId string, step model.Step) (*model.Step, error)
	DeleteStep(flowId string, stepId string) error
	MoveStep(flowId string, stepId string, index int) error
	InitFlowsFromEndpoints(endpoints []model.Endpoint) ([]model.Flow, error)
	ValidateFlow(flow model.Flow) error
}

var _ MetadataService = new(MetadataServiceImpl)

// MetadataServiceImpl is the flow collection. Every structural change is
// persisted; storage failures are logged and memory stays authoritative.
type MetadataServiceImpl struct {
	mu         sync.RWMutex
	storage    MetadataStorage
	flows      []model.Flow
	selectedId string
	now        func() time.Time
}

func NewMetadataService(storage MetadataStorage) *MetadataServiceImpl {
	s := &MetadataServiceImpl{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.load()
	return s
}

func (s *MetadataServiceImpl) load() {
	flows, found, err := s.storage.GetFlows()
	if err != nil {
		logger.Error("error loading flows", zap.Error(err))
	}
	s.flows = flows
	selected, err := s.storage.GetSelectedFlowId()
	if err != nil {
		logger.Error("error loading selected flow", zap.Error(err))
	}
	s.selectedId = selected
	if !found || len(s.flows) == 0 {
		flow := s.newFlow(DEFAULT_FLOW_NAME, "", nil)
		s.flows = []model.Flow{flow}
		s.selectedId = flow.Id
		logger.Info("seeded default flow", zap.String("flowId", flow.Id))
		s.save()
		return
	}
	if s.indexOf(s.selectedId) < 0 {
		s.selectedId = s.flows[0].Id
		s.saveSelected()
	}
}

func (s *MetadataServiceImpl) save() {
	if err := s.storage.SaveFlows(s.flows); err != nil {
		logger.Error("error saving flows", zap.Error(err))
	}
	s.saveSelected()
}

func (s *MetadataServiceImpl) saveSelected() {
	if err := s.storage.SaveSelectedFlowId(s.selectedId); err != nil {
		logger.Error("error saving selected flow", zap.String("flowId", s.selectedId), zap.Error(err))
	}
}

func (s *MetadataServiceImpl) newFlow(name string, description string, tags []string) model.Flow {
	now := s.now()
	return model.Flow{
		Id:          uuid.NewString(),
		Name:        name,
		Description: description,
		Steps:       []model.Step{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        tags,
	}
}

func (s *MetadataServiceImpl) indexOf(flowId string) int {
	for i := range s.flows {
		if s.flows[i].Id == flowId {
			return i
		}
	}
	return -1
}

func copyFlow(flow model.Flow) model.Flow {
	steps := make([]model.Step, len(flow.Steps))
	copy(steps, flow.Steps)
	flow.Steps = steps
	if flow.Tags != nil {
		tags := make([]string, len(flow.Tags))
		copy(tags, flow.Tags)
		flow.Tags = tags
	}
	return flow
}

func (s *MetadataServiceImpl) Flows() []model.Flow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Flow, 0, len(s.flows))
	for _, f := range s.flows {
		out = append(out, copyFlow(f))
	}
	return out
}

func (s *MetadataServiceImpl) GetFlow(id string) (*model.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	flow := copyFlow(s.flows[idx])
	return &flow, nil
}

func (s *MetadataServiceImpl) CreateFlow(name string, description string, tags []string) (*model.Flow, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidFlow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	flow := s.newFlow(name, description, tags)
	s.flows = append(s.flows, flow)
	if s.selectedId == "" {
		s.selectedId = flow.Id
	}
	s.save()
	logger.Info("flow created", zap.String("flowId", flow.Id), zap.String("name", name))
	out := copyFlow(flow)
	return &out, nil
}

// DeleteFlow removes the flow; when it was selected the first remaining flow
// becomes selected.
func (s *MetadataServiceImpl) DeleteFlow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	s.flows = append(s.flows[:idx], s.flows[idx+1:]...)
	if s.selectedId == id {
		s.selectedId = ""
		if len(s.flows) > 0 {
			s.selectedId = s.flows[0].Id
		}
	}
	s.save()
	logger.Info("flow deleted", zap.String("flowId", id))
	return nil
}

func (s *MetadataServiceImpl) SelectFlow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	s.selectedId = id
	s.saveSelected()
	return nil
}

func (s *MetadataServiceImpl) Selected() (*model.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(s.selectedId)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no flow selected", ErrFlowNotFound)
	}
	flow := copyFlow(s.flows[idx])
	return &flow, nil
}

func (s *MetadataServiceImpl) stepOwner(stepId string) (int, int) {
	for i := range s.flows {
		if j := s.flows[i].StepIndex(stepId); j >= 0 {
			return i, j
		}
	}
	return -1, -1
}

func normalizeStep(step *model.Step) error {
	step.Method = strings.ToUpper(strings.TrimSpace(step.Method))
	if step.Method == "" {
		step.Method = "GET"
	}
	if !validMethods[step.Method] {
		return fmt.Errorf("%w: method %s not supported", ErrInvalidFlow, step.Method)
	}
	if strings.TrimSpace(step.Url) == "" {
		return fmt.Errorf("%w: step %s has no url", ErrInvalidFlow, step.Id)
	}
	if step.Delay < 0 {
		return fmt.Errorf("%w: step %s has negative delay", ErrInvalidFlow, step.Id)
	}
	return nil
}

// AddStep appends step to the flow. An empty id is generated.
func (s *MetadataServiceImpl) AddStep(flowId string, step model.Step) (*model.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(flowId)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowId)
	}
	if step.Id == "" {
		step.Id = uuid.NewString()
	}
	if f, _ := s.stepOwner(step.Id); f >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, step.Id)
	}
	if err := normalizeStep(&step); err != nil {
		return nil, err
	}
	if step.Name == "" {
		step.Name = step.Method + " " + step.Url
	}
	s.flows[idx].Steps = append(s.flows[idx].Steps, step)
	s.flows[idx].UpdatedAt = s.now()
	s.save()
	return &step, nil
}

// UpdateStep replaces the definition of stepId, keeping its id and position.
func (s *MetadataServiceImpl) UpdateStep(flowId string, stepId string, step model.Step) (*model.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(flowId)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowId)
	}
	pos := s.flows[idx].StepIndex(stepId)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepId)
	}
	step.Id = stepId
	if err := normalizeStep(&step); err != nil {
		return nil, err
	}
	if step.Name == "" {
		step.Name = s.flows[idx].Steps[pos].Name
	}
	s.flows[idx].Steps[pos] = step
	s.flows[idx].UpdatedAt = s.now()
	s.save()
	return &step, nil
}

func (s *MetadataServiceImpl) DeleteStep(flowId string, stepId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(flowId)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, flowId)
	}
	pos := s.flows[idx].StepIndex(stepId)
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepId)
	}
	steps := s.flows[idx].Steps
	s.flows[idx].Steps = append(steps[:pos], steps[pos+1:]...)
	s.flows[idx].UpdatedAt = s.now()
	s.save()
	return nil
}

// MoveStep places stepId at index, clamped to the bounds of the flow.
func (s *MetadataServiceImpl) MoveStep(flowId string, stepId string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(flowId)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, flowId)
	}
	steps := s.flows[idx].Steps
	pos := s.flows[idx].StepIndex(stepId)
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepId)
	}
	if index < 0 {
		index = 0
	}
	if index >= len(steps) {
		index = len(steps) - 1
	}
	if index == pos {
		return nil
	}
	step := steps[pos]
	steps = append(steps[:pos], steps[pos+1:]...)
	steps = append(steps[:index], append([]model.Step{step}, steps[index:]...)...)
	s.flows[idx].Steps = steps
	s.flows[idx].UpdatedAt = s.now()
	s.save()
	return nil
}

// InitFlowsFromEndpoints builds one generated flow per endpoint category, in
// first-seen category order. Flows generated earlier for the same category
// are replaced.
func (s *MetadataServiceImpl) InitFlowsFromEndpoints(endpoints []model.Endpoint) ([]model.Flow, error) {
	groups := catalog.GroupByCategory(endpoints)

	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := make(map[string]bool, len(groups))
	for _, g := range groups {
		replaced[g.Category] = true
	}
	kept := s.flows[:0]
	for _, f := range s.flows {
		if f.HasTag(GENERATED_TAG) && generatedFor(f, replaced) {
			continue
		}
		kept = append(kept, f)
	}
	s.flows = kept

	generated := make([]model.Flow, 0, len(groups))
	for _, group := range groups {
		flow := s.newFlow(capitalize(group.Category)+" Flow", fmt.Sprintf("Generated from %d %s endpoints", len(group.Endpoints), group.Category), []string{GENERATED_TAG, group.Category})
		for _, ep := range group.Endpoints {
			step := model.Step{
				Id:          uuid.NewString(),
				Name:        ep.Name,
				Description: ep.Description,
				Method:      ep.Method,
				Url:         ep.Path,
			}
			if err := normalizeStep(&step); err != nil {
				logger.Warn("endpoint skipped", zap.String("endpoint", ep.Id), zap.Error(err))
				continue
			}
			if step.Name == "" {
				step.Name = step.Method + " " + step.Url
			}
			flow.Steps = append(flow.Steps, step)
		}
		s.flows = append(s.flows, flow)
		generated = append(generated, copyFlow(flow))
	}
	if s.indexOf(s.selectedId) < 0 && len(s.flows) > 0 {
		s.selectedId = s.flows[0].Id
	}
	s.save()
	logger.Info("flows generated from endpoints", zap.Int("endpoints", len(endpoints)), zap.Int("flows", len(generated)))
	return generated, nil
}

func generatedFor(flow model.Flow, categories map[string]bool) bool {
	for _, tag := range flow.Tags {
		if tag != GENERATED_TAG && categories[tag] {
			return true
		}
	}
	return false
}

func capitalize(value string) string {
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ValidateFlow checks a flow definition against the collection: step ids must
// be unique within the flow and must not belong to another flow.
func (s *MetadataServiceImpl) ValidateFlow(flow model.Flow) error {
	if strings.TrimSpace(flow.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidFlow)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(flow.Steps))
	for i := range flow.Steps {
		step := flow.Steps[i]
		if step.Id == "" {
			return fmt.Errorf("%w: step %d has no id", ErrInvalidFlow, i)
		}
		if seen[step.Id] {
			return fmt.Errorf("%w: %s", ErrDuplicateStep, step.Id)
		}
		seen[step.Id] = true
		if owner, _ := s.stepOwner(step.Id); owner >= 0 && s.flows[owner].Id != flow.Id {
			return fmt.Errorf("%w: %s used by flow %s", ErrDuplicateStep, step.Id, s.flows[owner].Id)
		}
		if err := normalizeStep(&step); err != nil {
			return err
		}
	}
	return nil
}
