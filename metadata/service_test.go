package metadata

import (
	"errors"
	"testing"

	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/persistence/memory"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*MetadataServiceImpl, *memory.MemoryStorage) {
	t.Helper()
	storage := memory.NewMemoryStorage()
	return NewMetadataService(NewMetadataStorage(storage)), storage
}

func TestMetadataService(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage){
		"default flow seeded and selected": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			flows := s.Flows()
			require.Len(t, flows, 1)
			require.Equal(t, DEFAULT_FLOW_NAME, flows[0].Name)
			selected, err := s.Selected()
			require.NoError(t, err)
			require.Equal(t, flows[0].Id, selected.Id)
		},
		"flows persisted across instances": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			flow, err := s.CreateFlow("users", "user calls", []string{"api"})
			require.NoError(t, err)
			_, err = s.AddStep(flow.Id, model.Step{Id: "s1", Method: "get", Url: "/users"})
			require.NoError(t, err)
			require.NoError(t, s.SelectFlow(flow.Id))

			reloaded := NewMetadataService(NewMetadataStorage(storage))
			require.Len(t, reloaded.Flows(), 2)
			selected, err := reloaded.Selected()
			require.NoError(t, err)
			require.Equal(t, flow.Id, selected.Id)
			require.Len(t, selected.Steps, 1)
			require.Equal(t, "GET", selected.Steps[0].Method)
		},
		"step ids unique across flows": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			a, _ := s.CreateFlow("a", "", nil)
			b, _ := s.CreateFlow("b", "", nil)
			_, err := s.AddStep(a.Id, model.Step{Id: "login", Url: "/login", Method: "POST"})
			require.NoError(t, err)
			_, err = s.AddStep(b.Id, model.Step{Id: "login", Url: "/login", Method: "POST"})
			require.True(t, errors.Is(err, ErrDuplicateStep))
		},
		"step validation": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			flow, _ := s.CreateFlow("a", "", nil)
			_, err := s.AddStep(flow.Id, model.Step{Method: "FETCH", Url: "/x"})
			require.True(t, errors.Is(err, ErrInvalidFlow))
			_, err = s.AddStep(flow.Id, model.Step{Method: "GET"})
			require.True(t, errors.Is(err, ErrInvalidFlow))
			_, err = s.AddStep("missing", model.Step{Url: "/x"})
			require.True(t, errors.Is(err, ErrFlowNotFound))
			step, err := s.AddStep(flow.Id, model.Step{Url: "/x"})
			require.NoError(t, err)
			require.NotEmpty(t, step.Id)
			require.Equal(t, "GET /x", step.Name)
		},
		"update delete and move steps": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			flow, _ := s.CreateFlow("a", "", nil)
			for _, id := range []string{"s1", "s2", "s3"} {
				_, err := s.AddStep(flow.Id, model.Step{Id: id, Url: "/" + id})
				require.NoError(t, err)
			}
			updated, err := s.UpdateStep(flow.Id, "s2", model.Step{Method: "DELETE", Url: "/items/{{id}}"})
			require.NoError(t, err)
			require.Equal(t, "s2", updated.Id)

			require.NoError(t, s.MoveStep(flow.Id, "s3", 0))
			got, _ := s.GetFlow(flow.Id)
			require.Equal(t, []string{"s3", "s1", "s2"}, stepIds(got))
			require.Equal(t, "DELETE", got.Steps[2].Method)

			require.NoError(t, s.MoveStep(flow.Id, "s3", 99))
			got, _ = s.GetFlow(flow.Id)
			require.Equal(t, []string{"s1", "s2", "s3"}, stepIds(got))

			require.NoError(t, s.DeleteStep(flow.Id, "s1"))
			require.True(t, errors.Is(s.DeleteStep(flow.Id, "s1"), ErrStepNotFound))
			got, _ = s.GetFlow(flow.Id)
			require.Equal(t, []string{"s2", "s3"}, stepIds(got))
			require.False(t, got.UpdatedAt.Before(got.CreatedAt))
		},
		"delete selected flow reselects first": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			first := s.Flows()[0]
			second, _ := s.CreateFlow("second", "", nil)
			require.NoError(t, s.SelectFlow(second.Id))
			require.NoError(t, s.DeleteFlow(second.Id))
			selected, err := s.Selected()
			require.NoError(t, err)
			require.Equal(t, first.Id, selected.Id)
			require.True(t, errors.Is(s.DeleteFlow(second.Id), ErrFlowNotFound))
		},
		"returned flows are copies": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			flow, _ := s.CreateFlow("a", "", nil)
			_, _ = s.AddStep(flow.Id, model.Step{Id: "s1", Url: "/a"})
			got, _ := s.GetFlow(flow.Id)
			got.Steps[0].Url = "/changed"
			again, _ := s.GetFlow(flow.Id)
			require.Equal(t, "/a", again.Steps[0].Url)
		},
		"init flows from endpoints": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			endpoints := []model.Endpoint{
				{Id: "1", Method: "GET", Path: "/users", Name: "List users", Category: "users"},
				{Id: "2", Method: "POST", Path: "/orders", Name: "Create order", Category: "orders"},
				{Id: "3", Method: "DELETE", Path: "/users/{{id}}", Name: "Delete user", Category: "users"},
				{Id: "4", Method: "GET", Path: "/health", Name: "Health"},
			}
			generated, err := s.InitFlowsFromEndpoints(endpoints)
			require.NoError(t, err)
			require.Len(t, generated, 3)
			require.Equal(t, "Users Flow", generated[0].Name)
			require.Equal(t, "Orders Flow", generated[1].Name)
			require.Equal(t, "General Flow", generated[2].Name)
			require.Equal(t, []string{GENERATED_TAG, "users"}, generated[0].Tags)
			require.Len(t, generated[0].Steps, 2)
			require.Equal(t, "DELETE", generated[0].Steps[1].Method)
			require.Equal(t, "/users/{{id}}", generated[0].Steps[1].Url)
			require.Len(t, s.Flows(), 4)

			again, err := s.InitFlowsFromEndpoints(endpoints[:1])
			require.NoError(t, err)
			require.Len(t, again, 1)
			require.Len(t, s.Flows(), 4)
			require.NoError(t, s.ValidateFlow(again[0]))
		},
		"validate flow": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			flow, _ := s.CreateFlow("a", "", nil)
			_, _ = s.AddStep(flow.Id, model.Step{Id: "taken", Url: "/a"})
			require.True(t, errors.Is(s.ValidateFlow(model.Flow{}), ErrInvalidFlow))
			dup := model.Flow{Id: "other", Name: "x", Steps: []model.Step{{Id: "a", Url: "/a"}, {Id: "a", Url: "/b"}}}
			require.True(t, errors.Is(s.ValidateFlow(dup), ErrDuplicateStep))
			cross := model.Flow{Id: "other", Name: "x", Steps: []model.Step{{Id: "taken", Url: "/a"}}}
			require.True(t, errors.Is(s.ValidateFlow(cross), ErrDuplicateStep))
			flow, _ = s.GetFlow(flow.Id)
			require.NoError(t, s.ValidateFlow(*flow))
		},
		"storage failure keeps memory authoritative": func(t *testing.T, s *MetadataServiceImpl, storage *memory.MemoryStorage) {
			storage.FailWith(errors.New("down"))
			flow, err := s.CreateFlow("offline", "", nil)
			require.NoError(t, err)
			_, err = s.GetFlow(flow.Id)
			require.NoError(t, err)
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			s, storage := newService(t)
			fn(t, s, storage)
		})
	}
}

func stepIds(flow *model.Flow) []string {
	ids := make([]string, 0, len(flow.Steps))
	for _, s := range flow.Steps {
		ids = append(ids, s.Id)
	}
	return ids
}
