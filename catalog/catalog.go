package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mohitkumar/flowcall/model"
	"gopkg.in/yaml.v3"
)

const DEFAULT_CATEGORY = "general"

type Source interface {
	Endpoints() ([]model.Endpoint, error)
}

type StaticSource []model.Endpoint

func (s StaticSource) Endpoints() ([]model.Endpoint, error) {
	return s, nil
}

var _ Source = new(FileSource)

// FileSource reads endpoints from a YAML or JSON file, either as a list or
// under an "endpoints" key.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

type catalogFile struct {
	Endpoints []model.Endpoint `yaml:"endpoints"`
}

func (s *FileSource) Endpoints() ([]model.Endpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog %s: %w", s.path, err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]model.Endpoint, error) {
	var list []model.Endpoint
	if err := yaml.Unmarshal(data, &list); err == nil {
		return withIds(list), nil
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	return withIds(file.Endpoints), nil
}

func withIds(endpoints []model.Endpoint) []model.Endpoint {
	for i := range endpoints {
		if endpoints[i].Id == "" {
			endpoints[i].Id = strings.ToUpper(endpoints[i].Method) + " " + endpoints[i].Path
		}
	}
	return endpoints
}

// Search ranks endpoints whose method, path or name fuzzily match query,
// closest first. An empty query returns every endpoint.
func Search(endpoints []model.Endpoint, query string) []model.Endpoint {
	query = strings.TrimSpace(query)
	if query == "" {
		return endpoints
	}
	keys := make([]string, len(endpoints))
	for i, ep := range endpoints {
		keys[i] = strings.Join([]string{ep.Method, ep.Path, ep.Name, ep.Category}, " ")
	}
	ranks := fuzzy.RankFindFold(query, keys)
	sort.Stable(ranks)
	out := make([]model.Endpoint, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, endpoints[r.OriginalIndex])
	}
	return out
}

type Group struct {
	Category  string           `json:"category"`
	Endpoints []model.Endpoint `json:"endpoints"`
}

// GroupByCategory keeps categories in first-seen order. Endpoints without a
// category fall under DEFAULT_CATEGORY.
func GroupByCategory(endpoints []model.Endpoint) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, ep := range endpoints {
		category := strings.TrimSpace(ep.Category)
		if category == "" {
			category = DEFAULT_CATEGORY
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, Group{Category: category})
		}
		groups[i].Endpoints = append(groups[i].Endpoints, ep)
	}
	return groups
}
