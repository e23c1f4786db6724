package model

type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

type Diff struct {
	Added   map[string]any    `json:"added"`
	Updated map[string]Change `json:"updated"`
	Removed map[string]any    `json:"removed"`
}

func NewDiff() *Diff {
	return &Diff{
		Added:   make(map[string]any),
		Updated: make(map[string]Change),
		Removed: make(map[string]any),
	}
}

func (d *Diff) IsEmpty() bool {
	return d == nil || (len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0)
}
