package snapshot

import (
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/util"
)

// ComputeDiff classifies every key of the union of previous and current. A
// key present in both is updated only when the serialized forms differ.
func ComputeDiff(previous map[string]any, current map[string]any) *model.Diff {
	diff := model.NewDiff()
	for k, v := range current {
		prev, ok := previous[k]
		if !ok {
			diff.Added[k] = v
			continue
		}
		if !sameSerialized(prev, v) {
			diff.Updated[k] = model.Change{From: prev, To: v}
		}
	}
	for k, v := range previous {
		if _, ok := current[k]; !ok {
			diff.Removed[k] = v
		}
	}
	return diff
}

func sameSerialized(a any, b any) bool {
	as, errA := util.Canonical(a)
	bs, errB := util.Canonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return as == bs
}
