package persistence

import (
	"errors"
	"fmt"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

var ErrNotFound = errors.New("key not found")

const VARIABLES_KEY string = "variables"
const FLOWS_KEY string = "flows"
const SELECTED_FLOW_KEY string = "flows:selected"
const HISTORY_KEY string = "history"
const STATE_KEY string = "state"

// Storage is a JSON key-value store. Get decodes the stored value into out and
// reports false when the key is absent.
type Storage interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Remove(key string) error
}
