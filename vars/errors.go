package vars

import (
	"errors"
	"fmt"
)

var ErrMissingRequiredVariable = errors.New("missing required variable")

var ErrEmptyName = errors.New("variable name can not be empty")

type MissingRequiredVariableError struct {
	Name string
	Path string
}

func (e *MissingRequiredVariableError) Error() string {
	return fmt.Sprintf("%s: %s not found at path %s", ErrMissingRequiredVariable, e.Name, e.Path)
}

func (e *MissingRequiredVariableError) Is(target error) bool {
	return target == ErrMissingRequiredVariable
}
