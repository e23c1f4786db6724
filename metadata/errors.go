package metadata

import "errors"

var ErrFlowNotFound = errors.New("flow not found")
var ErrStepNotFound = errors.New("step not found")
var ErrDuplicateStep = errors.New("duplicate step id")
var ErrInvalidFlow = errors.New("invalid flow")
