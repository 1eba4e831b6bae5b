package engine

import (
	"errors"
	"fmt"

	"github.com/arbordata/arbor/internal/plan"
)

// ExecError wraps an Interpreter failure with the offending action's
// coordinates for diagnosis. The remaining schedule of the change is
// abandoned when one is raised.
type ExecError struct {
	Kind   plan.Kind
	Entity string
	Path   string // dotted path, "" for root actions
	Err    error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("execute %s %s (path %s): %v", e.Kind, e.Entity, e.Path, e.Err)
	}
	return fmt.Sprintf("execute %s %s: %v", e.Kind, e.Entity, e.Err)
}

// Unwrap exposes the Interpreter's underlying error.
func (e *ExecError) Unwrap() error { return e.Err }

// AsExecError extracts an ExecError from err's chain.
func AsExecError(err error) (*ExecError, bool) {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
