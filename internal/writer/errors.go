package writer

import (
	"errors"
	"fmt"
)

// Change-computation error codes (W100-W199)
const (
	ErrInvalidValue = "W100" // aggregate value has the wrong shape for its relation
	ErrInvalidPrior = "W101" // prior identifier state conflicts with the aggregate
)

// ComputeError reports an aggregate instance that cannot be scheduled
// against its metadata. Raised during computation, before any action is
// executed.
type ComputeError struct {
	Code    string
	Entity  string
	Path    string // dotted path of the offending value, "" for the root
	Message string
}

// Error implements the error interface.
func (e *ComputeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Entity, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Entity, e.Message)
}

// IsComputeError reports whether err is (or wraps) a ComputeError with the
// given code. An empty code matches any ComputeError.
func IsComputeError(err error, code string) bool {
	var ce *ComputeError
	if !errors.As(err, &ce) {
		return false
	}
	return code == "" || ce.Code == code
}
