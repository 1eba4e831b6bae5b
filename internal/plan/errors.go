package plan

import (
	"errors"
	"fmt"
)

// Identifier-resolution error codes (P100-P199)
const (
	ErrPendingID          = "P100" // deferred identifier read before its action executed
	ErrAmbiguousQualifier = "P101" // two qualifiers claim one column at the same level
	ErrUnknownLevel       = "P102" // context chain holds no link for the requested path
	ErrMissingID          = "P103" // no ancestor in the chain carries an identifier
)

// ResolveError reports a failure while resolving an identifier context into
// foreign-key column values.
type ResolveError struct {
	Code    string
	Path    string // dotted path of the level being resolved
	Column  string // column in conflict, when applicable
	Message string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("[%s] %s (column %q): %s", e.Code, e.Path, e.Column, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// IsAmbiguousQualifier reports whether err is an ambiguous-qualifier
// resolution failure.
func IsAmbiguousQualifier(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrAmbiguousQualifier
}

// IsPendingID reports whether err is a premature read of a deferred
// identifier.
func IsPendingID(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrPendingID
}
