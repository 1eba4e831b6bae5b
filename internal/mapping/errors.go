package mapping

import (
	"errors"
	"fmt"
)

// Schema error codes (M100-M199)
const (
	ErrUnknownEntity   = "M100" // entity name not declared in the schema
	ErrUnknownProperty = "M101" // property name not declared on the entity
	ErrUnknownTarget   = "M102" // relation points at an undeclared entity
	ErrNotARelation    = "M103" // path segment names a scalar property
	ErrEmbeddedMulti   = "M104" // embedded is only legal on single references
	ErrMissingFK       = "M105" // non-embedded relation without a foreign key
	ErrMissingKey      = "M106" // qualified relation without a key column
	ErrMissingID       = "M107" // operation requires an identifier property
	ErrDuplicateName   = "M108" // duplicate property or entity name
	ErrRelationCycle   = "M109" // relation graph cycles back into an ancestor
)

// SchemaError reports invalid or unresolvable mapping metadata. It is raised
// either while building a Schema or while resolving a path against one, and
// always before any write action exists.
type SchemaError struct {
	Code     string
	Entity   string
	Property string
	Message  string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	switch {
	case e.Entity != "" && e.Property != "":
		return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Entity, e.Property, e.Message)
	case e.Entity != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Entity, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// IsSchemaError reports whether err is (or wraps) a SchemaError with the
// given code. An empty code matches any SchemaError.
func IsSchemaError(err error, code string) bool {
	var se *SchemaError
	if !errors.As(err, &se) {
		return false
	}
	return code == "" || se.Code == code
}
