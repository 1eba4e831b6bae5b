// Package mapping holds the relational mapping metadata for aggregates: which
// entities exist, which table and columns each one maps to, and how entities
// relate to each other (single reference, list, set, map, embedded).
//
// A Schema is built once per aggregate type, validated eagerly, and is
// read-only afterwards. All navigable paths from every possible root are
// precomputed into an index at construction time, so path lookups during
// change computation are map reads with no locking.
//
// The Path type is the unit the rest of the system reasons about: an ordered
// chain of relation traversals from an aggregate root down to a nested
// entity. Paths are immutable values and all their classification methods
// (multi-valued, qualified, embedded, ...) are pure functions of the schema.
package mapping
