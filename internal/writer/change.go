package writer

import "github.com/arbordata/arbor/internal/plan"

// Change is the ordered action list for a single aggregate operation, plus
// the aggregate instance itself. Generated identifiers are written back into
// Root's rows as the engine executes, so after a successful run the instance
// is fully materialized.
type Change struct {
	// Entity is the aggregate root entity name.
	Entity string

	// Root is the aggregate instance a save was computed from; nil for
	// deletes.
	Root plan.Row

	// Actions is the schedule, in mandatory execution order.
	Actions []plan.Action
}

// Batch replaces the schedule with its batched form. Batching is a pure
// adjacent-grouping transform, so every ordering invariant survives; calling
// it twice is a no-op.
func (c *Change) Batch() {
	c.Actions = plan.Batch(c.Actions)
}

// Fingerprint returns the canonical digest of the schedule.
func (c *Change) Fingerprint() string {
	return plan.Fingerprint(c.Actions)
}
