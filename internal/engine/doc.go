// Package engine drives a computed change through an Interpreter, one action
// at a time, strictly in schedule order.
//
// The engine is the only place identifier feedback happens: immediately
// after an insert-like action returns a generated identifier, the engine
// stores it in the action's write-once slot and materializes it into the
// aggregate row, before the next action is visited. Root-to-leaf insert
// ordering makes that sufficient; no synchronization is involved.
//
// Failure is fail-fast: the first action error aborts the remaining schedule
// of that change. There is no retry and no partial-success state.
package engine
