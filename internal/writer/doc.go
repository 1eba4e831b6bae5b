// Package writer computes aggregate changes: given mapping metadata and an
// aggregate instance (or a root identifier for deletes), it produces the
// strictly ordered, dependency-correct action list the engine executes.
//
// The computation is pure and synchronous. It either returns a complete,
// valid schedule or fails with a metadata error before any action exists;
// a partial schedule is never handed out.
//
// Save ordering invariant: the root action is always position 0, followed by
// the delete pass (leaf paths before their ancestors, existing roots only),
// followed by the insert pass (root-to-leaf, so a parent's action, and
// eventually its generated identifier, exists before any dependent child
// action). Multi-valued relations are replaced wholesale: one delete per
// path, then one insert per present element. Elements are never diffed.
package writer
