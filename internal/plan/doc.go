// Package plan defines the write-intent model: the closed set of action
// kinds the writer schedules, the identifier-propagation chain that resolves
// foreign-key and qualifier columns under deferred ids, the adjacency-based
// batching transform, and a canonical textual rendering used for golden
// comparison and plan fingerprints.
//
// The action set is sealed: only the types in this package implement Action,
// and every consumer dispatches over the full Kind set with no silent
// default. Adding a kind is intentionally a breaking change for every
// consumer.
package plan
