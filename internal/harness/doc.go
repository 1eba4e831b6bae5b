// Package harness runs save/delete scenarios end to end: compute the change,
// execute it against the recording stub interpreter, and snapshot the
// rendered plan plus the execution trace as a golden file. Tests across the
// repo use it to pin full schedules without repeating the wiring.
package harness
