package harness

import (
	"context"
	"testing"

	"github.com/arbordata/arbor/internal/engine"
	"github.com/arbordata/arbor/internal/mapping"
	"github.com/arbordata/arbor/internal/plan"
	"github.com/arbordata/arbor/internal/testutil"
	"github.com/arbordata/arbor/internal/writer"
)

// Scenario describes one aggregate operation to compute and execute.
type Scenario struct {
	Name string

	// Entity is the aggregate root entity name.
	Entity string

	// Aggregate is the instance to save; ignored for deletes.
	Aggregate plan.Row

	// Prior is the save's previous-identifier claim.
	Prior writer.PriorState

	// Delete runs a delete cascade for RootID instead of a save. A nil
	// RootID deletes every aggregate of the type.
	Delete bool
	RootID any

	// Lock makes deletes acquire a root lock first.
	Lock bool

	// Batch groups the schedule before execution.
	Batch bool

	// FailOn configures the stub to fail on the given kinds.
	FailOn map[plan.Kind]error
}

// Outcome is what running a scenario produced.
type Outcome struct {
	// Change is the computed schedule, batched when the scenario asked.
	Change *writer.Change

	// Stub is the interpreter the schedule ran against; its Log is the
	// execution trace.
	Stub *testutil.StubInterpreter

	// ExecErr is the execution failure, nil on success. Computation failures
	// abort the test instead: a scenario that cannot even be planned is a
	// broken scenario.
	ExecErr error
}

// Run computes and executes one scenario against a fresh stub.
func Run(tb testing.TB, schema *mapping.Schema, sc Scenario) *Outcome {
	tb.Helper()

	var opts []writer.Option
	if sc.Lock {
		opts = append(opts, writer.WithDeleteLock())
	}
	w := writer.New(schema, opts...)

	var (
		ch  *writer.Change
		err error
	)
	if sc.Delete {
		ch, err = w.ComputeDelete(sc.Entity, sc.RootID)
	} else {
		ch, err = w.ComputeSave(sc.Entity, sc.Aggregate, sc.Prior)
	}
	if err != nil {
		tb.Fatalf("compute %s: %v", sc.Name, err)
	}
	if sc.Batch {
		ch.Batch()
	}

	stub := testutil.NewStubInterpreter()
	stub.FailOn = sc.FailOn
	execErr := engine.Execute(context.Background(), stub, ch)
	return &Outcome{Change: ch, Stub: stub, ExecErr: execErr}
}
