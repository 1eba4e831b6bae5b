package testutil

import (
	"context"

	"github.com/arbordata/arbor/internal/engine"
	"github.com/arbordata/arbor/internal/plan"
)

// Compile-time contract assertion.
var _ engine.Interpreter = (*StubInterpreter)(nil)

// StubInterpreter records every executed action and hands out identifiers
// from a monotonically increasing sequence, so tests can assert both the
// execution order and the id round-trip without a database.
type StubInterpreter struct {
	next int64

	// Log holds one Describe line per interpreter call, in call order.
	Log []string

	// FailOn maps action kinds to errors; a matching call fails without
	// consuming an identifier.
	FailOn map[plan.Kind]error
}

// NewStubInterpreter returns a stub whose sequence starts at 1.
func NewStubInterpreter() *StubInterpreter {
	return &StubInterpreter{}
}

// NextID returns the next identifier the stub would generate.
func (s *StubInterpreter) NextID() int64 { return s.next + 1 }

func (s *StubInterpreter) record(a plan.Action) error {
	s.Log = append(s.Log, plan.Describe(a))
	if err, ok := s.FailOn[a.Kind()]; ok {
		return err
	}
	return nil
}

func (s *StubInterpreter) generate(source plan.IDSource) engine.Result {
	if source != plan.IDGenerated {
		return engine.Result{}
	}
	s.next++
	return engine.Result{GeneratedID: s.next}
}

func (s *StubInterpreter) InsertRoot(_ context.Context, a *plan.InsertRoot) (engine.Result, error) {
	if err := s.record(a); err != nil {
		return engine.Result{}, err
	}
	return s.generate(a.IDSource()), nil
}

func (s *StubInterpreter) Insert(_ context.Context, a *plan.Insert) (engine.Result, error) {
	if err := s.record(a); err != nil {
		return engine.Result{}, err
	}
	return s.generate(a.IDSource()), nil
}

func (s *StubInterpreter) Merge(_ context.Context, a *plan.Merge) (engine.Result, error) {
	if err := s.record(a); err != nil {
		return engine.Result{}, err
	}
	return s.generate(a.IDSource()), nil
}

func (s *StubInterpreter) UpdateRoot(_ context.Context, a *plan.UpdateRoot) (engine.Result, error) {
	return engine.Result{RowsAffected: 1}, s.record(a)
}

func (s *StubInterpreter) Update(_ context.Context, a *plan.Update) (engine.Result, error) {
	return engine.Result{RowsAffected: 1}, s.record(a)
}

func (s *StubInterpreter) Delete(_ context.Context, a *plan.Delete) (engine.Result, error) {
	return engine.Result{}, s.record(a)
}

func (s *StubInterpreter) DeleteAll(_ context.Context, a *plan.DeleteAll) (engine.Result, error) {
	return engine.Result{}, s.record(a)
}

func (s *StubInterpreter) DeleteRoot(_ context.Context, a *plan.DeleteRoot) (engine.Result, error) {
	return engine.Result{RowsAffected: 1}, s.record(a)
}

func (s *StubInterpreter) DeleteAllRoot(_ context.Context, a *plan.DeleteAllRoot) (engine.Result, error) {
	return engine.Result{}, s.record(a)
}

func (s *StubInterpreter) AcquireLockRoot(_ context.Context, a *plan.AcquireLockRoot) (engine.Result, error) {
	return engine.Result{}, s.record(a)
}

func (s *StubInterpreter) AcquireLockAllRoot(_ context.Context, a *plan.AcquireLockAllRoot) (engine.Result, error) {
	return engine.Result{}, s.record(a)
}

func (s *StubInterpreter) BatchInsertRoot(_ context.Context, a *plan.BatchInsertRoot) ([]engine.Result, error) {
	if err := s.record(a); err != nil {
		return nil, err
	}
	results := make([]engine.Result, len(a.Actions))
	for i, sub := range a.Actions {
		results[i] = s.generate(sub.IDSource())
	}
	return results, nil
}

func (s *StubInterpreter) BatchInsert(_ context.Context, a *plan.BatchInsert) ([]engine.Result, error) {
	if err := s.record(a); err != nil {
		return nil, err
	}
	results := make([]engine.Result, len(a.Actions))
	for i, sub := range a.Actions {
		results[i] = s.generate(sub.IDSource())
	}
	return results, nil
}

func (s *StubInterpreter) BatchDelete(_ context.Context, a *plan.BatchDelete) (engine.Result, error) {
	return engine.Result{}, s.record(a)
}
