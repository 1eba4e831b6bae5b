package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/arbordata/arbor/internal/plan"
	"github.com/arbordata/arbor/internal/writer"
)

// Result is what an Interpreter reports back for one executed action.
type Result struct {
	// GeneratedID is the storage-generated identifier for insert-like
	// actions; nil when ids are caller-supplied or not applicable.
	GeneratedID any

	// RowsAffected is the affected row count, meaningful for deletes and
	// updates.
	RowsAffected int64
}

// Interpreter executes one action against storage. Every kind has its own
// handler so a new action variant cannot be silently ignored; the engine
// dispatches exhaustively.
//
// Batch handlers return one Result per sub-action, in sub-action order.
type Interpreter interface {
	InsertRoot(ctx context.Context, a *plan.InsertRoot) (Result, error)
	Insert(ctx context.Context, a *plan.Insert) (Result, error)
	Merge(ctx context.Context, a *plan.Merge) (Result, error)
	UpdateRoot(ctx context.Context, a *plan.UpdateRoot) (Result, error)
	Update(ctx context.Context, a *plan.Update) (Result, error)
	Delete(ctx context.Context, a *plan.Delete) (Result, error)
	DeleteAll(ctx context.Context, a *plan.DeleteAll) (Result, error)
	DeleteRoot(ctx context.Context, a *plan.DeleteRoot) (Result, error)
	DeleteAllRoot(ctx context.Context, a *plan.DeleteAllRoot) (Result, error)
	AcquireLockRoot(ctx context.Context, a *plan.AcquireLockRoot) (Result, error)
	AcquireLockAllRoot(ctx context.Context, a *plan.AcquireLockAllRoot) (Result, error)
	BatchInsertRoot(ctx context.Context, a *plan.BatchInsertRoot) ([]Result, error)
	BatchInsert(ctx context.Context, a *plan.BatchInsert) ([]Result, error)
	BatchDelete(ctx context.Context, a *plan.BatchDelete) (Result, error)
}

// Execute runs a change's schedule through the Interpreter in order. The
// first failure aborts the remaining actions and is wrapped with the
// offending action's coordinates.
func Execute(ctx context.Context, itp Interpreter, ch *writer.Change) error {
	for _, a := range ch.Actions {
		if err := ctx.Err(); err != nil {
			return wrapErr(a, err)
		}
		start := time.Now()
		err := executeOne(ctx, itp, a)
		observe(a.Kind(), time.Since(start), err)
		if err != nil {
			return wrapErr(a, err)
		}
	}
	return nil
}

// executeOne dispatches a single action and feeds any generated identifier
// back before returning, so the very next action can resolve it.
func executeOne(ctx context.Context, itp Interpreter, a plan.Action) error {
	switch act := a.(type) {
	case *plan.InsertRoot:
		res, err := itp.InsertRoot(ctx, act)
		if err != nil {
			return err
		}
		applyGenerated(act, act.Row, act.IDProperty, res)
		return nil
	case *plan.Insert:
		res, err := itp.Insert(ctx, act)
		if err != nil {
			return err
		}
		applyGenerated(act, act.Row, act.IDProperty, res)
		return nil
	case *plan.Merge:
		res, err := itp.Merge(ctx, act)
		if err != nil {
			return err
		}
		applyGenerated(act, act.Row, act.IDProperty, res)
		return nil
	case *plan.UpdateRoot:
		_, err := itp.UpdateRoot(ctx, act)
		return err
	case *plan.Update:
		_, err := itp.Update(ctx, act)
		return err
	case *plan.Delete:
		_, err := itp.Delete(ctx, act)
		return err
	case *plan.DeleteAll:
		_, err := itp.DeleteAll(ctx, act)
		return err
	case *plan.DeleteRoot:
		_, err := itp.DeleteRoot(ctx, act)
		return err
	case *plan.DeleteAllRoot:
		_, err := itp.DeleteAllRoot(ctx, act)
		return err
	case *plan.AcquireLockRoot:
		_, err := itp.AcquireLockRoot(ctx, act)
		return err
	case *plan.AcquireLockAllRoot:
		_, err := itp.AcquireLockAllRoot(ctx, act)
		return err
	case *plan.BatchInsertRoot:
		results, err := itp.BatchInsertRoot(ctx, act)
		if err != nil {
			return err
		}
		if len(results) != len(act.Actions) {
			return fmt.Errorf("interpreter returned %d results for %d batched inserts", len(results), len(act.Actions))
		}
		for i, sub := range act.Actions {
			applyGenerated(sub, sub.Row, sub.IDProperty, results[i])
		}
		return nil
	case *plan.BatchInsert:
		results, err := itp.BatchInsert(ctx, act)
		if err != nil {
			return err
		}
		if len(results) != len(act.Actions) {
			return fmt.Errorf("interpreter returned %d results for %d batched inserts", len(results), len(act.Actions))
		}
		for i, sub := range act.Actions {
			applyGenerated(sub, sub.Row, sub.IDProperty, results[i])
		}
		return nil
	case *plan.BatchDelete:
		_, err := itp.BatchDelete(ctx, act)
		return err
	default:
		panic(fmt.Sprintf("engine: unknown action type %T", a))
	}
}

// applyGenerated stores a generated identifier in the action's write-once
// slot and materializes it into the aggregate row.
func applyGenerated(like plan.InsertLike, row plan.Row, idProp string, res Result) {
	if like.IDSource() != plan.IDGenerated || res.GeneratedID == nil {
		return
	}
	like.SetGeneratedID(res.GeneratedID)
	if idProp != "" && row != nil {
		row[idProp] = res.GeneratedID
	}
}

func wrapErr(a plan.Action, err error) error {
	ee := &ExecError{Kind: a.Kind(), Entity: a.Entity(), Err: err}
	if p, ok := plan.ActionPath(a); ok {
		ee.Path = p.DotPath()
	}
	return ee
}
