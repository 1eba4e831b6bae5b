package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/arbordata/arbor/internal/engine"
	"github.com/arbordata/arbor/internal/mapping"
	"github.com/arbordata/arbor/internal/plan"
)

// Compile-time contract assertion.
var _ engine.Interpreter = (*Store)(nil)

// InsertRoot implements engine.Interpreter.
func (s *Store) InsertRoot(ctx context.Context, a *plan.InsertRoot) (engine.Result, error) {
	ent, err := s.schema.Entity(a.Entity())
	if err != nil {
		return engine.Result{}, err
	}
	sqlText, args := s.insertSQL(ent, a.Row, a.IDSource() == plan.IDProvided, nil)
	return s.execInsert(ctx, sqlText, args, ent.IDProperty().Column, a.IDSource() == plan.IDGenerated)
}

// Insert implements engine.Interpreter.
func (s *Store) Insert(ctx context.Context, a *plan.Insert) (engine.Result, error) {
	ent := a.Path.Entity()
	fkCols, err := a.IDCtx.ToIdentifier(a.Path)
	if err != nil {
		return engine.Result{}, err
	}
	idCol := ""
	generated := a.IDSource() == plan.IDGenerated
	if idp := ent.IDProperty(); idp != nil {
		idCol = idp.Column
	}
	sqlText, args := s.insertSQL(ent, a.Row, a.IDSource() == plan.IDProvided, fkCols)
	return s.execInsert(ctx, sqlText, args, idCol, generated)
}

// Merge implements engine.Interpreter.
func (s *Store) Merge(ctx context.Context, a *plan.Merge) (engine.Result, error) {
	ent := a.Path.Entity()
	fkCols, err := a.IDCtx.ToIdentifier(a.Path)
	if err != nil {
		return engine.Result{}, err
	}
	idCol := ""
	generated := a.IDSource() == plan.IDGenerated
	if idp := ent.IDProperty(); idp != nil {
		idCol = idp.Column
	}
	sqlText, args := s.mergeSQL(a.Path, ent, a.Row, a.IDSource() == plan.IDProvided, fkCols)
	return s.execMerge(ctx, sqlText, args, ent, idCol, fkCols, generated)
}

// UpdateRoot implements engine.Interpreter.
func (s *Store) UpdateRoot(ctx context.Context, a *plan.UpdateRoot) (engine.Result, error) {
	ent, err := s.schema.Entity(a.Entity())
	if err != nil {
		return engine.Result{}, err
	}
	sqlText, args, err := s.updateRootSQL(ent, a.Row, a.ID)
	if err != nil {
		return engine.Result{}, err
	}
	return s.exec(ctx, sqlText, args)
}

// Update implements engine.Interpreter.
func (s *Store) Update(ctx context.Context, a *plan.Update) (engine.Result, error) {
	keyCols, err := a.IDCtx.ToIdentifier(a.Path)
	if err != nil {
		return engine.Result{}, err
	}
	sqlText, args := s.updateSQL(a.Path.Entity(), a.Row, keyCols)
	return s.exec(ctx, sqlText, args)
}

// Delete implements engine.Interpreter.
func (s *Store) Delete(ctx context.Context, a *plan.Delete) (engine.Result, error) {
	sqlText, args := s.deleteSQL(a.Path, a.Scope)
	return s.exec(ctx, sqlText, args)
}

// DeleteAll implements engine.Interpreter.
func (s *Store) DeleteAll(ctx context.Context, a *plan.DeleteAll) (engine.Result, error) {
	return s.exec(ctx, s.deleteAllSQL(a.Path), nil)
}

// DeleteRoot implements engine.Interpreter.
func (s *Store) DeleteRoot(ctx context.Context, a *plan.DeleteRoot) (engine.Result, error) {
	ent, err := s.schema.Entity(a.Entity())
	if err != nil {
		return engine.Result{}, err
	}
	sqlText, args, err := s.deleteRootSQL(ent, a.ID)
	if err != nil {
		return engine.Result{}, err
	}
	return s.exec(ctx, sqlText, args)
}

// DeleteAllRoot implements engine.Interpreter.
func (s *Store) DeleteAllRoot(ctx context.Context, a *plan.DeleteAllRoot) (engine.Result, error) {
	ent, err := s.schema.Entity(a.Entity())
	if err != nil {
		return engine.Result{}, err
	}
	return s.exec(ctx, fmt.Sprintf("DELETE FROM %s", ent.Table), nil)
}

// AcquireLockRoot implements engine.Interpreter.
func (s *Store) AcquireLockRoot(ctx context.Context, a *plan.AcquireLockRoot) (engine.Result, error) {
	ent, err := s.schema.Entity(a.Entity())
	if err != nil {
		return engine.Result{}, err
	}
	sqlText, args, err := s.lockSQL(ent, a.ID)
	if err != nil {
		return engine.Result{}, err
	}
	return s.query(ctx, sqlText, args)
}

// AcquireLockAllRoot implements engine.Interpreter.
func (s *Store) AcquireLockAllRoot(ctx context.Context, a *plan.AcquireLockAllRoot) (engine.Result, error) {
	ent, err := s.schema.Entity(a.Entity())
	if err != nil {
		return engine.Result{}, err
	}
	sqlText, args, err := s.lockSQL(ent, nil)
	if err != nil {
		return engine.Result{}, err
	}
	return s.query(ctx, sqlText, args)
}

// BatchInsertRoot implements engine.Interpreter: one statement per row, one
// result per sub-action, stopping at the first failure.
func (s *Store) BatchInsertRoot(ctx context.Context, a *plan.BatchInsertRoot) ([]engine.Result, error) {
	results := make([]engine.Result, 0, len(a.Actions))
	for _, sub := range a.Actions {
		res, err := s.InsertRoot(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("batched insert %d of %d: %w", len(results)+1, len(a.Actions), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// BatchInsert implements engine.Interpreter.
func (s *Store) BatchInsert(ctx context.Context, a *plan.BatchInsert) ([]engine.Result, error) {
	results := make([]engine.Result, 0, len(a.Actions))
	for _, sub := range a.Actions {
		res, err := s.Insert(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("batched insert %d of %d: %w", len(results)+1, len(a.Actions), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// BatchDelete implements engine.Interpreter, summing affected rows.
func (s *Store) BatchDelete(ctx context.Context, a *plan.BatchDelete) (engine.Result, error) {
	var total int64
	for _, sub := range a.Actions {
		res, err := s.Delete(ctx, sub)
		if err != nil {
			return engine.Result{}, err
		}
		total += res.RowsAffected
	}
	return engine.Result{RowsAffected: total}, nil
}

// execMerge runs an upsert and retrieves the merged row's own identifier.
// LastInsertId is wrong here: when the DO UPDATE branch fires it reports the
// connection's last actual insert, an unrelated row. RETURNING yields the
// upserted row's id on both dialects; a DO NOTHING conflict returns no row,
// so the id is re-selected by the unique foreign key.
func (s *Store) execMerge(ctx context.Context, sqlText string, args []any, ent *mapping.Entity, idCol string, fkCols map[string]any, generated bool) (engine.Result, error) {
	if !generated || idCol == "" {
		return s.exec(ctx, sqlText, args)
	}
	var id any
	err := s.db.QueryRowContext(ctx, sqlText+" RETURNING "+idCol, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return s.selectMergedID(ctx, ent, idCol, fkCols)
	}
	if err != nil {
		return engine.Result{}, fmt.Errorf("merge returning: %w", err)
	}
	return engine.Result{GeneratedID: id, RowsAffected: 1}, nil
}

// selectMergedID looks up an upserted row's identifier by its foreign-key
// and qualifier columns.
func (s *Store) selectMergedID(ctx context.Context, ent *mapping.Entity, idCol string, fkCols map[string]any) (engine.Result, error) {
	args := &argList{dialect: s.dialect}
	var wheres []string
	for _, c := range sortedKeys(fkCols) {
		wheres = append(wheres, fmt.Sprintf("%s = %s", c, args.add(fkCols[c])))
	}
	sqlText := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		idCol, ent.Table, strings.Join(wheres, " AND "))
	var id any
	if err := s.db.QueryRowContext(ctx, sqlText, args.vals...).Scan(&id); err != nil {
		return engine.Result{}, fmt.Errorf("merge id lookup: %w", err)
	}
	return engine.Result{GeneratedID: id, RowsAffected: 1}, nil
}

// execInsert runs an insert and retrieves the generated identifier when
// storage owns it: RETURNING on Postgres, LastInsertId on SQLite.
func (s *Store) execInsert(ctx context.Context, sqlText string, args []any, idCol string, generated bool) (engine.Result, error) {
	if !generated || idCol == "" {
		return s.exec(ctx, sqlText, args)
	}
	if s.dialect == Postgres {
		var id any
		row := s.db.QueryRowContext(ctx, sqlText+" RETURNING "+idCol, args...)
		if err := row.Scan(&id); err != nil {
			return engine.Result{}, fmt.Errorf("insert returning: %w", err)
		}
		return engine.Result{GeneratedID: id, RowsAffected: 1}, nil
	}
	res, err := s.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return engine.Result{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return engine.Result{}, fmt.Errorf("last insert id: %w", err)
	}
	rows, _ := res.RowsAffected()
	return engine.Result{GeneratedID: id, RowsAffected: rows}, nil
}

func (s *Store) exec(ctx context.Context, sqlText string, args []any) (engine.Result, error) {
	res, err := s.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return engine.Result{}, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return engine.Result{}, fmt.Errorf("rows affected: %w", err)
	}
	return engine.Result{RowsAffected: rows}, nil
}

// query runs a statement whose effect is the query itself (lock probes) and
// drains the result.
func (s *Store) query(ctx context.Context, sqlText string, args []any) (engine.Result, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return engine.Result{}, err
	}
	defer func() { _ = rows.Close() }()
	var n int64
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil && err != sql.ErrNoRows {
		return engine.Result{}, err
	}
	return engine.Result{RowsAffected: n}, nil
}
