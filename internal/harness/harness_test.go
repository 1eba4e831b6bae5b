package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordata/arbor/internal/engine"
	"github.com/arbordata/arbor/internal/plan"
	"github.com/arbordata/arbor/internal/testutil"
	"github.com/arbordata/arbor/internal/writer"
)

func TestSaveNewOrder(t *testing.T) {
	schema := testutil.Schema(t)
	o := Run(t, schema, Scenario{
		Name:   "save_new_order",
		Entity: "order",
		Aggregate: plan.Row{
			"customer": "ada",
			"items": []any{
				map[string]any{"sku": "a-1", "tags": []any{map[string]any{"label": "new"}}},
				map[string]any{"sku": "b-2", "flags": []any{map[string]any{"name": "fragile"}}},
			},
			"notes":   map[string]any{"urgent": map[string]any{"text": "ship today"}},
			"billing": map[string]any{"street": "library walk 1"},
			"audit":   map[string]any{"created": "2024-05-01", "actor": "ada"},
		},
	})

	require.NoError(t, o.ExecErr)
	AssertSaveOrder(t, o.Change.Actions)
	Golden(t, "save_new_order", o)
}

func TestResaveExistingOrder(t *testing.T) {
	schema := testutil.Schema(t)
	o := Run(t, schema, Scenario{
		Name:   "resave_existing_order",
		Entity: "order",
		Aggregate: plan.Row{
			"id":       7,
			"customer": "ada",
			"items":    []any{map[string]any{"sku": "a-1"}},
			"billing":  map[string]any{"id": 3, "street": "library walk 1"},
		},
	})

	require.NoError(t, o.ExecErr)
	AssertSaveOrder(t, o.Change.Actions)
	Golden(t, "resave_existing_order", o)
}

func TestDeleteLocked(t *testing.T) {
	schema := testutil.Schema(t)
	o := Run(t, schema, Scenario{
		Name:   "delete_locked",
		Entity: "order",
		Delete: true,
		RootID: 7,
		Lock:   true,
	})

	require.NoError(t, o.ExecErr)
	AssertDeleteOrder(t, o.Change.Actions)
	Golden(t, "delete_locked", o)
}

func TestBatchedSave(t *testing.T) {
	schema := testutil.Schema(t)
	o := Run(t, schema, Scenario{
		Name:   "batched_save",
		Entity: "order",
		Aggregate: plan.Row{
			"customer": "ada",
			"items": []any{
				map[string]any{"sku": "a-1"},
				map[string]any{"sku": "b-2"},
				map[string]any{"sku": "c-3"},
			},
			"notes": map[string]any{
				"a": map[string]any{"text": "first"},
				"b": map[string]any{"text": "second"},
			},
		},
		Batch: true,
	})

	require.NoError(t, o.ExecErr)
	AssertSaveOrder(t, o.Change.Actions)
	Golden(t, "batched_save", o)
}

func TestFailingExecutionStopsTheTrace(t *testing.T) {
	schema := testutil.Schema(t)
	boom := errors.New("constraint violated")
	o := Run(t, schema, Scenario{
		Name:   "failing_insert",
		Entity: "order",
		Aggregate: plan.Row{
			"customer": "ada",
			"items":    []any{map[string]any{"sku": "a-1"}},
		},
		FailOn: map[plan.Kind]error{plan.KindInsert: boom},
	})

	require.Error(t, o.ExecErr)
	require.ErrorIs(t, o.ExecErr, boom)

	var execErr *engine.ExecError
	require.ErrorAs(t, o.ExecErr, &execErr)
	assert.Equal(t, plan.KindInsert, execErr.Kind)
	assert.Equal(t, "items", execErr.Path)

	// The failing call is still logged; nothing after it runs.
	assert.Equal(t, []string{
		"InsertRoot order id=generated",
		"Insert order.items qualifier=0 id=generated",
	}, o.Stub.Log)

	snap := Snapshot(o)
	assert.Contains(t, snap, "error: ")
	assert.Contains(t, snap, "constraint violated")
}

func TestAssertDeleteOrderAcceptsDeleteAll(t *testing.T) {
	schema := testutil.Schema(t)
	w := writer.New(schema)
	ch, err := w.ComputeDelete("order", nil)
	require.NoError(t, err)
	AssertDeleteOrder(t, ch.Actions)
}
