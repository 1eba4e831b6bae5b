package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordata/arbor/internal/mapping"
	"github.com/arbordata/arbor/internal/plan"
	"github.com/arbordata/arbor/internal/testutil"
)

func renderStore(t *testing.T, d Dialect) *Store {
	t.Helper()
	return &Store{schema: testutil.Schema(t), dialect: d}
}

func entity(t *testing.T, s *Store, name string) *mapping.Entity {
	t.Helper()
	ent, err := s.schema.Entity(name)
	require.NoError(t, err)
	return ent
}

func path(t *testing.T, s *Store, dotted string) mapping.Path {
	t.Helper()
	p, err := s.schema.Path("order", dotted)
	require.NoError(t, err)
	return p
}

func TestInsertSQLRoot(t *testing.T) {
	s := renderStore(t, SQLite)
	ent := entity(t, s, "order")

	row := plan.Row{
		"customer": "ada",
		"audit":    map[string]any{"created": "2024-01-01", "actor": "ada"},
	}
	sqlText, args := s.insertSQL(ent, row, false, nil)
	// Scalar columns in declaration order, embedded columns flattened under
	// their prefix, identifier omitted when storage generates it.
	assert.Equal(t,
		"INSERT INTO orders (customer, audit_created, audit_actor) VALUES (?, ?, ?)",
		sqlText)
	assert.Equal(t, []any{"ada", "2024-01-01", "ada"}, args)
}

func TestInsertSQLAbsentColumnsBecomeNull(t *testing.T) {
	s := renderStore(t, SQLite)
	ent := entity(t, s, "order")

	sqlText, args := s.insertSQL(ent, plan.Row{}, false, nil)
	assert.Equal(t,
		"INSERT INTO orders (customer, audit_created, audit_actor) VALUES (?, ?, ?)",
		sqlText)
	assert.Equal(t, []any{nil, nil, nil}, args)
}

func TestInsertSQLProvidedID(t *testing.T) {
	s := renderStore(t, SQLite)
	ent := entity(t, s, "order")

	sqlText, args := s.insertSQL(ent, plan.Row{"id": 5, "customer": "ada"}, true, nil)
	assert.Equal(t,
		"INSERT INTO orders (id, customer, audit_created, audit_actor) VALUES (?, ?, ?, ?)",
		sqlText)
	assert.Equal(t, []any{5, "ada", nil, nil}, args)
}

func TestInsertSQLElementWithForeignKeys(t *testing.T) {
	s := renderStore(t, SQLite)
	ent := entity(t, s, "item")

	sqlText, args := s.insertSQL(ent, plan.Row{"sku": "a-1"}, false,
		map[string]any{"order_id": 7, "idx": 0})
	// Resolved identifier columns come last, in sorted column order.
	assert.Equal(t, "INSERT INTO items (sku, idx, order_id) VALUES (?, ?, ?)", sqlText)
	assert.Equal(t, []any{"a-1", 0, 7}, args)
}

func TestInsertSQLPostgresPlaceholders(t *testing.T) {
	s := renderStore(t, Postgres)
	ent := entity(t, s, "item")

	sqlText, args := s.insertSQL(ent, plan.Row{"sku": "a-1"}, false,
		map[string]any{"order_id": 7, "idx": 0})
	assert.Equal(t, "INSERT INTO items (sku, idx, order_id) VALUES ($1, $2, $3)", sqlText)
	assert.Len(t, args, 3)
}

func TestMergeSQL(t *testing.T) {
	s := renderStore(t, SQLite)
	billing := path(t, s, "billing")

	sqlText, args := s.mergeSQL(billing, billing.Entity(), plan.Row{"street": "library walk 1"},
		false, map[string]any{"order_id": 7})
	assert.Equal(t,
		"INSERT INTO addresses (street, order_id) VALUES (?, ?)"+
			" ON CONFLICT (order_id) DO UPDATE SET street = excluded.street",
		sqlText)
	assert.Equal(t, []any{"library walk 1", 7}, args)
}

func TestUpdateRootSQL(t *testing.T) {
	s := renderStore(t, SQLite)
	ent := entity(t, s, "order")

	sqlText, args, err := s.updateRootSQL(ent, plan.Row{"customer": "ada"}, 7)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE orders SET customer = ?, audit_created = ?, audit_actor = ? WHERE id = ?",
		sqlText)
	assert.Equal(t, []any{"ada", nil, nil, 7}, args)
}

func TestDeleteSQLDirectChild(t *testing.T) {
	s := renderStore(t, SQLite)
	items := path(t, s, "items")

	sqlText, args := s.deleteSQL(items, 7)
	assert.Equal(t, "DELETE FROM items WHERE order_id = ?", sqlText)
	assert.Equal(t, []any{7}, args)
}

func TestDeleteSQLNestedScope(t *testing.T) {
	s := renderStore(t, SQLite)
	tags := path(t, s, "items.tags")

	sqlText, args := s.deleteSQL(tags, 7)
	// The scope chains inward through the id-defining ancestor.
	assert.Equal(t,
		"DELETE FROM tags WHERE item_id IN (SELECT id FROM items WHERE order_id = ?)",
		sqlText)
	assert.Equal(t, []any{7}, args)
}

func TestDeleteAllSQL(t *testing.T) {
	s := renderStore(t, SQLite)
	assert.Equal(t, "DELETE FROM tags", s.deleteAllSQL(path(t, s, "items.tags")))
}

func TestDeleteRootSQL(t *testing.T) {
	s := renderStore(t, SQLite)
	ent := entity(t, s, "order")

	sqlText, args, err := s.deleteRootSQL(ent, 7)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM orders WHERE id = ?", sqlText)
	assert.Equal(t, []any{7}, args)
}

func TestLockSQL(t *testing.T) {
	lite := renderStore(t, SQLite)
	pg := renderStore(t, Postgres)
	ent := entity(t, lite, "order")

	sqlText, args, err := lite.lockSQL(ent, 7)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM orders WHERE id = ?", sqlText)
	assert.Equal(t, []any{7}, args)

	sqlText, _, err = pg.lockSQL(entity(t, pg, "order"), 7)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM orders WHERE id = $1 FOR UPDATE", sqlText)

	sqlText, args, err = lite.lockSQL(ent, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM orders", sqlText)
	assert.Empty(t, args)
}
