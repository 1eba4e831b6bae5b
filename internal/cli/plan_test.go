package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mappingDir = filepath.Join("testdata", "mapping")
	newOrder   = filepath.Join("testdata", "fixtures", "new_order.yaml")
	savedOrder = filepath.Join("testdata", "fixtures", "existing_order.yaml")
)

func runPlanCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewPlanCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestPlanNewOrder(t *testing.T) {
	out, err := runPlanCmd(t, "text", "--mapping", mappingDir, "--aggregate", newOrder)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "plan_new_order", []byte(out))
}

func TestPlanExistingOrder(t *testing.T) {
	out, err := runPlanCmd(t, "text", "--mapping", mappingDir, "--aggregate", savedOrder)
	require.NoError(t, err)

	want := "UpdateRoot order id=7\n" +
		"Delete order.notes scope=7\n" +
		"Delete order.items.tags scope=7\n" +
		"Delete order.items scope=7\n" +
		"Insert order.items qualifier=0 id=generated\n" +
		"Merge order.billing qualifier=- id=generated\n"
	require.True(t, len(out) > len(want))
	assert.Equal(t, want, out[:len(want)])
	assert.Contains(t, out, "fingerprint: ")
}

func TestPlanDeleteScoped(t *testing.T) {
	out, err := runPlanCmd(t, "text",
		"--mapping", mappingDir, "--delete", "--entity", "order", "--id", "7", "--lock")
	require.NoError(t, err)

	want := "AcquireLockRoot order id=7\n" +
		"Delete order.billing scope=7\n" +
		"Delete order.notes scope=7\n" +
		"Delete order.items.tags scope=7\n" +
		"Delete order.items scope=7\n" +
		"DeleteRoot order id=7\n"
	assert.Equal(t, want, out[:len(want)])
}

func TestPlanDeleteAll(t *testing.T) {
	out, err := runPlanCmd(t, "text", "--mapping", mappingDir, "--delete", "--entity", "order")
	require.NoError(t, err)

	want := "DeleteAll order.billing\n" +
		"DeleteAll order.notes\n" +
		"DeleteAll order.items.tags\n" +
		"DeleteAll order.items\n" +
		"DeleteAllRoot order\n"
	assert.Equal(t, want, out[:len(want)])
}

func TestPlanBatch(t *testing.T) {
	// Two sibling items without nested relations form an adjacent run.
	fixture := `entity: order
aggregate:
  customer: ada
  items:
    - sku: a-1
    - sku: b-2
    - sku: c-3
`
	path := filepath.Join(t.TempDir(), "flat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	out, err := runPlanCmd(t, "text", "--mapping", mappingDir, "--aggregate", path, "--batch")
	require.NoError(t, err)

	want := "InsertRoot order id=generated\n" +
		"BatchInsert order.items n=3 id=generated\n" +
		"  Insert order.items qualifier=0 id=generated\n" +
		"  Insert order.items qualifier=1 id=generated\n" +
		"  Insert order.items qualifier=2 id=generated\n"
	assert.Equal(t, want, out[:len(want)])
}

func TestPlanJSON(t *testing.T) {
	out, err := runPlanCmd(t, "json", "--mapping", mappingDir, "--aggregate", newOrder)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PlanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "order", resp.Data.Entity)
	assert.Len(t, resp.Data.Actions, 6)
	assert.Len(t, resp.Data.Fingerprint, 64)
	assert.Equal(t, "InsertRoot order id=generated", resp.Data.Actions[0])
}

func TestPlanRequiresAggregate(t *testing.T) {
	_, err := runPlanCmd(t, "text", "--mapping", mappingDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--aggregate")
}

func TestPlanUnknownEntity(t *testing.T) {
	_, err := runPlanCmd(t, "text", "--mapping", mappingDir, "--delete", "--entity", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
