package harness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbordata/arbor/internal/mapping"
	"github.com/arbordata/arbor/internal/plan"
)

// AssertSaveOrder verifies the mandatory save schedule shape: the root action
// at position 0, then deletes only, then insert-likes only, with no stragglers.
func AssertSaveOrder(tb testing.TB, actions []plan.Action) {
	tb.Helper()
	require.NotEmpty(tb, actions, "save schedule has a root action")

	first := actions[0].Kind()
	require.Contains(tb, []plan.Kind{plan.KindInsertRoot, plan.KindUpdateRoot}, first,
		"position 0 must be the root action")

	const (
		phaseDeletes = iota
		phaseInserts
	)
	phase := phaseDeletes
	for i, a := range actions[1:] {
		switch a.Kind() {
		case plan.KindDelete, plan.KindBatchDelete:
			require.Equal(tb, phaseDeletes, phase,
				"delete at position %d after the insert phase began", i+1)
		case plan.KindInsert, plan.KindMerge, plan.KindBatchInsert:
			phase = phaseInserts
		default:
			tb.Fatalf("unexpected %s at position %d of a save schedule", a.Kind(), i+1)
		}
	}
}

// AssertDeleteOrder verifies a delete cascade: an optional leading lock,
// element deletes with every path preceding its ancestors, root delete last.
func AssertDeleteOrder(tb testing.TB, actions []plan.Action) {
	tb.Helper()
	require.NotEmpty(tb, actions)

	i := 0
	if k := actions[0].Kind(); k == plan.KindAcquireLockRoot || k == plan.KindAcquireLockAllRoot {
		i = 1
	}
	last := len(actions) - 1
	require.Contains(tb, []plan.Kind{plan.KindDeleteRoot, plan.KindDeleteAllRoot}, actions[last].Kind(),
		"cascade ends with the root delete")

	// Leaf-to-root means no path may be deleted before any of its descendants.
	for ; i < last; i++ {
		p, ok := plan.ActionPath(actions[i])
		require.True(tb, ok, "element delete carries a path")
		for j := i + 1; j < last; j++ {
			q, ok := plan.ActionPath(actions[j])
			require.True(tb, ok)
			require.False(tb, isProperAncestor(p, q),
				"%s deleted before its descendant %s", p, q)
		}
	}
}

func isProperAncestor(a, b mapping.Path) bool {
	if a.Length() >= b.Length() {
		return false
	}
	for b.Length() > a.Length() {
		b = b.Parent()
	}
	return a.String() == b.String()
}
