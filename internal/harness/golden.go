package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/arbordata/arbor/internal/plan"
)

// Snapshot renders an outcome as deterministic text: the planned schedule,
// its fingerprint, and the trace of interpreter calls.
func Snapshot(o *Outcome) string {
	var b strings.Builder
	b.WriteString("plan:\n")
	b.WriteString(indent(plan.RenderText(o.Change.Actions)))
	b.WriteString("fingerprint: " + o.Change.Fingerprint() + "\n")
	b.WriteString("executed:\n")
	for _, line := range o.Stub.Log {
		b.WriteString("  " + line + "\n")
	}
	if o.ExecErr != nil {
		b.WriteString("error: " + o.ExecErr.Error() + "\n")
	}
	return b.String()
}

// Golden compares the outcome snapshot against testdata/<name>.golden.
// Regenerate with: go test ./... -update
func Golden(tb *testing.T, name string, o *Outcome) {
	tb.Helper()
	g := goldie.New(tb)
	g.Assert(tb, name, []byte(Snapshot(o)))
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		b.WriteString("  " + line)
	}
	return b.String()
}
