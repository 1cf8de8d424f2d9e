package internal

import (
	"sync"

	"github.com/gnolang/dfa/internal/analysis/interp"
	"github.com/gnolang/dfa/internal/analysis/memory"
	"github.com/gnolang/dfa/internal/analysis/value"
	tt "github.com/gnolang/dfa/internal/types"
)

type findingKey struct {
	kind   tt.ProblemKind
	anchor tt.Anchor
}

// finding is the verdict of one problem merged over every state that
// reached its anchor.
type finding struct {
	key     findingKey
	verdict tt.Verdict
	value   string
}

// collector merges the verdicts reported during a run. Reports from
// ephemeral states are dropped: those states only exist on a path that
// already failed an earlier check.
type collector struct {
	interp.NopListener

	mu       sync.Mutex
	findings map[findingKey]*finding
	order    []*finding
}

var _ interp.Listener = (*collector)(nil)

func newCollector() *collector {
	return &collector{findings: make(map[findingKey]*finding)}
}

func (c *collector) OnCondition(p tt.Problem, v value.Value, verdict tt.Verdict, st *memory.State) {
	if st.IsEphemeral() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := findingKey{kind: p.Kind, anchor: p.Anchor}
	if f, ok := c.findings[key]; ok {
		f.verdict = f.verdict.Merge(verdict)
		return
	}
	f := &finding{key: key, verdict: verdict}
	if v != nil {
		f.value = v.String()
	}
	c.findings[key] = f
	c.order = append(c.order, f)
}

// results returns the merged findings in the order they were first seen.
func (c *collector) results() []finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]finding, len(c.order))
	for i, f := range c.order {
		out[i] = *f
	}
	return out
}
