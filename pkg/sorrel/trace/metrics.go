package trace

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
)

// Metrics counts block executions in memory. Like the evaluator it
// observes, it is not safe for concurrent use.
type Metrics struct {
	Blocks       map[string]int // block entries by position
	Functions    map[string]int // block entries by innermost function
	MaxCallDepth int
	MaxScopes    int
	Elapsed      time.Duration

	started time.Time
	open    int
}

// NewMetrics returns an empty metrics hook.
func NewMetrics() *Metrics {
	return &Metrics{
		Blocks:    make(map[string]int),
		Functions: make(map[string]int),
	}
}

func (m *Metrics) BeforeExecute(node ast.Node, ctx *evaluator.Context) {
	if m.open == 0 {
		m.started = time.Now()
	}
	m.open++

	m.Blocks[node.Position().String()]++
	if top, ok := ctx.CallStack.Top(); ok {
		m.Functions[top.Name]++
	}
	if d := ctx.CallStack.Depth(); d > m.MaxCallDepth {
		m.MaxCallDepth = d
	}
	if d := ctx.Memory.Depth(); d > m.MaxScopes {
		m.MaxScopes = d
	}
}

func (m *Metrics) AfterExecute(node ast.Node, ctx *evaluator.Context) {
	if m.open == 0 {
		return
	}
	m.open--
	if m.open == 0 {
		m.Elapsed += time.Since(m.started)
	}
}

// TotalBlocks is the number of block entries seen.
func (m *Metrics) TotalBlocks() int {
	total := 0
	for _, n := range m.Blocks {
		total += n
	}
	return total
}

type counted struct {
	name  string
	count int
}

func sortedCounts(counts map[string]int) []counted {
	out := make([]counted, 0, len(counts))
	for name, n := range counts {
		out = append(out, counted{name, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

// Report writes a summary, busiest functions first.
func (m *Metrics) Report(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "blocks: %d  max call depth: %d  max scopes: %d  elapsed: %s\n",
		m.TotalBlocks(), m.MaxCallDepth, m.MaxScopes, m.Elapsed.Round(time.Microsecond)); err != nil {
		return err
	}
	for _, c := range sortedCounts(m.Functions) {
		if _, err := fmt.Fprintf(w, "  %-30s %d\n", c.name, c.count); err != nil {
			return err
		}
	}
	return nil
}
