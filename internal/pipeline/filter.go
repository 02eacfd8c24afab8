package pipeline

import (
	"path/filepath"
	"sort"

	"migrasquiel/internal/schema"
)

// TableFilter selects which tables a run touches. Include and Exclude
// hold shell glob patterns (matched via path.Match semantics); Apply
// computes the intersection of all tables with Include (or every
// table, when Include is empty) and then removes anything Exclude
// matches, finally sorting the result alphabetically by qualified
// name so runs are deterministic and reproducible.
type TableFilter struct {
	Include []string
	Exclude []string
}

// Apply filters and sorts tables per the Include/Exclude patterns.
func (f TableFilter) Apply(tables []schema.Table) []schema.Table {
	var kept []schema.Table
	for _, t := range tables {
		if len(f.Include) > 0 && !matchesAny(f.Include, t.Name) {
			continue
		}
		if matchesAny(f.Exclude, t.Name) {
			continue
		}
		kept = append(kept, t)
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].QualifiedName() < kept[j].QualifiedName()
	})
	return kept
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
