package versol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/versol-dev/versol/interval"
)

// Resolved is one package pinned to one exact version.
type Resolved[P comparable, V interval.Point[V]] struct {
	Package P
	Version V
}

// Solution is a complete assignment of versions that satisfies the
// root requirements and every transitive dependency constraint.
// Entries are sorted by the package's string form.
type Solution[P comparable, V interval.Point[V]] []Resolved[P, V]

// Version returns the version selected for pkg, if pkg is part of the
// solution.
func (s Solution[P, V]) Version(pkg P) (V, bool) {
	for _, r := range s {
		if r.Package == pkg {
			return r.Version, true
		}
	}
	var zero V
	return zero, false
}

func (s Solution[P, V]) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = fmt.Sprintf("%v %v", r.Package, r.Version)
	}
	return strings.Join(parts, ", ")
}

func sortSolution[P comparable, V interval.Point[V]](s Solution[P, V]) {
	sort.Slice(s, func(i, j int) bool {
		return fmt.Sprint(s[i].Package) < fmt.Sprint(s[j].Package)
	})
}
