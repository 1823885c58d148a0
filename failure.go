package versol

import (
	"fmt"
	"strings"

	"github.com/versol-dev/versol/interval"
)

// Failure explains why no solution exists. It retains the full set of
// incompatibilities the solver recorded, so the derivation of the
// terminal conflict can be walked and rendered after Solve returns.
//
// Failure implements error; its Error string is a one-line summary.
// Use Report for the full numbered explanation.
type Failure[P comparable, V interval.Point[V]] struct {
	incompats []Incompatibility[P, V]
	root      int
}

func (f *Failure[P, V]) Error() string {
	return "version solving failed"
}

// Terminal returns the incompatibility that proved solving impossible.
// Its causes, followed transitively through At, form the derivation
// graph rooted at the failure.
func (f *Failure[P, V]) Terminal() Incompatibility[P, V] {
	return f.incompats[f.root]
}

// At returns the incompatibility a Cause index refers to. Indices are
// stable for the lifetime of the Failure and always refer to earlier
// entries, so walking causes terminates.
func (f *Failure[P, V]) At(i int) Incompatibility[P, V] {
	return f.incompats[i]
}

// Report renders the full derivation as a numbered, human-readable
// explanation ending in "So, version solving failed."
func (f *Failure[P, V]) Report() []Line {
	return buildReport(f)
}

// String renders the report as one newline-joined block.
func (f *Failure[P, V]) String() string {
	lines := f.Report()
	parts := make([]string, len(lines))
	for i, l := range lines {
		if l.Number > 0 {
			parts[i] = fmt.Sprintf("(%d) %s", l.Number, l.Text)
		} else {
			parts[i] = l.Text
		}
	}
	return strings.Join(parts, "\n")
}
