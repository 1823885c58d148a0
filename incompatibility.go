package versol

import (
	"fmt"
	"strings"

	"github.com/versol-dev/versol/interval"
)

// CauseKind identifies how an incompatibility came to be known.
type CauseKind int

const (
	// CauseRoot marks an incompatibility seeded from a root
	// requirement: the single negative term forbids leaving the
	// requirement unmet.
	CauseRoot CauseKind = iota
	// CauseDependency marks an incompatibility derived from a
	// package version's declared dependency.
	CauseDependency
	// CauseNoVersions marks an incompatibility recorded when the
	// provider has no version matching a required set.
	CauseNoVersions
	// CauseDerived marks an incompatibility produced by resolving
	// two earlier incompatibilities during conflict resolution.
	CauseDerived
)

// String returns the cause kind name.
func (k CauseKind) String() string {
	switch k {
	case CauseRoot:
		return "root"
	case CauseDependency:
		return "dependency"
	case CauseNoVersions:
		return "no-versions"
	case CauseDerived:
		return "derived"
	default:
		return fmt.Sprintf("CauseKind(%d)", int(k))
	}
}

// Cause records the derivation of an incompatibility. For
// CauseDerived, Left and Right index strictly earlier entries of the
// solve's append-only incompatibility arena, which makes the
// derivation graph acyclic by construction.
type Cause struct {
	Kind CauseKind

	// Left and Right are arena indices of the two incompatibilities
	// this one was resolved from. Valid only when Kind is
	// CauseDerived.
	Left, Right int
}

// Incompatibility is a set of terms that cannot all hold at once.
// It is immutable once created. By construction it holds at most one
// term per package: the constructor intersects duplicates.
type Incompatibility[P comparable, V interval.Point[V]] struct {
	terms []Term[P, V]
	cause Cause
}

// newIncompatibility builds an incompatibility, merging terms that
// refer to the same package by intersection. First-appearance order
// of packages is preserved; it affects only report readability.
func newIncompatibility[P comparable, V interval.Point[V]](terms []Term[P, V], cause Cause) Incompatibility[P, V] {
	merged := make([]Term[P, V], 0, len(terms))
	at := make(map[P]int, len(terms))
	for _, t := range terms {
		if i, ok := at[t.pkg]; ok {
			merged[i] = merged[i].intersect(t)
			continue
		}
		at[t.pkg] = len(merged)
		merged = append(merged, t)
	}
	return Incompatibility[P, V]{terms: merged, cause: cause}
}

// Terms returns the incompatibility's terms. The returned slice is a
// copy.
func (ic Incompatibility[P, V]) Terms() []Term[P, V] {
	out := make([]Term[P, V], len(ic.terms))
	copy(out, ic.terms)
	return out
}

// Cause returns how the incompatibility was derived.
func (ic Incompatibility[P, V]) Cause() Cause { return ic.cause }

// IsDerived reports whether the incompatibility was produced by
// conflict resolution rather than observed directly.
func (ic Incompatibility[P, V]) IsDerived() bool {
	return ic.cause.Kind == CauseDerived
}

// termFor returns the term constraining pkg, if any.
func (ic Incompatibility[P, V]) termFor(pkg P) (Term[P, V], bool) {
	for _, t := range ic.terms {
		if t.pkg == pkg {
			return t, true
		}
	}
	var zero Term[P, V]
	return zero, false
}

// String renders the incompatibility as the fact it proves.
func (ic Incompatibility[P, V]) String() string {
	switch {
	case len(ic.terms) == 0:
		return "version solving failed"
	case len(ic.terms) == 1:
		t := ic.terms[0]
		if !t.positive {
			return fmt.Sprintf("%s is required", t.Negate())
		}
		if ic.cause.Kind == CauseNoVersions {
			if t.set.IsAny() {
				return fmt.Sprintf("no versions of %v are available", t.pkg)
			}
			return fmt.Sprintf("no versions of %v match %s", t.pkg, t.set)
		}
		return fmt.Sprintf("%s is forbidden", t)
	case len(ic.terms) == 2:
		a, b := ic.terms[0], ic.terms[1]
		switch {
		case a.positive && !b.positive:
			return fmt.Sprintf("%s depends on %s", a, b.Negate())
		case !a.positive && b.positive:
			return fmt.Sprintf("%s depends on %s", b, a.Negate())
		case a.positive && b.positive:
			return fmt.Sprintf("%s is incompatible with %s", a, b)
		}
	case len(ic.terms) == 3:
		a, b, c := ic.terms[0], ic.terms[1], ic.terms[2]
		if a.positive && b.positive && !c.positive {
			return fmt.Sprintf("if %s and %s then %s", a, b, c.Negate())
		}
	}
	parts := make([]string, len(ic.terms))
	for i, t := range ic.terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s are incompatible", strings.Join(parts, " and "))
}
