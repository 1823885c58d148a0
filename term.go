package versol

import (
	"fmt"

	"github.com/versol-dev/versol/interval"
)

// TermRelation classifies a term against an accumulated assignment
// term for the same package.
type TermRelation int

const (
	// Satisfies means the assignment guarantees the term holds.
	Satisfies TermRelation = iota
	// Contradicts means the assignment makes the term impossible.
	Contradicts
	// Inconclusive means the assignment neither settles nor rules
	// out the term.
	Inconclusive
)

// String returns the relation name.
func (r TermRelation) String() string {
	switch r {
	case Satisfies:
		return "satisfies"
	case Contradicts:
		return "contradicts"
	case Inconclusive:
		return "inconclusive"
	default:
		return fmt.Sprintf("TermRelation(%d)", int(r))
	}
}

// Term asserts that the selected version of a package lies in a set
// (positive) or outside it (negative). Terms are immutable values;
// two terms over different packages never interact.
type Term[P comparable, V interval.Point[V]] struct {
	pkg      P
	set      interval.Set[V]
	positive bool
}

func newTerm[P comparable, V interval.Point[V]](pkg P, set interval.Set[V], positive bool) Term[P, V] {
	return Term[P, V]{pkg: pkg, set: set, positive: positive}
}

// Package returns the package the term constrains.
func (t Term[P, V]) Package() P { return t.pkg }

// Set returns the version set of the term.
func (t Term[P, V]) Set() interval.Set[V] { return t.set }

// Positive reports whether the term asserts membership rather than
// exclusion.
func (t Term[P, V]) Positive() bool { return t.positive }

// Negate returns the logical negation of the term.
func (t Term[P, V]) Negate() Term[P, V] {
	return Term[P, V]{pkg: t.pkg, set: t.set, positive: !t.positive}
}

// intersect combines two terms over the same package into the single
// term satisfied exactly when both are. The polarity cases mirror the
// underlying set algebra: both positive intersect, both negative ban
// the union, and a mixed pair reduces to a positive difference.
func (t Term[P, V]) intersect(other Term[P, V]) Term[P, V] {
	switch {
	case t.positive && other.positive:
		return Term[P, V]{pkg: t.pkg, set: t.set.Intersect(other.set), positive: true}
	case !t.positive && !other.positive:
		return Term[P, V]{pkg: t.pkg, set: t.set.Union(other.set), positive: false}
	case t.positive:
		return Term[P, V]{pkg: t.pkg, set: t.set.Difference(other.set), positive: true}
	default:
		return Term[P, V]{pkg: t.pkg, set: other.set.Difference(t.set), positive: true}
	}
}

// difference returns the term satisfied when t holds and other does not.
func (t Term[P, V]) difference(other Term[P, V]) Term[P, V] {
	return t.intersect(other.Negate())
}

// equal reports structural equality of polarity and set.
func (t Term[P, V]) equal(other Term[P, V]) bool {
	return t.positive == other.positive && t.set.Equal(other.set)
}

// isFailed reports whether the term can never be satisfied: a positive
// assertion over the empty set.
func (t Term[P, V]) isFailed() bool {
	return t.positive && t.set.IsEmpty()
}

// relation classifies t against the accumulated assignment term for
// the same package: Satisfies when the assignment implies t,
// Contradicts when they are mutually exclusive, Inconclusive
// otherwise.
func (t Term[P, V]) relation(assigned Term[P, V]) TermRelation {
	full := t.intersect(assigned)
	switch {
	case full.equal(assigned):
		return Satisfies
	case full.isFailed():
		return Contradicts
	default:
		return Inconclusive
	}
}

// allowsVersion reports whether a decision for v is consistent with
// the term.
func (t Term[P, V]) allowsVersion(v V) bool {
	if t.positive {
		return t.set.Contains(v)
	}
	return !t.set.Contains(v)
}

// String renders the term as "pkg <set>" or "not pkg <set>".
func (t Term[P, V]) String() string {
	if t.positive {
		if t.set.IsAny() {
			return fmt.Sprintf("%v", t.pkg)
		}
		return fmt.Sprintf("%v %s", t.pkg, t.set)
	}
	if t.set.IsAny() {
		return fmt.Sprintf("not %v", t.pkg)
	}
	return fmt.Sprintf("not %v %s", t.pkg, t.set)
}
