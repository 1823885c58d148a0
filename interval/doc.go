// Package interval provides an immutable interval-set algebra over any
// totally ordered point type.
//
// A Set is a union of disjoint intervals whose endpoints may be
// inclusive, exclusive, or unbounded. Sets are pure values: every
// operation returns a new Set and never mutates its receiver, so sets
// may be freely shared between goroutines.
//
// # Point Types
//
// Any type with a Compare method can be used as an interval point:
//
//	type Rev int
//
//	func (r Rev) Compare(other Rev) int { return int(r) - int(other) }
//
// Masterminds semver versions satisfy the constraint out of the box,
// so interval.Set[*semver.Version] works directly.
//
// # Algebra
//
// Union and Intersect are commutative and associative; Empty and Any
// are their respective identities; Complement is a total involution.
// All sets are kept in canonical form (sorted, disjoint, maximally
// merged intervals), so Equal is a reliable structural comparison.
package interval
