package interval

import (
	"fmt"
	"strings"
)

// Point is the constraint on interval endpoint types. Compare must
// define a total order: negative when the receiver is less than
// other, zero when equal, positive when greater.
type Point[V any] interface {
	Compare(other V) int
}

// Relationship describes how one set relates to another.
type Relationship int

const (
	// Disjoint means the sets share no points.
	Disjoint Relationship = iota
	// Overlapping means the sets share some points but neither
	// contains the other.
	Overlapping
	// Subset means the receiver is fully contained in the other set.
	Subset
	// Superset means the receiver fully contains the other set.
	Superset
	// Equal means the sets contain exactly the same points.
	Equal
)

// String returns the relationship name.
func (r Relationship) String() string {
	switch r {
	case Disjoint:
		return "disjoint"
	case Overlapping:
		return "overlapping"
	case Subset:
		return "subset"
	case Superset:
		return "superset"
	case Equal:
		return "equal"
	default:
		return fmt.Sprintf("Relationship(%d)", int(r))
	}
}

// edge is one endpoint of a span. An unbounded edge extends to
// infinity in its direction and its value is never consulted.
type edge[V Point[V]] struct {
	value     V
	open      bool // endpoint excluded from the span
	unbounded bool
}

// span is a single contiguous interval.
type span[V Point[V]] struct {
	lo, hi edge[V]
}

// Set is an immutable union of disjoint intervals over V.
// The zero value is the empty set.
type Set[V Point[V]] struct {
	// spans are sorted, non-overlapping, and maximally merged.
	spans []span[V]
}

// Empty returns the set containing no points.
func Empty[V Point[V]]() Set[V] {
	return Set[V]{}
}

// Any returns the set containing every point.
func Any[V Point[V]]() Set[V] {
	return Set[V]{spans: []span[V]{{
		lo: edge[V]{unbounded: true},
		hi: edge[V]{unbounded: true},
	}}}
}

// Only returns the singleton set containing exactly v.
func Only[V Point[V]](v V) Set[V] {
	return Set[V]{spans: []span[V]{{
		lo: edge[V]{value: v},
		hi: edge[V]{value: v},
	}}}
}

// AtLeast returns the set of points greater than or equal to v.
func AtLeast[V Point[V]](v V) Set[V] {
	return Set[V]{spans: []span[V]{{
		lo: edge[V]{value: v},
		hi: edge[V]{unbounded: true},
	}}}
}

// Above returns the set of points strictly greater than v.
func Above[V Point[V]](v V) Set[V] {
	return Set[V]{spans: []span[V]{{
		lo: edge[V]{value: v, open: true},
		hi: edge[V]{unbounded: true},
	}}}
}

// AtMost returns the set of points less than or equal to v.
func AtMost[V Point[V]](v V) Set[V] {
	return Set[V]{spans: []span[V]{{
		lo: edge[V]{unbounded: true},
		hi: edge[V]{value: v},
	}}}
}

// Below returns the set of points strictly less than v.
func Below[V Point[V]](v V) Set[V] {
	return Set[V]{spans: []span[V]{{
		lo: edge[V]{unbounded: true},
		hi: edge[V]{value: v, open: true},
	}}}
}

// Between returns the half-open interval [lo, hi). If hi is not
// greater than lo the result is empty.
func Between[V Point[V]](lo, hi V) Set[V] {
	return normalize([]span[V]{{
		lo: edge[V]{value: lo},
		hi: edge[V]{value: hi, open: true},
	}})
}

// compareLo orders two edges interpreted as lower bounds.
func compareLo[V Point[V]](a, b edge[V]) int {
	switch {
	case a.unbounded && b.unbounded:
		return 0
	case a.unbounded:
		return -1
	case b.unbounded:
		return 1
	}
	if c := a.value.Compare(b.value); c != 0 {
		return c
	}
	// An inclusive lower bound starts earlier than an exclusive one.
	switch {
	case a.open == b.open:
		return 0
	case a.open:
		return 1
	default:
		return -1
	}
}

// compareHi orders two edges interpreted as upper bounds.
func compareHi[V Point[V]](a, b edge[V]) int {
	switch {
	case a.unbounded && b.unbounded:
		return 0
	case a.unbounded:
		return 1
	case b.unbounded:
		return -1
	}
	if c := a.value.Compare(b.value); c != 0 {
		return c
	}
	// An inclusive upper bound ends later than an exclusive one.
	switch {
	case a.open == b.open:
		return 0
	case a.open:
		return -1
	default:
		return 1
	}
}

func maxHi[V Point[V]](a, b edge[V]) edge[V] {
	if compareHi(a, b) >= 0 {
		return a
	}
	return b
}

func (s span[V]) empty() bool {
	if s.lo.unbounded || s.hi.unbounded {
		return false
	}
	c := s.lo.value.Compare(s.hi.value)
	if c != 0 {
		return c > 0
	}
	return s.lo.open || s.hi.open
}

// connects reports whether a span ending at hi touches or overlaps a
// span starting at lo, i.e. whether their union is contiguous.
func connects[V Point[V]](hi, lo edge[V]) bool {
	if hi.unbounded || lo.unbounded {
		return true
	}
	c := hi.value.Compare(lo.value)
	if c != 0 {
		return c > 0
	}
	// [a, v) followed by (v, b) leaves v out; any other combination
	// of bounds at the same value is contiguous.
	return !(hi.open && lo.open)
}

// normalize sorts, drops empty spans, and merges contiguous spans.
func normalize[V Point[V]](spans []span[V]) Set[V] {
	live := make([]span[V], 0, len(spans))
	for _, sp := range spans {
		if !sp.empty() {
			live = append(live, sp)
		}
	}
	if len(live) == 0 {
		return Set[V]{}
	}
	// Insertion sort by lower bound; span counts are small.
	for i := 1; i < len(live); i++ {
		for j := i; j > 0 && compareLo(live[j].lo, live[j-1].lo) < 0; j-- {
			live[j], live[j-1] = live[j-1], live[j]
		}
	}
	merged := live[:1]
	for _, sp := range live[1:] {
		last := &merged[len(merged)-1]
		if connects(last.hi, sp.lo) {
			last.hi = maxHi(last.hi, sp.hi)
		} else {
			merged = append(merged, sp)
		}
	}
	return Set[V]{spans: merged}
}

// Union returns the set of points contained in s, in other, or both.
func (s Set[V]) Union(other Set[V]) Set[V] {
	all := make([]span[V], 0, len(s.spans)+len(other.spans))
	all = append(all, s.spans...)
	all = append(all, other.spans...)
	return normalize(all)
}

// Intersect returns the set of points contained in both s and other.
func (s Set[V]) Intersect(other Set[V]) Set[V] {
	var out []span[V]
	i, j := 0, 0
	for i < len(s.spans) && j < len(other.spans) {
		a, b := s.spans[i], other.spans[j]
		lo := a.lo
		if compareLo(b.lo, lo) > 0 {
			lo = b.lo
		}
		hi := a.hi
		if compareHi(b.hi, hi) < 0 {
			hi = b.hi
		}
		if sp := (span[V]{lo: lo, hi: hi}); !sp.empty() {
			out = append(out, sp)
		}
		// Advance whichever span ends first.
		if compareHi(a.hi, b.hi) <= 0 {
			i++
		} else {
			j++
		}
	}
	return Set[V]{spans: out}
}

// Complement returns the set of points not contained in s.
func (s Set[V]) Complement() Set[V] {
	if len(s.spans) == 0 {
		return Any[V]()
	}
	var out []span[V]
	first := s.spans[0]
	if !first.lo.unbounded {
		out = append(out, span[V]{
			lo: edge[V]{unbounded: true},
			hi: edge[V]{value: first.lo.value, open: !first.lo.open},
		})
	}
	for k := 0; k+1 < len(s.spans); k++ {
		gap := span[V]{
			lo: edge[V]{value: s.spans[k].hi.value, open: !s.spans[k].hi.open},
			hi: edge[V]{value: s.spans[k+1].lo.value, open: !s.spans[k+1].lo.open},
		}
		if !gap.empty() {
			out = append(out, gap)
		}
	}
	last := s.spans[len(s.spans)-1]
	if !last.hi.unbounded {
		out = append(out, span[V]{
			lo: edge[V]{value: last.hi.value, open: !last.hi.open},
			hi: edge[V]{unbounded: true},
		})
	}
	return Set[V]{spans: out}
}

// Difference returns the set of points contained in s but not in other.
func (s Set[V]) Difference(other Set[V]) Set[V] {
	return s.Intersect(other.Complement())
}

// IsEmpty reports whether the set contains no points.
func (s Set[V]) IsEmpty() bool {
	return len(s.spans) == 0
}

// IsAny reports whether the set contains every point.
func (s Set[V]) IsAny() bool {
	return len(s.spans) == 1 && s.spans[0].lo.unbounded && s.spans[0].hi.unbounded
}

// Contains reports whether v lies within the set.
func (s Set[V]) Contains(v V) bool {
	for _, sp := range s.spans {
		aboveLo := sp.lo.unbounded
		if !aboveLo {
			c := v.Compare(sp.lo.value)
			aboveLo = c > 0 || (c == 0 && !sp.lo.open)
		}
		if !aboveLo {
			// Spans are sorted; no later span can contain v.
			return false
		}
		belowHi := sp.hi.unbounded
		if !belowHi {
			c := v.Compare(sp.hi.value)
			belowHi = c < 0 || (c == 0 && !sp.hi.open)
		}
		if belowHi {
			return true
		}
	}
	return false
}

func edgesEqual[V Point[V]](a, b edge[V]) bool {
	if a.unbounded != b.unbounded {
		return false
	}
	if a.unbounded {
		return true
	}
	return a.open == b.open && a.value.Compare(b.value) == 0
}

// Equal reports whether both sets contain exactly the same points.
// Canonical form makes this a structural comparison.
func (s Set[V]) Equal(other Set[V]) bool {
	if len(s.spans) != len(other.spans) {
		return false
	}
	for i := range s.spans {
		if !edgesEqual(s.spans[i].lo, other.spans[i].lo) ||
			!edgesEqual(s.spans[i].hi, other.spans[i].hi) {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every point of s is also in other.
func (s Set[V]) SubsetOf(other Set[V]) bool {
	return s.Intersect(other).Equal(s)
}

// Relation classifies how s relates to other.
func (s Set[V]) Relation(other Set[V]) Relationship {
	switch {
	case s.Equal(other):
		return Equal
	case s.SubsetOf(other):
		return Subset
	case other.SubsetOf(s):
		return Superset
	case s.Intersect(other).IsEmpty():
		return Disjoint
	default:
		return Overlapping
	}
}

// Endpoint is one public end of an interval.
type Endpoint[V Point[V]] struct {
	// Value is the endpoint value. Meaningless when Unbounded.
	Value V
	// Inclusive reports whether the endpoint itself is in the set.
	Inclusive bool
	// Unbounded reports whether the interval extends to infinity.
	Unbounded bool
}

// Interval is one contiguous piece of a Set.
type Interval[V Point[V]] struct {
	Lo, Hi Endpoint[V]
}

// Intervals returns the disjoint intervals of the set in ascending
// order. The returned slice is a copy.
func (s Set[V]) Intervals() []Interval[V] {
	out := make([]Interval[V], len(s.spans))
	for i, sp := range s.spans {
		out[i] = Interval[V]{
			Lo: Endpoint[V]{Value: sp.lo.value, Inclusive: !sp.lo.open, Unbounded: sp.lo.unbounded},
			Hi: Endpoint[V]{Value: sp.hi.value, Inclusive: !sp.hi.open, Unbounded: sp.hi.unbounded},
		}
	}
	return out
}

// String renders the set in constraint notation, e.g. ">=1.2.0 <2.0.0",
// "==1.0.0", "any", or "none". Disjoint intervals join with "||".
func (s Set[V]) String() string {
	if len(s.spans) == 0 {
		return "none"
	}
	parts := make([]string, len(s.spans))
	for i, sp := range s.spans {
		parts[i] = sp.render()
	}
	return strings.Join(parts, " || ")
}

func (s span[V]) render() string {
	switch {
	case s.lo.unbounded && s.hi.unbounded:
		return "any"
	case s.lo.unbounded:
		if s.hi.open {
			return fmt.Sprintf("<%v", s.hi.value)
		}
		return fmt.Sprintf("<=%v", s.hi.value)
	case s.hi.unbounded:
		if s.lo.open {
			return fmt.Sprintf(">%v", s.lo.value)
		}
		return fmt.Sprintf(">=%v", s.lo.value)
	}
	if !s.lo.open && !s.hi.open && s.lo.value.Compare(s.hi.value) == 0 {
		return fmt.Sprintf("==%v", s.lo.value)
	}
	lo := ">"
	if !s.lo.open {
		lo = ">="
	}
	hi := "<"
	if !s.hi.open {
		hi = "<="
	}
	return fmt.Sprintf("%s%v %s%v", lo, s.lo.value, hi, s.hi.value)
}
