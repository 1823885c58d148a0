package versol

import (
	"fmt"

	"github.com/versol-dev/versol/interval"
)

// Line is one entry of a rendered failure report. Leaf facts and
// intermediate derivations carry a number so later lines can cite
// them; the concluding line carries 0.
type Line struct {
	Number int
	Text   string

	// Refs lists the line numbers this line was derived from. Empty
	// for leaf facts. Every reference points at an earlier line.
	Refs []int
}

// buildReport walks the cause graph of the terminal incompatibility
// and renders it as an ordered explanation. Leaf causes are listed
// first, numbered in order of first appearance in a depth-first walk
// from the terminal; each derivation is explained once and cited by
// number thereafter.
func buildReport[P comparable, V interval.Point[V]](f *Failure[P, V]) []Line {
	b := &reportBuilder[P, V]{f: f, number: make(map[int]int)}
	b.collectLeaves(f.root, make(map[int]bool))
	if !f.incompats[f.root].IsDerived() {
		n := b.number[f.root]
		b.lines = append(b.lines, Line{
			Text: fmt.Sprintf("So, because (%d), version solving failed.", n),
			Refs: []int{n},
		})
		return b.lines
	}
	b.explain(f.root)
	return b.lines
}

type reportBuilder[P comparable, V interval.Point[V]] struct {
	f     *Failure[P, V]
	lines []Line

	// number maps an arena index to the report line that states it.
	number map[int]int
	next   int
}

// collectLeaves numbers every non-derived incompatibility reachable
// from idx, in depth-first first-appearance order, and emits a fact
// line for each.
func (b *reportBuilder[P, V]) collectLeaves(idx int, seen map[int]bool) {
	if seen[idx] {
		return
	}
	seen[idx] = true
	ic := b.f.incompats[idx]
	if ic.IsDerived() {
		b.collectLeaves(ic.cause.Left, seen)
		b.collectLeaves(ic.cause.Right, seen)
		return
	}
	b.next++
	b.number[idx] = b.next
	b.lines = append(b.lines, Line{Number: b.next, Text: ic.String() + "."})
}

// explain emits the derivation line for idx (post-order, memoized) and
// returns its line number. The terminal incompatibility gets the
// unnumbered concluding line instead.
func (b *reportBuilder[P, V]) explain(idx int) int {
	if n, ok := b.number[idx]; ok {
		return n
	}
	ic := b.f.incompats[idx]
	left := b.explain(ic.cause.Left)
	right := b.explain(ic.cause.Right)
	if idx == b.f.root {
		b.lines = append(b.lines, Line{
			Text: fmt.Sprintf("So, because (%d) and (%d), version solving failed.", left, right),
			Refs: []int{left, right},
		})
		return 0
	}
	b.next++
	b.number[idx] = b.next
	b.lines = append(b.lines, Line{
		Number: b.next,
		Text:   fmt.Sprintf("Because (%d) and (%d), %s.", left, right, ic.String()),
		Refs:   []int{left, right},
	})
	return b.next
}
