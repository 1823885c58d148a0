package versol

import (
	"fmt"

	"github.com/versol-dev/versol/interval"
)

// assignmentKind distinguishes free choices from propagated facts.
type assignmentKind int

const (
	decision   assignmentKind = iota // a package pinned to one version
	derivation                       // a term forced by unit propagation
)

// assignment is one entry of the partial solution log.
type assignment[P comparable, V interval.Point[V]] struct {
	term Term[P, V]
	kind assignmentKind

	// version is the pinned version, decisions only.
	version V

	// cause is the arena index of the incompatibility that forced
	// this derivation; -1 for decisions.
	cause int

	level int
}

// projection is the accumulated view of everything asserted about one
// package: the intersection of all assignment terms plus the decision,
// if one was made.
type projection[P comparable, V interval.Point[V]] struct {
	term    Term[P, V]
	decided bool
	version V
}

// icRelation classifies an incompatibility against the current state.
type icRelation int

const (
	icSatisfied icRelation = iota
	icAlmost
	icContradicted
	icInconclusive
)

// partialSolution is the evolving assignment for one solve call: an
// ordered log of decisions and derivations plus a per-package index
// answering relation queries in time linear in the incompatibility.
type partialSolution[P comparable, V interval.Point[V]] struct {
	log   []assignment[P, V]
	index map[P]projection[P, V]
	level int
}

func newPartialSolution[P comparable, V interval.Point[V]]() *partialSolution[P, V] {
	return &partialSolution[P, V]{index: make(map[P]projection[P, V])}
}

// assignedTerm returns the accumulated term for pkg, if any
// assignment mentions it.
func (ps *partialSolution[P, V]) assignedTerm(pkg P) (Term[P, V], bool) {
	proj, ok := ps.index[pkg]
	return proj.term, ok
}

// satisfies reports whether the current state guarantees t.
func (ps *partialSolution[P, V]) satisfies(t Term[P, V]) bool {
	assigned, ok := ps.assignedTerm(t.pkg)
	return ok && t.relation(assigned) == Satisfies
}

// apply folds an assignment's term into the per-package index.
func (ps *partialSolution[P, V]) apply(a assignment[P, V]) {
	proj, ok := ps.index[a.term.pkg]
	if ok {
		proj.term = proj.term.intersect(a.term)
	} else {
		proj.term = a.term
	}
	if a.kind == decision {
		proj.decided = true
		proj.version = a.version
	}
	ps.index[a.term.pkg] = proj
}

// decide pins pkg to version v at a new decision level. The version
// must satisfy every term currently held for the package; a violation
// means the provider contradicted its earlier answers.
func (ps *partialSolution[P, V]) decide(pkg P, v V) error {
	if proj, ok := ps.index[pkg]; ok {
		if proj.decided {
			return fmt.Errorf("%w: package %v decided twice", ErrInternal, pkg)
		}
		if !proj.term.allowsVersion(v) {
			return fmt.Errorf("%w: decision %v %v violates accumulated constraint %s",
				ErrInternal, pkg, v, proj.term)
		}
	}
	ps.level++
	a := assignment[P, V]{
		term:    newTerm(pkg, interval.Only(v), true),
		kind:    decision,
		version: v,
		cause:   -1,
		level:   ps.level,
	}
	ps.log = append(ps.log, a)
	ps.apply(a)
	return nil
}

// derive appends a propagated term at the current decision level.
func (ps *partialSolution[P, V]) derive(t Term[P, V], cause int) error {
	if proj, ok := ps.index[t.pkg]; ok && proj.decided && !t.allowsVersion(proj.version) {
		return fmt.Errorf("%w: derivation %s contradicts decision %v %v",
			ErrInternal, t, t.pkg, proj.version)
	}
	a := assignment[P, V]{
		term:  t,
		kind:  derivation,
		cause: cause,
		level: ps.level,
	}
	ps.log = append(ps.log, a)
	ps.apply(a)
	return nil
}

// relation classifies ic against the current state. For icAlmost the
// returned index identifies the single undetermined term, the unit
// propagation trigger.
func (ps *partialSolution[P, V]) relation(ic *Incompatibility[P, V]) (icRelation, int) {
	undetermined := -1
	for i, t := range ic.terms {
		assigned, ok := ps.assignedTerm(t.pkg)
		if !ok {
			if undetermined >= 0 {
				return icInconclusive, -1
			}
			undetermined = i
			continue
		}
		switch t.relation(assigned) {
		case Contradicts:
			return icContradicted, -1
		case Inconclusive:
			if undetermined >= 0 {
				return icInconclusive, -1
			}
			undetermined = i
		case Satisfies:
			// Settled; nothing to record.
		}
	}
	if undetermined < 0 {
		return icSatisfied, -1
	}
	return icAlmost, undetermined
}

// backtrack discards every assignment above level and rebuilds the
// per-package index from the survivors.
func (ps *partialSolution[P, V]) backtrack(level int) {
	kept := ps.log[:0]
	for _, a := range ps.log {
		if a.level <= level {
			kept = append(kept, a)
		}
	}
	ps.log = kept
	ps.level = level
	ps.index = make(map[P]projection[P, V], len(ps.index))
	for _, a := range ps.log {
		ps.apply(a)
	}
}

// decisions returns all decided packages in decision order.
func (ps *partialSolution[P, V]) decisions() []Resolved[P, V] {
	var out []Resolved[P, V]
	for _, a := range ps.log {
		if a.kind == decision {
			out = append(out, Resolved[P, V]{Package: a.term.pkg, Version: a.version})
		}
	}
	return out
}

// satisfierInfo is the outcome of the satisfier search used by
// conflict resolution.
type satisfierInfo[P comparable, V interval.Point[V]] struct {
	// index is the log position of the satisfier: the earliest
	// assignment at which the incompatibility became satisfied.
	index int
	// term is the incompatibility's term for the satisfier's package.
	term Term[P, V]
	// prevLevel is the decision level of the previous satisfier: the
	// latest level, other than the satisfier's own contribution, that
	// the conflict actually depends on. It is the backjump target.
	prevLevel int
	// alone reports whether the satisfier's own term satisfies the
	// incompatibility term by itself, without earlier assignments for
	// the same package.
	alone bool
}

// satisfier locates the assignment that completed the satisfaction of
// ic and the decision level of the residual conflict, per the PubGrub
// conflict resolution rules. ic must currently be satisfied.
func (ps *partialSolution[P, V]) satisfier(ic *Incompatibility[P, V]) (satisfierInfo[P, V], error) {
	var info satisfierInfo[P, V]

	// First pass: replay the log, tracking when each term of ic
	// becomes satisfied. Accumulated terms only shrink, so
	// satisfaction is monotone and the first fully-satisfied prefix
	// identifies the satisfier.
	acc := make(map[P]Term[P, V])
	satisfied := make([]bool, len(ic.terms))
	remaining := len(ic.terms)
	satIdx := -1
scan:
	for i, a := range ps.log {
		pkg := a.term.pkg
		if cur, ok := acc[pkg]; ok {
			acc[pkg] = cur.intersect(a.term)
		} else {
			acc[pkg] = a.term
		}
		for j, t := range ic.terms {
			if satisfied[j] || t.pkg != pkg {
				continue
			}
			if t.relation(acc[pkg]) == Satisfies {
				satisfied[j] = true
				remaining--
				if remaining == 0 {
					satIdx = i
					break scan
				}
			}
		}
	}
	if satIdx < 0 {
		return info, fmt.Errorf("%w: satisfier search on unsatisfied incompatibility %s", ErrInternal, ic)
	}

	sat := ps.log[satIdx]
	term, ok := ic.termFor(sat.term.pkg)
	if !ok {
		return info, fmt.Errorf("%w: satisfier package %v missing from %s", ErrInternal, sat.term.pkg, ic)
	}
	info.index = satIdx
	info.term = term
	info.alone = term.relation(sat.term) == Satisfies

	// Second pass: find the previous satisfier, the earliest
	// assignment before the satisfier such that the prefix through it
	// plus the satisfier still satisfies ic. Its level is the backjump
	// target; level 0 holds only root-requirement derivations and is
	// never undone.
	seed := map[P]Term[P, V]{sat.term.pkg: sat.term}
	if icSatisfiedBy(ic, seed) {
		info.prevLevel = 0
		return info, nil
	}
	for i := 0; i < satIdx; i++ {
		a := ps.log[i]
		pkg := a.term.pkg
		if cur, ok := seed[pkg]; ok {
			seed[pkg] = cur.intersect(a.term)
		} else {
			seed[pkg] = a.term
		}
		if icSatisfiedBy(ic, seed) {
			info.prevLevel = a.level
			return info, nil
		}
	}
	return info, fmt.Errorf("%w: no previous satisfier for %s", ErrInternal, ic)
}

// icSatisfiedBy reports whether every term of ic is satisfied by the
// given accumulated terms.
func icSatisfiedBy[P comparable, V interval.Point[V]](ic *Incompatibility[P, V], acc map[P]Term[P, V]) bool {
	for _, t := range ic.terms {
		assigned, ok := acc[t.pkg]
		if !ok || t.relation(assigned) != Satisfies {
			return false
		}
	}
	return true
}
