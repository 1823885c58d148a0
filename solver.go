package versol

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/versol-dev/versol/interval"
)

// Solve finds a version assignment satisfying every root requirement
// and all transitive dependency constraints reported by the provider.
//
// On success it returns the complete Solution, sorted by package. When
// no assignment exists, the returned error is a *Failure carrying the
// full derivation of the conflict; use errors.As to recover it and
// render a report. Any other error means solving could not proceed at
// all: a misbehaving provider (wrapping ErrInternal), a fatal provider
// error such as *DependencyUnavailableError, a context cancellation,
// or the decision limit (wrapping ErrDecisionLimit).
func Solve[P comparable, V interval.Point[V]](
	ctx context.Context,
	provider DependencyProvider[P, V],
	reqs map[P]interval.Set[V],
	opts ...Option,
) (Solution[P, V], error) {
	cfg, err := newSolverConfig(opts...)
	if err != nil {
		return nil, err
	}
	s := &solver[P, V]{
		cfg:      cfg,
		provider: provider,
		ps:       newPartialSolution[P, V](),
		byPkg:    make(map[P][]int),
		versions: make(map[P][]V),
		expanded: make(map[string]bool),
	}
	return s.solve(ctx, reqs)
}

// solver holds the state of one Solve call. It is not reused.
type solver[P comparable, V interval.Point[V]] struct {
	cfg      *solverConfig
	provider DependencyProvider[P, V]
	ps       *partialSolution[P, V]

	// incompats is the append-only arena. Cause indices refer into
	// it, and the Failure keeps a copy of it for reporting.
	incompats []Incompatibility[P, V]

	// byPkg indexes arena entries by every package they mention.
	byPkg map[P][]int

	// versions caches ListVersions answers; a nil entry records a
	// package the provider reported as unavailable.
	versions map[P][]V

	// expanded records package@version pairs whose dependency
	// incompatibilities are already in the arena, so re-selection
	// after backtracking does not duplicate them.
	expanded map[string]bool

	decisions int
}

func (s *solver[P, V]) solve(ctx context.Context, reqs map[P]interval.Set[V]) (Solution[P, V], error) {
	log := s.cfg.log()

	roots := make([]P, 0, len(reqs))
	for pkg := range reqs {
		roots = append(roots, pkg)
	}
	sort.Slice(roots, func(i, j int) bool {
		return fmt.Sprint(roots[i]) < fmt.Sprint(roots[j])
	})
	for _, pkg := range roots {
		ic := newIncompatibility(
			[]Term[P, V]{newTerm(pkg, reqs[pkg], false)},
			Cause{Kind: CauseRoot},
		)
		s.add(ic)
		log.Debug("root requirement", "package", pkg, "versions", reqs[pkg].String())
	}

	changed := roots
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.propagate(ctx, changed); err != nil {
			var f *Failure[P, V]
			if errors.As(err, &f) {
				log.Info("version solving failed", "incompatibilities", len(f.incompats))
			}
			return nil, err
		}
		pkg, ok, err := s.chooseNext(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			sol := Solution[P, V](s.ps.decisions())
			sortSolution(sol)
			log.Info("version solving succeeded", "packages", len(sol), "decisions", s.decisions)
			return sol, nil
		}
		if err := s.expand(ctx, pkg); err != nil {
			return nil, err
		}
		changed = []P{pkg}
	}
}

// add appends an incompatibility to the arena and indexes it under
// every package it mentions.
func (s *solver[P, V]) add(ic Incompatibility[P, V]) int {
	idx := len(s.incompats)
	s.incompats = append(s.incompats, ic)
	for _, t := range ic.terms {
		s.byPkg[t.pkg] = append(s.byPkg[t.pkg], idx)
	}
	return idx
}

// propagate performs unit propagation from the given packages until a
// fixpoint. A satisfied incompatibility triggers conflict resolution;
// propagation then restarts from the learned incompatibility's
// derivation.
func (s *solver[P, V]) propagate(ctx context.Context, initial []P) error {
	log := s.cfg.log()
	changed := append([]P(nil), initial...)

	for len(changed) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkg := changed[len(changed)-1]
		changed = changed[:len(changed)-1]

		// Conflict resolution appends to the arena, so iterate a
		// snapshot of the index for this package.
		idxs := append([]int(nil), s.byPkg[pkg]...)
	scan:
		for _, i := range idxs {
			ic := &s.incompats[i]
			rel, u := s.ps.relation(ic)
			switch rel {
			case icSatisfied:
				log.Debug("conflict", "incompatibility", ic.String())
				learned, err := s.resolveConflict(i)
				if err != nil {
					return err
				}
				lic := &s.incompats[learned]
				rel2, u2 := s.ps.relation(lic)
				if rel2 != icAlmost {
					return fmt.Errorf("%w: learned incompatibility %s is not unit after backjump",
						ErrInternal, lic)
				}
				t := lic.terms[u2].Negate()
				if err := s.ps.derive(t, learned); err != nil {
					return err
				}
				log.Debug("derived", "term", t.String(), "level", s.ps.level)
				// Backjumping invalidated the rest of this snapshot.
				changed = changed[:0]
				changed = append(changed, t.pkg)
				break scan
			case icAlmost:
				t := ic.terms[u].Negate()
				if err := s.ps.derive(t, i); err != nil {
					return err
				}
				log.Debug("derived", "term", t.String(), "level", s.ps.level)
				changed = append(changed, t.pkg)
			}
		}
	}
	return nil
}

// resolveConflict turns a satisfied incompatibility into a learned one
// that is unit after backjumping, per the PubGrub resolution rule. It
// returns the arena index of the incompatibility to derive from. An
// incompatibility with no terms proves solving impossible; the solve's
// arena is then packaged into a *Failure and returned as the error.
func (s *solver[P, V]) resolveConflict(icIdx int) (int, error) {
	log := s.cfg.log()
	for {
		ic := &s.incompats[icIdx]
		if len(ic.terms) == 0 {
			arena := make([]Incompatibility[P, V], len(s.incompats))
			copy(arena, s.incompats)
			return 0, &Failure[P, V]{incompats: arena, root: icIdx}
		}

		info, err := s.ps.satisfier(ic)
		if err != nil {
			return 0, err
		}
		sat := s.ps.log[info.index]
		if sat.kind == decision || info.prevLevel < sat.level {
			log.Debug("backjump", "from", s.ps.level, "to", info.prevLevel,
				"incompatibility", ic.String())
			s.ps.backtrack(info.prevLevel)
			return icIdx, nil
		}

		// The satisfier is a derivation at the same level the
		// conflict depends on: resolve ic with the derivation's
		// cause and keep going.
		cause := &s.incompats[sat.cause]
		terms := make([]Term[P, V], 0, len(ic.terms)+len(cause.terms))
		for _, t := range ic.terms {
			if t.pkg != sat.term.pkg {
				terms = append(terms, t)
			}
		}
		for _, t := range cause.terms {
			if t.pkg != sat.term.pkg {
				terms = append(terms, t)
			}
		}
		if !info.alone {
			// The satisfier only partially covers the conflicting
			// term; the uncovered remainder must be excluded too.
			terms = append(terms, sat.term.difference(info.term).Negate())
		}
		learned := newIncompatibility(terms, Cause{Kind: CauseDerived, Left: icIdx, Right: sat.cause})
		icIdx = s.add(learned)
		log.Debug("learned", "incompatibility", learned.String())
	}
}

// chooseNext picks the undecided package to expand next: among all
// packages with a positive accumulated constraint and no decision, the
// one with the fewest matching versions. Fewest-first keeps conflicts
// shallow, and ties break on the package's string form so runs are
// deterministic.
func (s *solver[P, V]) chooseNext(ctx context.Context) (P, bool, error) {
	var zero P
	type candidate struct {
		pkg   P
		name  string
		count int
	}
	var cands []candidate
	for pkg, proj := range s.ps.index {
		if proj.decided || !proj.term.positive {
			continue
		}
		cands = append(cands, candidate{pkg: pkg, name: fmt.Sprint(pkg)})
	}
	if len(cands) == 0 {
		return zero, false, nil
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].name < cands[j].name })

	best := -1
	for i := range cands {
		vs, err := s.listVersions(ctx, cands[i].pkg)
		if err != nil {
			return zero, false, err
		}
		allowed := s.ps.index[cands[i].pkg].term.set
		for _, v := range vs {
			if allowed.Contains(v) {
				cands[i].count++
			}
		}
		if best < 0 || cands[i].count < cands[best].count {
			best = i
		}
	}
	return cands[best].pkg, true, nil
}

// listVersions caches provider answers for the solve. A package the
// provider reports as unavailable is cached as having no versions;
// that is a learnable fact, not a fatal error.
func (s *solver[P, V]) listVersions(ctx context.Context, pkg P) ([]V, error) {
	if vs, ok := s.versions[pkg]; ok {
		return vs, nil
	}
	vs, err := s.provider.ListVersions(ctx, pkg)
	if err != nil {
		var unavailable *PackageUnavailableError[P]
		if errors.Is(err, ErrNoVersions) || errors.As(err, &unavailable) {
			s.versions[pkg] = nil
			return nil, nil
		}
		return nil, fmt.Errorf("list versions of %v: %w", pkg, err)
	}
	s.versions[pkg] = vs
	return vs, nil
}

// expand selects a version of pkg and records its dependency
// incompatibilities, then decides the version unless doing so would
// immediately satisfy one of them. When no version fits, a no-versions
// incompatibility is recorded instead; the next propagation pass turns
// it into a conflict.
func (s *solver[P, V]) expand(ctx context.Context, pkg P) error {
	log := s.cfg.log()
	proj := s.ps.index[pkg]
	allowed := proj.term.set

	vs, err := s.listVersions(ctx, pkg)
	if err != nil {
		return err
	}
	any := false
	for _, v := range vs {
		if allowed.Contains(v) {
			any = true
			break
		}
	}
	if !any {
		s.addNoVersions(pkg, allowed)
		return nil
	}

	v, ok, err := s.provider.ChooseVersion(ctx, pkg, allowed)
	if err != nil {
		return fmt.Errorf("choose version of %v: %w", pkg, err)
	}
	if !ok {
		s.addNoVersions(pkg, allowed)
		return nil
	}
	if !allowed.Contains(v) {
		return fmt.Errorf("%w: provider chose %v %v outside allowed versions %s",
			ErrInternal, pkg, v, allowed)
	}

	deps, err := s.provider.Dependencies(ctx, pkg, v)
	if err != nil {
		var unavailable *PackageUnavailableError[P]
		if errors.As(err, &unavailable) {
			s.addNoVersions(pkg, allowed)
			return nil
		}
		return fmt.Errorf("dependencies of %v %v: %w", pkg, v, err)
	}

	key := fmt.Sprintf("%v@%v", pkg, v)
	var added []int
	if !s.expanded[key] {
		s.expanded[key] = true
		depPkgs := make([]P, 0, len(deps))
		for d := range deps {
			depPkgs = append(depPkgs, d)
		}
		sort.Slice(depPkgs, func(i, j int) bool {
			return fmt.Sprint(depPkgs[i]) < fmt.Sprint(depPkgs[j])
		})
		for _, d := range depPkgs {
			if d == pkg && deps[d].Contains(v) {
				// A version that allows itself adds nothing.
				continue
			}
			ic := newIncompatibility(
				[]Term[P, V]{
					newTerm(pkg, interval.Only(v), true),
					newTerm(d, deps[d], false),
				},
				Cause{Kind: CauseDependency},
			)
			added = append(added, s.add(ic))
		}
	}

	// Hold the decision back when one of the new incompatibilities is
	// already satisfied up to this package: deciding would only force
	// an immediate conflict, propagation reaches the same conclusion
	// without the wasted level.
	for _, i := range added {
		blocked := true
		for _, t := range s.incompats[i].terms {
			if t.pkg != pkg && !s.ps.satisfies(t) {
				blocked = false
				break
			}
		}
		if blocked {
			log.Debug("selection blocked", "package", pkg, "version", fmt.Sprint(v),
				"incompatibility", s.incompats[i].String())
			return nil
		}
	}

	s.decisions++
	if s.cfg.maxDecisions > 0 && s.decisions > s.cfg.maxDecisions {
		return fmt.Errorf("after %d decisions: %w", s.cfg.maxDecisions, ErrDecisionLimit)
	}
	if err := s.ps.decide(pkg, v); err != nil {
		return err
	}
	log.Debug("selected", "package", pkg, "version", fmt.Sprint(v), "level", s.ps.level)
	return nil
}

func (s *solver[P, V]) addNoVersions(pkg P, set interval.Set[V]) {
	ic := newIncompatibility(
		[]Term[P, V]{newTerm(pkg, set, true)},
		Cause{Kind: CauseNoVersions},
	)
	s.add(ic)
	s.cfg.log().Debug("no versions", "package", pkg, "versions", set.String())
}
