package versol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versol-dev/versol/interval"
)

// tv is a minimal ordered version type for tests.
type tv int

func (v tv) Compare(o tv) int {
	switch {
	case v < o:
		return -1
	case v > o:
		return 1
	default:
		return 0
	}
}

func (v tv) String() string { return strconv.Itoa(int(v)) }

// vset builds the set containing exactly the given versions.
func vset(vs ...int) interval.Set[tv] {
	s := interval.Empty[tv]()
	for _, v := range vs {
		s = s.Union(interval.Only(tv(v)))
	}
	return s
}

// vrange builds the half-open range [lo, hi).
func vrange(lo, hi int) interval.Set[tv] {
	return interval.Between(tv(lo), tv(hi))
}

// fakePkg is one package version with its dependency constraints.
type fakePkg struct {
	name    string
	version tv
	deps    map[string]interval.Set[tv]
}

// fakeRepo is an in-memory provider preferring the lowest matching
// version.
type fakeRepo struct {
	pkgs []fakePkg
}

func (r *fakeRepo) ListVersions(_ context.Context, name string) ([]tv, error) {
	var vs []tv
	for _, p := range r.pkgs {
		if p.name == name {
			vs = append(vs, p.version)
		}
	}
	if len(vs) == 0 {
		return nil, &PackageUnavailableError[string]{Package: name, Err: ErrNoVersions}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return vs, nil
}

func (r *fakeRepo) Dependencies(_ context.Context, name string, v tv) (map[string]interval.Set[tv], error) {
	for _, p := range r.pkgs {
		if p.name == name && p.version == v {
			return p.deps, nil
		}
	}
	return nil, &DependencyUnavailableError[string, tv]{Package: name, Version: v, Err: ErrNoVersions}
}

func (r *fakeRepo) ChooseVersion(ctx context.Context, name string, allowed interval.Set[tv]) (tv, bool, error) {
	vs, err := r.ListVersions(ctx, name)
	if err != nil {
		return 0, false, err
	}
	for _, v := range vs {
		if allowed.Contains(v) {
			return v, true, nil
		}
	}
	return 0, false, nil
}

func pick(name string, version int, deps ...fakeDep) fakePkg {
	p := fakePkg{name: name, version: tv(version)}
	if len(deps) > 0 {
		p.deps = make(map[string]interval.Set[tv], len(deps))
		for _, d := range deps {
			p.deps[d.name] = d.set
		}
	}
	return p
}

type fakeDep struct {
	name string
	set  interval.Set[tv]
}

func on(name string, set interval.Set[tv]) fakeDep {
	return fakeDep{name: name, set: set}
}

// checkSound verifies the solution against the repo: every decided
// version exists, satisfies the root requirements, and satisfies every
// dependency constraint of every other decided version.
func checkSound(t *testing.T, repo *fakeRepo, reqs map[string]interval.Set[tv], sol Solution[string, tv]) {
	t.Helper()
	for pkg, set := range reqs {
		v, ok := sol.Version(pkg)
		require.True(t, ok, "root requirement %s unresolved", pkg)
		assert.True(t, set.Contains(v), "%s %s outside root requirement %s", pkg, v, set)
	}
	for _, r := range sol {
		var found *fakePkg
		for i := range repo.pkgs {
			if repo.pkgs[i].name == r.Package && repo.pkgs[i].version == r.Version {
				found = &repo.pkgs[i]
				break
			}
		}
		require.NotNil(t, found, "%s %s is not in the repo", r.Package, r.Version)
		for dep, set := range found.deps {
			dv, ok := sol.Version(dep)
			require.True(t, ok, "dependency %s of %s unresolved", dep, r.Package)
			assert.True(t, set.Contains(dv), "%s %s outside %s of %s", dep, dv, set, r.Package)
		}
	}
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name string
		pkgs []fakePkg
		reqs map[string]interval.Set[tv]

		// want is the expected solution; nil means solving must fail
		// with a Failure.
		want map[string]int
	}{
		{
			name: "empty requirements",
			reqs: map[string]interval.Set[tv]{},
			want: map[string]int{},
		},
		{
			name: "single package",
			pkgs: []fakePkg{pick("foo", 2)},
			reqs: map[string]interval.Set[tv]{"foo": vset(1, 2)},
			want: map[string]int{"foo": 2},
		},
		{
			name: "several candidates",
			pkgs: []fakePkg{pick("foo", 1), pick("foo", 2), pick("foo", 3), pick("foo", 4)},
			reqs: map[string]interval.Set[tv]{"foo": vset(7, 99, 2)},
			want: map[string]int{"foo": 2},
		},
		{
			name: "transitive dependency",
			pkgs: []fakePkg{
				pick("foo", 1, on("bar", vset(3, 4))),
				pick("bar", 3),
			},
			reqs: map[string]interval.Set[tv]{"foo": vset(1)},
			want: map[string]int{"foo": 1, "bar": 3},
		},
		{
			name: "multiple transitive requirements",
			pkgs: []fakePkg{
				pick("foo", 1, on("bar", vset(3, 4, 5, 6)), on("baz", vset(5, 6, 7))),
				pick("bar", 5),
				pick("baz", 7),
			},
			reqs: map[string]interval.Set[tv]{"foo": vset(1)},
			want: map[string]int{"foo": 1, "bar": 5, "baz": 7},
		},
		{
			name: "backtrack over shared constraint",
			pkgs: []fakePkg{
				pick("foo", 1, on("bar", vrange(1, 7)), on("baz", vrange(3, 9))),
				pick("bar", 0), pick("bar", 1), pick("bar", 2),
				pick("bar", 3), pick("bar", 4),
				pick("baz", 6, on("bar", vset(4, 5))),
			},
			reqs: map[string]interval.Set[tv]{"foo": vset(1, 2)},
			want: map[string]int{"foo": 1, "bar": 4, "baz": 6},
		},
		{
			name: "simple interdependencies",
			pkgs: []fakePkg{
				pick("a", 1, on("aa", vset(1, 2)), on("ab", vset(1, 2))),
				pick("b", 1, on("ba", vset(1, 2)), on("bb", vset(1, 2))),
				pick("aa", 1), pick("ab", 1), pick("ba", 1), pick("bb", 1),
			},
			reqs: map[string]interval.Set[tv]{"a": vset(1, 2), "b": vset(1, 2)},
			want: map[string]int{"a": 1, "b": 1, "aa": 1, "ab": 1, "ba": 1, "bb": 1},
		},
		{
			name: "shared dependency overlap",
			pkgs: []fakePkg{
				pick("a", 1, on("shared", vrange(200, 400))),
				pick("b", 1, on("shared", vrange(300, 500))),
				pick("shared", 200), pick("shared", 299), pick("shared", 369),
				pick("shared", 400), pick("shared", 500),
			},
			reqs: map[string]interval.Set[tv]{"a": vset(1), "b": vset(1)},
			want: map[string]int{"a": 1, "b": 1, "shared": 369},
		},
		{
			name: "shared deps with interdependent versions",
			pkgs: []fakePkg{
				pick("foo", 100),
				pick("foo", 101, on("bang", vset(100))),
				pick("foo", 102, on("whoop", vset(100))),
				pick("foo", 103, on("zoop", vset(100))),
				pick("bar", 100, on("foo", vset(103))),
				pick("bang", 100), pick("whoop", 100), pick("zoop", 100),
			},
			reqs: map[string]interval.Set[tv]{"foo": vrange(100, 200), "bar": vset(100)},
			want: map[string]int{"bar": 100, "foo": 103, "zoop": 100},
		},
		{
			name: "cycle forces newer version",
			pkgs: []fakePkg{
				pick("a", 1, on("b", vset(1))),
				pick("a", 2),
				pick("b", 1, on("a", vset(2))),
			},
			reqs: map[string]interval.Set[tv]{"a": vset(1, 2)},
			// a 1 needs b 1, which needs a 2: only a 2 survives.
			want: map[string]int{"a": 2},
		},
		{
			name: "diamond",
			pkgs: []fakePkg{
				pick("a", 100),
				pick("a", 200, on("c", vrange(100, 200))),
				pick("b", 100, on("c", vrange(200, 300))),
				pick("b", 200, on("c", vrange(300, 400))),
				pick("c", 100), pick("c", 200), pick("c", 300),
			},
			reqs: map[string]interval.Set[tv]{"a": vrange(1, 1000), "b": vrange(1, 1000)},
			want: map[string]int{"a": 100, "b": 100, "c": 200},
		},
		{
			name: "backtrack over partial satisfier",
			pkgs: []fakePkg{
				pick("a", 100, on("x", vrange(100, 1000))),
				pick("b", 100, on("x", vrange(1, 200))),
				pick("c", 100),
				pick("c", 200, on("a", vrange(1, 1000)), on("b", vrange(1, 1000))),
				pick("x", 1),
				pick("x", 100, on("y", vset(100))),
				pick("x", 200),
				pick("y", 100), pick("y", 200),
			},
			reqs: map[string]interval.Set[tv]{"c": vrange(1, 1000), "y": vrange(200, 1000)},
			want: map[string]int{"c": 100, "y": 200},
		},
		{
			name: "fail: no version for direct requirement",
			pkgs: []fakePkg{pick("foo", 200), pick("foo", 300)},
			reqs: map[string]interval.Set[tv]{"foo": vrange(400, 1000)},
		},
		{
			name: "fail: no version matching shared constraints",
			pkgs: []fakePkg{
				pick("foo", 100, on("shared", vrange(200, 300))),
				pick("bar", 100, on("shared", vrange(290, 400))),
				pick("shared", 250), pick("shared", 350),
			},
			reqs: map[string]interval.Set[tv]{"foo": vset(100), "bar": vset(100)},
		},
		{
			name: "fail: disjoint shared constraints",
			pkgs: []fakePkg{
				pick("foo", 100, on("shared", vrange(0, 201))),
				pick("bar", 200, on("shared", vrange(300, 999))),
				pick("shared", 100), pick("shared", 500),
			},
			reqs: map[string]interval.Set[tv]{"foo": vset(100), "bar": vset(200)},
		},
		{
			name: "fail: unsatisfiable root requirement",
			pkgs: []fakePkg{pick("foo", 100), pick("foo", 200)},
			// The caller intersected two disjoint requirements on foo.
			reqs: map[string]interval.Set[tv]{"foo": vset(100).Intersect(vset(200))},
		},
		{
			name: "fail: requirement on unknown package",
			pkgs: []fakePkg{
				pick("foo", 100, on("shared", vrange(100, 300))),
				pick("bar", 100, on("shared", vrange(200, 400))),
				pick("shared", 150), pick("shared", 350),
				pick("shared", 250, on("nonesuch", vrange(0, 1000))),
			},
			reqs: map[string]interval.Set[tv]{"foo": vset(100), "boo": vset(100)},
		},
		{
			name: "fail: transitive incompatibility",
			pkgs: []fakePkg{
				pick("foo", 1, on("asdf", vrange(100, 300))),
				pick("bar", 100, on("jklm", vrange(200, 400))),
				pick("asdf", 200, on("baz", vrange(300, 400))),
				pick("jklm", 200, on("baz", vrange(400, 500))),
				pick("baz", 300), pick("baz", 400),
			},
			reqs: map[string]interval.Set[tv]{"foo": vset(1), "bar": vset(100)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{pkgs: tt.pkgs}
			sol, err := Solve(context.Background(), repo, tt.reqs)

			if tt.want == nil {
				var f *Failure[string, tv]
				require.ErrorAs(t, err, &f)
				// A failure always renders a non-empty report.
				assert.NotEmpty(t, f.Report())
				return
			}

			require.NoError(t, err)
			require.Len(t, sol, len(tt.want))
			for pkg, v := range tt.want {
				got, ok := sol.Version(pkg)
				require.True(t, ok, "missing %s", pkg)
				assert.Equal(t, tv(v), got, "version of %s", pkg)
			}
			checkSound(t, repo, tt.reqs, sol)
		})
	}
}

func TestSolveSorted(t *testing.T) {
	repo := &fakeRepo{pkgs: []fakePkg{
		pick("zeta", 1),
		pick("alpha", 1, on("zeta", vset(1))),
	}}
	sol, err := Solve(context.Background(), repo, map[string]interval.Set[tv]{"alpha": vset(1)})
	require.NoError(t, err)
	require.Len(t, sol, 2)
	assert.Equal(t, "alpha", sol[0].Package)
	assert.Equal(t, "zeta", sol[1].Package)
	assert.Equal(t, "alpha 1, zeta 1", sol.String())
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := &fakeRepo{pkgs: []fakePkg{pick("foo", 1)}}
	_, err := Solve(ctx, repo, map[string]interval.Set[tv]{"foo": vset(1)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSolveDecisionLimit(t *testing.T) {
	repo := &fakeRepo{pkgs: []fakePkg{
		pick("a", 1, on("b", vset(1))),
		pick("b", 1, on("c", vset(1))),
		pick("c", 1),
	}}
	_, err := Solve(context.Background(), repo,
		map[string]interval.Set[tv]{"a": vset(1)},
		WithMaxDecisions(1))
	require.ErrorIs(t, err, ErrDecisionLimit)
}

func TestSolveInvalidOption(t *testing.T) {
	repo := &fakeRepo{}
	_, err := Solve(context.Background(), repo, nil, WithMaxDecisions(-1))
	require.Error(t, err)
}

func TestSolveLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	repo := &fakeRepo{pkgs: []fakePkg{pick("foo", 1)}}
	_, err := Solve(context.Background(), repo,
		map[string]interval.Set[tv]{"foo": vset(1)},
		WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "selected")
	assert.Contains(t, buf.String(), "version solving succeeded")
}

// rogueChooser answers ChooseVersion with a version outside the
// allowed set. The solver must refuse the answer instead of producing
// a wrong solution.
type rogueChooser struct {
	*fakeRepo
}

func (r *rogueChooser) ChooseVersion(context.Context, string, interval.Set[tv]) (tv, bool, error) {
	return 999, true, nil
}

func TestSolveRejectsVersionOutsideAllowed(t *testing.T) {
	repo := &rogueChooser{fakeRepo: &fakeRepo{pkgs: []fakePkg{pick("foo", 1)}}}
	_, err := Solve(context.Background(), repo, map[string]interval.Set[tv]{"foo": vset(1)})
	require.ErrorIs(t, err, ErrInternal)
}

// flipFlopRepo contradicts itself: its dependency answers change
// between calls, as a provider backed by a mutating registry would.
type flipFlopRepo struct {
	*fakeRepo
	calls int
}

func (r *flipFlopRepo) Dependencies(ctx context.Context, name string, v tv) (map[string]interval.Set[tv], error) {
	r.calls++
	if name == "a" && r.calls > 1 {
		return map[string]interval.Set[tv]{"b": vset(2)}, nil
	}
	return r.fakeRepo.Dependencies(ctx, name, v)
}

func TestSolveMutatingProviderNeverWrong(t *testing.T) {
	// a 1 depends on b 1 on the first call and on b 2 afterwards;
	// only b 1 exists. Whatever the outcome, it must be a Failure, an
	// internal-consistency error, or a solution that satisfies the
	// first answer. It must never silently pin b 2.
	repo := &flipFlopRepo{fakeRepo: &fakeRepo{pkgs: []fakePkg{
		pick("a", 1, on("b", vset(1))),
		pick("b", 1),
	}}}
	sol, err := Solve(context.Background(), repo, map[string]interval.Set[tv]{"a": vset(1)})
	if err != nil {
		var f *Failure[string, tv]
		ok := errors.As(err, &f) || errors.Is(err, ErrInternal)
		assert.True(t, ok, "unexpected error kind: %v", err)
		return
	}
	v, ok := sol.Version("b")
	require.True(t, ok)
	assert.Equal(t, tv(1), v)
}

func TestFailureLeavesProveUnsatisfiability(t *testing.T) {
	// Every total assignment of available versions must violate at
	// least one leaf cause of the failure, otherwise the derivation
	// proved something false.
	repo := &fakeRepo{pkgs: []fakePkg{
		pick("foo", 1, on("asdf", vrange(100, 300))),
		pick("bar", 100, on("jklm", vrange(200, 400))),
		pick("asdf", 200, on("baz", vrange(300, 400))),
		pick("jklm", 200, on("baz", vrange(400, 500))),
		pick("baz", 300), pick("baz", 400),
	}}
	_, err := Solve(context.Background(), repo, map[string]interval.Set[tv]{
		"foo": vset(1),
		"bar": vset(100),
	})
	var f *Failure[string, tv]
	require.ErrorAs(t, err, &f)

	var leaves []Incompatibility[string, tv]
	seen := map[int]bool{}
	var walk func(idx int)
	walk = func(idx int) {
		if seen[idx] {
			return
		}
		seen[idx] = true
		ic := f.At(idx)
		if !ic.IsDerived() {
			leaves = append(leaves, ic)
			return
		}
		walk(ic.Cause().Left)
		walk(ic.Cause().Right)
	}
	terminal := f.Terminal()
	walk(terminal.Cause().Left)
	walk(terminal.Cause().Right)
	require.NotEmpty(t, leaves)

	versions := map[string][]tv{}
	for _, p := range repo.pkgs {
		versions[p.name] = append(versions[p.name], p.version)
	}
	names := []string{"foo", "bar", "asdf", "jklm", "baz"}

	// violated reports whether every term of ic holds under the
	// assignment, meaning the assignment is impossible.
	violated := func(ic Incompatibility[string, tv], assigned map[string]tv) bool {
		for _, term := range ic.Terms() {
			if !term.allowsVersion(assigned[term.Package()]) {
				return false
			}
		}
		return true
	}

	var enumerate func(i int, assigned map[string]tv)
	enumerate = func(i int, assigned map[string]tv) {
		if i == len(names) {
			for _, leaf := range leaves {
				if violated(leaf, assigned) {
					return
				}
			}
			t.Errorf("assignment %v satisfies every leaf cause", assigned)
			return
		}
		for _, v := range versions[names[i]] {
			assigned[names[i]] = v
			enumerate(i+1, assigned)
		}
	}
	enumerate(0, map[string]tv{})
}

// brokenRepo fails to inspect one exact version.
type brokenRepo struct {
	*fakeRepo
}

func (r *brokenRepo) Dependencies(ctx context.Context, name string, v tv) (map[string]interval.Set[tv], error) {
	if name == "bar" {
		return nil, &DependencyUnavailableError[string, tv]{
			Package: name, Version: v, Err: fmt.Errorf("registry returned 500"),
		}
	}
	return r.fakeRepo.Dependencies(ctx, name, v)
}

func TestSolveFatalProviderError(t *testing.T) {
	repo := &brokenRepo{fakeRepo: &fakeRepo{pkgs: []fakePkg{
		pick("foo", 1, on("bar", vset(1))),
		pick("bar", 1),
	}}}
	_, err := Solve(context.Background(), repo, map[string]interval.Set[tv]{"foo": vset(1)})

	var unavailable *DependencyUnavailableError[string, tv]
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "bar", unavailable.Package)

	// A fatal provider error is infrastructure, not unsatisfiability.
	var f *Failure[string, tv]
	assert.False(t, errors.As(err, &f))
}
