package versol

import (
	"context"

	"github.com/versol-dev/versol/interval"
)

// DependencyProvider supplies package metadata to the solver. It is
// the only boundary between the solving engine and the outside world:
// implementations may read from an in-memory catalog, a registry
// client, a lock file, or anything else.
//
// Answers must be stable for the duration of one Solve call. A
// provider that changes its answers mid-solve is detected and reported
// as an ErrInternal failure, never as a silently wrong solution.
type DependencyProvider[P comparable, V interval.Point[V]] interface {
	// ListVersions returns all known versions of pkg in ascending
	// order. Returns an error wrapping ErrNoVersions, or a
	// *PackageUnavailableError, when the package has no versions.
	ListVersions(ctx context.Context, pkg P) ([]V, error)

	// Dependencies returns the dependency constraints of one exact
	// version of pkg: each entry requires the dependency package's
	// chosen version to lie in the given set. Returns a
	// *DependencyUnavailableError when this version cannot be
	// inspected (fatal) or a *PackageUnavailableError when the
	// package has no versions at all (learnable).
	Dependencies(ctx context.Context, pkg P, v V) (map[P]interval.Set[V], error)

	// ChooseVersion returns the provider's most preferred version of
	// pkg within allowed, and false when no version matches. The
	// preference policy (highest stable, lowest, closest to a lock
	// file) belongs entirely to the provider.
	ChooseVersion(ctx context.Context, pkg P, allowed interval.Set[V]) (V, bool, error)
}
