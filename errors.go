package versol

import (
	"errors"
	"fmt"
)

// Sentinel errors for solver and provider failures.
var (
	// ErrNoVersions is returned by providers whose version list for a
	// package is empty. The solver turns it into a learnable
	// no-versions incompatibility rather than aborting.
	ErrNoVersions = errors.New("no versions available")

	// ErrInternal marks a violated solver invariant, including a
	// provider that contradicts its earlier answers mid-solve. It is
	// a bug indicator, never a normal outcome.
	ErrInternal = errors.New("internal solver invariant violated")

	// ErrDecisionLimit is returned when the configured decision limit
	// is exhausted before the search concludes.
	ErrDecisionLimit = errors.New("decision limit exceeded")
)

// PackageUnavailableError reports that no versions of a package exist
// at all. The solver treats it as learnable: the requirement becomes a
// no-versions incompatibility and solving continues.
type PackageUnavailableError[P comparable] struct {
	Package P
	Err     error
}

// Error implements error.
func (e *PackageUnavailableError[P]) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("package %v unavailable", e.Package)
	}
	return fmt.Sprintf("package %v unavailable: %v", e.Package, e.Err)
}

// Unwrap returns the underlying cause, if any.
func (e *PackageUnavailableError[P]) Unwrap() error { return e.Err }

// DependencyUnavailableError reports that one specific version could
// not be inspected. Unlike PackageUnavailableError this is not
// learnable: the solve fails immediately, since the solver cannot know
// what the version would have required.
type DependencyUnavailableError[P comparable, V any] struct {
	Package P
	Version V
	Err     error
}

// Error implements error.
func (e *DependencyUnavailableError[P, V]) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dependencies of %v %v unavailable", e.Package, e.Version)
	}
	return fmt.Sprintf("dependencies of %v %v unavailable: %v", e.Package, e.Version, e.Err)
}

// Unwrap returns the underlying cause, if any.
func (e *DependencyUnavailableError[P, V]) Unwrap() error { return e.Err }
