// Package versol implements PubGrub version solving: given a set of
// root requirements and a provider of package metadata, it computes a
// single consistent assignment of exactly one version to every
// transitively required package, or proves that no such assignment
// exists and explains why.
//
// The solver is generic over the package identifier type (any
// comparable type) and the version type (anything with a Compare
// method). It performs no I/O of its own: version lists and dependency
// constraints are pulled lazily through the DependencyProvider
// interface, so the same engine serves an in-memory catalog, a
// registry client, or a lock-file reader.
//
// # Quick Start
//
// Solve a requirement set against a provider:
//
//	reqs := map[string]interval.Set[*semver.Version]{
//	    "app": interval.Only(semver.MustParse("1.0.0")),
//	}
//	solution, err := versol.Solve(ctx, provider, reqs)
//	if err != nil {
//	    var fail *versol.Failure[string, *semver.Version]
//	    if errors.As(err, &fail) {
//	        fmt.Println(fail.String()) // human-readable derivation
//	    }
//	    return err
//	}
//	for _, r := range solution {
//	    fmt.Printf("%v %v\n", r.Package, r.Version)
//	}
//
// The catalog subpackage provides a ready-made in-memory provider over
// semantic versions, including YAML catalog files.
//
// # Outcomes
//
// Solve distinguishes three failure classes. An unsatisfiable
// requirement set is a first-class outcome: it returns a *Failure
// carrying the full derivation DAG, renderable as a step-by-step
// explanation. Provider errors (a package that cannot be inspected, a
// transient fetch failure) abort the solve and propagate unchanged.
// Internal invariant violations, including a provider that changes its
// answers mid-solve, surface as errors wrapping ErrInternal.
//
// # Concurrency
//
// A single Solve call is sequential; all state is owned by the call.
// Independent Solve calls may run concurrently, even against the same
// provider, as long as the provider itself is safe for concurrent use.
// Long searches are cancelled cooperatively through the context.
package versol
