package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/versol-dev/versol"
	"github.com/versol-dev/versol/interval"
)

// Catalog is a fixed in-memory package universe implementing
// versol.DependencyProvider over semantic versions. Its selection
// policy is highest matching version.
//
// A Catalog is safe for concurrent reads after all Add calls are
// done; it is not safe to mutate while a solve is running.
type Catalog struct {
	pkgs map[string][]release
}

type release struct {
	version *semver.Version
	deps    map[string]interval.Set[*semver.Version]
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{pkgs: make(map[string][]release)}
}

// Add registers one package version with its dependency constraints,
// given in the syntax of ParseConstraint.
func (c *Catalog) Add(pkg, version string, deps map[string]string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("add %s: parse version %q: %w", pkg, version, err)
	}
	rel := release{version: v}
	if len(deps) > 0 {
		rel.deps = make(map[string]interval.Set[*semver.Version], len(deps))
		for dep, constraint := range deps {
			set, err := ParseConstraint(constraint)
			if err != nil {
				return fmt.Errorf("add %s %s: dependency %s: %w", pkg, version, dep, err)
			}
			rel.deps[dep] = set
		}
	}
	c.pkgs[pkg] = append(c.pkgs[pkg], rel)
	sort.Slice(c.pkgs[pkg], func(i, j int) bool {
		return c.pkgs[pkg][i].version.Compare(c.pkgs[pkg][j].version) < 0
	})
	return nil
}

// Packages returns all package names, sorted.
func (c *Catalog) Packages() []string {
	names := make([]string, 0, len(c.pkgs))
	for name := range c.pkgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListVersions returns the known versions of pkg in ascending order.
func (c *Catalog) ListVersions(_ context.Context, pkg string) ([]*semver.Version, error) {
	rels, ok := c.pkgs[pkg]
	if !ok {
		return nil, &versol.PackageUnavailableError[string]{Package: pkg, Err: versol.ErrNoVersions}
	}
	vs := make([]*semver.Version, len(rels))
	for i, rel := range rels {
		vs[i] = rel.version
	}
	return vs, nil
}

// Dependencies returns the constraints declared by one exact version.
func (c *Catalog) Dependencies(_ context.Context, pkg string, v *semver.Version) (map[string]interval.Set[*semver.Version], error) {
	rels, ok := c.pkgs[pkg]
	if !ok {
		return nil, &versol.PackageUnavailableError[string]{Package: pkg, Err: versol.ErrNoVersions}
	}
	for _, rel := range rels {
		if rel.version.Compare(v) == 0 {
			return rel.deps, nil
		}
	}
	return nil, &versol.DependencyUnavailableError[string, *semver.Version]{
		Package: pkg, Version: v, Err: versol.ErrNoVersions,
	}
}

// ChooseVersion returns the highest known version of pkg within
// allowed.
func (c *Catalog) ChooseVersion(_ context.Context, pkg string, allowed interval.Set[*semver.Version]) (*semver.Version, bool, error) {
	rels := c.pkgs[pkg]
	for i := len(rels) - 1; i >= 0; i-- {
		if allowed.Contains(rels[i].version) {
			return rels[i].version, true, nil
		}
	}
	return nil, false, nil
}

// Requirements parses a set of root requirements given as constraint
// strings, ready to pass to versol.Solve.
func Requirements(reqs map[string]string) (map[string]interval.Set[*semver.Version], error) {
	out := make(map[string]interval.Set[*semver.Version], len(reqs))
	for pkg, constraint := range reqs {
		set, err := ParseConstraint(constraint)
		if err != nil {
			return nil, fmt.Errorf("requirement %s: %w", pkg, err)
		}
		out[pkg] = set
	}
	return out, nil
}

// file is the YAML shape of a catalog: package name to version to
// dependency constraints.
//
//	packages:
//	  foo:
//	    1.0.0:
//	      bar: ">=1.0.0 <2.0.0"
//	    2.0.0: {}
//	  bar:
//	    1.4.2: {}
type file struct {
	Packages map[string]map[string]map[string]string `yaml:"packages"`
}

// Load reads a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := New()
	for pkg, versions := range f.Packages {
		for version, deps := range versions {
			if err := c.Add(pkg, version, deps); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer fh.Close()
	c, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
