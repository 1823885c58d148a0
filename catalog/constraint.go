package catalog

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/versol-dev/versol/interval"
)

// ParseConstraint parses a version constraint into a set of versions.
//
// Supported syntax, close to what npm and Cargo users expect:
//
//	1.2.3          exactly 1.2.3
//	=1.2.3         same
//	!=1.2.3        everything except 1.2.3
//	>1.2.3  >=1.2.3  <1.2.3  <=1.2.3
//	^1.2.3         >=1.2.3 <2.0.0 (leftmost nonzero part fixed)
//	~1.2.3         >=1.2.3 <1.3.0
//	1.2.x  1.2.*   >=1.2.0 <1.3.0
//	1.2            shorthand for 1.2.x
//	*              any version
//
// Space or comma separated constraints intersect; "||" separated
// groups union:
//
//	>=1.2.0 <2.0.0 || >=3.0.0
func ParseConstraint(s string) (interval.Set[*semver.Version], error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return interval.Set[*semver.Version]{}, fmt.Errorf("empty constraint")
	}
	out := interval.Empty[*semver.Version]()
	for _, group := range strings.Split(s, "||") {
		set, err := parseGroup(group)
		if err != nil {
			return interval.Set[*semver.Version]{}, err
		}
		out = out.Union(set)
	}
	return out, nil
}

func parseGroup(group string) (interval.Set[*semver.Version], error) {
	fields := strings.FieldsFunc(group, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) == 0 {
		return interval.Set[*semver.Version]{}, fmt.Errorf("empty constraint group in %q", group)
	}
	out := interval.Any[*semver.Version]()
	for _, f := range fields {
		set, err := parseSimple(f)
		if err != nil {
			return interval.Set[*semver.Version]{}, err
		}
		out = out.Intersect(set)
	}
	return out, nil
}

func parseSimple(s string) (interval.Set[*semver.Version], error) {
	var none interval.Set[*semver.Version]
	op := ""
	for _, candidate := range []string{"<=", ">=", "!=", "==", "<", ">", "=", "^", "~"} {
		if strings.HasPrefix(s, candidate) {
			op = candidate
			s = s[len(candidate):]
			break
		}
	}
	s = strings.TrimSpace(s)
	if isWildcard(s) {
		if op == "" || op == "=" || op == "==" {
			return interval.Any[*semver.Version](), nil
		}
		return none, fmt.Errorf("cannot combine %q with a bare wildcard", op)
	}

	parts, wild := splitParts(s)
	v, err := semver.NewVersion(s)
	if wild >= 0 {
		// Zero out the wildcard tail so "1.2.x" parses as 1.2.0.
		v, err = semver.NewVersion(strings.Join(parts[:wild], "."))
	}
	if err != nil {
		return none, fmt.Errorf("parse version %q: %w", s, err)
	}

	switch op {
	case "", "=", "==":
		if wild < 0 && len(parts) >= 3 {
			return interval.Only(v), nil
		}
		return wildcardRange(v, parts, wild)
	case "!=":
		if wild < 0 && len(parts) >= 3 {
			return interval.Only(v).Complement(), nil
		}
		set, err := wildcardRange(v, parts, wild)
		if err != nil {
			return none, err
		}
		return set.Complement(), nil
	case ">":
		return interval.Above(v), nil
	case ">=":
		return interval.AtLeast(v), nil
	case "<":
		return interval.Below(v), nil
	case "<=":
		return interval.AtMost(v), nil
	case "^":
		return interval.Between(v, caretUpper(v, len(parts))), nil
	case "~":
		return interval.Between(v, tildeUpper(v, len(parts))), nil
	default:
		return none, fmt.Errorf("unknown constraint operator %q", op)
	}
}

func isWildcard(s string) bool {
	return s == "*" || s == "x" || s == "X"
}

// splitParts splits a version token on dots and returns the position
// of the first wildcard part, or -1.
func splitParts(s string) ([]string, int) {
	base := s
	if i := strings.IndexAny(base, "-+"); i >= 0 {
		base = base[:i]
	}
	parts := strings.Split(base, ".")
	for i, p := range parts {
		if isWildcard(p) {
			return parts, i
		}
	}
	return parts, -1
}

// wildcardRange turns a partial version like 1.2 or 1.2.x into the
// half-open range of versions it abbreviates.
func wildcardRange(v *semver.Version, parts []string, wild int) (interval.Set[*semver.Version], error) {
	specified := len(parts)
	if wild >= 0 {
		specified = wild
	}
	switch specified {
	case 0:
		return interval.Any[*semver.Version](), nil
	case 1:
		u := v.IncMajor()
		return interval.Between(v, &u), nil
	default:
		u := v.IncMinor()
		return interval.Between(v, &u), nil
	}
}

// caretUpper returns the exclusive upper bound of a caret range: the
// leftmost nonzero part may not change.
func caretUpper(v *semver.Version, parts int) *semver.Version {
	switch {
	case v.Major() > 0:
		u := v.IncMajor()
		return &u
	case v.Minor() > 0:
		u := v.IncMinor()
		return &u
	case v.Patch() > 0:
		u := v.IncPatch()
		return &u
	}
	// All-zero versions widen with the number of specified parts:
	// ^0 is <1.0.0, ^0.0 is <0.1.0, ^0.0.0 is <0.0.1.
	switch parts {
	case 1:
		u := v.IncMajor()
		return &u
	case 2:
		u := v.IncMinor()
		return &u
	default:
		u := v.IncPatch()
		return &u
	}
}

// tildeUpper returns the exclusive upper bound of a tilde range:
// patch-level changes only, unless just the major part was given.
func tildeUpper(v *semver.Version, parts int) *semver.Version {
	if parts <= 1 {
		u := v.IncMajor()
		return &u
	}
	u := v.IncMinor()
	return &u
}
