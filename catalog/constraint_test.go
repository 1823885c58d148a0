package catalog

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		constraint string
		in         []string
		out        []string
	}{
		{
			constraint: "1.2.3",
			in:         []string{"1.2.3"},
			out:        []string{"1.2.2", "1.2.4"},
		},
		{
			constraint: "=1.2.3",
			in:         []string{"1.2.3"},
			out:        []string{"1.2.4"},
		},
		{
			constraint: "!=1.2.3",
			in:         []string{"1.2.2", "1.2.4", "99.0.0"},
			out:        []string{"1.2.3"},
		},
		{
			constraint: ">1.2.3",
			in:         []string{"1.2.4", "2.0.0"},
			out:        []string{"1.2.3", "1.0.0"},
		},
		{
			constraint: ">=1.2.3",
			in:         []string{"1.2.3", "2.0.0"},
			out:        []string{"1.2.2"},
		},
		{
			constraint: "<1.2.3",
			in:         []string{"1.2.2", "0.1.0"},
			out:        []string{"1.2.3", "2.0.0"},
		},
		{
			constraint: "<=1.2.3",
			in:         []string{"1.2.3", "0.1.0"},
			out:        []string{"1.2.4"},
		},
		{
			constraint: "^1.2.3",
			in:         []string{"1.2.3", "1.9.9"},
			out:        []string{"1.2.2", "2.0.0"},
		},
		{
			constraint: "^0.2.3",
			in:         []string{"0.2.3", "0.2.9"},
			out:        []string{"0.3.0", "1.0.0"},
		},
		{
			constraint: "^0.0.3",
			in:         []string{"0.0.3"},
			out:        []string{"0.0.4", "0.1.0"},
		},
		{
			constraint: "~1.2.3",
			in:         []string{"1.2.3", "1.2.9"},
			out:        []string{"1.3.0", "2.0.0"},
		},
		{
			constraint: "~1",
			in:         []string{"1.0.0", "1.9.0"},
			out:        []string{"2.0.0", "0.9.0"},
		},
		{
			constraint: "1.2.x",
			in:         []string{"1.2.0", "1.2.9"},
			out:        []string{"1.3.0", "1.1.9"},
		},
		{
			constraint: "1.2",
			in:         []string{"1.2.0", "1.2.9"},
			out:        []string{"1.3.0"},
		},
		{
			constraint: "1.x",
			in:         []string{"1.0.0", "1.9.9"},
			out:        []string{"2.0.0", "0.9.0"},
		},
		{
			constraint: "*",
			in:         []string{"0.0.1", "99.99.99"},
		},
		{
			constraint: ">=1.2.0 <2.0.0",
			in:         []string{"1.2.0", "1.9.9"},
			out:        []string{"1.1.0", "2.0.0"},
		},
		{
			constraint: ">=1.2.0, <2.0.0",
			in:         []string{"1.5.0"},
			out:        []string{"2.0.0"},
		},
		{
			constraint: ">=1.2.0 <2.0.0 || >=3.0.0",
			in:         []string{"1.5.0", "3.0.0", "4.2.0"},
			out:        []string{"2.5.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			set, err := ParseConstraint(tt.constraint)
			require.NoError(t, err)
			for _, raw := range tt.in {
				v := semver.MustParse(raw)
				assert.True(t, set.Contains(v), "%s should contain %s", tt.constraint, raw)
			}
			for _, raw := range tt.out {
				v := semver.MustParse(raw)
				assert.False(t, set.Contains(v), "%s should not contain %s", tt.constraint, raw)
			}
		})
	}
}

func TestParseConstraintErrors(t *testing.T) {
	for _, constraint := range []string{"", "   ", ">=", "bogus-version", "^*", "1.2.3 ||"} {
		t.Run(constraint, func(t *testing.T) {
			_, err := ParseConstraint(constraint)
			assert.Error(t, err)
		})
	}
}
