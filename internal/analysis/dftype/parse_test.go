package dftype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
)

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()
	types := []DfType{
		Top,
		Bottom,
		True,
		False,
		AnyBool,
		IntAll(rangeset.Int),
		IntAll(rangeset.Long),
		IntValue(rangeset.Int, -3),
		IntRange(rangeset.Long, 0, 10),
		Integral{Kind: rangeset.Int, Range: rangeset.Range(0, 9).Without(5)},
		FloatAll(),
		FloatRange(1.5, 2),
		FloatValue(3),
		NaN(),
		NullRef(),
		NotNullRef("List", "Collection"),
		NullableRef(),
		UnknownRef(),
		Reference{Null: lattice.Unknown, NotInstance: []string{"T"}},
		Const("hello world", "String"),
	}
	for _, want := range types {
		t.Run(want.String(), func(t *testing.T) {
			t.Parallel()
			got, err := Parse(want.String())
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}
}

func TestParseAliases(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want DfType
	}{
		{"any", Top},
		{"bool", AnyBool},
		{"int{0..5}", IntRange(rangeset.Int, 0, 5)},
		{`"x"`, Const("x", "String")},
		{"!null instanceof T !instanceof U", Reference{Null: lattice.NotNull, Instance: []string{"T"}, NotInstance: []string{"U"}}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"int[0..5]", "int{a}", "object", "!null instanceof", `"open`, "float{x}"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
