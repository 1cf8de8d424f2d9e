package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Contracts(callable string) []Contract {
	args := m.Called(callable)
	return args.Get(0).([]Contract)
}

func TestCachingProvider(t *testing.T) {
	t.Parallel()
	inner := new(mockProvider)
	want := []Contract{{Return: dftype.True}}
	inner.On("Contracts", "isEmpty").Return(want).Once()
	inner.On("Contracts", "size").Return([]Contract(nil)).Once()

	p, err := NewCachingProvider(inner, 8)
	require.NoError(t, err)
	assert.Equal(t, want, p.Contracts("isEmpty"))
	assert.Equal(t, want, p.Contracts("isEmpty"))
	assert.Nil(t, p.Contracts("size"))
	assert.Nil(t, p.Contracts("size"))
	inner.AssertExpectations(t)

	_, err = NewCachingProvider(inner, 0)
	assert.Error(t, err)
}

func TestCompile(t *testing.T) {
	t.Parallel()
	src := `
requireNonNull:
  - when: [{arg: 0, rel: "==", value: "null"}]
    fails: true
  - returns: "!null"
isBlank:
  - when: [{arg: 0, rel: "==", value: "null"}]
    returns: "true"
`
	var specs map[string][]Spec
	require.NoError(t, yaml.Unmarshal([]byte(src), &specs))
	p, err := Compile(specs)
	require.NoError(t, err)

	rn := p.Contracts("requireNonNull")
	require.Len(t, rn, 2)
	assert.True(t, rn[0].Fails)
	assert.Equal(t, relation.EQ, rn[0].Conditions[0].Rel)
	assert.True(t, dftype.NullRef().Equal(rn[0].Conditions[0].Value))
	assert.Empty(t, rn[1].Conditions)
	assert.True(t, dftype.NotNullRef().Equal(rn[1].Return))
	assert.Equal(t, "arg0 == null -> true", p.Contracts("isBlank")[0].String())
	assert.Nil(t, p.Contracts("unknown"))
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		spec Spec
	}{
		{"bad relation", Spec{When: []ConditionSpec{{Rel: "~", Value: "null"}}, Returns: "true"}},
		{"bad value", Spec{When: []ConditionSpec{{Rel: "==", Value: "nil"}}, Returns: "true"}},
		{"bad return", Spec{Returns: "maybe"}},
		{"negative arg", Spec{When: []ConditionSpec{{Arg: -1, Rel: "==", Value: "null"}}, Returns: "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compile(map[string][]Spec{"f": {tt.spec}})
			assert.Error(t, err)
		})
	}
}

func TestChain(t *testing.T) {
	t.Parallel()
	local := StaticProvider{"f": {{Return: dftype.True}}}
	global := StaticProvider{"f": {{Fails: true}}, "g": {{Return: dftype.False}}}
	chain := Chain{local, nil, global}

	got := chain.Contracts("f")
	require.Len(t, got, 2)
	assert.Equal(t, dftype.True, got[0].Return)
	assert.True(t, got[1].Fails)
	assert.Len(t, chain.Contracts("g"), 1)
	assert.Empty(t, chain.Contracts("h"))
}
