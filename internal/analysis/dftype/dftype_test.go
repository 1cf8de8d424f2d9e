package dftype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

func TestMeet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b DfType
		want DfType
	}{
		{"int ranges", IntRange(rangeset.Int, 0, 10), IntRange(rangeset.Int, 5, 20), IntRange(rangeset.Int, 5, 10)},
		{"disjoint ints", IntValue(rangeset.Int, 1), IntValue(rangeset.Int, 2), Bottom},
		{"top", Top, Bool(true), True},
		{"booleans", AnyBool, False, False},
		{"true false", True, False, Bottom},
		{"null meets nullable", NullRef(), NullableRef(), NullRef()},
		{"null meets not null", NullRef(), NotNullRef(), Bottom},
		{"instance conflict keeps null", Reference{Null: lattice.Unknown, Instance: []string{"T"}}, Reference{Null: lattice.Unknown, NotInstance: []string{"T"}}, NullRef()},
		{"constant meets ref", Const("a", "String"), UnknownRef(), Const("a", "String")},
		{"constant meets other type", Const("a", "String"), NotNullRef("Integer"), Bottom},
		{"constant meets null", Const("a", "String"), NullRef(), Bottom},
		{"kind mismatch", IntAll(rangeset.Int), True, Bottom},
		{"float", FloatRange(0, 10), FloatRange(5, 20), FloatRange(5, 10)},
		{"nan meets range", NaN(), FloatRange(0, 1), Bottom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.a.Meet(tt.b)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestJoinIsSuperType(t *testing.T) {
	t.Parallel()
	pairs := [][2]DfType{
		{IntValue(rangeset.Int, 1), IntValue(rangeset.Int, 5)},
		{True, False},
		{NullRef(), NotNullRef("T")},
		{Const("a", "String"), Const("b", "String")},
		{FloatValue(1), NaN()},
		{IntAll(rangeset.Int), True},
		{Bottom, NullableRef()},
	}
	for _, p := range pairs {
		j := p[0].Join(p[1])
		assert.True(t, j.IsSuperType(p[0]), "%s >= %s", j, p[0])
		assert.True(t, j.IsSuperType(p[1]), "%s >= %s", j, p[1])
	}
	assert.Equal(t, "?null instanceof T", NullRef().Join(NotNullRef("T")).String())
}

func TestMeetRelation(t *testing.T) {
	t.Parallel()
	x := IntRange(rangeset.Int, 0, 100)
	tests := []struct {
		rel   relation.Type
		other DfType
		want  DfType
	}{
		{relation.LT, IntValue(rangeset.Int, 10), IntRange(rangeset.Int, 0, 9)},
		{relation.GE, IntValue(rangeset.Int, 10), IntRange(rangeset.Int, 10, 100)},
		{relation.GT, IntValue(rangeset.Int, 100), Bottom},
		{relation.EQ, IntRange(rangeset.Int, 50, 200), IntRange(rangeset.Int, 50, 100)},
		{relation.NE, IntValue(rangeset.Int, 0), IntRange(rangeset.Int, 1, 100)},
	}
	for _, tt := range tests {
		got := MeetRelation(x, tt.rel, tt.other)
		assert.True(t, tt.want.Equal(got), "%s %s: want %s, got %s", tt.rel, tt.other, tt.want, got)
	}

	assert.True(t, NullRef().Equal(MeetRelation(UnknownRef(), relation.EQ, NullRef())))
	assert.Equal(t, lattice.NotNull, NullabilityOf(MeetRelation(UnknownRef(), relation.NE, NullRef())))
	assert.True(t, True.Equal(MeetRelation(AnyBool, relation.NE, False)))
}

func TestNaNRelations(t *testing.T) {
	t.Parallel()
	for _, rel := range []relation.Type{relation.LT, relation.GT, relation.EQ, relation.LE, relation.GE} {
		assert.Equal(t, Bottom, MeetRelation(NaN(), rel, FloatAll()), rel.String())
		assert.Equal(t, Bottom, MeetRelation(FloatAll(), rel, NaN()), rel.String())
	}
	assert.False(t, IsBottom(MeetRelation(NaN(), relation.NE, FloatValue(1))))
}

func TestInstanceRelations(t *testing.T) {
	t.Parallel()
	x := Reference{Null: lattice.Unknown, Instance: []string{"T"}}
	notT := MeetRelation(x, relation.IsNot, InstanceOf("T"))
	assert.True(t, NullRef().Equal(notT), notT.String())

	isT := MeetRelation(UnknownRef(), relation.IS, InstanceOf("T"))
	assert.Equal(t, "!null instanceof T", isT.String())
}

func TestWidenAgainst(t *testing.T) {
	t.Parallel()
	w := WidenAgainst(IntValue(rangeset.Int, 3), IntValue(rangeset.Int, 2))
	assert.True(t, IntRange(rangeset.Int, 2, math.MaxInt32).Equal(w), w.String())

	w = WidenAgainst(IntRange(rangeset.Int, 4, 10), IntRange(rangeset.Int, 2, math.MaxInt32))
	assert.True(t, IntRange(rangeset.Int, 2, math.MaxInt32).Equal(w), w.String())

	w = WidenAgainst(FloatValue(2), FloatValue(1))
	assert.True(t, FloatRange(1, math.Inf(1)).Equal(w), w.String())

	assert.Equal(t, AnyBool, WidenAgainst(True, False))
}

func TestIsConstant(t *testing.T) {
	t.Parallel()
	assert.True(t, IsConstant(IntValue(rangeset.Long, 7)))
	assert.True(t, IsConstant(True))
	assert.True(t, IsConstant(NullRef()))
	assert.False(t, IsConstant(AnyBool))
	assert.False(t, IsConstant(Top))
}
