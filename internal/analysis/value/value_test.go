package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/transfer"
)

func TestFactoryInterning(t *testing.T) {
	t.Parallel()
	f := NewFactory()

	assert.Same(t, f.Int(5), f.Int(5))
	assert.NotSame(t, f.Int(5), f.Int(6))
	assert.Same(t, f.Unknown(), f.FromType(dftype.Top))

	a := f.Local("a", dftype.UnknownRef())
	assert.Same(t, a, f.Local("a", nil))
	assert.Same(t, f.ArrayLength(a), f.ArrayLength(a))
	assert.True(t, f.ArrayLength(a).DependsOn(a))
	assert.False(t, a.DependsOn(f.ArrayLength(a)))
	assert.Equal(t, "a.length", f.ArrayLength(a).String())
	assert.Equal(t, "a[3]", f.ArrayElement(a, 3, dftype.Top).String())

	for id := 0; id < f.Size(); id++ {
		assert.Equal(t, id, f.Value(id).ID())
	}
	assert.Nil(t, f.Value(f.Size()))
}

func TestBinOp(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	i := f.Local("i", dftype.IntAll(rangeset.Int))

	folded := f.BinOp(f.Int(2), rangeset.Add, f.Int(3), rangeset.Int)
	assert.Same(t, f.Int(5), folded)

	sym := f.BinOp(i, rangeset.Add, f.Int(1), rangeset.Int)
	require.IsType(t, &BinOp{}, sym)
	assert.Same(t, sym, f.BinOp(i, rangeset.Add, f.Int(1), rangeset.Int))
	assert.Equal(t, "(i + int{1})", sym.String())

	decayed := f.BinOp(f.Unknown(), rangeset.Mul, i, rangeset.Long)
	assert.True(t, dftype.IntAll(rangeset.Long).Equal(decayed.Type()))
}

func TestRebindIdempotent(t *testing.T) {
	t.Parallel()
	src := NewFactory()
	arr := src.Local("arr", dftype.NotNullRef())
	tr := &transfer.ControlTransfer{Target: transfer.Return{}}
	values := []Value{
		src.Int(7),
		src.Unknown(),
		arr,
		src.ArrayLength(arr),
		src.ArrayElement(arr, 2, dftype.IntAll(rangeset.Int)),
		src.BinOp(src.ArrayLength(arr), rangeset.Sub, src.Int(1), rangeset.Int),
		src.Transfer(tr),
	}

	dst := NewFactory()
	for _, v := range values {
		once := dst.Rebind(v)
		require.NotNil(t, once)
		assert.Same(t, dst, once.Factory())
		assert.Equal(t, v.String(), once.String())
		assert.Same(t, once, dst.Rebind(once), "rebinding into the owning factory is the identity")
		assert.Same(t, once, dst.Rebind(v), "rebinding twice yields the same value")
		assert.Same(t, v, src.Rebind(v))
	}
}

func TestConditionNegationInvolution(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	x := f.Local("x", dftype.IntAll(rangeset.Int))
	y := f.Local("y", dftype.IntAll(rangeset.Int))
	o := f.Local("o", dftype.UnknownRef())

	conds := []Condition{True, False}
	for _, rel := range []relation.Type{relation.EQ, relation.NE, relation.LT, relation.LE, relation.GT, relation.GE} {
		conds = append(conds, f.Condition(x, rel, y))
	}
	conds = append(conds, f.Condition(o, relation.IS, f.FromType(dftype.InstanceOf("T"))))
	conds = append(conds, f.Condition(o, relation.IsNot, f.FromType(dftype.InstanceOf("T"))))

	for _, c := range conds {
		assert.Equal(t, c, c.Negate().Negate(), c.String())
		assert.NotEqual(t, c, c.Negate(), c.String())
	}
}

func TestConditionFolding(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	x := f.Local("x", dftype.IntAll(rangeset.Int))
	d := f.Local("d", dftype.FloatAll())

	tests := []struct {
		name      string
		cond      Condition
		holds, ok bool
	}{
		{"constants lt", f.Condition(f.Int(1), relation.LT, f.Int(2)), true, true},
		{"constants eq", f.Condition(f.Int(1), relation.EQ, f.Int(2)), false, true},
		{"same variable le", f.Condition(x, relation.LE, x), true, true},
		{"same variable lt", f.Condition(x, relation.LT, x), false, true},
		{"float self compare", f.Condition(d, relation.EQ, d), false, false},
		{"variable", f.Condition(x, relation.LT, f.Int(2)), false, false},
		{"null is null", f.Condition(f.Null(), relation.EQ, f.Null()), true, true},
		{"string identity unknown", f.Condition(f.FromType(dftype.Const("a", "String")), relation.EQ, f.FromType(dftype.Const("a", "String"))), false, false},
		{"null instanceof", f.Condition(f.Null(), relation.IS, f.FromType(dftype.InstanceOf("T"))), false, true},
		{"nan ordering", f.Condition(f.FromType(dftype.NaN()), relation.LT, f.FromType(dftype.FloatValue(1))), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			holds, ok := Decided(tt.cond)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.holds, holds)
		})
	}
}
