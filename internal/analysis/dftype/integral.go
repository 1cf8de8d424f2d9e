package dftype

import (
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

// Integral is a set of int or long values.
type Integral struct {
	Kind  rangeset.Kind
	Range rangeset.Set
}

// IntValue returns the constant v of the given kind.
func IntValue(k rangeset.Kind, v int64) DfType {
	return Integral{Kind: k, Range: rangeset.Point(v)}
}

// IntRange returns [lo, hi] of the given kind, or Bottom when empty.
func IntRange(k rangeset.Kind, lo, hi int64) DfType {
	return fromRange(k, rangeset.Range(lo, hi))
}

// IntAll returns every value of kind k.
func IntAll(k rangeset.Kind) DfType {
	return Integral{Kind: k, Range: rangeset.All(k)}
}

func fromRange(k rangeset.Kind, r rangeset.Set) DfType {
	if r.IsEmpty() {
		return Bottom
	}
	return Integral{Kind: k, Range: r}
}

// Constant returns the single value of i, if any.
func (i Integral) Constant() (int64, bool) { return i.Range.Constant() }

func (i Integral) Meet(other DfType) DfType {
	switch o := other.(type) {
	case topType:
		return i
	case Integral:
		return fromRange(i.Kind, i.Range.Meet(o.Range))
	}
	return Bottom
}

func (i Integral) Join(other DfType) DfType {
	switch o := other.(type) {
	case bottomType:
		return i
	case Integral:
		k := i.Kind
		if o.Kind > k {
			k = o.Kind
		}
		return Integral{Kind: k, Range: i.Range.Join(o.Range)}
	}
	return Top
}

func (i Integral) IsSuperType(other DfType) bool {
	switch o := other.(type) {
	case bottomType:
		return true
	case Integral:
		return i.Range.ContainsSet(o.Range)
	}
	return false
}

func (i Integral) Equal(other DfType) bool {
	o, ok := other.(Integral)
	return ok && o.Kind == i.Kind && o.Range.Equal(i.Range)
}

func (i Integral) FromRelation(rel relation.Type) DfType {
	if !rel.IsOrdering() {
		return Top
	}
	return fromRange(i.Kind, i.Range.FromRelation(rel, i.Kind))
}

// Widen keeps only the sign of the range.
func (i Integral) Widen() DfType {
	if i.Range.IsEmpty() {
		return Bottom
	}
	if i.Range.Min() >= 0 {
		return Integral{Kind: i.Kind, Range: rangeset.Range(0, i.Kind.Max())}
	}
	return IntAll(i.Kind)
}

// Eval applies a binary operator to two integral types.
func (i Integral) Eval(op rangeset.Op, other Integral, k rangeset.Kind) DfType {
	return fromRange(k, i.Range.Eval(op, other.Range, k))
}

// Cast converts i to kind k.
func (i Integral) Cast(k rangeset.Kind) DfType {
	return fromRange(k, i.Range.Cast(k))
}

func (i Integral) String() string {
	if i.Range.IsAll(i.Kind) {
		return i.Kind.String()
	}
	return i.Kind.String() + i.Range.String()
}

func (Integral) isDfType() {}
