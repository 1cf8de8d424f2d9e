// Package dftype defines the abstract types tracked for every value: a
// closed family of lattices (integral ranges, booleans, floats, nullable
// references and constants) joined under a common Top and Bottom.
package dftype

import (
	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

// DfType is an abstract set of runtime values. Meet returning Bottom
// signals a contradiction.
type DfType interface {
	// Meet returns the intersection of the two sets.
	Meet(other DfType) DfType
	// Join returns a set containing both.
	Join(other DfType) DfType
	// IsSuperType reports whether every value of other belongs to the receiver.
	IsSuperType(other DfType) bool
	Equal(other DfType) bool
	// FromRelation returns the set of values x for which x rel y holds for
	// some y of the receiver.
	FromRelation(rel relation.Type) DfType
	// Widen returns a coarser type used to force convergence.
	Widen() DfType
	String() string

	isDfType()
}

type topType struct{}

type bottomType struct{}

var (
	// Top holds every value.
	Top DfType = topType{}
	// Bottom holds no value.
	Bottom DfType = bottomType{}
)

func (topType) Meet(other DfType) DfType             { return other }
func (topType) Join(DfType) DfType                   { return Top }
func (topType) IsSuperType(DfType) bool              { return true }
func (topType) Equal(other DfType) bool              { return other == Top }
func (topType) FromRelation(relation.Type) DfType    { return Top }
func (topType) Widen() DfType                        { return Top }
func (topType) String() string                       { return "top" }
func (topType) isDfType()                            {}
func (bottomType) Meet(DfType) DfType                { return Bottom }
func (bottomType) Join(other DfType) DfType          { return other }
func (bottomType) IsSuperType(other DfType) bool     { return other == Bottom }
func (bottomType) Equal(other DfType) bool           { return other == Bottom }
func (bottomType) FromRelation(relation.Type) DfType { return Bottom }
func (bottomType) Widen() DfType                     { return Bottom }
func (bottomType) String() string                    { return "bottom" }
func (bottomType) isDfType()                         {}

// IsBottom reports whether t holds no value.
func IsBottom(t DfType) bool { return t == nil || t == Bottom }

// MeetRelation narrows t to the values that stand in relation rel to
// some value of other.
func MeetRelation(t DfType, rel relation.Type, other DfType) DfType {
	return t.Meet(other.FromRelation(rel))
}

// WidenAgainst extrapolates cur from prev so that repeated application
// along a loop reaches a fixed point. The result is a supertype of both.
func WidenAgainst(cur, prev DfType) DfType {
	if prev == nil {
		return cur
	}
	if prev.IsSuperType(cur) {
		return prev
	}
	switch c := cur.(type) {
	case Integral:
		if p, ok := prev.(Integral); ok && p.Kind == c.Kind {
			return Integral{Kind: c.Kind, Range: c.Range.WidenAgainst(p.Range, c.Kind)}
		}
	case Float:
		if p, ok := prev.(Float); ok {
			return c.widenAgainst(p)
		}
	}
	return cur.Join(prev).Widen()
}

// ArithFallback is the result of an arithmetic operation whose operands
// are not both integral. Float operands give any float; anything else is
// unknown.
func ArithFallback(left, right DfType) DfType {
	_, lf := left.(Float)
	_, rf := right.(Float)
	if lf && rf {
		return FloatAll()
	}
	return Top
}

// NullabilityOf returns the nullness of the values of t. Primitive and
// constant types are never null.
func NullabilityOf(t DfType) lattice.Nullability {
	switch v := t.(type) {
	case nil, bottomType:
		return lattice.Bottom
	case topType:
		return lattice.Unknown
	case Reference:
		return v.Null
	}
	return lattice.NotNull
}

// IsConstant reports whether t holds exactly one value.
func IsConstant(t DfType) bool {
	switch v := t.(type) {
	case Integral:
		_, ok := v.Range.Constant()
		return ok
	case Boolean:
		return v == True || v == False
	case Float:
		return v.HasRange && !v.NaN && v.Lo == v.Hi
	case Constant:
		return true
	case Reference:
		return v.Null == lattice.Null
	}
	return false
}
