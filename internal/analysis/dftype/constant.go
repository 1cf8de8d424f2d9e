package dftype

import (
	"fmt"
	"slices"

	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

// Constant is a single non-null object such as a string literal. Two
// constants with equal values are not necessarily the same object, so
// inequality says nothing about the other operand.
type Constant struct {
	Value    any
	TypeName string
}

// Const returns the constant object v of the named type. v must be
// comparable.
func Const(v any, typeName string) DfType {
	return Constant{Value: v, TypeName: typeName}
}

func (c Constant) asReference() Reference {
	return Reference{Null: lattice.NotNull, Instance: []string{c.TypeName}}
}

func (c Constant) Meet(other DfType) DfType {
	switch o := other.(type) {
	case topType:
		return c
	case Constant:
		if c.Equal(o) {
			return c
		}
	case Reference:
		if !o.Null.CanBeNotNull() || slices.Contains(o.NotInstance, c.TypeName) {
			return Bottom
		}
		for _, t := range o.Instance {
			if t != c.TypeName {
				return Bottom
			}
		}
		return c
	}
	return Bottom
}

func (c Constant) Join(other DfType) DfType {
	switch o := other.(type) {
	case bottomType:
		return c
	case Constant:
		if c.Equal(o) {
			return c
		}
		return c.asReference().Join(o.asReference())
	case Reference:
		return c.asReference().Join(o)
	}
	return Top
}

func (c Constant) IsSuperType(other DfType) bool {
	return other == Bottom || c.Equal(other)
}

func (c Constant) Equal(other DfType) bool {
	o, ok := other.(Constant)
	return ok && o.TypeName == c.TypeName && o.Value == c.Value
}

func (c Constant) FromRelation(rel relation.Type) DfType {
	switch rel {
	case relation.EQ:
		return c
	case relation.IS:
		return c.asReference()
	}
	return Top
}

func (c Constant) Widen() DfType { return c }

func (c Constant) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%q %s", s, c.TypeName)
	}
	return fmt.Sprintf("%v %s", c.Value, c.TypeName)
}

func (Constant) isDfType() {}
