package dftype

import "github.com/gnolang/dfa/internal/analysis/relation"

// Boolean is a subset of {false, true} encoded as a bit set.
type Boolean uint8

const (
	False Boolean = 1 << iota
	True
	AnyBool = False | True
)

// Bool returns the constant type for b.
func Bool(b bool) DfType {
	if b {
		return True
	}
	return False
}

func fromBool(b Boolean) DfType {
	if b == 0 {
		return Bottom
	}
	return b
}

// Constant returns the single value of b, if any.
func (b Boolean) Constant() (bool, bool) {
	switch b {
	case True:
		return true, true
	case False:
		return false, true
	}
	return false, false
}

func (b Boolean) Meet(other DfType) DfType {
	switch o := other.(type) {
	case topType:
		return b
	case Boolean:
		return fromBool(b & o)
	}
	return Bottom
}

func (b Boolean) Join(other DfType) DfType {
	switch o := other.(type) {
	case bottomType:
		return b
	case Boolean:
		return b | o
	}
	return Top
}

func (b Boolean) IsSuperType(other DfType) bool {
	switch o := other.(type) {
	case bottomType:
		return true
	case Boolean:
		return o&^b == 0
	}
	return false
}

func (b Boolean) Equal(other DfType) bool {
	o, ok := other.(Boolean)
	return ok && o == b
}

func (b Boolean) FromRelation(rel relation.Type) DfType {
	switch rel {
	case relation.EQ:
		return b
	case relation.NE:
		if _, ok := b.Constant(); ok {
			return AnyBool &^ b
		}
		return AnyBool
	}
	return Top
}

func (b Boolean) Widen() DfType { return b }

func (b Boolean) String() string {
	switch b {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "boolean"
}

func (Boolean) isDfType() {}
