package value

import (
	"fmt"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

// Condition is a predicate over values: a constant or a relation.
type Condition interface {
	// Negate returns the complementary condition. Negate is an involution.
	Negate() Condition
	String() string

	isCondition()
}

type constCondition bool

const (
	// True always holds.
	True constCondition = true
	// False never holds.
	False constCondition = false
)

func (c constCondition) Negate() Condition { return !c }
func (constCondition) isCondition()        {}

func (c constCondition) String() string {
	if c {
		return "true"
	}
	return "false"
}

// Relation holds when Left Rel Right.
type Relation struct {
	Left  Value
	Rel   relation.Type
	Right Value
}

func (r Relation) Negate() Condition {
	return Relation{Left: r.Left, Rel: r.Rel.Negated(), Right: r.Right}
}

func (r Relation) String() string {
	return fmt.Sprintf("%s %s %s", r.Left, r.Rel, r.Right)
}

func (Relation) isCondition() {}

// Decided reports whether c is a constant condition and, if so, its value.
func Decided(c Condition) (holds, ok bool) {
	cc, ok := c.(constCondition)
	return bool(cc), ok
}

// Condition builds left rel right, folding it to True or False when the
// operands alone decide it.
func (f *Factory) Condition(left Value, rel relation.Type, right Value) Condition {
	if _, isType := left.(*TypeValue); !isType && left == right && rel.IsOrdering() {
		if _, isFloat := left.Type().(dftype.Float); !isFloat {
			return constCondition(relation.EQ.IsSubRelation(rel))
		}
	}
	lv, lok := left.(*TypeValue)
	rv, rok := right.(*TypeValue)
	if !lok || !rok {
		return Relation{Left: left, Rel: rel, Right: right}
	}
	return Decide(lv.t, rel, rv.t, Relation{Left: left, Rel: rel, Right: right})
}

// Decide folds a relation between two types: False when no pair of values
// satisfies it, True when no pair violates it, otherwise undecided.
func Decide(lt dftype.DfType, rel relation.Type, rt dftype.DfType, undecided Condition) Condition {
	if dftype.IsBottom(dftype.MeetRelation(lt, rel, rt)) {
		return False
	}
	neg := rel.Negated()
	if rel == relation.IS {
		// A null operand makes the check fail, so only a non-null instance
		// decides it positively.
		if rt.IsSuperType(lt) {
			return True
		}
		return undecided
	}
	if neg != relation.IsNot && dftype.IsBottom(dftype.MeetRelation(lt, neg, rt)) {
		return True
	}
	return undecided
}
