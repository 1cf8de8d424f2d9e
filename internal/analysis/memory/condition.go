package memory

import (
	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/value"
)

// ApplyCondition narrows s so that c holds. When c contradicts what s
// already knows it returns false and leaves s unchanged.
func (s *State) ApplyCondition(c value.Condition) bool {
	switch c := c.(type) {
	case value.Relation:
		next := s.Copy()
		if !next.applyRelation(c.Left, c.Rel, c.Right) {
			return false
		}
		*s = *next
		return true
	}
	holds, _ := value.Decided(c)
	return holds
}

func (s *State) applyRelation(l value.Value, rel relation.Type, r value.Value) bool {
	if value.IsUnknown(l) || value.IsUnknown(r) {
		return true
	}
	lt, rt := s.DfType(l), s.DfType(r)

	nl := dftype.MeetRelation(lt, rel, rt)
	if dftype.IsBottom(nl) {
		return false
	}
	lv, lok := l.(*value.Variable)
	if lok && !s.meetVarType(lv, nl) {
		return false
	}
	rv, rok := r.(*value.Variable)
	if flipped, ok := rel.Flipped(); ok {
		nr := dftype.MeetRelation(rt, flipped, lt)
		if dftype.IsBottom(nr) {
			return false
		}
		if rok && !s.meetVarType(rv, nr) {
			return false
		}
	}
	if lok && rok && rel.IsOrdering() {
		return s.applyVarRelation(lv, rel, rv)
	}
	return true
}

// Evaluate folds c to True or False when s decides it and returns c
// unchanged otherwise.
func (s *State) Evaluate(c value.Condition) value.Condition {
	r, ok := c.(value.Relation)
	if !ok || value.IsUnknown(r.Left) || value.IsUnknown(r.Right) {
		return c
	}
	lv, lok := r.Left.(*value.Variable)
	rv, rok := r.Right.(*value.Variable)
	if lok && rok && r.Rel.IsOrdering() {
		if known, ok := s.Relation(lv, rv); ok {
			if known.IsSubRelation(r.Rel) {
				return value.True
			}
			if _, ok := known.Meet(r.Rel); !ok {
				return value.False
			}
		}
	}
	return value.Decide(s.DfType(r.Left), r.Rel, s.DfType(r.Right), c)
}

// ShouldCompareByEquals reports whether an identity comparison of l and r
// cannot be decided from their values alone: both are objects and at least
// one is a constant whose identity is unknown.
func (s *State) ShouldCompareByEquals(l, r value.Value) bool {
	if l == r {
		return false
	}
	lt, rt := s.DfType(l), s.DfType(r)
	_, lconst := lt.(dftype.Constant)
	_, rconst := rt.(dftype.Constant)
	return isObject(lt) && isObject(rt) && (lconst || rconst)
}

func isObject(t dftype.DfType) bool {
	switch t := t.(type) {
	case dftype.Constant:
		return true
	case dftype.Reference:
		return t.Null != lattice.Null
	}
	return false
}
