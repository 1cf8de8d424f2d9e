package memory

import (
	"github.com/cespare/xxhash/v2"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/value"
)

// IsSuperStateOf reports whether every concrete state described by other
// is also described by s, so that other can be dropped in favor of s.
func (s *State) IsSuperStateOf(other *State) bool {
	if s.ephemeral && !other.ephemeral {
		return false
	}
	if s.closure != other.closure || len(s.stack) != len(other.stack) {
		return false
	}
	for i, v := range s.stack {
		o := other.stack[i]
		if v == o {
			continue
		}
		_, vt := v.(*value.TypeValue)
		_, ot := o.(*value.TypeValue)
		if !vt || !ot || !v.Type().IsSuperType(o.Type()) {
			return false
		}
	}
	if !s.escaped.IsSuperset(other.escaped) {
		return false
	}
	for _, id := range unionIDs(s.knownVars(), other.knownVars()) {
		v, ok := s.factory.Value(id).(*value.Variable)
		if !ok {
			continue
		}
		if !s.DfType(v).IsSuperType(other.DfType(v)) {
			return false
		}
		if r := s.rep(id); r != id {
			rv := s.factory.Value(r).(*value.Variable)
			if !other.AreEqual(v, rv) {
				return false
			}
		}
	}
	for itr := s.pairs.Iterator(); !itr.Done(); {
		k, rel, _ := itr.Next()
		lo, hi := unpack(k)
		a, _ := s.factory.Value(lo).(*value.Variable)
		b, _ := s.factory.Value(hi).(*value.Variable)
		known, ok := other.Relation(a, b)
		if !ok || !known.IsSubRelation(rel) {
			return false
		}
	}
	return true
}

// WidenAgainst extrapolates every variable and stack constant whose type
// changed since prev, a previous state at the same instruction.
func (s *State) WidenAgainst(prev *State) {
	for _, id := range unionIDs(s.knownVars(), prev.knownVars()) {
		v, ok := s.factory.Value(id).(*value.Variable)
		if !ok {
			continue
		}
		cur, old := s.DfType(v), prev.DfType(v)
		if cur.Equal(old) {
			continue
		}
		s.types = s.types.Set(id, dftype.WidenAgainst(cur, old))
	}
	if len(s.stack) != len(prev.stack) {
		return
	}
	for i, v := range s.stack {
		o := prev.stack[i]
		_, vt := v.(*value.TypeValue)
		_, ot := o.(*value.TypeValue)
		if vt && ot && !v.Type().Equal(o.Type()) {
			s.stack[i] = s.factory.FromType(dftype.WidenAgainst(v.Type(), o.Type()))
		}
	}
}

// Widen coarsens every tracked variable type.
func (s *State) Widen() {
	for itr := s.types.Iterator(); !itr.Done(); {
		id, t, _ := itr.Next()
		s.types = s.types.Set(id, t.Widen())
	}
}

func unionIDs(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, id := range append(a, b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Fingerprint hashes the printed form of s. Equal states have equal
// fingerprints, so it serves as a cheap first test before IsSuperStateOf.
func (s *State) Fingerprint() uint64 {
	return xxhash.Sum64String(s.String())
}
