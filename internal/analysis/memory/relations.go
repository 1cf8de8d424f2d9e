package memory

import (
	"fmt"
	"slices"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/value"
)

// Pairs are keyed by the packed ids of two class representatives, lower
// id first. Stored relations are NE, LT or GT oriented lo rel hi.

func pack(a, b int) (key int, swapped bool) {
	if a <= b {
		return a<<32 | b, false
	}
	return b<<32 | a, true
}

func unpack(key int) (lo, hi int) {
	return key >> 32, key & 0xffffffff
}

func (s *State) rep(id int) int {
	if r, ok := s.classes.Get(id); ok {
		return r
	}
	return id
}

// members returns rep followed by the other variables of its class.
func (s *State) members(rep int) []int {
	out := []int{rep}
	for itr := s.classes.Iterator(); !itr.Done(); {
		k, r, _ := itr.Next()
		if r == rep && k != rep {
			out = append(out, k)
		}
	}
	return out
}

func (s *State) pair(a, b int) (relation.Type, bool) {
	k, swapped := pack(a, b)
	rel, ok := s.pairs.Get(k)
	if ok && swapped {
		rel, _ = rel.Flipped()
	}
	return rel, ok
}

func (s *State) setPair(a, b int, rel relation.Type) {
	k, swapped := pack(a, b)
	if swapped {
		rel, _ = rel.Flipped()
	}
	s.pairs = s.pairs.Set(k, rel)
}

// Relation returns the relation the state knows to hold between a and b.
func (s *State) Relation(a, b *value.Variable) (relation.Type, bool) {
	ra, rb := s.rep(a.ID()), s.rep(b.ID())
	if ra == rb {
		return relation.EQ, true
	}
	return s.pair(ra, rb)
}

// AreEqual reports whether a and b are known to hold the same value.
func (s *State) AreEqual(a, b *value.Variable) bool {
	return s.rep(a.ID()) == s.rep(b.ID())
}

func (s *State) applyVarRelation(a *value.Variable, rel relation.Type, b *value.Variable) bool {
	if existing, ok := s.Relation(a, b); ok {
		met, ok := rel.Meet(existing)
		if !ok {
			return false
		}
		if met == existing {
			return true
		}
		rel = met
	}
	switch rel {
	case relation.EQ:
		return s.unite(a, b)
	case relation.NE, relation.LT, relation.GT:
		s.setPair(s.rep(a.ID()), s.rep(b.ID()), rel)
	}
	return true
}

// unite merges the classes of a and b. It reports false when they are
// known to differ or their types do not intersect.
func (s *State) unite(a, b *value.Variable) bool {
	ra, rb := s.rep(a.ID()), s.rep(b.ID())
	if ra == rb {
		return true
	}
	if _, ok := s.pair(ra, rb); ok {
		return false
	}
	t := s.DfType(a).Meet(s.DfType(b))
	if dftype.IsBottom(t) {
		return false
	}
	keep, drop := min(ra, rb), max(ra, rb)
	for _, m := range s.members(drop) {
		s.classes = s.classes.Set(m, keep)
	}
	s.classes = s.classes.Set(keep, keep)
	if !s.movePairs(drop, keep) {
		return false
	}
	return s.meetVarType(a, t)
}

// movePairs re-keys every relation of representative from onto to.
func (s *State) movePairs(from, to int) bool {
	snapshot := s.pairs
	for itr := snapshot.Iterator(); !itr.Done(); {
		k, rel, _ := itr.Next()
		lo, hi := unpack(k)
		var other int
		switch from {
		case lo:
			other = hi
		case hi:
			other = lo
			rel, _ = rel.Flipped()
		default:
			continue
		}
		s.pairs = s.pairs.Delete(k)
		if other == to {
			return false
		}
		if existing, ok := s.pair(to, other); ok {
			if rel, ok = rel.Meet(existing); !ok {
				return false
			}
		}
		s.setPair(to, other, rel)
	}
	return true
}

func (s *State) dropPairs(id int) {
	snapshot := s.pairs
	for itr := snapshot.Iterator(); !itr.Done(); {
		k, _, _ := itr.Next()
		if lo, hi := unpack(k); lo == id || hi == id {
			s.pairs = s.pairs.Delete(k)
		}
	}
}

// forget drops the type of a variable and detaches it from its class.
func (s *State) forget(id int) {
	s.types = s.types.Delete(id)
	r, inClass := s.classes.Get(id)
	if !inClass {
		s.dropPairs(id)
		return
	}
	s.classes = s.classes.Delete(id)
	if r != id {
		return
	}
	rest := s.members(id)[1:]
	if len(rest) == 0 {
		s.dropPairs(id)
		return
	}
	next := slices.Min(rest)
	for _, m := range rest {
		s.classes = s.classes.Set(m, next)
	}
	// The class always has a member left to hold its relations.
	s.movePairs(id, next)
}

func (s *State) relationStrings() []string {
	var out []string
	for _, id := range s.knownVars() {
		if r := s.rep(id); r != id {
			out = append(out, fmt.Sprintf("%s == %s", s.factory.Value(id), s.factory.Value(r)))
		}
	}
	for itr := s.pairs.Iterator(); !itr.Done(); {
		k, rel, _ := itr.Next()
		lo, hi := unpack(k)
		out = append(out, fmt.Sprintf("%s %s %s", s.factory.Value(lo), rel, s.factory.Value(hi)))
	}
	slices.Sort(out)
	return out
}
