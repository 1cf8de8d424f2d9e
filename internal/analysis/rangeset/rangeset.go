// Package rangeset implements sets of integers represented as sorted,
// disjoint, non-adjacent closed intervals.
package rangeset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gnolang/dfa/internal/analysis/relation"
)

// Kind is the width of an integral type.
type Kind uint8

const (
	Int Kind = iota
	Long
)

func (k Kind) String() string {
	if k == Long {
		return "long"
	}
	return "int"
}

// Min is the smallest representable value of k.
func (k Kind) Min() int64 {
	if k == Long {
		return math.MinInt64
	}
	return math.MinInt32
}

// Max is the largest representable value of k.
func (k Kind) Max() int64 {
	if k == Long {
		return math.MaxInt64
	}
	return math.MaxInt32
}

// Interval is the closed range [Lo, Hi].
type Interval struct {
	Lo, Hi int64
}

// Set is an immutable set of integers. The zero value is the empty set.
type Set struct {
	iv []Interval
}

// Empty returns the empty set.
func Empty() Set { return Set{} }

// Point returns the set holding only v.
func Point(v int64) Set { return Set{iv: []Interval{{v, v}}} }

// Range returns [lo, hi], or the empty set when lo > hi.
func Range(lo, hi int64) Set {
	if lo > hi {
		return Set{}
	}
	return Set{iv: []Interval{{lo, hi}}}
}

// All returns every value representable in k.
func All(k Kind) Set { return Range(k.Min(), k.Max()) }

// Of builds a set from arbitrary, possibly overlapping intervals.
func Of(ivs ...Interval) Set {
	var in []Interval
	for _, i := range ivs {
		if i.Lo <= i.Hi {
			in = append(in, i)
		}
	}
	if len(in) == 0 {
		return Set{}
	}
	sort.Slice(in, func(a, b int) bool { return in[a].Lo < in[b].Lo })
	out := []Interval{in[0]}
	for _, i := range in[1:] {
		last := &out[len(out)-1]
		if last.Hi == math.MaxInt64 || i.Lo <= last.Hi+1 {
			if i.Hi > last.Hi {
				last.Hi = i.Hi
			}
			continue
		}
		out = append(out, i)
	}
	return Set{iv: out}
}

func (s Set) IsEmpty() bool { return len(s.iv) == 0 }

// Intervals returns a copy of the intervals of s.
func (s Set) Intervals() []Interval {
	return append([]Interval(nil), s.iv...)
}

// Min returns the smallest element. It panics on the empty set.
func (s Set) Min() int64 { return s.iv[0].Lo }

// Max returns the largest element. It panics on the empty set.
func (s Set) Max() int64 { return s.iv[len(s.iv)-1].Hi }

// Constant returns the only element of s, if s is a singleton.
func (s Set) Constant() (int64, bool) {
	if len(s.iv) == 1 && s.iv[0].Lo == s.iv[0].Hi {
		return s.iv[0].Lo, true
	}
	return 0, false
}

func (s Set) Contains(v int64) bool {
	for _, i := range s.iv {
		if v >= i.Lo && v <= i.Hi {
			return true
		}
	}
	return false
}

// ContainsSet reports whether other is a subset of s.
func (s Set) ContainsSet(other Set) bool {
	return other.Subtract(s).IsEmpty()
}

func (s Set) Equal(other Set) bool {
	if len(s.iv) != len(other.iv) {
		return false
	}
	for i := range s.iv {
		if s.iv[i] != other.iv[i] {
			return false
		}
	}
	return true
}

// IsAll reports whether s spans the whole of k.
func (s Set) IsAll(k Kind) bool {
	return len(s.iv) == 1 && s.iv[0].Lo <= k.Min() && s.iv[0].Hi >= k.Max()
}

// Meet returns the intersection.
func (s Set) Meet(other Set) Set {
	var out []Interval
	i, j := 0, 0
	for i < len(s.iv) && j < len(other.iv) {
		a, b := s.iv[i], other.iv[j]
		lo, hi := max(a.Lo, b.Lo), min(a.Hi, b.Hi)
		if lo <= hi {
			out = append(out, Interval{lo, hi})
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return Set{iv: out}
}

// Join returns the union.
func (s Set) Join(other Set) Set {
	return Of(append(s.Intervals(), other.iv...)...)
}

// Subtract returns the elements of s that are not in other.
func (s Set) Subtract(other Set) Set {
	out := s.Intervals()
	for _, cut := range other.iv {
		var next []Interval
		for _, i := range out {
			if cut.Hi < i.Lo || cut.Lo > i.Hi {
				next = append(next, i)
				continue
			}
			if cut.Lo > i.Lo {
				next = append(next, Interval{i.Lo, cut.Lo - 1})
			}
			if cut.Hi < i.Hi {
				next = append(next, Interval{cut.Hi + 1, i.Hi})
			}
		}
		out = next
	}
	return Set{iv: out}
}

// Without removes a single value.
func (s Set) Without(v int64) Set { return s.Subtract(Point(v)) }

// Hull returns the smallest single interval containing s.
func (s Set) Hull() Set {
	if s.IsEmpty() {
		return s
	}
	return Range(s.Min(), s.Max())
}

// FromRelation returns the set of values x of kind k such that x rel y
// holds for some y in s.
func (s Set) FromRelation(rel relation.Type, k Kind) Set {
	if s.IsEmpty() {
		return s
	}
	switch rel {
	case relation.EQ:
		return s
	case relation.NE:
		if c, ok := s.Constant(); ok {
			return All(k).Without(c)
		}
		return All(k)
	case relation.GT:
		if s.Min() >= k.Max() {
			return Empty()
		}
		return Range(s.Min()+1, k.Max())
	case relation.GE:
		return Range(s.Min(), k.Max())
	case relation.LT:
		if s.Max() <= k.Min() {
			return Empty()
		}
		return Range(k.Min(), s.Max()-1)
	case relation.LE:
		return Range(k.Min(), s.Max())
	}
	return All(k)
}

// WidenAgainst extrapolates s away from prev: every bound that moved since
// prev is pushed to the edge of k. The result contains both s and prev.
func (s Set) WidenAgainst(prev Set, k Kind) Set {
	if prev.IsEmpty() || s.IsEmpty() {
		return s.Join(prev)
	}
	lo, hi := prev.Min(), prev.Max()
	if s.Min() < lo {
		lo = k.Min()
	}
	if s.Max() > hi {
		hi = k.Max()
	}
	return Range(lo, hi).Join(s)
}

func (s Set) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	parts := make([]string, 0, len(s.iv))
	for _, i := range s.iv {
		if i.Lo == i.Hi {
			parts = append(parts, strconv.FormatInt(i.Lo, 10))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d..%d", i.Lo, i.Hi))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
