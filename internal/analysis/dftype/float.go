package dftype

import (
	"fmt"
	"math"

	"github.com/gnolang/dfa/internal/analysis/relation"
)

// Float is a set of floating point values: an optional closed range plus
// an optional NaN. Ordered comparisons never hold for NaN.
type Float struct {
	Lo, Hi   float64
	HasRange bool
	NaN      bool
}

// FloatValue returns the constant v.
func FloatValue(v float64) DfType {
	if math.IsNaN(v) {
		return NaN()
	}
	return Float{Lo: v, Hi: v, HasRange: true}
}

// FloatRange returns the closed range [lo, hi] without NaN.
func FloatRange(lo, hi float64) DfType {
	return mkFloat(lo, hi, lo <= hi, false)
}

// FloatAll returns every float including NaN.
func FloatAll() DfType {
	return Float{Lo: math.Inf(-1), Hi: math.Inf(1), HasRange: true, NaN: true}
}

// NaN returns the type holding only NaN.
func NaN() DfType { return Float{NaN: true} }

func mkFloat(lo, hi float64, hasRange, nan bool) DfType {
	if !hasRange || lo > hi {
		if !nan {
			return Bottom
		}
		return Float{NaN: true}
	}
	return Float{Lo: lo, Hi: hi, HasRange: true, NaN: nan}
}

func (f Float) Meet(other DfType) DfType {
	switch o := other.(type) {
	case topType:
		return f
	case Float:
		hasRange := f.HasRange && o.HasRange
		return mkFloat(math.Max(f.Lo, o.Lo), math.Min(f.Hi, o.Hi), hasRange, f.NaN && o.NaN)
	}
	return Bottom
}

func (f Float) Join(other DfType) DfType {
	switch o := other.(type) {
	case bottomType:
		return f
	case Float:
		switch {
		case !f.HasRange:
			return mkFloat(o.Lo, o.Hi, o.HasRange, f.NaN || o.NaN)
		case !o.HasRange:
			return mkFloat(f.Lo, f.Hi, f.HasRange, f.NaN || o.NaN)
		}
		return mkFloat(math.Min(f.Lo, o.Lo), math.Max(f.Hi, o.Hi), true, f.NaN || o.NaN)
	}
	return Top
}

func (f Float) IsSuperType(other DfType) bool {
	switch o := other.(type) {
	case bottomType:
		return true
	case Float:
		if o.NaN && !f.NaN {
			return false
		}
		if !o.HasRange {
			return true
		}
		return f.HasRange && f.Lo <= o.Lo && f.Hi >= o.Hi
	}
	return false
}

func (f Float) Equal(other DfType) bool {
	o, ok := other.(Float)
	return ok && f.IsSuperType(o) && o.IsSuperType(f)
}

// FromRelation drops NaN for every relation but NE: NaN is unequal to
// everything, itself included.
func (f Float) FromRelation(rel relation.Type) DfType {
	if rel == relation.NE {
		return FloatAll()
	}
	if !f.HasRange || !rel.IsOrdering() {
		if rel.IsOrdering() {
			return Bottom
		}
		return Top
	}
	inf := math.Inf(1)
	switch rel {
	case relation.EQ:
		return mkFloat(f.Lo, f.Hi, true, false)
	case relation.LT:
		if f.Hi == -inf {
			return Bottom
		}
		return mkFloat(-inf, f.Hi, true, false)
	case relation.LE:
		return mkFloat(-inf, f.Hi, true, false)
	case relation.GT:
		if f.Lo == inf {
			return Bottom
		}
		return mkFloat(f.Lo, inf, true, false)
	case relation.GE:
		return mkFloat(f.Lo, inf, true, false)
	}
	return Top
}

func (f Float) Widen() DfType {
	if !f.HasRange {
		return f
	}
	return mkFloat(math.Inf(-1), math.Inf(1), true, f.NaN)
}

func (f Float) widenAgainst(prev Float) DfType {
	if !f.HasRange || !prev.HasRange {
		return f.Join(prev)
	}
	lo, hi := prev.Lo, prev.Hi
	if f.Lo < lo {
		lo = math.Inf(-1)
	}
	if f.Hi > hi {
		hi = math.Inf(1)
	}
	return mkFloat(lo, hi, true, f.NaN || prev.NaN)
}

func (f Float) String() string {
	switch {
	case !f.HasRange && f.NaN:
		return "NaN"
	case f.Lo == math.Inf(-1) && f.Hi == math.Inf(1):
		if f.NaN {
			return "float"
		}
		return "float!NaN"
	}
	s := fmt.Sprintf("float{%g..%g}", f.Lo, f.Hi)
	if f.Lo == f.Hi {
		s = fmt.Sprintf("float{%g}", f.Lo)
	}
	if f.NaN {
		s += "|NaN"
	}
	return s
}

func (Float) isDfType() {}
