package rangeset

import (
	"math"
	"math/bits"
)

// Op is a binary integral operator.
type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
	UShr
)

func (o Op) String() string {
	return [...]string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", ">>>"}[o]
}

// maxPairs bounds the interval-by-interval evaluation before falling back
// to hulls.
const maxPairs = 16

// Eval applies op to every pair of elements of s and other. Addition and
// subtraction wrap around like two's complement values of k; any other
// result that overflows k yields the whole range of k. Division and
// remainder ignore a zero divisor; the caller checks for it separately.
// Shift distances are masked to the width of k.
func (s Set) Eval(op Op, other Set, k Kind) Set {
	if s.IsEmpty() || other.IsEmpty() {
		return Empty()
	}
	if op == Div || op == Mod {
		other = other.Without(0)
		if other.IsEmpty() {
			return Empty()
		}
	}
	if op >= Shl {
		other = shiftDistance(other, k)
	}
	a, b := s.iv, other.iv
	if len(a)*len(b) > maxPairs {
		a, b = s.Hull().iv, other.Hull().iv
	}
	var out []Interval
	for _, x := range a {
		for _, y := range b {
			switch op {
			case Add, Sub:
				out = append(out, wrapSum(op, x, y, k)...)
				continue
			case And, Or, Xor:
				out = append(out, bitwise(op, x, y))
				continue
			case Shr, UShr:
				out = append(out, shiftRight(op, x, y, k)...)
				continue
			}
			r, ok := evalInterval(op, x, y)
			if !ok || r.Lo < k.Min() || r.Hi > k.Max() {
				return All(k)
			}
			out = append(out, r)
		}
	}
	return Of(out...)
}

// Negate returns {-x | x in s}. The negation of the minimum of k is the
// minimum itself.
func (s Set) Negate(k Kind) Set {
	return Point(0).Eval(Sub, s, k)
}

// Cast converts s to kind k. Values that do not fit make the result the
// whole range of k.
func (s Set) Cast(k Kind) Set {
	if s.IsEmpty() {
		return s
	}
	if s.Min() < k.Min() || s.Max() > k.Max() {
		return All(k)
	}
	return s
}

func (k Kind) bits() uint {
	if k == Long {
		return 64
	}
	return 32
}

// wrap truncates v to the width of k.
func (k Kind) wrap(v int64) int64 {
	if k == Long {
		return v
	}
	return int64(int32(v))
}

// wrapSum computes x+y or x-y modulo the width of k. A result that wraps
// part way splits into a high and a low interval.
func wrapSum(op Op, x, y Interval, k Kind) []Interval {
	wx, wy := uint64(x.Hi-x.Lo), uint64(y.Hi-y.Lo)
	w := wx + wy
	if w < wx || (k != Long && w >= 1<<32-1) || w == math.MaxUint64 {
		return []Interval{{k.Min(), k.Max()}}
	}
	var lo int64
	if op == Add {
		lo = k.wrap(int64(uint64(x.Lo) + uint64(y.Lo)))
	} else {
		lo = k.wrap(int64(uint64(x.Lo) - uint64(y.Hi)))
	}
	hi := k.wrap(int64(uint64(lo) + w))
	if lo <= hi {
		return []Interval{{lo, hi}}
	}
	return []Interval{{lo, k.Max()}, {k.Min(), hi}}
}

// mask returns the smallest 2^n-1 not below v, for v >= 0.
func mask(v int64) int64 {
	return int64(1)<<bits.Len64(uint64(v)) - 1
}

// signs splits x at zero into its negative and non-negative parts.
func signs(x Interval) []Interval {
	if x.Lo >= 0 || x.Hi < 0 {
		return []Interval{x}
	}
	return []Interval{{x.Lo, -1}, {0, x.Hi}}
}

// bitwise bounds x op y for the bitwise operators. Both operands are split
// by sign; within one sign pair the bounds follow from the highest bit
// either operand can set.
func bitwise(op Op, x, y Interval) Interval {
	out := Interval{Lo: math.MaxInt64, Hi: math.MinInt64}
	for _, a := range signs(x) {
		for _, b := range signs(y) {
			p, q := a, b
			if p.Lo < 0 && q.Lo >= 0 {
				p, q = q, p
			}
			r := bitwiseSigned(op, p, q)
			out.Lo = min(out.Lo, r.Lo)
			out.Hi = max(out.Hi, r.Hi)
		}
	}
	return out
}

// bitwiseSigned handles operands of a single sign each. When the signs
// differ, a is the non-negative one.
func bitwiseSigned(op Op, a, b Interval) Interval {
	aNeg, bNeg := a.Hi < 0, b.Hi < 0
	switch op {
	case And:
		switch {
		case !aNeg && !bNeg:
			return Interval{0, min(a.Hi, b.Hi)}
		case !aNeg:
			return Interval{0, a.Hi}
		default:
			return Interval{^mask(^min(a.Lo, b.Lo)), min(a.Hi, b.Hi)}
		}
	case Or:
		switch {
		case !aNeg && !bNeg:
			return Interval{max(a.Lo, b.Lo), mask(max(a.Hi, b.Hi))}
		case !aNeg:
			return Interval{b.Lo, -1}
		default:
			return Interval{max(a.Lo, b.Lo), -1}
		}
	default:
		switch {
		case !aNeg && !bNeg:
			return Interval{0, mask(max(a.Hi, b.Hi))}
		case !aNeg:
			return Interval{^mask(max(a.Hi, ^b.Lo)), -1}
		default:
			return Interval{0, mask(max(^a.Lo, ^b.Lo))}
		}
	}
}

// shiftDistance masks the shift distances in s to the width of k.
func shiftDistance(s Set, k Kind) Set {
	limit := int64(k.bits()) - 1
	if s.Min() >= 0 && s.Max() <= limit {
		return s
	}
	if c, ok := s.Constant(); ok {
		return Point(c & limit)
	}
	return Range(0, limit)
}

func shiftLeft(x, y Interval) (Interval, bool) {
	out := Interval{Lo: math.MaxInt64, Hi: math.MinInt64}
	for c := y.Lo; c <= y.Hi; c++ {
		if c == 63 {
			return Interval{}, false
		}
		lo, ok1 := mul(x.Lo, int64(1)<<c)
		hi, ok2 := mul(x.Hi, int64(1)<<c)
		if !ok1 || !ok2 {
			return Interval{}, false
		}
		out.Lo = min(out.Lo, lo)
		out.Hi = max(out.Hi, hi)
	}
	return out, true
}

// shiftRight bounds x >> y and x >>> y. Arithmetic shifts are monotonic in
// both operands for a fixed sign, so the corners bound them. A logical
// shift of a negative value by at least one bit is non-negative.
func shiftRight(op Op, x, y Interval, k Kind) []Interval {
	var out []Interval
	for _, part := range signs(x) {
		if op == Shr || part.Lo >= 0 {
			r, _ := corners(part, y, func(a, c int64) (int64, bool) { return a >> uint(c), true })
			out = append(out, r)
			continue
		}
		if y.Lo == 0 {
			out = append(out, part)
		}
		lo := max(y.Lo, 1)
		if lo > y.Hi {
			continue
		}
		out = append(out, Interval{ushr(part.Lo, y.Hi, k), ushr(part.Hi, lo, k)})
	}
	return out
}

func ushr(v, c int64, k Kind) int64 {
	if k == Long {
		return int64(uint64(v) >> uint(c))
	}
	return int64(uint32(v) >> uint(c))
}

func evalInterval(op Op, x, y Interval) (Interval, bool) {
	switch op {
	case Mul:
		return corners(x, y, mul)
	case Div:
		if y.Lo < 0 && y.Hi > 0 {
			neg, ok1 := corners(x, Interval{y.Lo, -1}, div)
			pos, ok2 := corners(x, Interval{1, y.Hi}, div)
			return Interval{min(neg.Lo, pos.Lo), max(neg.Hi, pos.Hi)}, ok1 && ok2
		}
		return corners(x, y, div)
	case Mod:
		return rem(x, y), true
	case Shl:
		return shiftLeft(x, y)
	}
	return Interval{}, false
}

func corners(x, y Interval, f func(a, b int64) (int64, bool)) (Interval, bool) {
	out := Interval{Lo: math.MaxInt64, Hi: math.MinInt64}
	for _, a := range []int64{x.Lo, x.Hi} {
		for _, b := range []int64{y.Lo, y.Hi} {
			r, ok := f(a, b)
			if !ok {
				return Interval{}, false
			}
			out.Lo = min(out.Lo, r)
			out.Hi = max(out.Hi, r)
		}
	}
	return out, true
}

// rem bounds x % y using the sign of the dividend and the largest divisor
// magnitude.
func rem(x, y Interval) Interval {
	m := max(abs(y.Lo), abs(y.Hi)) - 1
	lo, hi := -m, m
	if x.Lo >= 0 {
		lo = 0
		hi = min(hi, x.Hi)
	}
	if x.Hi <= 0 {
		hi = 0
		lo = max(lo, x.Lo)
	}
	return Interval{lo, hi}
}

func abs(v int64) int64 {
	if v == math.MinInt64 {
		return math.MaxInt64
	}
	if v < 0 {
		return -v
	}
	return v
}

func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func div(a, b int64) (int64, bool) {
	if a == math.MinInt64 && b == -1 {
		return 0, false
	}
	return a / b, true
}
