// Package relation models the binary relations the interpreter reasons
// about. Ordering relations are encoded as bit sets over the three atomic
// outcomes {LT, EQ, GT}, which makes negation, flipping and meeting plain
// bit operations.
package relation

import "fmt"

// Type is a relation between two values.
type Type uint8

const (
	LT Type = 1 << iota
	EQ
	GT
	IS
	IsNot

	NE = LT | GT
	LE = LT | EQ
	GE = GT | EQ

	// None is the empty relation; no pair of values satisfies it.
	None Type = 0

	ordering = LT | EQ | GT
)

func (t Type) String() string {
	switch t {
	case EQ:
		return "=="
	case NE:
		return "!="
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	case IS:
		return "instanceof"
	case IsNot:
		return "!instanceof"
	case None:
		return "none"
	case ordering:
		return "any"
	default:
		return fmt.Sprintf("relation(%d)", uint8(t))
	}
}

// Parse returns the relation spelled by s.
func Parse(s string) (Type, error) {
	switch s {
	case "==", "eq":
		return EQ, nil
	case "!=", "ne":
		return NE, nil
	case "<", "lt":
		return LT, nil
	case "<=", "le":
		return LE, nil
	case ">", "gt":
		return GT, nil
	case ">=", "ge":
		return GE, nil
	case "instanceof", "is":
		return IS, nil
	case "!instanceof", "isnot":
		return IsNot, nil
	}
	return None, fmt.Errorf("unknown relation %q", s)
}

// IsOrdering reports whether t is built only from LT, EQ and GT.
func (t Type) IsOrdering() bool {
	return t != None && t&^ordering == 0
}

// IsEquality reports whether t is EQ or NE.
func (t Type) IsEquality() bool {
	return t == EQ || t == NE
}

// Negated returns the relation that holds exactly when t does not.
// Negation is an involution.
func (t Type) Negated() Type {
	switch t {
	case IS:
		return IsNot
	case IsNot:
		return IS
	}
	return ^t & ordering
}

// Flipped returns the relation obtained by swapping the operands, so that
// a t b holds iff b t.Flipped() a. The type-membership relations have no
// flipped form and report false.
func (t Type) Flipped() (Type, bool) {
	if !t.IsOrdering() {
		return None, false
	}
	out := t & EQ
	if t&LT != 0 {
		out |= GT
	}
	if t&GT != 0 {
		out |= LT
	}
	return out, true
}

// Meet returns the relation implied by both t and other holding at once.
// The second result is false when the two are contradictory.
func (t Type) Meet(other Type) (Type, bool) {
	if t.IsOrdering() != other.IsOrdering() {
		return None, false
	}
	out := t & other
	return out, out != None
}

// IsSubRelation reports whether t implies other.
func (t Type) IsSubRelation(other Type) bool {
	return t != None && t&^other == None
}

// Atomic splits an ordering relation into its atomic components, ordered
// LT, GT, EQ.
func (t Type) Atomic() []Type {
	var out []Type
	for _, a := range []Type{LT, GT, EQ} {
		if t&a != 0 {
			out = append(out, a)
		}
	}
	return out
}

// AllAtomic is the split of an unconstrained ordering.
func AllAtomic() []Type {
	return []Type{LT, GT, EQ}
}
