package lattice

// Nullability models the nullness lattice for reference values.
//
//	    Unknown
//	       |
//	   Nullable
//	   /      \
//	Null    NotNull
//	   \      /
//	    Bottom
type Nullability int

const (
	Bottom Nullability = iota // unreachable
	Null
	NotNull
	Nullable
	Unknown
)

func (n Nullability) String() string {
	switch n {
	case Bottom:
		return "Bottom"
	case Null:
		return "Null"
	case NotNull:
		return "NotNull"
	case Nullable:
		return "Nullable"
	case Unknown:
		return "Unknown"
	default:
		return "Invalid"
	}
}

// Join returns the least upper bound in the lattice.
func Join(a, b Nullability) Nullability {
	if a == Bottom {
		return b
	}
	if b == Bottom {
		return a
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	if a == Nullable || b == Nullable {
		return Nullable
	}
	if a == b {
		return a
	}
	// Null + NotNull.
	return Nullable
}

// Meet returns the greatest lower bound in the lattice.
func Meet(a, b Nullability) Nullability {
	if a == Bottom || b == Bottom {
		return Bottom
	}
	if a == Unknown {
		return b
	}
	if b == Unknown {
		return a
	}
	if a == b {
		return a
	}
	if a == Nullable && (b == Null || b == NotNull) {
		return b
	}
	if b == Nullable && (a == Null || a == NotNull) {
		return a
	}
	return Bottom
}

// Leq reports whether a is below or equal to b.
func Leq(a, b Nullability) bool {
	return Join(a, b) == b
}

// CanBeNull reports whether a value with nullability n may be null.
func (n Nullability) CanBeNull() bool {
	return n == Null || n == Nullable || n == Unknown
}

// CanBeNotNull reports whether a value with nullability n may be non-null.
func (n Nullability) CanBeNotNull() bool {
	return n == NotNull || n == Nullable || n == Unknown
}
