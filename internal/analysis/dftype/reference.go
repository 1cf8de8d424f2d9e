package dftype

import (
	"slices"
	"strings"

	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/relation"
)

// Reference is a set of object references. Instance and NotInstance
// constrain only the non-null part and compare type names for equality;
// there is no subtyping.
type Reference struct {
	Null        lattice.Nullability
	Instance    []string
	NotInstance []string
}

// NullRef holds only the null reference.
func NullRef() DfType { return Reference{Null: lattice.Null} }

// NotNullRef holds non-null references that are instances of every
// named type.
func NotNullRef(types ...string) DfType {
	return mkRef(lattice.NotNull, types, nil)
}

// NullableRef holds references that are annotated as possibly null.
func NullableRef(types ...string) DfType {
	return mkRef(lattice.Nullable, types, nil)
}

// UnknownRef holds any reference.
func UnknownRef() DfType { return Reference{Null: lattice.Unknown} }

// InstanceOf is the type tested by an instanceof check of name.
func InstanceOf(name string) DfType { return NotNullRef(name) }

func mkRef(null lattice.Nullability, inst, notInst []string) DfType {
	if null == lattice.Bottom {
		return Bottom
	}
	inst, notInst = normalize(inst), normalize(notInst)
	if intersects(inst, notInst) {
		// The non-null part is empty.
		if !null.CanBeNull() {
			return Bottom
		}
		null = lattice.Null
	}
	if null == lattice.Null {
		return Reference{Null: lattice.Null}
	}
	return Reference{Null: null, Instance: inst, NotInstance: notInst}
}

func (r Reference) Meet(other DfType) DfType {
	switch o := other.(type) {
	case topType:
		return r
	case Reference:
		return mkRef(lattice.Meet(r.Null, o.Null), union(r.Instance, o.Instance), union(r.NotInstance, o.NotInstance))
	case Constant:
		return o.Meet(r)
	}
	return Bottom
}

func (r Reference) Join(other DfType) DfType {
	switch o := other.(type) {
	case bottomType:
		return r
	case Reference:
		null := lattice.Join(r.Null, o.Null)
		switch {
		case r.Null == lattice.Null:
			return mkRef(null, o.Instance, o.NotInstance)
		case o.Null == lattice.Null:
			return mkRef(null, r.Instance, r.NotInstance)
		}
		return mkRef(null, intersect(r.Instance, o.Instance), intersect(r.NotInstance, o.NotInstance))
	case Constant:
		return r.Join(o.asReference())
	}
	return Top
}

func (r Reference) IsSuperType(other DfType) bool {
	switch o := other.(type) {
	case bottomType:
		return true
	case Reference:
		if !lattice.Leq(o.Null, r.Null) {
			return false
		}
		if o.Null == lattice.Null {
			return true
		}
		return subset(r.Instance, o.Instance) && subset(r.NotInstance, o.NotInstance)
	case Constant:
		return r.Meet(o).Equal(o)
	}
	return false
}

func (r Reference) Equal(other DfType) bool {
	o, ok := other.(Reference)
	return ok && o.Null == r.Null && slices.Equal(o.Instance, r.Instance) && slices.Equal(o.NotInstance, r.NotInstance)
}

func (r Reference) FromRelation(rel relation.Type) DfType {
	switch rel {
	case relation.EQ, relation.IS:
		return r
	case relation.NE:
		if r.Null == lattice.Null {
			return Reference{Null: lattice.NotNull}
		}
		return UnknownRef()
	case relation.IsNot:
		if r.Null == lattice.NotNull && len(r.Instance) == 1 && len(r.NotInstance) == 0 {
			return mkRef(lattice.Unknown, nil, r.Instance)
		}
		return UnknownRef()
	}
	return Top
}

func (r Reference) Widen() DfType { return r }

func (r Reference) String() string {
	var b strings.Builder
	switch r.Null {
	case lattice.Null:
		return "null"
	case lattice.NotNull:
		b.WriteString("!null")
	case lattice.Nullable:
		b.WriteString("?null")
	default:
		b.WriteString("ref")
	}
	if len(r.Instance) > 0 {
		b.WriteString(" instanceof " + strings.Join(r.Instance, ","))
	}
	if len(r.NotInstance) > 0 {
		b.WriteString(" !instanceof " + strings.Join(r.NotInstance, ","))
	}
	return b.String()
}

func (Reference) isDfType() {}

func normalize(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

func union(a, b []string) []string {
	return normalize(append(slices.Clone(a), b...))
}

func intersect(a, b []string) []string {
	var out []string
	for _, s := range a {
		if slices.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	return len(intersect(a, b)) > 0
}

// subset reports whether every element of a is in b.
func subset(a, b []string) bool {
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}
