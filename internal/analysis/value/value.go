// Package value defines the symbolic values pushed on the abstract operand
// stack. Values are interned by a Factory and are only meaningful inside
// the factory that created them.
package value

import (
	"fmt"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/transfer"
)

// Value is a symbolic value owned by one Factory.
type Value interface {
	ID() int
	Factory() *Factory
	// Type is the type of the value before any state narrows it.
	Type() dftype.DfType
	String() string

	isValue()
}

type handle struct {
	id int
	f  *Factory
}

func (h handle) ID() int           { return h.id }
func (h handle) Factory() *Factory { return h.f }

// TypeValue is a value known only through its type: a constant when the
// type holds a single value, an unknown otherwise.
type TypeValue struct {
	handle
	t dftype.DfType
}

func (v *TypeValue) Type() dftype.DfType { return v.t }
func (v *TypeValue) String() string      { return v.t.String() }
func (*TypeValue) isValue()              {}

// Descriptor identifies a variable relative to its qualifier. Descriptors
// must be comparable.
type Descriptor interface {
	String() string
}

// Local is a local variable or parameter.
type Local struct{ Name string }

// Field is a field of the qualifier object.
type Field struct{ Name string }

// ArrayLength is the length of the qualifier array.
type ArrayLength struct{}

// ArrayElement is the element of the qualifier array at a fixed index.
type ArrayElement struct{ Index int64 }

func (d Local) String() string        { return d.Name }
func (d Field) String() string        { return "." + d.Name }
func (ArrayLength) String() string    { return ".length" }
func (d ArrayElement) String() string { return fmt.Sprintf("[%d]", d.Index) }

// Variable is a memory location whose type is tracked by the state.
type Variable struct {
	handle
	desc      Descriptor
	qualifier *Variable
	declared  dftype.DfType
}

func (v *Variable) Type() dftype.DfType    { return v.declared }
func (v *Variable) Descriptor() Descriptor { return v.desc }
func (v *Variable) Qualifier() *Variable   { return v.qualifier }
func (*Variable) isValue()                 {}

func (v *Variable) String() string {
	if v.qualifier == nil {
		return v.desc.String()
	}
	return v.qualifier.String() + v.desc.String()
}

// DependsOn reports whether q is in the qualifier chain of v.
func (v *Variable) DependsOn(q *Variable) bool {
	for p := v.qualifier; p != nil; p = p.qualifier {
		if p == q {
			return true
		}
	}
	return false
}

// BinOp is an integral operation over a variable, kept symbolic so that
// its range can be recomputed from the current state.
type BinOp struct {
	handle
	left  Value
	op    rangeset.Op
	right Value
	kind  rangeset.Kind
}

func (v *BinOp) Type() dftype.DfType { return dftype.IntAll(v.kind) }
func (v *BinOp) Left() Value         { return v.left }
func (v *BinOp) Op() rangeset.Op     { return v.op }
func (v *BinOp) Right() Value        { return v.right }
func (v *BinOp) Kind() rangeset.Kind { return v.kind }
func (*BinOp) isValue()              {}

func (v *BinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", v.left, v.op, v.right)
}

// TransferValue is a pending control transfer parked on the stack while a
// finally block runs.
type TransferValue struct {
	handle
	transfer *transfer.ControlTransfer
}

func (v *TransferValue) Type() dftype.DfType                 { return dftype.Top }
func (v *TransferValue) Transfer() *transfer.ControlTransfer { return v.transfer }
func (v *TransferValue) String() string                      { return "transfer(" + v.transfer.String() + ")" }
func (*TransferValue) isValue()                              {}

// IsUnknown reports whether v carries no information at all.
func IsUnknown(v Value) bool {
	tv, ok := v.(*TypeValue)
	return ok && tv.t == dftype.Top
}
