package value

import (
	"fmt"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/transfer"
)

type varKey struct {
	desc      Descriptor
	qualifier int
}

type binOpKey struct {
	left, right int
	op          rangeset.Op
	kind        rangeset.Kind
}

// Factory interns the values of one analysis run. It is not safe for
// concurrent use; every run owns its own factory.
type Factory struct {
	values    []Value
	types     map[string]*TypeValue
	vars      map[varKey]*Variable
	binOps    map[binOpKey]*BinOp
	transfers map[*transfer.ControlTransfer]*TransferValue
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{
		types:     make(map[string]*TypeValue),
		vars:      make(map[varKey]*Variable),
		binOps:    make(map[binOpKey]*BinOp),
		transfers: make(map[*transfer.ControlTransfer]*TransferValue),
	}
}

func (f *Factory) next() handle {
	return handle{id: len(f.values), f: f}
}

// Value returns the value with the given id.
func (f *Factory) Value(id int) Value {
	if id < 0 || id >= len(f.values) {
		return nil
	}
	return f.values[id]
}

// Size returns the number of values created so far.
func (f *Factory) Size() int { return len(f.values) }

// FromType returns the value described only by t.
func (f *Factory) FromType(t dftype.DfType) *TypeValue {
	key := fmt.Sprintf("%T/%s", t, t)
	if v, ok := f.types[key]; ok {
		return v
	}
	v := &TypeValue{handle: f.next(), t: t}
	f.values = append(f.values, v)
	f.types[key] = v
	return v
}

// Unknown returns the value about which nothing is known.
func (f *Factory) Unknown() *TypeValue { return f.FromType(dftype.Top) }

// Int returns the int constant v.
func (f *Factory) Int(v int64) *TypeValue {
	return f.FromType(dftype.IntValue(rangeset.Int, v))
}

// Bool returns the boolean constant b.
func (f *Factory) Bool(b bool) *TypeValue { return f.FromType(dftype.Bool(b)) }

// Null returns the null constant.
func (f *Factory) Null() *TypeValue { return f.FromType(dftype.NullRef()) }

// Var returns the variable described by desc relative to qualifier, which
// may be nil. declared is used only when the variable is first created.
func (f *Factory) Var(desc Descriptor, qualifier *Variable, declared dftype.DfType) *Variable {
	key := varKey{desc: desc, qualifier: -1}
	if qualifier != nil {
		key.qualifier = qualifier.id
	}
	if v, ok := f.vars[key]; ok {
		return v
	}
	if declared == nil {
		declared = dftype.Top
	}
	v := &Variable{handle: f.next(), desc: desc, qualifier: qualifier, declared: declared}
	f.values = append(f.values, v)
	f.vars[key] = v
	return v
}

// Local returns the local variable name.
func (f *Factory) Local(name string, declared dftype.DfType) *Variable {
	return f.Var(Local{Name: name}, nil, declared)
}

// ArrayLength returns the length variable of array.
func (f *Factory) ArrayLength(array *Variable) *Variable {
	return f.Var(ArrayLength{}, array, dftype.IntRange(rangeset.Int, 0, rangeset.Int.Max()))
}

// ArrayElement returns the element of array at a constant index.
func (f *Factory) ArrayElement(array *Variable, index int64, declared dftype.DfType) *Variable {
	return f.Var(ArrayElement{Index: index}, array, declared)
}

// BinOp returns left op right. Constant operands are folded; an operation
// whose left side is not a variable decays to its result type.
func (f *Factory) BinOp(left Value, op rangeset.Op, right Value, kind rangeset.Kind) Value {
	lt, lok := left.Type().(dftype.Integral)
	rt, rok := right.Type().(dftype.Integral)
	_, lvar := left.(*Variable)
	if !lvar {
		if lok && rok {
			return f.FromType(lt.Eval(op, rt, kind))
		}
		return f.FromType(dftype.ArithFallback(left.Type(), right.Type()))
	}
	key := binOpKey{left: left.ID(), right: right.ID(), op: op, kind: kind}
	if v, ok := f.binOps[key]; ok {
		return v
	}
	v := &BinOp{handle: f.next(), left: left, op: op, right: right, kind: kind}
	f.values = append(f.values, v)
	f.binOps[key] = v
	return v
}

// Transfer wraps a pending control transfer.
func (f *Factory) Transfer(t *transfer.ControlTransfer) *TransferValue {
	if v, ok := f.transfers[t]; ok {
		return v
	}
	v := &TransferValue{handle: f.next(), transfer: t}
	f.values = append(f.values, v)
	f.transfers[t] = v
	return v
}

// Rebind returns the value of f that corresponds to v, recreating v and
// everything it refers to. Rebinding a value that f already owns returns
// it unchanged.
func (f *Factory) Rebind(v Value) Value {
	if v == nil || v.Factory() == f {
		return v
	}
	switch v := v.(type) {
	case *TypeValue:
		return f.FromType(v.t)
	case *Variable:
		var q *Variable
		if v.qualifier != nil {
			q = f.Rebind(v.qualifier).(*Variable)
		}
		return f.Var(v.desc, q, v.declared)
	case *BinOp:
		return f.BinOp(f.Rebind(v.left), v.op, f.Rebind(v.right), v.kind)
	case *TransferValue:
		return f.Transfer(v.transfer)
	}
	panic(fmt.Sprintf("value: cannot rebind %T", v))
}

// RebindVar is Rebind for variables.
func (f *Factory) RebindVar(v *Variable) *Variable {
	if v == nil {
		return nil
	}
	return f.Rebind(v).(*Variable)
}

// RebindCondition rebinds both operands of c.
func (f *Factory) RebindCondition(c Condition) Condition {
	r, ok := c.(Relation)
	if !ok {
		return c
	}
	return Relation{Left: f.Rebind(r.Left), Rel: r.Rel, Right: f.Rebind(r.Right)}
}
