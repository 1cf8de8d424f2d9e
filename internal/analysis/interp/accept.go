package interp

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/memory"
	"github.com/gnolang/dfa/internal/analysis/value"
)

// accept executes in on st and returns the successors. st moves into at
// most one successor; every other successor is a copy taken before st is
// changed.
func (r *Interpreter) accept(in ir.Instruction, st *memory.State) ([]Successor, error) {
	switch in := in.(type) {
	case *ir.Push:
		return r.acceptPush(in, st), nil
	case *ir.Pop:
		if _, err := pop(st, 1); err != nil {
			return nil, err
		}
		return r.next(in, st), nil
	case *ir.Dup:
		v, err := peek(st)
		if err != nil {
			return nil, err
		}
		st.Push(v)
		return r.next(in, st), nil
	case *ir.Swap:
		vals, err := pop(st, 2)
		if err != nil {
			return nil, err
		}
		st.Push(vals[1])
		st.Push(vals[0])
		return r.next(in, st), nil
	case *ir.Flush:
		st.FlushVariable(in.Var)
		return r.next(in, st), nil
	case *ir.Escape:
		st.MarkEscaped(in.Vars...)
		return r.next(in, st), nil
	case *ir.Assign:
		return r.acceptAssign(in, st)
	case *ir.EvalUnknown:
		if _, err := pop(st, in.Pops); err != nil {
			return nil, err
		}
		st.Push(r.factory.FromType(orTop(in.Result)))
		return r.next(in, st), nil
	case *ir.Goto:
		return []Successor{{Index: in.Target, State: st}}, nil
	case *ir.ConditionalGoto:
		return r.acceptConditionalGoto(in, st)
	case *ir.BooleanBinary:
		return r.acceptBooleanBinary(in, st)
	case *ir.Not:
		return r.acceptNot(in, st)
	case *ir.Instanceof:
		return r.acceptInstanceof(in, st)
	case *ir.CheckNotNull:
		return r.acceptCheckNotNull(in, st)
	case *ir.ArrayAccess:
		return r.acceptArrayAccess(in, st)
	case *ir.ArrayStore:
		return r.acceptArrayStore(in, st)
	case *ir.ArraySizeCheck:
		return r.acceptArraySizeCheck(in, st)
	case *ir.Ensure:
		return r.acceptEnsure(in, st)
	case *ir.NumericBinary:
		return r.acceptNumericBinary(in, st)
	case *ir.PrimitiveConversion:
		return r.acceptPrimitiveConversion(in, st)
	case *ir.TypeCast:
		return r.acceptTypeCast(in, st)
	case *ir.MethodCall:
		return r.acceptMethodCall(in, st)
	case *ir.MethodReference:
		return r.acceptMethodReference(in, st)
	case *ir.Return:
		return r.acceptReturn(in, st)
	case *ir.Closure:
		return r.acceptClosure(in, st), nil
	default:
		panic(fmt.Sprintf("interp: unhandled instruction %T", in))
	}
}

func (r *Interpreter) acceptPush(in *ir.Push, st *memory.State) []Successor {
	if v, ok := in.Value.(*value.Variable); ok && !in.Write && st.IsEscaped(v) {
		st.FlushVariable(v)
	}
	r.push(st, nil, in.Value, in.Anchor)
	return r.next(in, st)
}

func (r *Interpreter) acceptAssign(in *ir.Assign, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 2)
	if err != nil {
		return nil, err
	}
	dest, ok := vals[0].(*value.Variable)
	if !ok {
		return nil, errors.Wrapf(ErrMalformed, "assignment to %s", vals[0])
	}
	st.SetVarValue(dest, vals[1])
	r.push(st, vals[1:], dest, in.Anchor)
	return r.next(in, st), nil
}

func orTop(t dftype.DfType) dftype.DfType {
	if t == nil {
		return dftype.Top
	}
	return t
}
