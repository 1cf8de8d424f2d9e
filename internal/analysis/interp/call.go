package interp

import (
	"math"

	"github.com/pkg/errors"

	"github.com/gnolang/dfa/internal/analysis/contract"
	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/memory"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/types"
)

func (r *Interpreter) acceptNumericBinary(in *ir.NumericBinary, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 2)
	if err != nil {
		return nil, err
	}
	left, right := vals[0], vals[1]
	r.push(st, vals, r.arith(st, left, in.Op, right, in.Kind), in.Anchor)
	return r.next(in, st), nil
}

// arith computes left op right. Results over a tracked variable stay
// symbolic so later conditions can refer back to the operands.
func (r *Interpreter) arith(st *memory.State, left value.Value, op rangeset.Op, right value.Value, kind rangeset.Kind) value.Value {
	f := r.factory
	ltype, rtype := st.DfType(left), st.DfType(right)
	lt, lok := ltype.(dftype.Integral)
	rt, rok := rtype.(dftype.Integral)
	if !lok || !rok {
		return f.FromType(dftype.ArithFallback(ltype, rtype))
	}
	_, lconst := lt.Constant()
	_, rconst := rt.Constant()
	if _, isVar := left.(*value.Variable); isVar && !(lconst && rconst) {
		return f.BinOp(left, op, right, kind)
	}
	res := lt.Eval(op, rt, kind)
	if dftype.IsBottom(res) {
		// Division by a definite zero: the Ensure in front of the
		// operation has already reported it.
		res = dftype.IntAll(kind)
	}
	return f.FromType(res)
}

func (r *Interpreter) acceptPrimitiveConversion(in *ir.PrimitiveConversion, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 1)
	if err != nil {
		return nil, err
	}
	st.Push(r.convert(st, vals[0], in.To))
	return r.next(in, st), nil
}

func (r *Interpreter) convert(st *memory.State, v value.Value, to ir.Primitive) value.Value {
	f := r.factory
	t := st.DfType(v)
	switch to {
	case ir.ToInt, ir.ToLong:
		kind := rangeset.Int
		if to == ir.ToLong {
			kind = rangeset.Long
		}
		switch t := t.(type) {
		case dftype.Integral:
			if t.Kind == kind {
				return v
			}
			return f.FromType(t.Cast(kind))
		case dftype.Float:
			if t.HasRange && !t.NaN && t.Lo == t.Hi && math.Abs(t.Lo) < 1<<62 {
				return f.FromType(dftype.Integral{Kind: kind, Range: rangeset.Point(int64(t.Lo))}.Cast(kind))
			}
		}
		return f.FromType(dftype.IntAll(kind))
	default:
		switch t := t.(type) {
		case dftype.Float:
			return v
		case dftype.Integral:
			if c, ok := t.Constant(); ok {
				return f.FromType(dftype.FloatValue(float64(c)))
			}
			if !t.Range.IsEmpty() {
				return f.FromType(dftype.FloatRange(float64(t.Range.Min()), float64(t.Range.Max())))
			}
		}
		return f.FromType(dftype.FloatAll())
	}
}

func (r *Interpreter) acceptMethodCall(in *ir.MethodCall, st *memory.State) ([]Successor, error) {
	args, err := pop(st, in.Args)
	if err != nil {
		return nil, err
	}
	if !in.Pure {
		st.FlushEscaped()
	}
	states, err := r.applyContracts(st, in.Callable, args, orTop(in.Return), in.Anchor)
	if err != nil {
		return nil, err
	}
	out := make([]Successor, 0, len(states))
	for _, s := range states {
		out = append(out, r.next(in, s)...)
	}
	return out, nil
}

func (r *Interpreter) acceptMethodReference(in *ir.MethodReference, st *memory.State) ([]Successor, error) {
	args, err := pop(st, 1)
	if err != nil {
		return nil, err
	}
	ret := in.Return
	if ret == nil {
		ret = dftype.NotNullRef()
	}
	states, err := r.applyContracts(st, in.Callable, args, ret, in.Anchor)
	if err != nil {
		return nil, err
	}
	out := make([]Successor, 0, len(states))
	for _, s := range states {
		out = append(out, r.next(in, s)...)
	}
	return out, nil
}

// applyContracts forks st once per contract whose conditions can hold and
// once more for the remaining state, pushing the result in each. A
// contract with a single condition narrows the remaining state by its
// negation; a contract without conditions consumes it.
func (r *Interpreter) applyContracts(st *memory.State, callable string, args []value.Value, ret dftype.DfType, anchor types.Anchor) ([]*memory.State, error) {
	f := r.factory
	var out []*memory.State
	var failing, failed bool
	remaining := st
	for _, c := range r.contracts.Contracts(callable) {
		conds := make([]value.Condition, len(c.Conditions))
		for i, ac := range c.Conditions {
			if ac.Arg < 0 || ac.Arg >= len(args) {
				return nil, errors.Wrapf(ErrMalformed, "contract %q of %s refers to argument %d of %d", c, callable, ac.Arg, len(args))
			}
			conds[i] = f.Condition(args[ac.Arg], ac.Rel, f.FromType(ac.Value))
		}
		failing = failing || c.Fails

		hit := remaining.Copy()
		if applyAll(hit, conds) {
			if c.Fails {
				failed = true
			} else {
				v := f.FromType(contractResult(c, ret))
				r.push(hit, args, v, anchor)
				out = append(out, hit)
			}
		}

		if len(conds) == 0 {
			remaining = nil
			break
		}
		if len(conds) == 1 && !remaining.ApplyCondition(remaining.Evaluate(conds[0].Negate())) {
			remaining = nil
			break
		}
	}
	if remaining != nil {
		v := f.FromType(ret)
		r.push(remaining, args, v, anchor)
		out = append(out, remaining)
	}

	if failing && len(args) > 0 {
		verdict := types.Safe
		switch {
		case failed && len(out) == 0:
			verdict = types.Violates
		case failed:
			verdict = types.Unsure
		}
		r.report(types.ContractFailure, anchor, args[0], verdict, st)
	}
	return out, nil
}

func contractResult(c contract.Contract, ret dftype.DfType) dftype.DfType {
	if c.Return == nil {
		return ret
	}
	if t := c.Return.Meet(ret); !dftype.IsBottom(t) {
		return t
	}
	return c.Return
}
