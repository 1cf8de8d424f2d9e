package interp

import (
	"math"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/memory"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/transfer"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/types"
)

// check describes a failed precondition: what to report and where the
// failing path goes.
type check struct {
	kind     types.ProblemKind
	anchor   types.Anchor
	transfer *transfer.ControlTransfer
}

// fail routes a state that violates c through its transfer. Without a
// transfer the path ends.
func (r *Interpreter) fail(c check, st *memory.State) []Successor {
	if c.transfer == nil {
		return nil
	}
	st.MarkEphemeral()
	return Resolve(st, c.transfer, r.factory, r.program.Len())
}

func (r *Interpreter) acceptCheckNotNull(in *ir.CheckNotNull, st *memory.State) ([]Successor, error) {
	v, err := peek(st)
	if err != nil {
		return nil, err
	}
	c := check{kind: in.Problem, anchor: in.Anchor, transfer: in.Transfer}
	if c.kind == "" {
		c.kind = types.NullDereference
	}

	switch n := dftype.NullabilityOf(st.DfType(v)); n {
	case lattice.Null, lattice.Bottom:
		r.report(c.kind, c.anchor, v, types.Violates, st)
		return r.fail(c, st), nil
	case lattice.NotNull:
		r.report(c.kind, c.anchor, v, types.Safe, st)
		return r.next(in, st), nil
	case lattice.Nullable:
		r.report(c.kind, c.anchor, v, types.Unsure, st)
		f := r.factory
		var out []Successor
		if c.transfer != nil {
			null := st.Copy()
			if null.ApplyCondition(f.Condition(v, relation.EQ, f.Null())) {
				out = append(out, r.fail(c, null)...)
			}
		}
		if st.ApplyCondition(f.Condition(v, relation.NE, f.Null())) {
			out = append(out, r.next(in, st)...)
		}
		return out, nil
	default:
		// Nothing is known, so the dereference is trusted and proves the
		// value non-null from here on.
		r.report(c.kind, c.anchor, v, types.Safe, st)
		st.ApplyCondition(r.factory.Condition(v, relation.NE, r.factory.Null()))
		return r.next(in, st), nil
	}
}

// ensure continues st where cond holds and sends the violating part
// through the failure path of c. It reports the verdict for v.
func (r *Interpreter) ensure(c check, st *memory.State, v value.Value, cond value.Condition, ok func(*memory.State) []Successor) []Successor {
	cond = st.Evaluate(cond)
	if holds, decided := value.Decided(cond); decided {
		if holds {
			r.report(c.kind, c.anchor, v, types.Safe, st)
			return ok(st)
		}
		r.report(c.kind, c.anchor, v, types.Violates, st)
		return r.fail(c, st)
	}

	bad := st.Copy()
	canFail := bad.ApplyCondition(cond.Negate())
	canPass := st.ApplyCondition(cond)
	switch {
	case canPass && canFail:
		r.report(c.kind, c.anchor, v, types.Unsure, st)
	case canPass:
		r.report(c.kind, c.anchor, v, types.Safe, st)
	case canFail:
		r.report(c.kind, c.anchor, v, types.Violates, bad)
	}
	var out []Successor
	if canFail {
		out = append(out, r.fail(c, bad)...)
	}
	if canPass {
		out = append(out, ok(st)...)
	}
	return out
}

func (r *Interpreter) acceptEnsure(in *ir.Ensure, st *memory.State) ([]Successor, error) {
	v, err := peek(st)
	if err != nil {
		return nil, err
	}
	c := check{kind: in.Problem, anchor: in.Anchor, transfer: in.Transfer}
	cond := r.factory.Condition(v, in.Rel, r.factory.FromType(orTop(in.Against)))
	return r.ensure(c, st, v, cond, func(s *memory.State) []Successor { return r.next(in, s) }), nil
}

func (r *Interpreter) acceptArraySizeCheck(in *ir.ArraySizeCheck, st *memory.State) ([]Successor, error) {
	v, err := peek(st)
	if err != nil {
		return nil, err
	}
	c := check{kind: types.NegativeArraySize, anchor: in.Anchor, transfer: in.Transfer}
	cond := r.factory.Condition(v, relation.GE, r.factory.Int(0))
	return r.ensure(c, st, v, cond, func(s *memory.State) []Successor { return r.next(in, s) }), nil
}

// boundsConditions are the three facts an in-bounds access needs, in the
// order they are checked.
func (r *Interpreter) boundsConditions(array, index value.Value) []value.Condition {
	f := r.factory
	length := r.arrayLength(array)
	return []value.Condition{
		f.Condition(length, relation.GT, f.Int(0)),
		f.Condition(index, relation.GE, f.Int(0)),
		f.Condition(index, relation.LT, length),
	}
}

func (r *Interpreter) arrayLength(array value.Value) value.Value {
	if v, ok := array.(*value.Variable); ok {
		return r.factory.ArrayLength(v)
	}
	return r.factory.FromType(dftype.IntRange(rangeset.Int, 0, math.MaxInt32))
}

// bounds splits st into the state where the access is in bounds and one
// where it is not. Either may be nil.
func (r *Interpreter) bounds(st *memory.State, array, index value.Value) (in, out *memory.State) {
	conds := r.boundsConditions(array, index)
	for _, c := range conds {
		s := st.Copy()
		if s.ApplyCondition(s.Evaluate(c.Negate())) {
			out = s
			break
		}
	}
	if applyAll(st, conds) {
		in = st
	}
	return in, out
}

func (r *Interpreter) boundsVerdict(in, out *memory.State) types.Verdict {
	switch {
	case in == nil:
		return types.Violates
	case out != nil:
		return types.Unsure
	}
	return types.Safe
}

func (r *Interpreter) acceptArrayAccess(in *ir.ArrayAccess, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 2)
	if err != nil {
		return nil, err
	}
	array, index := vals[0], vals[1]
	c := check{kind: types.ArrayIndexOutOfRange, anchor: in.Anchor, transfer: in.Transfer}

	reporter := st.Copy()
	ok, bad := r.bounds(st, array, index)
	r.report(c.kind, c.anchor, index, r.boundsVerdict(ok, bad), reporter)

	var succs []Successor
	if bad != nil {
		succs = append(succs, r.fail(c, bad)...)
	}
	if ok != nil {
		elem := r.element(ok, array, index, orTop(in.Element))
		r.push(ok, vals, elem, in.Anchor)
		succs = append(succs, r.next(in, ok)...)
	}
	return succs, nil
}

// element is the value read from array at index: a tracked variable when
// the index is a known constant, a fresh value of the element type
// otherwise.
func (r *Interpreter) element(st *memory.State, array, index value.Value, elem dftype.DfType) value.Value {
	arr, ok := array.(*value.Variable)
	if !ok {
		return r.factory.FromType(elem)
	}
	it, ok := st.DfType(index).(dftype.Integral)
	if !ok {
		return r.factory.FromType(elem)
	}
	i, ok := it.Constant()
	if !ok {
		return r.factory.FromType(elem)
	}
	return r.factory.ArrayElement(arr, i, elem)
}

func (r *Interpreter) acceptArrayStore(in *ir.ArrayStore, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 3)
	if err != nil {
		return nil, err
	}
	array, index, v := vals[0], vals[1], vals[2]
	c := check{kind: types.ArrayIndexOutOfRange, anchor: in.Anchor, transfer: in.Transfer}

	reporter := st.Copy()
	ok, bad := r.bounds(st, array, index)
	r.report(c.kind, c.anchor, index, r.boundsVerdict(ok, bad), reporter)

	var succs []Successor
	if bad != nil {
		succs = append(succs, r.fail(c, bad)...)
	}
	if ok != nil {
		if arr, isVar := array.(*value.Variable); isVar {
			switch elem := r.element(ok, array, index, dftype.Top).(type) {
			case *value.Variable:
				ok.SetVarValue(elem, v)
			default:
				ok.FlushArrayElements(arr)
			}
		}
		ok.Push(v)
		succs = append(succs, r.next(in, ok)...)
	}
	return succs, nil
}

// Casts succeed on null and on instances of the target type.
func castTypes(name string) (pass, fail dftype.DfType) {
	pass = dftype.Reference{Null: lattice.Unknown, Instance: []string{name}}
	fail = dftype.Reference{Null: lattice.NotNull, NotInstance: []string{name}}
	return pass, fail
}

func (r *Interpreter) acceptTypeCast(in *ir.TypeCast, st *memory.State) ([]Successor, error) {
	v, err := peek(st)
	if err != nil {
		return nil, err
	}
	f := r.factory
	c := check{kind: types.ClassCast, anchor: in.Anchor, transfer: in.Transfer}
	pass, fail := castTypes(in.Type)

	bad := st.Copy()
	canFail := bad.ApplyCondition(bad.Evaluate(f.Condition(v, relation.EQ, f.FromType(fail))))
	canPass := st.ApplyCondition(st.Evaluate(f.Condition(v, relation.EQ, f.FromType(pass))))

	var out []Successor
	switch {
	case canPass && canFail:
		r.report(c.kind, c.anchor, v, types.Unsure, st)
	case canPass:
		r.report(c.kind, c.anchor, v, types.Safe, st)
	case canFail:
		r.report(c.kind, c.anchor, v, types.Violates, bad)
	}
	if canFail {
		out = append(out, r.fail(c, bad)...)
	}
	if canPass {
		out = append(out, r.next(in, st)...)
	}
	return out, nil
}
