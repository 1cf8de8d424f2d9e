package interp

import (
	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/memory"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/types"
)

// fork splits st on cond. A nil result means that side is infeasible. When
// st decides cond no copy is made.
func (r *Interpreter) fork(st *memory.State, cond value.Condition) (yes, no *memory.State) {
	cond = st.Evaluate(cond)
	if holds, ok := value.Decided(cond); ok {
		if holds {
			return st, nil
		}
		return nil, st
	}
	yes = st.Copy()
	if !yes.ApplyCondition(cond) {
		yes = nil
	}
	if st.ApplyCondition(cond.Negate()) {
		no = st
	}
	return yes, no
}

// conditionVerdict reports a constant condition as Violates when it always
// holds and Safe when it never does.
func conditionVerdict(canTrue, canFalse bool) types.Verdict {
	switch {
	case canTrue && !canFalse:
		return types.Violates
	case canFalse && !canTrue:
		return types.Safe
	}
	return types.Unsure
}

// reportBoolean reports the constant-condition verdict for the booleans
// the successors pushed.
func (r *Interpreter) reportBoolean(anchor types.Anchor, succs []Successor) {
	if anchor == nil || len(succs) == 0 {
		return
	}
	var canTrue, canFalse bool
	var top value.Value
	reporter := succs[0].State
	for _, s := range succs {
		top = s.State.Peek(0)
		b, ok := top.Type().(dftype.Boolean)
		if !ok {
			return
		}
		c, ok := b.Constant()
		canTrue = canTrue || !ok || c
		canFalse = canFalse || !ok || !c
		if reporter.IsEphemeral() && !s.State.IsEphemeral() {
			reporter = s.State
		}
	}
	r.report(types.ConstantCondition, anchor, top, conditionVerdict(canTrue, canFalse), reporter)
}

func (r *Interpreter) acceptConditionalGoto(in *ir.ConditionalGoto, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 1)
	if err != nil {
		return nil, err
	}
	v := vals[0]
	isTrue, isFalse := r.fork(st, r.factory.Condition(v, relation.EQ, r.factory.Bool(true)))
	reporter := isTrue
	if reporter == nil {
		reporter = isFalse
	}
	if reporter != nil {
		r.report(types.ConstantCondition, in.Anchor, v, conditionVerdict(isTrue != nil, isFalse != nil), reporter)
	}

	jump, fall := isTrue, isFalse
	if in.JumpIfFalse {
		jump, fall = isFalse, isTrue
	}
	var out []Successor
	if jump != nil {
		out = append(out, Successor{Index: in.Target, State: jump})
	}
	if fall != nil {
		out = append(out, Successor{Index: in.Index() + 1, State: fall})
	}
	return out, nil
}

func (r *Interpreter) acceptBooleanBinary(in *ir.BooleanBinary, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 2)
	if err != nil {
		return nil, err
	}
	var out []Successor
	if in.Logic != ir.NoLogic {
		out = r.logic(in, st, vals[0], vals[1])
	} else {
		out = r.compare(in, st, vals[0], vals[1])
	}
	r.reportBoolean(in.Anchor, out)
	return out, nil
}

func (r *Interpreter) compare(in *ir.BooleanBinary, st *memory.State, left, right value.Value) []Successor {
	f := r.factory
	rel := in.Rel
	if rel.IsEquality() && st.ShouldCompareByEquals(left, right) {
		// Equal constants may still be distinct objects, so both outcomes
		// stay possible whatever the types say.
		var out []Successor
		eq := st.Copy()
		if eq.ApplyCondition(value.Relation{Left: left, Rel: relation.EQ, Right: right}) {
			eq.Push(f.Bool(rel == relation.EQ))
			out = append(out, r.next(in, eq)...)
		}
		if st.ApplyCondition(value.Relation{Left: left, Rel: relation.NE, Right: right}) {
			st.Push(f.Bool(rel == relation.NE))
			out = append(out, r.next(in, st)...)
		}
		return out
	}

	cond := st.Evaluate(f.Condition(left, rel, right))
	if holds, ok := value.Decided(cond); ok {
		st.Push(f.Bool(holds))
		return r.next(in, st)
	}

	if rel.IsOrdering() && rel != relation.EQ && rel != relation.NE && isNumeric(st, left) && isNumeric(st, right) {
		var out []Successor
		for _, atom := range relation.AllAtomic() {
			s := st.Copy()
			if !s.ApplyCondition(s.Evaluate(f.Condition(left, atom, right))) {
				continue
			}
			s.Push(f.Bool(atom.IsSubRelation(rel)))
			out = append(out, r.next(in, s)...)
		}
		if len(out) == 0 {
			// Only NaN compares unordered with everything.
			st.Push(f.Bool(false))
			return r.next(in, st)
		}
		return out
	}

	yes, no := r.fork(st, cond)
	var out []Successor
	if yes != nil {
		yes.Push(f.Bool(true))
		out = append(out, r.next(in, yes)...)
	}
	if no != nil {
		no.Push(f.Bool(false))
		out = append(out, r.next(in, no)...)
	}
	return out
}

func isNumeric(st *memory.State, v value.Value) bool {
	switch st.DfType(v).(type) {
	case dftype.Integral, dftype.Float:
		return true
	}
	return false
}

// logic splits a short-circuit operator into its disjoint outcomes.
func (r *Interpreter) logic(in *ir.BooleanBinary, st *memory.State, left, right value.Value) []Successor {
	f := r.factory
	lTrue := f.Condition(left, relation.EQ, f.Bool(true))
	rTrue := f.Condition(right, relation.EQ, f.Bool(true))

	type outcome struct {
		conds  []value.Condition
		result bool
	}
	var outcomes []outcome
	switch in.Logic {
	case ir.And:
		outcomes = []outcome{
			{[]value.Condition{lTrue, rTrue}, true},
			{[]value.Condition{lTrue.Negate()}, false},
			{[]value.Condition{lTrue, rTrue.Negate()}, false},
		}
	case ir.Or:
		outcomes = []outcome{
			{[]value.Condition{lTrue}, true},
			{[]value.Condition{lTrue.Negate(), rTrue}, true},
			{[]value.Condition{lTrue.Negate(), rTrue.Negate()}, false},
		}
	}

	var out []Successor
	for i, o := range outcomes {
		s := st
		if i < len(outcomes)-1 {
			s = st.Copy()
		}
		if !applyAll(s, o.conds) {
			continue
		}
		s.Push(f.Bool(o.result))
		out = append(out, r.next(in, s)...)
	}
	return out
}

func applyAll(st *memory.State, conds []value.Condition) bool {
	for _, c := range conds {
		if !st.ApplyCondition(st.Evaluate(c)) {
			return false
		}
	}
	return true
}

func (r *Interpreter) acceptNot(in *ir.Not, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 1)
	if err != nil {
		return nil, err
	}
	f := r.factory
	yes, no := r.fork(st, f.Condition(vals[0], relation.EQ, f.Bool(true)))
	var out []Successor
	if yes != nil {
		yes.Push(f.Bool(false))
		out = append(out, r.next(in, yes)...)
	}
	if no != nil {
		no.Push(f.Bool(true))
		out = append(out, r.next(in, no)...)
	}
	r.reportBoolean(in.Anchor, out)
	return out, nil
}

func (r *Interpreter) acceptInstanceof(in *ir.Instanceof, st *memory.State) ([]Successor, error) {
	vals, err := pop(st, 1)
	if err != nil {
		return nil, err
	}
	f := r.factory
	v := vals[0]
	cond := st.Evaluate(f.Condition(v, relation.IS, f.FromType(dftype.InstanceOf(in.Type))))
	if holds, ok := value.Decided(cond); ok {
		st.Push(f.Bool(holds))
		out := r.next(in, st)
		r.reportBoolean(in.Anchor, out)
		return out, nil
	}

	var out []Successor
	yes := st.Copy()
	if yes.ApplyCondition(cond) {
		yes.Push(f.Bool(true))
		out = append(out, r.next(in, yes)...)
	}
	before := dftype.NullabilityOf(st.DfType(v))
	if st.ApplyCondition(cond.Negate()) {
		if before == lattice.Unknown && dftype.NullabilityOf(st.DfType(v)) == lattice.Null {
			// The only way to fail the check is a null nobody expected.
			st.MarkEphemeral()
		}
		st.Push(f.Bool(false))
		out = append(out, r.next(in, st)...)
	}
	r.reportBoolean(in.Anchor, out)
	return out, nil
}
