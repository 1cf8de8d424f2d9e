// Package memory implements the abstract memory state: an operand stack,
// the types of tracked variables and the relations known between them.
package memory

import (
	"fmt"
	"slices"
	"strings"

	"github.com/benbjohnson/immutable"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/value"
)

// State is one abstract program state. A state is owned by exactly one
// worklist entry; forks go through Copy. Variable types and relations are
// persistent maps, so copies share structure.
type State struct {
	factory *value.Factory
	stack   []value.Value

	// variable id -> narrowed type; missing entries use the declared type
	types *immutable.Map[int, dftype.DfType]
	// variable id -> id of its equivalence class representative
	classes *immutable.Map[int, int]
	// packed (lo, hi) representative pair -> relation lo rel hi
	pairs *immutable.Map[int, relation.Type]

	escaped   mapset.Set[int]
	ephemeral bool
	closure   *State
}

// New returns an empty state whose values come from f.
func New(f *value.Factory) *State {
	return &State{
		factory: f,
		types:   immutable.NewMap[int, dftype.DfType](nil),
		classes: immutable.NewMap[int, int](nil),
		pairs:   immutable.NewMap[int, relation.Type](nil),
		escaped: mapset.NewThreadUnsafeSet[int](),
	}
}

func (s *State) Factory() *value.Factory { return s.factory }

// Copy returns an independent state equal to s.
func (s *State) Copy() *State {
	c := *s
	c.stack = slices.Clone(s.stack)
	c.escaped = s.escaped.Clone()
	return &c
}

// IsEphemeral reports whether the state lies on a path that only exists
// because of an exceptional or otherwise rare transfer. Problems found in
// ephemeral states are not reported.
func (s *State) IsEphemeral() bool { return s.ephemeral }

func (s *State) MarkEphemeral() { s.ephemeral = true }

// Push pushes v on the operand stack.
func (s *State) Push(v value.Value) { s.stack = append(s.stack, v) }

// Pop removes the top of the stack. It returns nil when the stack is empty.
func (s *State) Pop() value.Value {
	if len(s.stack) == 0 {
		return nil
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

// Peek returns the value depth slots below the top, or nil.
func (s *State) Peek(depth int) value.Value {
	i := len(s.stack) - 1 - depth
	if i < 0 || depth < 0 {
		return nil
	}
	return s.stack[i]
}

// Replace overwrites the value depth slots below the top.
func (s *State) Replace(depth int, v value.Value) {
	s.stack[len(s.stack)-1-depth] = v
}

func (s *State) StackSize() int { return len(s.stack) }

// ClearStack empties the operand stack.
func (s *State) ClearStack() { s.stack = s.stack[:0] }

// DfType returns the current type of v.
func (s *State) DfType(v value.Value) dftype.DfType {
	switch v := v.(type) {
	case *value.Variable:
		if t, ok := s.types.Get(v.ID()); ok {
			return t
		}
		return v.Type()
	case *value.BinOp:
		ltype, rtype := s.DfType(v.Left()), s.DfType(v.Right())
		l, lok := ltype.(dftype.Integral)
		r, rok := rtype.(dftype.Integral)
		if !lok || !rok {
			return dftype.ArithFallback(ltype, rtype)
		}
		return l.Eval(v.Op(), r, v.Kind())
	case nil:
		return dftype.Bottom
	}
	return v.Type()
}

// SetVarType replaces the type of v and of every variable known to equal
// it.
func (s *State) SetVarType(v *value.Variable, t dftype.DfType) {
	for _, m := range s.members(s.rep(v.ID())) {
		s.types = s.types.Set(m, t)
	}
}

// meetVarType narrows v to t. It reports false if the result is empty.
func (s *State) meetVarType(v *value.Variable, t dftype.DfType) bool {
	nt := s.DfType(v).Meet(t)
	if dftype.IsBottom(nt) {
		return false
	}
	s.SetVarType(v, nt)
	return true
}

// IsEscaped reports whether v may be modified by code the state does not
// see.
func (s *State) IsEscaped(v *value.Variable) bool { return s.escaped.Contains(v.ID()) }

// MarkEscaped records that vars are visible to unseen code. Everything
// reachable through them is forgotten.
func (s *State) MarkEscaped(vars ...*value.Variable) {
	for _, v := range vars {
		s.escaped.Add(v.ID())
		for _, d := range s.dependents(v) {
			s.forget(d)
		}
	}
}

// FlushVariable forgets everything known about v and the variables
// qualified by it.
func (s *State) FlushVariable(v *value.Variable) {
	s.forget(v.ID())
	for _, d := range s.dependents(v) {
		s.forget(d)
	}
}

// FlushEscaped forgets every escaped variable, as after a call into
// unseen code.
func (s *State) FlushEscaped() {
	for _, id := range s.escaped.ToSlice() {
		if v, ok := s.factory.Value(id).(*value.Variable); ok {
			s.FlushVariable(v)
		}
	}
}

// FlushArrayElements forgets the tracked elements of array.
func (s *State) FlushArrayElements(array *value.Variable) {
	for _, id := range s.knownVars() {
		v, ok := s.factory.Value(id).(*value.Variable)
		if !ok || v.Qualifier() != array {
			continue
		}
		if _, ok := v.Descriptor().(value.ArrayElement); ok {
			s.FlushVariable(v)
		}
	}
}

// SetVarValue stores val into dest.
func (s *State) SetVarValue(dest *value.Variable, val value.Value) {
	if val == value.Value(dest) {
		return
	}
	t := s.DfType(val)
	s.FlushVariable(dest)
	if src, ok := val.(*value.Variable); ok && !src.DependsOn(dest) && s.unite(dest, src) {
		return
	}
	s.types = s.types.Set(dest.ID(), t)
}

// CreateClosureState returns the state a nested closure body starts from:
// the constraints of s with an empty stack.
func (s *State) CreateClosureState() *State {
	c := s.Copy()
	c.ClearStack()
	c.closure = s.Copy()
	return c
}

// ClosureOrigin returns the state the closure was created in, or nil.
func (s *State) ClosureOrigin() *State { return s.closure }

// knownVars lists every variable the state has information about.
func (s *State) knownVars() []int {
	seen := mapset.NewThreadUnsafeSet[int]()
	for itr := s.types.Iterator(); !itr.Done(); {
		k, _, _ := itr.Next()
		seen.Add(k)
	}
	for itr := s.classes.Iterator(); !itr.Done(); {
		k, _, _ := itr.Next()
		seen.Add(k)
	}
	for itr := s.pairs.Iterator(); !itr.Done(); {
		k, _, _ := itr.Next()
		lo, hi := unpack(k)
		seen.Add(lo)
		seen.Add(hi)
	}
	out := seen.ToSlice()
	slices.Sort(out)
	return out
}

func (s *State) dependents(v *value.Variable) []int {
	var out []int
	for _, id := range s.knownVars() {
		if d, ok := s.factory.Value(id).(*value.Variable); ok && d.DependsOn(v) {
			out = append(out, id)
		}
	}
	return out
}

func (s *State) String() string {
	var b strings.Builder
	stack := make([]string, len(s.stack))
	for i, v := range s.stack {
		stack[i] = v.String()
	}
	fmt.Fprintf(&b, "<[%s]", strings.Join(stack, ", "))
	var vars []string
	for _, id := range s.knownVars() {
		v := s.factory.Value(id)
		if t, ok := s.types.Get(id); ok {
			vars = append(vars, fmt.Sprintf("%s: %s", v, t))
		}
	}
	if len(vars) > 0 {
		fmt.Fprintf(&b, " {%s}", strings.Join(vars, ", "))
	}
	if rels := s.relationStrings(); len(rels) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(rels, ", "))
	}
	if s.escaped.Cardinality() > 0 {
		ids := s.escaped.ToSlice()
		slices.Sort(ids)
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = s.factory.Value(id).String()
		}
		fmt.Fprintf(&b, " escaped[%s]", strings.Join(names, ", "))
	}
	if s.ephemeral {
		b.WriteString(" ephemeral")
	}
	b.WriteString(">")
	return b.String()
}
