package ir

import (
	"fmt"
	"strings"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/transfer"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/types"
)

// Push pushes Value. A Write push takes the address of a variable about to
// be assigned, so its current contents are not read.
type Push struct {
	base
	Value  value.Value
	Write  bool
	Anchor types.Anchor
}

func (in *Push) String() string {
	if in.Write {
		return "push " + in.Value.String() + " (write)"
	}
	return "push " + in.Value.String()
}

func (in *Push) bind(f *value.Factory) Instruction {
	c := *in
	c.Value = f.Rebind(in.Value)
	return &c
}

// Pop discards the top of the stack.
type Pop struct{ base }

func (*Pop) String() string                     { return "pop" }
func (in *Pop) bind(*value.Factory) Instruction { c := *in; return &c }

// Dup duplicates the top of the stack.
type Dup struct{ base }

func (*Dup) String() string                     { return "dup" }
func (in *Dup) bind(*value.Factory) Instruction { c := *in; return &c }

// Swap exchanges the two topmost stack values.
type Swap struct{ base }

func (*Swap) String() string                     { return "swap" }
func (in *Swap) bind(*value.Factory) Instruction { c := *in; return &c }

// Flush forgets everything known about Var.
type Flush struct {
	base
	Var *value.Variable
}

func (in *Flush) String() string { return "flush " + in.Var.String() }

func (in *Flush) bind(f *value.Factory) Instruction {
	c := *in
	c.Var = f.RebindVar(in.Var)
	return &c
}

// Escape marks Vars as visible to code the interpreter does not see.
type Escape struct {
	base
	Vars []*value.Variable
}

func (in *Escape) String() string { return "escape " + varList(in.Vars) }

func (in *Escape) bind(f *value.Factory) Instruction {
	c := *in
	c.Vars = rebindVars(f, in.Vars)
	return &c
}

// Assign pops a value and a destination variable, stores the value and
// pushes the destination.
type Assign struct {
	base
	Anchor types.Anchor
}

func (*Assign) String() string                     { return "assign" }
func (in *Assign) bind(*value.Factory) Instruction { c := *in; return &c }

// EvalUnknown pops Pops values and pushes an unknown value of type Result.
type EvalUnknown struct {
	base
	Pops   int
	Result dftype.DfType
}

func (in *EvalUnknown) String() string {
	return fmt.Sprintf("eval_unknown %d -> %s", in.Pops, resultType(in.Result))
}

func (in *EvalUnknown) bind(*value.Factory) Instruction { c := *in; return &c }

// Goto jumps to Target. A back edge is widened unless NoWiden is set, which
// front ends use for loops known to run a few iterations.
type Goto struct {
	base
	Target  int
	NoWiden bool
}

func (in *Goto) String() string {
	if in.NoWiden {
		return fmt.Sprintf("goto %d (no widen)", in.Target)
	}
	return fmt.Sprintf("goto %d", in.Target)
}

func (in *Goto) bind(*value.Factory) Instruction { c := *in; return &c }

// ConditionalGoto pops a boolean and jumps to Target when it is true, or
// when it is false if JumpIfFalse is set.
type ConditionalGoto struct {
	base
	Target      int
	JumpIfFalse bool
	Anchor      types.Anchor
}

func (in *ConditionalGoto) String() string {
	if in.JumpIfFalse {
		return fmt.Sprintf("if_false goto %d", in.Target)
	}
	return fmt.Sprintf("if_true goto %d", in.Target)
}

func (in *ConditionalGoto) bind(*value.Factory) Instruction { c := *in; return &c }

// LogicOp is a short-circuit boolean operator.
type LogicOp uint8

const (
	NoLogic LogicOp = iota
	And
	Or
)

// BooleanBinary pops two operands and pushes the boolean result of
// comparing them with Rel, or of combining them with Logic when set.
type BooleanBinary struct {
	base
	Rel    relation.Type
	Logic  LogicOp
	Anchor types.Anchor
}

func (in *BooleanBinary) String() string {
	switch in.Logic {
	case And:
		return "binop &&"
	case Or:
		return "binop ||"
	}
	return "binop " + in.Rel.String()
}

func (in *BooleanBinary) bind(*value.Factory) Instruction { c := *in; return &c }

// Not negates the boolean on top of the stack.
type Not struct {
	base
	Anchor types.Anchor
}

func (*Not) String() string                     { return "not" }
func (in *Not) bind(*value.Factory) Instruction { c := *in; return &c }

// Instanceof pops a reference and pushes whether it is a non-null instance
// of Type.
type Instanceof struct {
	base
	Type   string
	Anchor types.Anchor
}

func (in *Instanceof) String() string                  { return "instanceof " + in.Type }
func (in *Instanceof) bind(*value.Factory) Instruction { c := *in; return &c }

// CheckNotNull checks that the top of the stack is not null. A null value
// continues through Transfer, or ends the path when Transfer is nil.
type CheckNotNull struct {
	base
	Problem  types.ProblemKind
	Anchor   types.Anchor
	Transfer *transfer.ControlTransfer
}

func (in *CheckNotNull) String() string {
	return "check_not_null" + transferSuffix(in.Transfer)
}

func (in *CheckNotNull) bind(*value.Factory) Instruction { c := *in; return &c }

// ArrayAccess pops an index and an array and pushes the element, after
// checking the index against the array length.
type ArrayAccess struct {
	base
	Element  dftype.DfType
	Anchor   types.Anchor
	Transfer *transfer.ControlTransfer
}

func (in *ArrayAccess) String() string {
	return "array_load " + resultType(in.Element) + transferSuffix(in.Transfer)
}

func (in *ArrayAccess) bind(*value.Factory) Instruction { c := *in; return &c }

// ArrayStore pops a value, an index and an array, checks the index and
// stores the value. It pushes the stored value.
type ArrayStore struct {
	base
	Anchor   types.Anchor
	Transfer *transfer.ControlTransfer
}

func (in *ArrayStore) String() string {
	return "array_store" + transferSuffix(in.Transfer)
}

func (in *ArrayStore) bind(*value.Factory) Instruction { c := *in; return &c }

// ArraySizeCheck checks that the size on top of the stack is not negative.
type ArraySizeCheck struct {
	base
	Anchor   types.Anchor
	Transfer *transfer.ControlTransfer
}

func (in *ArraySizeCheck) String() string {
	return "array_size_check" + transferSuffix(in.Transfer)
}

func (in *ArraySizeCheck) bind(*value.Factory) Instruction { c := *in; return &c }

// Ensure checks that the top of the stack stands in relation Rel to a
// value of type Against, reporting Problem otherwise.
type Ensure struct {
	base
	Rel      relation.Type
	Against  dftype.DfType
	Problem  types.ProblemKind
	Anchor   types.Anchor
	Transfer *transfer.ControlTransfer
}

func (in *Ensure) String() string {
	return fmt.Sprintf("ensure %s %s", in.Rel, in.Against) + transferSuffix(in.Transfer)
}

func (in *Ensure) bind(*value.Factory) Instruction { c := *in; return &c }

// NumericBinary pops two integral operands and pushes Op applied to them.
type NumericBinary struct {
	base
	Op     rangeset.Op
	Kind   rangeset.Kind
	Anchor types.Anchor
}

func (in *NumericBinary) String() string {
	return fmt.Sprintf("%s %s", in.Kind, in.Op)
}

func (in *NumericBinary) bind(*value.Factory) Instruction { c := *in; return &c }

// Primitive is the target of a primitive conversion.
type Primitive uint8

const (
	ToInt Primitive = iota
	ToLong
	ToFloat
)

func (p Primitive) String() string {
	return [...]string{"int", "long", "float"}[p]
}

// PrimitiveConversion converts the number on top of the stack.
type PrimitiveConversion struct {
	base
	To Primitive
}

func (in *PrimitiveConversion) String() string                  { return "convert " + in.To.String() }
func (in *PrimitiveConversion) bind(*value.Factory) Instruction { c := *in; return &c }

// TypeCast checks that the reference on top of the stack is null or an
// instance of Type.
type TypeCast struct {
	base
	Type     string
	Anchor   types.Anchor
	Transfer *transfer.ControlTransfer
}

func (in *TypeCast) String() string {
	return "cast " + in.Type + transferSuffix(in.Transfer)
}

func (in *TypeCast) bind(*value.Factory) Instruction { c := *in; return &c }

// MethodCall pops Args arguments, the last argument on top, and pushes the
// result. Contracts of Callable split the state by outcome; calls that are
// not Pure forget everything escaped.
type MethodCall struct {
	base
	Callable string
	Args     int
	Return   dftype.DfType
	Pure     bool
	Anchor   types.Anchor
}

func (in *MethodCall) String() string {
	return fmt.Sprintf("call %s/%d -> %s", in.Callable, in.Args, resultType(in.Return))
}

func (in *MethodCall) bind(*value.Factory) Instruction { c := *in; return &c }

// MethodReference pops the qualifier of a method reference and pushes the
// resulting function object. The contracts of Callable are applied to the
// qualifier.
type MethodReference struct {
	base
	Callable string
	Return   dftype.DfType
	Anchor   types.Anchor
}

func (in *MethodReference) String() string                  { return "method_ref " + in.Callable }
func (in *MethodReference) bind(*value.Factory) Instruction { c := *in; return &c }

// Return ends the path through Transfer. A nil Transfer resumes the
// transfer parked on the stack by a finally block.
type Return struct {
	base
	Transfer *transfer.ControlTransfer
}

func (in *Return) String() string {
	if in.Transfer == nil {
		return "return (pending)"
	}
	return "return " + in.Transfer.String()
}

func (in *Return) bind(*value.Factory) Instruction { c := *in; return &c }

// Closure starts an independent interpretation of the nested body at
// Entry, seeded with the current constraints. Captured variables escape.
type Closure struct {
	base
	Entry    int
	Captured []*value.Variable
}

func (in *Closure) String() string {
	return fmt.Sprintf("closure %d [%s]", in.Entry, varList(in.Captured))
}

func (in *Closure) bind(f *value.Factory) Instruction {
	c := *in
	c.Captured = rebindVars(f, in.Captured)
	return &c
}

func varList(vars []*value.Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}

func rebindVars(f *value.Factory, vars []*value.Variable) []*value.Variable {
	out := make([]*value.Variable, len(vars))
	for i, v := range vars {
		out[i] = f.RebindVar(v)
	}
	return out
}

func transferSuffix(t *transfer.ControlTransfer) string {
	if t == nil {
		return ""
	}
	return " => " + t.String()
}

func resultType(t dftype.DfType) string {
	if t == nil {
		return dftype.Top.String()
	}
	return t.String()
}
