package irfile

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/relation"
	"github.com/gnolang/dfa/internal/analysis/transfer"
	"github.com/gnolang/dfa/internal/analysis/value"
)

var arithOps = map[string]rangeset.Op{
	"add":  rangeset.Add,
	"sub":  rangeset.Sub,
	"mul":  rangeset.Mul,
	"div":  rangeset.Div,
	"rem":  rangeset.Mod,
	"band": rangeset.And,
	"bor":  rangeset.Or,
	"xor":  rangeset.Xor,
	"shl":  rangeset.Shl,
	"shr":  rangeset.Shr,
	"ushr": rangeset.UShr,
}

var conversions = map[string]ir.Primitive{
	"int":   ir.ToInt,
	"long":  ir.ToLong,
	"float": ir.ToFloat,
}

func (b *builder) instruction(d instrDoc) (ir.Instruction, error) {
	switch d.Op {
	case "push":
		return b.push(d)
	case "pop":
		return &ir.Pop{}, nil
	case "dup":
		return &ir.Dup{}, nil
	case "swap":
		return &ir.Swap{}, nil
	case "flush":
		v, err := b.variable(d.Var)
		if err != nil {
			return nil, err
		}
		return &ir.Flush{Var: v}, nil
	case "escape":
		vars, err := b.variables(d.Vars)
		if err != nil {
			return nil, err
		}
		return &ir.Escape{Vars: vars}, nil
	case "assign":
		return &ir.Assign{Anchor: b.anchor(d)}, nil
	case "eval_unknown":
		t, err := b.typeOf(d.Type)
		if err != nil {
			return nil, err
		}
		return &ir.EvalUnknown{Pops: d.Count, Result: t}, nil
	case "goto":
		t, err := b.target(d.Target)
		if err != nil {
			return nil, err
		}
		g := &ir.Goto{Target: t}
		if d.Widen != nil {
			g.NoWiden = !*d.Widen
		}
		return g, nil
	case "if_true", "if_false":
		t, err := b.target(d.Target)
		if err != nil {
			return nil, err
		}
		return &ir.ConditionalGoto{Target: t, JumpIfFalse: d.Op == "if_false", Anchor: b.anchor(d)}, nil
	case "cmp":
		rel, err := relation.Parse(d.Rel)
		if err != nil {
			return nil, errors.Wrap(ErrSyntax, err.Error())
		}
		return &ir.BooleanBinary{Rel: rel, Anchor: b.anchor(d)}, nil
	case "and":
		return &ir.BooleanBinary{Logic: ir.And, Anchor: b.anchor(d)}, nil
	case "or":
		return &ir.BooleanBinary{Logic: ir.Or, Anchor: b.anchor(d)}, nil
	case "not":
		return &ir.Not{Anchor: b.anchor(d)}, nil
	case "instanceof":
		if d.Type == "" {
			return nil, errors.Wrap(ErrSyntax, "missing type")
		}
		return &ir.Instanceof{Type: d.Type, Anchor: b.anchor(d)}, nil
	case "check_not_null":
		return b.checkNotNull(d)
	case "array_load":
		t, err := b.typeOf(d.Type)
		if err != nil {
			return nil, err
		}
		tr, err := b.failure(d)
		if err != nil {
			return nil, err
		}
		return &ir.ArrayAccess{Element: t, Anchor: b.anchor(d), Transfer: tr}, nil
	case "array_store":
		tr, err := b.failure(d)
		if err != nil {
			return nil, err
		}
		return &ir.ArrayStore{Anchor: b.anchor(d), Transfer: tr}, nil
	case "array_size_check":
		tr, err := b.failure(d)
		if err != nil {
			return nil, err
		}
		return &ir.ArraySizeCheck{Anchor: b.anchor(d), Transfer: tr}, nil
	case "ensure":
		return b.ensure(d)
	case "add", "sub", "mul", "div", "rem", "band", "bor", "xor", "shl", "shr", "ushr":
		kind := rangeset.Int
		switch d.Type {
		case "", "int":
		case "long":
			kind = rangeset.Long
		default:
			return nil, errors.Wrapf(ErrSyntax, "arithmetic on %q", d.Type)
		}
		return &ir.NumericBinary{Op: arithOps[d.Op], Kind: kind, Anchor: b.anchor(d)}, nil
	case "convert":
		to, ok := conversions[d.Type]
		if !ok {
			return nil, errors.Wrapf(ErrSyntax, "cannot convert to %q", d.Type)
		}
		return &ir.PrimitiveConversion{To: to}, nil
	case "cast":
		if d.Type == "" {
			return nil, errors.Wrap(ErrSyntax, "missing type")
		}
		tr, err := b.failure(d)
		if err != nil {
			return nil, err
		}
		return &ir.TypeCast{Type: d.Type, Anchor: b.anchor(d), Transfer: tr}, nil
	case "call":
		t, err := b.typeOf(d.Type)
		if err != nil {
			return nil, err
		}
		if d.Callable == "" || d.Count < 0 {
			return nil, errors.Wrap(ErrSyntax, "call needs a callable and a non-negative count")
		}
		return &ir.MethodCall{Callable: d.Callable, Args: d.Count, Return: t, Pure: d.Pure, Anchor: b.anchor(d)}, nil
	case "method_ref":
		var t dftype.DfType
		if d.Type != "" {
			var err error
			if t, err = b.typeOf(d.Type); err != nil {
				return nil, err
			}
		}
		return &ir.MethodReference{Callable: d.Callable, Return: t, Anchor: b.anchor(d)}, nil
	case "return", "throw", "jump":
		return b.exit(d)
	case "closure":
		entry, err := b.target(d.Target)
		if err != nil {
			return nil, err
		}
		vars, err := b.variables(d.Vars)
		if err != nil {
			return nil, err
		}
		return &ir.Closure{Entry: entry, Captured: vars}, nil
	}
	return nil, errors.Wrapf(ErrSyntax, "unknown op %q", d.Op)
}

func (b *builder) push(d instrDoc) (ir.Instruction, error) {
	switch {
	case d.Var != "" && d.Const != "":
		return nil, errors.Wrap(ErrSyntax, "push takes either var or const")
	case d.Var != "":
		v, err := b.variable(d.Var)
		if err != nil {
			return nil, err
		}
		return &ir.Push{Value: v, Write: d.Write, Anchor: b.anchor(d)}, nil
	case d.Const != "":
		t, err := b.typeOf(d.Const)
		if err != nil {
			return nil, err
		}
		return &ir.Push{Value: b.factory.FromType(t), Anchor: b.anchor(d)}, nil
	}
	return nil, errors.Wrap(ErrSyntax, "push needs var or const")
}

func (b *builder) checkNotNull(d instrDoc) (ir.Instruction, error) {
	kind, err := b.problem(d)
	if err != nil {
		return nil, err
	}
	tr, err := b.failure(d)
	if err != nil {
		return nil, err
	}
	return &ir.CheckNotNull{Problem: kind, Anchor: b.anchor(d), Transfer: tr}, nil
}

func (b *builder) ensure(d instrDoc) (ir.Instruction, error) {
	rel, err := relation.Parse(d.Rel)
	if err != nil {
		return nil, errors.Wrap(ErrSyntax, err.Error())
	}
	if d.Const == "" {
		return nil, errors.Wrap(ErrSyntax, "ensure needs const")
	}
	against, err := b.typeOf(d.Const)
	if err != nil {
		return nil, err
	}
	kind, err := b.problem(d)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return nil, errors.Wrap(ErrSyntax, "ensure needs a problem")
	}
	tr, err := b.failure(d)
	if err != nil {
		return nil, err
	}
	return &ir.Ensure{Rel: rel, Against: against, Problem: kind, Anchor: b.anchor(d), Transfer: tr}, nil
}

// failure is the transfer taken when a check fails: a throw of d.Throw
// through d.Traps, or nil when the failing path just ends.
func (b *builder) failure(d instrDoc) (*transfer.ControlTransfer, error) {
	if d.Throw == "" {
		if len(d.Traps) > 0 {
			return nil, errors.Wrap(ErrSyntax, "traps without throw")
		}
		return nil, nil
	}
	traps, err := b.traps(d.Traps)
	if err != nil {
		return nil, err
	}
	return &transfer.ControlTransfer{Target: transfer.Throw{Type: d.Throw}, Traps: traps}, nil
}

func (b *builder) exit(d instrDoc) (ir.Instruction, error) {
	if d.Pending {
		if d.Op != "return" || len(d.Traps) > 0 {
			return nil, errors.Wrap(ErrSyntax, "only a plain return can resume a pending transfer")
		}
		return &ir.Return{}, nil
	}
	traps, err := b.traps(d.Traps)
	if err != nil {
		return nil, err
	}
	tr := &transfer.ControlTransfer{Target: transfer.Return{}, Traps: traps}
	switch d.Op {
	case "throw":
		if d.Type == "" {
			return nil, errors.Wrap(ErrSyntax, "throw needs a type")
		}
		tr.Target = transfer.Throw{Type: d.Type}
	case "jump":
		t, err := b.target(d.Target)
		if err != nil {
			return nil, err
		}
		tr.Target = transfer.Jump{Index: t}
	}
	return &ir.Return{Transfer: tr}, nil
}

func (b *builder) traps(docs []trapDoc) ([]transfer.Trap, error) {
	var out []transfer.Trap
	for _, td := range docs {
		if td.Finally != "" {
			t, err := b.target(td.Finally)
			if err != nil {
				return nil, err
			}
			out = append(out, transfer.Finally{Target: t})
			continue
		}
		if td.Catch == "" {
			return nil, errors.Wrap(ErrSyntax, "trap needs catch or finally")
		}
		t, err := b.target(td.Target)
		if err != nil {
			return nil, err
		}
		typ := td.Catch
		if typ == "*" {
			typ = ""
		}
		out = append(out, transfer.Catch{Type: typ, Target: t})
	}
	return out, nil
}

func (b *builder) variables(paths []string) ([]*value.Variable, error) {
	out := make([]*value.Variable, 0, len(paths))
	for _, p := range paths {
		v, err := b.variable(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// variable resolves a path such as "x", "x.f", "a.length" or "a[2]". The
// declared type of each step is looked up in the program's vars.
func (b *builder) variable(path string) (*value.Variable, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.Wrap(ErrSyntax, "missing variable")
	}
	declared := b.vars[path]

	if strings.HasSuffix(path, "]") {
		open := strings.LastIndex(path, "[")
		if open <= 0 {
			return nil, errors.Wrapf(ErrSyntax, "bad element %q", path)
		}
		i, err := strconv.ParseInt(path[open+1:len(path)-1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "bad index in %q", path)
		}
		array, err := b.variable(path[:open])
		if err != nil {
			return nil, err
		}
		return b.factory.ArrayElement(array, i, declared), nil
	}

	dot := strings.LastIndex(path, ".")
	if dot < 0 {
		return b.factory.Local(path, declared), nil
	}
	if dot == 0 || dot == len(path)-1 {
		return nil, errors.Wrapf(ErrSyntax, "bad variable %q", path)
	}
	q, err := b.variable(path[:dot])
	if err != nil {
		return nil, err
	}
	if name := path[dot+1:]; name != "length" {
		return b.factory.Var(value.Field{Name: name}, q, declared), nil
	}
	return b.factory.ArrayLength(q), nil
}
