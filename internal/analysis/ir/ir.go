// Package ir defines the flat stack-based instruction set executed by the
// interpreter. Instructions are immutable once added to a Program, which
// assigns each its index exactly once.
package ir

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/gnolang/dfa/internal/analysis/transfer"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/types"
)

var (
	// ErrIndexAssigned is returned when an instruction is added twice.
	ErrIndexAssigned = errors.New("instruction index already assigned")
	// ErrTargetOutOfRange is returned for a jump outside the program.
	ErrTargetOutOfRange = errors.New("jump target out of range")
)

// Instruction is one step of a program.
type Instruction interface {
	// Index is the position in the owning program, or -1 before the
	// instruction is added.
	Index() int
	String() string

	setIndex(i int) error
	bind(f *value.Factory) Instruction
}

type base struct {
	index int
	set   bool
}

func (b *base) Index() int {
	if !b.set {
		return -1
	}
	return b.index
}

func (b *base) setIndex(i int) error {
	if b.set {
		return errors.Wrapf(ErrIndexAssigned, "index %d, requested %d", b.index, i)
	}
	b.index, b.set = i, true
	return nil
}

// Program is an instruction array. Execution starts at index 0 and ends
// when control falls through to Len().
type Program struct {
	Name string
	// Anchor locates the program itself, for findings about the whole run.
	Anchor types.Anchor
	instrs []Instruction
}

func NewProgram(name string) *Program {
	return &Program{Name: name}
}

// Add appends in and assigns its index.
func (p *Program) Add(in Instruction) (int, error) {
	i := len(p.instrs)
	if err := in.setIndex(i); err != nil {
		return -1, err
	}
	p.instrs = append(p.instrs, in)
	return i, nil
}

// MustAdd adds every instruction and panics on error.
func (p *Program) MustAdd(ins ...Instruction) *Program {
	for _, in := range ins {
		if _, err := p.Add(in); err != nil {
			panic(err)
		}
	}
	return p
}

func (p *Program) Len() int { return len(p.instrs) }

// At returns the instruction at index i.
func (p *Program) At(i int) Instruction { return p.instrs[i] }

// Instructions returns the instructions in order.
func (p *Program) Instructions() []Instruction {
	return append([]Instruction(nil), p.instrs...)
}

// Validate checks that every jump lands inside the program or on its end.
func (p *Program) Validate() error {
	for _, in := range p.instrs {
		for _, t := range targets(in) {
			if t < 0 || t > len(p.instrs) {
				return errors.Wrapf(ErrTargetOutOfRange, "instruction %d (%s) jumps to %d", in.Index(), in, t)
			}
		}
	}
	return nil
}

// Bind returns a copy of p whose values belong to f. Indices are kept.
func (p *Program) Bind(f *value.Factory) *Program {
	out := &Program{Name: p.Name, Anchor: p.Anchor, instrs: make([]Instruction, len(p.instrs))}
	for i, in := range p.instrs {
		out.instrs[i] = in.bind(f)
	}
	return out
}

func (p *Program) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "program %s:\n", p.Name)
	for _, in := range p.instrs {
		fmt.Fprintf(&b, "%4d: %s\n", in.Index(), in)
	}
	return b.String()
}

func targets(in Instruction) []int {
	var out []int
	addTransfer := func(t *transfer.ControlTransfer) {
		if t == nil {
			return
		}
		if j, ok := t.Target.(transfer.Jump); ok {
			out = append(out, j.Index)
		}
		for _, trap := range t.Traps {
			switch trap := trap.(type) {
			case transfer.Catch:
				out = append(out, trap.Target)
			case transfer.Finally:
				out = append(out, trap.Target)
			}
		}
	}
	switch in := in.(type) {
	case *Goto:
		out = append(out, in.Target)
	case *ConditionalGoto:
		out = append(out, in.Target)
	case *Closure:
		out = append(out, in.Entry)
	case *Return:
		addTransfer(in.Transfer)
	case *CheckNotNull:
		addTransfer(in.Transfer)
	case *ArrayAccess:
		addTransfer(in.Transfer)
	case *ArrayStore:
		addTransfer(in.Transfer)
	case *ArraySizeCheck:
		addTransfer(in.Transfer)
	case *Ensure:
		addTransfer(in.Transfer)
	case *TypeCast:
		addTransfer(in.Transfer)
	}
	return out
}
