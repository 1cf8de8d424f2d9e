package interp

import (
	"github.com/pkg/errors"

	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/memory"
	"github.com/gnolang/dfa/internal/analysis/transfer"
	"github.com/gnolang/dfa/internal/analysis/value"
)

// Resolve computes where st goes when it performs tr. The first trap that
// intercepts tr wins: a matching catch clears the stack and jumps to its
// handler; a finally block runs with the rest of the transfer parked on the
// stack. Without traps the target decides. end is the index of the normal
// exit.
func Resolve(st *memory.State, tr *transfer.ControlTransfer, f *value.Factory, end int) []Successor {
	for i, trap := range tr.Traps {
		switch trap := trap.(type) {
		case transfer.Catch:
			if trap.Catches(tr) {
				st.ClearStack()
				return []Successor{{Index: trap.Target, State: st}}
			}
		case transfer.Finally:
			st.Push(f.Transfer(tr.Rest(i + 1)))
			return []Successor{{Index: trap.Target, State: st}}
		}
	}
	switch target := tr.Target.(type) {
	case transfer.Jump:
		return []Successor{{Index: target.Index, State: st}}
	case transfer.Throw:
		return []Successor{{Index: ThrownExit, State: st}}
	default:
		return []Successor{{Index: end, State: st}}
	}
}

func (r *Interpreter) acceptReturn(in *ir.Return, st *memory.State) ([]Successor, error) {
	tr := in.Transfer
	if tr == nil {
		vals, err := pop(st, 1)
		if err != nil {
			return nil, err
		}
		tv, ok := vals[0].(*value.TransferValue)
		if !ok {
			return nil, errors.Wrapf(ErrMalformed, "pending transfer expected, got %s", vals[0])
		}
		tr = tv.Transfer()
	}
	return Resolve(st, tr, r.factory, r.program.Len()), nil
}

// acceptClosure queues the closure body as an independent path starting
// from what is known here. The body may run at any later time, so the
// captured variables escape.
func (r *Interpreter) acceptClosure(in *ir.Closure, st *memory.State) []Successor {
	body := st.CreateClosureState()
	r.pending = append(r.pending, Successor{Index: in.Entry, State: body})
	st.MarkEscaped(in.Captured...)
	return r.next(in, st)
}
