// Package interp runs an ir.Program over abstract memory states. Every
// undecidable branch forks the state; contradictory branches are dropped.
// Checks along the way are reported to a Listener.
package interp

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gnolang/dfa/internal/analysis/contract"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/memory"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/types"
)

var (
	// ErrBudgetExceeded aborts a run that processed more states than
	// Options.MaxStates allows. The analysis is incomplete.
	ErrBudgetExceeded = errors.New("analysis incomplete: state budget exceeded")
	// ErrStackUnderflow is returned when an instruction needs more operands
	// than the stack holds.
	ErrStackUnderflow = errors.New("operand stack underflow")
	// ErrMalformed is returned for operands of the wrong kind.
	ErrMalformed = errors.New("malformed instruction operands")
	// ErrForeignState is returned for initial states built on another
	// factory.
	ErrForeignState = errors.New("initial state belongs to another factory")
)

// ThrownExit is the successor index of a path that leaves the program with
// an uncaught exception. A successor at Program.Len() leaves it normally.
const ThrownExit = -1

// Listener observes a run. Both callbacks get the state at the point of the
// event; they must not keep it past the call.
type Listener interface {
	// OnCondition reports the verdict of problem for value v in st.
	OnCondition(problem types.Problem, v value.Value, verdict types.Verdict, st *memory.State)
	// BeforePush is called with the result of a call, method reference or
	// anchored computation right before it is pushed.
	BeforePush(args []value.Value, v value.Value, anchor types.Anchor, st *memory.State)
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) OnCondition(types.Problem, value.Value, types.Verdict, *memory.State) {}
func (NopListener) BeforePush([]value.Value, value.Value, types.Anchor, *memory.State)   {}

// Options tune a run.
type Options struct {
	// MaxStates bounds the number of states processed by one run.
	MaxStates int
	// WideningThreshold is the number of back-edge arrivals at an
	// instruction before arriving states are widened.
	WideningThreshold int
	// MaxStatesPerInstruction bounds the states kept for subsumption
	// checks at each instruction.
	MaxStatesPerInstruction int
	Logger                  *zap.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxStates:               50_000,
		WideningThreshold:       3,
		MaxStatesPerInstruction: 16,
		Logger:                  zap.NewNop(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxStates <= 0 {
		o.MaxStates = d.MaxStates
	}
	if o.WideningThreshold <= 0 {
		o.WideningThreshold = d.WideningThreshold
	}
	if o.MaxStatesPerInstruction <= 0 {
		o.MaxStatesPerInstruction = d.MaxStatesPerInstruction
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}

// Successor is a state continuing at instruction Index.
type Successor struct {
	Index int
	State *memory.State
}

// Result summarizes a finished run.
type Result struct {
	// Processed is the number of states popped from the worklist.
	Processed int
	// Subsumed counts arriving states dropped as already covered.
	Subsumed int
	// Exits are the states that left the program normally.
	Exits []*memory.State
	// Thrown are the states that left with an uncaught exception.
	Thrown []*memory.State
	// ClosureExits counts paths that finished a closure body.
	ClosureExits int
}

// Interpreter executes one program. It owns the value factory the program
// is bound to; build initial states with Factory.
type Interpreter struct {
	program   *ir.Program
	factory   *value.Factory
	listener  Listener
	contracts contract.Provider
	opts      Options
	logger    *zap.Logger

	recorded map[int][]*memory.State
	seen     map[int]map[uint64]struct{}
	visits   map[int]int
	pending  []Successor
}

// New binds program to a fresh factory. listener and contracts may be nil.
func New(program *ir.Program, listener Listener, contracts contract.Provider, opts Options) *Interpreter {
	opts = opts.withDefaults()
	if listener == nil {
		listener = NopListener{}
	}
	if contracts == nil {
		contracts = contract.StaticProvider(nil)
	}
	f := value.NewFactory()
	return &Interpreter{
		program:   program.Bind(f),
		factory:   f,
		listener:  listener,
		contracts: contracts,
		opts:      opts,
		logger:    opts.Logger.With(zap.String("program", program.Name)),
	}
}

// Factory returns the factory of the run.
func (r *Interpreter) Factory() *value.Factory { return r.factory }

// Program returns the program bound to the run's factory.
func (r *Interpreter) Program() *ir.Program { return r.program }

// Instruction returns the instruction at index i.
func (r *Interpreter) Instruction(i int) ir.Instruction { return r.program.At(i) }

type workItem struct {
	index int
	from  int
	state *memory.State
}

// Run interprets the program from instruction 0 once for every initial
// state, or from an empty state when none is given.
func (r *Interpreter) Run(ctx context.Context, initial ...*memory.State) (*Result, error) {
	if err := r.program.Validate(); err != nil {
		return nil, err
	}
	r.recorded = make(map[int][]*memory.State)
	r.seen = make(map[int]map[uint64]struct{})
	r.visits = make(map[int]int)
	r.pending = nil

	if len(initial) == 0 {
		initial = []*memory.State{memory.New(r.factory)}
	}
	var work []workItem
	for _, st := range initial {
		if st.Factory() != r.factory {
			return nil, ErrForeignState
		}
		work = append(work, workItem{index: 0, from: -1, state: st})
	}

	res := &Result{}
	end := r.program.Len()
	for len(work) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := work[len(work)-1]
		work = work[:len(work)-1]

		switch item.index {
		case end:
			if item.state.ClosureOrigin() != nil {
				res.ClosureExits++
			} else {
				res.Exits = append(res.Exits, item.state)
			}
			continue
		case ThrownExit:
			res.Thrown = append(res.Thrown, item.state)
			continue
		}

		res.Processed++
		if res.Processed > r.opts.MaxStates {
			r.logger.Warn("state budget exceeded", zap.Int("max_states", r.opts.MaxStates))
			return nil, errors.Wrapf(ErrBudgetExceeded, "program %s", r.program.Name)
		}

		in := r.program.At(item.index)
		r.widen(item, in)
		if r.subsumed(item.index, item.state) {
			res.Subsumed++
			continue
		}
		r.record(item.index, item.state)

		if ce := r.logger.Check(zap.DebugLevel, "step"); ce != nil {
			ce.Write(
				zap.Int("index", item.index),
				zap.Stringer("instruction", in),
				zap.Stringer("state", item.state),
				zap.Int("pending", len(work)),
			)
		}

		succs, err := r.accept(in, item.state)
		if err != nil {
			return nil, errors.Wrapf(err, "instruction %d (%s)", item.index, in)
		}
		for _, s := range succs {
			work = append(work, workItem{index: s.Index, from: item.index, state: s.State})
		}
		for _, s := range r.pending {
			work = append(work, workItem{index: s.Index, from: -1, state: s.State})
		}
		r.pending = r.pending[:0]
	}

	r.logger.Debug("run finished",
		zap.Int("processed", res.Processed),
		zap.Int("subsumed", res.Subsumed),
		zap.Int("exits", len(res.Exits)),
		zap.Int("thrown", len(res.Thrown)),
		zap.Int("values", r.factory.Size()),
	)
	return res, nil
}

// widen extrapolates a state arriving over a back edge once the target has
// been reached that way more than the threshold allows.
func (r *Interpreter) widen(item workItem, in ir.Instruction) {
	if item.from < item.index {
		return
	}
	if g, ok := r.program.At(item.from).(*ir.Goto); ok && g.NoWiden {
		return
	}
	r.visits[item.index]++
	if r.visits[item.index] <= r.opts.WideningThreshold {
		return
	}
	states := r.recorded[item.index]
	if len(states) == 0 {
		return
	}
	item.state.WidenAgainst(states[len(states)-1])
	r.logger.Debug("widened", zap.Int("index", item.index), zap.Stringer("instruction", in))
}

func (r *Interpreter) subsumed(index int, st *memory.State) bool {
	if _, ok := r.seen[index][st.Fingerprint()]; ok {
		return true
	}
	for _, prev := range r.recorded[index] {
		if prev.IsSuperStateOf(st) {
			return true
		}
	}
	return false
}

// record keeps a copy of st for later subsumption checks. States covered by
// st are dropped, and the oldest state goes once the limit is reached.
func (r *Interpreter) record(index int, st *memory.State) {
	kept := r.recorded[index][:0]
	for _, prev := range r.recorded[index] {
		if !st.IsSuperStateOf(prev) {
			kept = append(kept, prev)
		}
	}
	kept = append(kept, st.Copy())
	if len(kept) > r.opts.MaxStatesPerInstruction {
		kept = kept[1:]
	}
	r.recorded[index] = kept

	if r.seen[index] == nil {
		r.seen[index] = make(map[uint64]struct{})
	}
	r.seen[index][st.Fingerprint()] = struct{}{}
}

func (r *Interpreter) next(in ir.Instruction, st *memory.State) []Successor {
	return []Successor{{Index: in.Index() + 1, State: st}}
}

func (r *Interpreter) report(kind types.ProblemKind, anchor types.Anchor, v value.Value, verdict types.Verdict, st *memory.State) {
	if anchor == nil {
		return
	}
	r.listener.OnCondition(types.Problem{Kind: kind, Anchor: anchor}, v, verdict, st)
}

func (r *Interpreter) push(st *memory.State, args []value.Value, v value.Value, anchor types.Anchor) {
	if anchor != nil {
		r.listener.BeforePush(args, v, anchor, st)
	}
	st.Push(v)
}

func pop(st *memory.State, n int) ([]value.Value, error) {
	if st.StackSize() < n {
		return nil, errors.Wrapf(ErrStackUnderflow, "need %d values, have %d", n, st.StackSize())
	}
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = st.Pop()
	}
	return out, nil
}

func peek(st *memory.State) (value.Value, error) {
	v := st.Peek(0)
	if v == nil {
		return nil, errors.Wrap(ErrStackUnderflow, "need 1 value, have 0")
	}
	return v, nil
}
