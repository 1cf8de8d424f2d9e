// Package transfer describes non-local control transfers: returns, thrown
// exceptions and jumps that must pass through enclosing catch and finally
// blocks.
package transfer

import (
	"fmt"
	"strings"
)

// Target is where a transfer ends once no trap intercepts it.
type Target interface {
	String() string
	isTarget()
}

// Jump continues at an instruction index.
type Jump struct {
	Index int
}

// Return leaves the analyzed body normally.
type Return struct{}

// Throw leaves the analyzed body with an exception of the named type.
type Throw struct {
	Type string
}

func (j Jump) String() string  { return fmt.Sprintf("goto %d", j.Index) }
func (Return) String() string  { return "return" }
func (t Throw) String() string { return "throw " + t.Type }
func (Jump) isTarget()         {}
func (Return) isTarget()       {}
func (Throw) isTarget()        {}

// Trap is an enclosing handler a transfer has to pass through.
type Trap interface {
	String() string
	isTrap()
}

// Catch intercepts thrown exceptions of Type, or of any type when Type is
// empty, and continues at Target.
type Catch struct {
	Type   string
	Target int
}

// Finally runs the block at Target, which then resumes the transfer.
type Finally struct {
	Target int
}

func (c Catch) String() string {
	if c.Type == "" {
		return fmt.Sprintf("catch(*)->%d", c.Target)
	}
	return fmt.Sprintf("catch(%s)->%d", c.Type, c.Target)
}

func (f Finally) String() string { return fmt.Sprintf("finally->%d", f.Target) }
func (Catch) isTrap()            {}
func (Finally) isTrap()          {}

// ControlTransfer is a target plus the traps between the transfer point
// and the target, innermost first.
type ControlTransfer struct {
	Target Target
	Traps  []Trap
}

// IsExceptional reports whether the transfer is a thrown exception.
func (c *ControlTransfer) IsExceptional() bool {
	_, ok := c.Target.(Throw)
	return ok
}

// Catches reports whether trap c intercepts the transfer.
func (c Catch) Catches(t *ControlTransfer) bool {
	th, ok := t.Target.(Throw)
	return ok && (c.Type == "" || c.Type == th.Type)
}

// Rest returns the transfer that remains after the first n traps.
func (c *ControlTransfer) Rest(n int) *ControlTransfer {
	return &ControlTransfer{Target: c.Target, Traps: c.Traps[n:]}
}

func (c *ControlTransfer) String() string {
	if len(c.Traps) == 0 {
		return c.Target.String()
	}
	traps := make([]string, len(c.Traps))
	for i, t := range c.Traps {
		traps[i] = t.String()
	}
	return fmt.Sprintf("%s via [%s]", c.Target, strings.Join(traps, " "))
}
