package types

import (
	"fmt"
	"go/token"
	"strings"
)

// Issue represents a problem found while interpreting a program.
type Issue struct {
	Rule     string
	Category string
	Filename string
	Message  string
	Note     string
	Verdict  Verdict
	Severity Severity
	Anchor   Anchor
	Start    token.Position
	End      token.Position
}

// Anchor is an opaque handle to the source construct an instruction was
// generated from. Anchors are compared for equality and must be
// comparable; the interpreter never looks inside them.
type Anchor any

// Location is the anchor produced by the program file loader.
type Location struct {
	Filename string
	Line     int
	Column   int
	Label    string
}

func (l Location) String() string {
	if l.Label != "" {
		return fmt.Sprintf("%s:%d:%d (%s)", l.Filename, l.Line, l.Column, l.Label)
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
}

// Position converts l to a token position.
func (l Location) Position() token.Position {
	return token.Position{Filename: l.Filename, Line: l.Line, Column: l.Column}
}

// Verdict is the outcome of checking a problem in one state.
type Verdict int

const (
	// Safe means the problem cannot occur.
	Safe Verdict = iota
	// Unsure means the problem may occur.
	Unsure
	// Violates means the problem always occurs.
	Violates
)

func (v Verdict) String() string {
	switch v {
	case Safe:
		return "safe"
	case Unsure:
		return "unsure"
	case Violates:
		return "violates"
	default:
		return "invalid"
	}
}

// Merge combines the verdicts of two states reaching the same anchor.
func (v Verdict) Merge(other Verdict) Verdict {
	if v == other {
		return v
	}
	return Unsure
}

// ProblemKind names a class of runtime problem the interpreter checks.
type ProblemKind string

const (
	NullDereference      ProblemKind = "null-dereference"
	ArrayIndexOutOfRange ProblemKind = "array-index-out-of-bounds"
	NegativeArraySize    ProblemKind = "negative-array-size"
	ClassCast            ProblemKind = "class-cast"
	DivisionByZero       ProblemKind = "division-by-zero"
	ConstantCondition    ProblemKind = "constant-condition"
	ContractFailure      ProblemKind = "contract-failure"
)

// AnalysisIncomplete is reported by the engine for a program whose
// interpretation ran out of budget. It is not an interpreter check.
const AnalysisIncomplete ProblemKind = "analysis-incomplete"

// AllProblems lists every problem kind the interpreter checks.
var AllProblems = []ProblemKind{
	NullDereference,
	ArrayIndexOutOfRange,
	NegativeArraySize,
	ClassCast,
	DivisionByZero,
	ConstantCondition,
	ContractFailure,
}

// Problem is a check attached to a source construct.
type Problem struct {
	Kind   ProblemKind
	Anchor Anchor
}

// Severity is the importance of a reported issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityOff
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	case SeverityOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity is the inverse of Severity.String; it ignores case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(s) {
	case "ERROR":
		return SeverityError, nil
	case "WARNING":
		return SeverityWarning, nil
	case "INFO":
		return SeverityInfo, nil
	case "OFF":
		return SeverityOff, nil
	}
	return SeverityOff, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Severity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ConfigRule is the per-problem configuration read from the config file.
type ConfigRule struct {
	Severity Severity `yaml:"severity"`
}
