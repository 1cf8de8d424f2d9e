package internal

import (
	tt "github.com/gnolang/dfa/internal/types"
)

/*
* Each problem kind the interpreter checks is turned into issues by its own rule
 */

// ProblemRule decides how the merged verdict of one problem kind is reported.
type ProblemRule interface {
	// Kind returns the problem kind the rule handles.
	Kind() tt.ProblemKind

	// Name returns the name of the rule, as used in configuration files.
	Name() string

	// Message returns the issue message for a merged verdict. ok is false
	// when the verdict is not worth reporting.
	Message(v tt.Verdict) (msg string, ok bool)

	Severity() tt.Severity
	SetSeverity(tt.Severity)
}

type ruleBase struct {
	kind     tt.ProblemKind
	severity tt.Severity
}

func (r *ruleBase) Kind() tt.ProblemKind      { return r.kind }
func (r *ruleBase) Name() string              { return string(r.kind) }
func (r *ruleBase) Severity() tt.Severity     { return r.severity }
func (r *ruleBase) SetSeverity(s tt.Severity) { r.severity = s }

type NullDereferenceRule struct{ ruleBase }

func NewNullDereferenceRule() ProblemRule {
	return &NullDereferenceRule{ruleBase{kind: tt.NullDereference, severity: tt.SeverityError}}
}

func (r *NullDereferenceRule) Message(v tt.Verdict) (string, bool) {
	switch v {
	case tt.Violates:
		return "dereference of a value that is always null", true
	case tt.Unsure:
		return "dereference of a value that may be null", true
	}
	return "", false
}

type ArrayIndexRule struct{ ruleBase }

func NewArrayIndexRule() ProblemRule {
	return &ArrayIndexRule{ruleBase{kind: tt.ArrayIndexOutOfRange, severity: tt.SeverityError}}
}

func (r *ArrayIndexRule) Message(v tt.Verdict) (string, bool) {
	if v != tt.Violates {
		return "", false
	}
	return "array index is always out of bounds", true
}

type NegativeArraySizeRule struct{ ruleBase }

func NewNegativeArraySizeRule() ProblemRule {
	return &NegativeArraySizeRule{ruleBase{kind: tt.NegativeArraySize, severity: tt.SeverityError}}
}

func (r *NegativeArraySizeRule) Message(v tt.Verdict) (string, bool) {
	if v != tt.Violates {
		return "", false
	}
	return "array size is always negative", true
}

type ClassCastRule struct{ ruleBase }

func NewClassCastRule() ProblemRule {
	return &ClassCastRule{ruleBase{kind: tt.ClassCast, severity: tt.SeverityError}}
}

func (r *ClassCastRule) Message(v tt.Verdict) (string, bool) {
	if v != tt.Violates {
		return "", false
	}
	return "cast always fails", true
}

type DivisionByZeroRule struct{ ruleBase }

func NewDivisionByZeroRule() ProblemRule {
	return &DivisionByZeroRule{ruleBase{kind: tt.DivisionByZero, severity: tt.SeverityError}}
}

func (r *DivisionByZeroRule) Message(v tt.Verdict) (string, bool) {
	if v != tt.Violates {
		return "", false
	}
	return "divisor is always zero", true
}

// ConstantConditionRule reports conditions with a single possible outcome.
// Violates stands for always true and Safe for always false.
type ConstantConditionRule struct{ ruleBase }

func NewConstantConditionRule() ProblemRule {
	return &ConstantConditionRule{ruleBase{kind: tt.ConstantCondition, severity: tt.SeverityWarning}}
}

func (r *ConstantConditionRule) Message(v tt.Verdict) (string, bool) {
	switch v {
	case tt.Violates:
		return "condition is always true", true
	case tt.Safe:
		return "condition is always false", true
	}
	return "", false
}

// AnalysisIncompleteRule reports programs that were not fully analyzed.
// Issues of the other rules may be missing for them.
type AnalysisIncompleteRule struct{ ruleBase }

func NewAnalysisIncompleteRule() ProblemRule {
	return &AnalysisIncompleteRule{ruleBase{kind: tt.AnalysisIncomplete, severity: tt.SeverityWarning}}
}

func (r *AnalysisIncompleteRule) Message(tt.Verdict) (string, bool) {
	return "analysis incomplete: state budget exceeded", true
}

type ContractFailureRule struct{ ruleBase }

func NewContractFailureRule() ProblemRule {
	return &ContractFailureRule{ruleBase{kind: tt.ContractFailure, severity: tt.SeverityWarning}}
}

func (r *ContractFailureRule) Message(v tt.Verdict) (string, bool) {
	if v != tt.Violates {
		return "", false
	}
	return "call always violates its contract", true
}
