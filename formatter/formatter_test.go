package formatter

import (
	"go/token"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/gnolang/dfa/internal"
	tt "github.com/gnolang/dfa/internal/types"
)

func init() {
	color.NoColor = true
}

var program = &internal.SourceCode{
	Lines: []string{
		"programs:",
		"  - name: deref",
		"    vars:",
		`      s: "?null"`,
		"    code:",
		"      - {op: push, var: s}",
		`      - {op: check_not_null, src: "s.length()"}`,
		"      - {op: pop}",
		`      - {op: push, const: "int{1}"}`,
		`      - {op: push, const: "int{1}"}`,
		`      - {op: cmp, rel: "==", src: "1 == 1"}`,
	},
}

func at(line, column int) token.Position {
	return token.Position{Filename: "test.ir", Line: line, Column: column}
}

func TestGenerateFormattedIssue(t *testing.T) {
	t.Parallel()
	issues := []tt.Issue{
		{
			Rule:     "null-dereference",
			Filename: "test.ir",
			Message:  "dereference of a value that may be null",
			Note:     "value: s",
			Verdict:  tt.Unsure,
			Severity: tt.SeverityError,
			Start:    at(7, 9),
			End:      at(7, 9),
		},
		{
			Rule:     "null-dereference",
			Filename: "test.ir",
			Message:  "dereference of a value that is always null",
			Verdict:  tt.Violates,
			Severity: tt.SeverityInfo,
			Start:    at(7, 9),
			End:      at(7, 9),
		},
	}

	expected := `error: null-dereference
 --> test.ir:7:9
  |
7 | - {op: check_not_null, src: "s.length()"}
  |   ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
  = dereference of a value that may be null
  = note: value: s
  = help: check the value against null before dereferencing it

info: null-dereference
 --> test.ir:7:9
  |
7 | - {op: check_not_null, src: "s.length()"}
  |   ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
  = dereference of a value that is always null

`
	assert.Equal(t, expected, GenerateFormattedIssue(issues, program))
}

func TestConstantConditionFormat(t *testing.T) {
	t.Parallel()
	issue := tt.Issue{
		Rule:     "constant-condition",
		Filename: "test.ir",
		Message:  "condition is always true",
		Verdict:  tt.Violates,
		Severity: tt.SeverityWarning,
		Start:    at(11, 9),
		End:      at(11, 9),
	}

	expected := `warning: constant-condition
  --> test.ir:11:9
   |
11 | - {op: cmp, rel: "==", src: "1 == 1"}
   |   ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
   = condition is always true
   = help: the other outcome never happens; the code that depends on it is dead

`
	assert.Equal(t, expected, GenerateFormattedIssue([]tt.Issue{issue}, program))
}

func TestFormatExplicitRange(t *testing.T) {
	t.Parallel()
	issue := tt.Issue{
		Rule:     "class-cast",
		Filename: "test.ir",
		Message:  "cast always fails",
		Severity: tt.SeverityError,
		Start:    at(6, 9),
		End:      at(6, 12),
	}

	expected := `error: class-cast
 --> test.ir:6:9
  |
6 | - {op: push, var: s}
  |   ~~~~
  = cast always fails

`
	assert.Equal(t, expected, GenerateFormattedIssue([]tt.Issue{issue}, program))
}

func TestFormatWithoutSource(t *testing.T) {
	t.Parallel()
	issue := tt.Issue{
		Rule:     "division-by-zero",
		Filename: "gone.ir",
		Message:  "divisor is always zero",
		Severity: tt.SeverityError,
		Start:    token.Position{Filename: "gone.ir", Line: 40, Column: 3},
		End:      token.Position{Filename: "gone.ir", Line: 40, Column: 3},
	}

	expected := `error: division-by-zero
  --> gone.ir:40:3
   |
   | divisor is always zero

`
	assert.Equal(t, expected, GenerateFormattedIssue([]tt.Issue{issue}, nil))
}

func TestCalculateVisualColumn(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line   string
		column int
		want   int
	}{
		{"abc", 1, 0},
		{"abc", 3, 2},
		{"\tx", 2, 8},
		{"a\tx", 3, 8},
		{"abc", -1, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, calculateVisualColumn(tc.line, tc.column), "%q:%d", tc.line, tc.column)
	}
}

func TestFindCommonIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "  ", findCommonIndent([]string{"    a", "", "  b", "\t"}))
	assert.Equal(t, "", findCommonIndent([]string{"a", "  b"}))
	assert.Equal(t, "", findCommonIndent(nil))
}
