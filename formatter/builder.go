package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/dfa/internal"
	tt "github.com/gnolang/dfa/internal/types"
)

const tabWidth = 8

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	infoStyle    = color.New(color.FgHiCyan, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	helpStyle    = color.New(color.FgGreen, color.Bold)
)

// issueFormatter is the interface that wraps the IssueTemplate method.
// Implementations decide how the issues of one rule are laid out.
type issueFormatter interface {
	IssueTemplate() string
}

// getIssueFormatter returns the formatter of rule, or a GeneralIssueFormatter
// when the rule has no specific one.
func getIssueFormatter(rule string) issueFormatter {
	switch tt.ProblemKind(rule) {
	case tt.ConstantCondition:
		return &ConstantConditionFormatter{}
	case tt.NullDereference:
		return &NullDereferenceFormatter{}
	default:
		return &GeneralIssueFormatter{}
	}
}

// GenerateFormattedIssue formats issues found in one file into a
// human-readable string. snippet holds the lines of that file.
func GenerateFormattedIssue(issues []tt.Issue, snippet *internal.SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		builder.WriteString(buildIssue(issue, snippet, getIssueFormatter(issue.Rule)))
	}
	return builder.String()
}

/***** Issue Formatter Builder *****/

type IssueData struct {
	Severity        string
	Rule            string
	Verdict         string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	MaxLineNumWidth int
	Message         string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

func buildIssue(issue tt.Issue, snippet *internal.SourceCode, formatter issueFormatter) string {
	startLine := issue.Start.Line
	endLine := issue.End.Line
	if endLine < startLine {
		endLine = startLine
	}
	maxLineNumWidth := len(fmt.Sprint(endLine))

	var lines []string
	if snippet != nil {
		lines = snippet.Lines
	}
	var commonIndent string
	if isValidLineRange(startLine, endLine, lines) {
		commonIndent = findCommonIndent(lines[startLine-1 : endLine])
	}

	data := IssueData{
		Severity:        issue.Severity.String(),
		Rule:            issue.Rule,
		Verdict:         issue.Verdict.String(),
		Filename:        issue.Filename,
		StartLine:       startLine,
		StartColumn:     issue.Start.Column,
		EndLine:         endLine,
		EndColumn:       issue.End.Column,
		Message:         issue.Message,
		Note:            issue.Note,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		CommonIndent:    commonIndent,
		SnippetLines:    lines,
	}

	funcMap := template.FuncMap{
		"header":              header,
		"snippet":             codeSnippet,
		"underlineAndMessage": underlineAndMessage,
		"note":                note,
		"help":                help,
	}

	tmpl := template.Must(template.New("issue").Funcs(funcMap).Parse(formatter.IssueTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

func header(rule string, severity string, maxLineNumWidth int, filename string, startLine int, startColumn int) string {
	var out string
	switch severity {
	case "ERROR":
		out = errorStyle.Sprint("error: ")
	case "WARNING":
		out = warningStyle.Sprint("warning: ")
	case "INFO":
		out = infoStyle.Sprint("info: ")
	}
	out += ruleStyle.Sprintf("%s\n", rule)
	out += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", maxLineNumWidth))
	out += fileStyle.Sprintf("%s:%d:%d", filename, startLine, startColumn)
	return out + "\n"
}

func codeSnippet(lines []string, startLine int, endLine int, maxLineNumWidth int, commonIndent string, padding string) string {
	out := lineStyle.Sprintf("%s|", padding) + "\n"
	for i := startLine; i <= endLine; i++ {
		if i-1 < 0 || i-1 >= len(lines) {
			continue
		}
		line := strings.TrimPrefix(lines[i-1], commonIndent)
		out += lineStyle.Sprintf("%*d | ", maxLineNumWidth, i) + strings.TrimRight(line, " \t\r") + "\n"
	}
	return out
}

// underlineAndMessage marks the reported range. An empty range on a single
// line marks the rest of the line, which is the whole instruction in a
// program file.
func underlineAndMessage(message string, padding string, startLine int, endLine int, startColumn int, endColumn int, lines []string, commonIndent string) string {
	out := lineStyle.Sprintf("%s| ", padding)
	if !isValidLineRange(startLine, endLine, lines) {
		return out + messageStyle.Sprintf("%s", message) + "\n"
	}

	last := strings.TrimRight(lines[endLine-1], " \t\r")
	if startLine == endLine && endColumn <= startColumn {
		endColumn = len(last)
	}
	indentWidth := calculateVisualColumn(commonIndent, len(commonIndent)+1)

	start := calculateVisualColumn(lines[startLine-1], startColumn) - indentWidth
	if start < 0 {
		start = 0
	}
	end := calculateVisualColumn(last, endColumn) - indentWidth
	length := end - start + 1
	if length < 1 {
		length = 1
	}

	out += strings.Repeat(" ", start) + messageStyle.Sprint(strings.Repeat("~", length)) + "\n"
	out += lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprint(message) + "\n"
	return out
}

func note(padding string, text string) string {
	if text == "" {
		return ""
	}
	return lineStyle.Sprintf("%s= ", padding) + helpStyle.Sprint("note: ") + text + "\n"
}

func help(padding string, text string) string {
	return lineStyle.Sprintf("%s= ", padding) + helpStyle.Sprint("help: ") + text + "\n"
}

func isValidLineRange(startLine int, endLine int, lines []string) bool {
	return startLine > 0 &&
		startLine <= endLine &&
		endLine <= len(lines)
}

// calculateVisualColumn returns the display width of line before the
// 1-based column, expanding tabs.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visual := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visual += tabWidth - (visual % tabWidth)
		} else {
			visual++
		}
	}
	return visual
}

// findCommonIndent returns the leading whitespace shared by every
// non-blank line.
func findCommonIndent(lines []string) string {
	var indent []rune
	first := true
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		current := []rune(line[:len(line)-len(trimmed)])
		if first {
			indent, first = current, false
			continue
		}
		indent = commonPrefix(indent, current)
		if len(indent) == 0 {
			break
		}
	}
	return string(indent)
}

func commonPrefix(a, b []rune) []rune {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
