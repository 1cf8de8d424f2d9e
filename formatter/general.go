package formatter

const issueBody = `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn -}}
{{snippet .SnippetLines .StartLine .EndLine .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines .CommonIndent -}}
{{note .Padding .Note -}}
`

type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return issueBody + "\n"
}

// ConstantConditionFormatter points at the branch that can never run.
type ConstantConditionFormatter struct{}

func (f *ConstantConditionFormatter) IssueTemplate() string {
	return issueBody + `{{help .Padding "the other outcome never happens; the code that depends on it is dead"}}
`
}

// NullDereferenceFormatter suggests a guard when the value is only
// sometimes null.
type NullDereferenceFormatter struct{}

func (f *NullDereferenceFormatter) IssueTemplate() string {
	return issueBody + `{{if eq .Verdict "unsure"}}{{help .Padding "check the value against null before dereferencing it"}}{{end}}
`
}
