// Package irfile reads programs written as YAML. It is the front end used
// by the command line and by tests; every instruction is anchored at the
// line of the file it was written on.
//
// A file holds optional contracts and a list of programs:
//
//	contracts:
//	  isEmpty:
//	    - when: [{arg: 0, rel: "==", value: "null"}]
//	      fails: true
//	programs:
//	  - name: first
//	    vars:
//	      s: "?null"
//	    code:
//	      - {op: push, var: s}
//	      - {op: check_not_null, src: "s.length()"} # nolint: null-dereference
//	      - {op: pop}
//
// A "# nolint" comment silences the instruction it is written on or above.
// Written before the first key it silences the whole file. Programs and
// instructions also take a nolint list of rule names.
package irfile

import (
	"go/token"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/dfa/internal/analysis/contract"
	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/nolint"
	"github.com/gnolang/dfa/internal/types"
)

// Ext is the file extension of program files.
const Ext = ".ir"

// ErrSyntax is wrapped by every error caused by the content of a file.
var ErrSyntax = errors.New("invalid program file")

// File is a decoded program file.
type File struct {
	Name      string
	Programs  []*ir.Program
	Contracts contract.StaticProvider
	// Nolint holds the regions where issues are not reported.
	Nolint *nolint.Manager
	// Locations holds, per program name, where each instruction was
	// written. The label is the instruction's src text.
	Locations map[string][]types.Location
	// Lines is the file content split into lines.
	Lines []string
}

type document struct {
	Contracts map[string][]contract.Spec `yaml:"contracts"`
	Programs  []programDoc               `yaml:"programs"`
}

type programDoc struct {
	Name   string            `yaml:"name"`
	Vars   map[string]string `yaml:"vars"`
	Code   []yaml.Node       `yaml:"code"`
	Nolint *[]string         `yaml:"nolint"`
}

type instrDoc struct {
	Op       string    `yaml:"op"`
	Label    string    `yaml:"label"`
	Src      string    `yaml:"src"`
	Var      string    `yaml:"var"`
	Vars     []string  `yaml:"vars"`
	Const    string    `yaml:"const"`
	Write    bool      `yaml:"write"`
	Type     string    `yaml:"type"`
	Rel      string    `yaml:"rel"`
	Target   string    `yaml:"target"`
	Widen    *bool     `yaml:"widen"`
	Count    int       `yaml:"count"`
	Callable string    `yaml:"callable"`
	Pure     bool      `yaml:"pure"`
	Problem  string    `yaml:"problem"`
	Throw    string    `yaml:"throw"`
	Traps    []trapDoc `yaml:"traps"`
	Pending  bool      `yaml:"pending"`
	Nolint   *[]string `yaml:"nolint"`

	line, column int
}

type trapDoc struct {
	Catch   string `yaml:"catch"`
	Finally string `yaml:"finally"`
	Target  string `yaml:"target"`
}

// ReadFile reads and parses the program file at path.
func ReadFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return Parse(path, src)
}

// Parse decodes the program file src. name is used for anchors.
func Parse(name string, src []byte) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, errors.Wrapf(ErrSyntax, "%s: %v", name, err)
	}
	var doc document
	if root.Kind != 0 {
		if err := root.Decode(&doc); err != nil {
			return nil, errors.Wrapf(ErrSyntax, "%s: %v", name, err)
		}
	}
	contracts, err := contract.Compile(doc.Contracts)
	if err != nil {
		return nil, errors.Wrapf(ErrSyntax, "%s: %v", name, err)
	}

	f := &File{
		Name:      name,
		Contracts: contracts,
		Nolint:    nolint.NewManager(),
		Locations: make(map[string][]types.Location),
		Lines:     strings.Split(string(src), "\n"),
	}
	f.Nolint.AddComment(fileComments(&root), f.position(1), f.position(len(f.Lines)))

	seen := make(map[string]bool)
	for i, pd := range doc.Programs {
		if pd.Name == "" {
			pd.Name = "program" + strconv.Itoa(i)
		}
		if seen[pd.Name] {
			return nil, errors.Wrapf(ErrSyntax, "%s: duplicate program %q", name, pd.Name)
		}
		seen[pd.Name] = true
		p, err := f.build(pd)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: program %s", name, pd.Name)
		}
		f.Programs = append(f.Programs, p)
	}
	return f, nil
}

// Program returns the program called name, or nil.
func (f *File) Program(name string) *ir.Program {
	for _, p := range f.Programs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (f *File) position(line int) token.Position {
	return token.Position{Filename: f.Name, Line: line, Column: 1}
}

// fileComments returns the comments written before the first key.
func fileComments(root *yaml.Node) string {
	comments := []string{root.HeadComment}
	if len(root.Content) > 0 {
		doc := root.Content[0]
		comments = append(comments, doc.HeadComment)
		if doc.Kind == yaml.MappingNode && len(doc.Content) > 0 {
			comments = append(comments, doc.Content[0].HeadComment)
		}
	}
	return strings.Join(comments, "\n")
}

// instructionComments returns the comments above an instruction and those
// on its lines, along with the last line it spans.
func instructionComments(node *yaml.Node) (string, int) {
	comments := []string{node.HeadComment, node.LineComment}
	last := node.Line
	for _, c := range node.Content {
		comments = append(comments, c.LineComment)
		if c.Line > last {
			last = c.Line
		}
	}
	return strings.Join(comments, "\n"), last
}

// builder turns one program document into instructions.
type builder struct {
	file    *File
	program string
	factory *value.Factory
	vars    map[string]dftype.DfType
	labels  map[string]int
	end     int
}

func (f *File) build(pd programDoc) (*ir.Program, error) {
	b := &builder{
		file:    f,
		program: pd.Name,
		factory: value.NewFactory(),
		vars:    make(map[string]dftype.DfType, len(pd.Vars)),
		labels:  make(map[string]int),
		end:     len(pd.Code),
	}
	for name, spec := range pd.Vars {
		t, err := dftype.Parse(spec)
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "variable %s: %v", name, err)
		}
		b.vars[name] = t
	}

	docs := make([]instrDoc, len(pd.Code))
	for i := range pd.Code {
		node := &pd.Code[i]
		if err := node.Decode(&docs[i]); err != nil {
			return nil, errors.Wrapf(ErrSyntax, "line %d: %v", node.Line, err)
		}
		docs[i].line, docs[i].column = node.Line, node.Column
		comments, last := instructionComments(node)
		f.Nolint.AddComment(comments, f.position(node.Line), f.position(last))
		if d := docs[i]; d.Nolint != nil {
			f.Nolint.Add(f.position(node.Line), f.position(last), *d.Nolint)
		}
		if l := docs[i].Label; l != "" {
			if _, dup := b.labels[l]; dup || l == "end" {
				return nil, errors.Wrapf(ErrSyntax, "line %d: label %q redefined", node.Line, l)
			}
			b.labels[l] = i
		}
	}

	if pd.Nolint != nil && len(pd.Code) > 0 {
		_, last := instructionComments(&pd.Code[len(pd.Code)-1])
		f.Nolint.Add(f.position(pd.Code[0].Line), f.position(last), *pd.Nolint)
	}

	p := ir.NewProgram(pd.Name)
	if len(docs) > 0 {
		p.Anchor = types.Location{Filename: f.Name, Line: docs[0].line, Column: docs[0].column, Label: pd.Name}
	}
	locs := make([]types.Location, 0, len(docs))
	for _, d := range docs {
		locs = append(locs, b.anchor(d))
		in, err := b.instruction(d)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d (%s)", d.line, d.Op)
		}
		if _, err := p.Add(in); err != nil {
			return nil, err
		}
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(ErrSyntax, err.Error())
	}
	f.Locations[pd.Name] = locs
	return p, nil
}

func (b *builder) anchor(d instrDoc) types.Location {
	return types.Location{Filename: b.file.Name, Line: d.line, Column: d.column, Label: d.Src}
}

// target resolves a label, an instruction index or "end".
func (b *builder) target(s string) (int, error) {
	if s == "" {
		return 0, errors.Wrap(ErrSyntax, "missing target")
	}
	if s == "end" {
		return b.end, nil
	}
	if i, ok := b.labels[s]; ok {
		return i, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrSyntax, "unknown label %q", s)
	}
	return i, nil
}

func (b *builder) problem(d instrDoc) (types.ProblemKind, error) {
	if d.Problem == "" {
		return "", nil
	}
	for _, k := range types.AllProblems {
		if string(k) == d.Problem {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrSyntax, "unknown problem %q", d.Problem)
}

func (b *builder) typeOf(s string) (dftype.DfType, error) {
	t, err := dftype.Parse(s)
	if err != nil {
		return nil, errors.Wrap(ErrSyntax, err.Error())
	}
	return t, nil
}
