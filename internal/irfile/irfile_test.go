package irfile

import (
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/dfa/internal/analysis/dftype"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
	"github.com/gnolang/dfa/internal/analysis/transfer"
	"github.com/gnolang/dfa/internal/analysis/value"
	"github.com/gnolang/dfa/internal/nolint"
	"github.com/gnolang/dfa/internal/types"
)

const sample = `contracts:
  isEmpty:
    - when: [{arg: 0, rel: "==", value: "null"}]
      fails: true
programs:
  - name: loop
    vars:
      i: "int"
      s: "?null"
    code:
      - {op: push, var: i, write: true}
      - {op: push, const: "int{0}"}
      - {op: assign}
      - {op: pop, label: head}
      - {op: push, var: i}
      - {op: push, const: "int{10}"}
      - {op: cmp, rel: "<", src: "i < 10"}
      - {op: if_false, target: end}
      - {op: push, var: s}
      - {op: check_not_null, src: "s.length()", nolint: [null-dereference]}
      - {op: pop}
      - {op: goto, target: head}
  - name: guarded
    code:
      - {op: push, var: a}
      - {op: push, const: "int{3}"}
      - {op: array_load, type: int, throw: IndexError, traps: [{catch: "*", target: handler}]}
      - {op: return}
      - {op: pop, label: handler}
`

func TestParse(t *testing.T) {
	t.Parallel()
	f, err := Parse("sample.ir", []byte(sample))
	require.NoError(t, err)
	require.Len(t, f.Programs, 2)

	loop := f.Program("loop")
	require.NotNil(t, loop)
	assert.Equal(t, 12, loop.Len())

	cmp, ok := loop.At(6).(*ir.BooleanBinary)
	require.True(t, ok)
	loc := cmp.Anchor.(types.Location)
	assert.Equal(t, "sample.ir", loc.Filename)
	assert.Equal(t, 17, loc.Line)
	assert.Equal(t, "i < 10", loc.Label)
	assert.Contains(t, f.Lines[loc.Line-1], "i < 10")
	require.Len(t, f.Locations["loop"], loop.Len())
	assert.Equal(t, loc, f.Locations["loop"][6])

	exit, ok := loop.At(7).(*ir.ConditionalGoto)
	require.True(t, ok)
	assert.True(t, exit.JumpIfFalse)
	assert.Equal(t, loop.Len(), exit.Target)

	back, ok := loop.At(11).(*ir.Goto)
	require.True(t, ok)
	assert.Equal(t, 3, back.Target)
	assert.False(t, back.NoWiden)

	push, ok := loop.At(8).(*ir.Push)
	require.True(t, ok)
	s := push.Value.(*value.Variable)
	assert.Equal(t, "s", s.String())
	assert.Equal(t, "?null", s.Type().String())

	check := loop.At(9).(*ir.CheckNotNull)
	pos := check.Anchor.(types.Location).Position()
	assert.True(t, f.Nolint.IsNolint(pos, "null-dereference"))
	assert.False(t, f.Nolint.IsNolint(pos, "class-cast"))

	guarded := f.Program("guarded")
	load := guarded.At(2).(*ir.ArrayAccess)
	require.NotNil(t, load.Transfer)
	assert.Equal(t, transfer.Throw{Type: "IndexError"}, load.Transfer.Target)
	assert.Equal(t, []transfer.Trap{transfer.Catch{Target: 4}}, load.Transfer.Traps)

	require.Len(t, f.Contracts["isEmpty"], 1)
	assert.True(t, f.Contracts["isEmpty"][0].Fails)
}

func TestVariablePaths(t *testing.T) {
	t.Parallel()
	b := &builder{
		file:    &File{Nolint: nolint.NewManager()},
		factory: value.NewFactory(),
		vars:    map[string]dftype.DfType{"o.next": dftype.NotNullRef()},
	}

	tests := []struct {
		path string
		want string
	}{
		{"x", "x"},
		{"o.next", "o.next"},
		{"a.length", "a.length"},
		{"a[2]", "a[2]"},
		{"o.items[0].name", "o.items[0].name"},
	}
	for _, tt := range tests {
		v, err := b.variable(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, v.String())
	}

	next, err := b.variable("o.next")
	require.NoError(t, err)
	assert.Equal(t, dftype.NotNullRef(), next.Type())
	again, err := b.variable("o.next")
	require.NoError(t, err)
	assert.Same(t, next, again)

	for _, bad := range []string{"", ".f", "x.", "a[x]", "[1]"} {
		_, err := b.variable(bad)
		assert.ErrorIs(t, err, ErrSyntax, bad)
	}
}

func TestExits(t *testing.T) {
	t.Parallel()
	src := `programs:
  - name: exits
    code:
      - {op: throw, type: IOError, traps: [{finally: fin}]}
      - {op: jump, target: end}
      - {op: return, pending: true, label: fin}
`
	f, err := Parse("exits.ir", []byte(src))
	require.NoError(t, err)
	p := f.Programs[0]

	th := p.At(0).(*ir.Return)
	assert.Equal(t, transfer.Throw{Type: "IOError"}, th.Transfer.Target)
	assert.Equal(t, []transfer.Trap{transfer.Finally{Target: 2}}, th.Transfer.Traps)

	jump := p.At(1).(*ir.Return)
	assert.Equal(t, transfer.Jump{Index: 3}, jump.Transfer.Target)

	assert.Nil(t, p.At(2).(*ir.Return).Transfer)
}

func TestArithmeticAndGoto(t *testing.T) {
	t.Parallel()
	src := `programs:
  - name: bits
    code:
      - {op: band, label: top}
      - {op: ushr, type: long}
      - {op: xor}
      - {op: goto, target: top, widen: false}
      - {op: goto, target: top}
`
	f, err := Parse("bits.ir", []byte(src))
	require.NoError(t, err)
	p := f.Programs[0]

	assert.Equal(t, rangeset.And, p.At(0).(*ir.NumericBinary).Op)
	shift := p.At(1).(*ir.NumericBinary)
	assert.Equal(t, rangeset.UShr, shift.Op)
	assert.Equal(t, rangeset.Long, shift.Kind)
	assert.Equal(t, rangeset.Xor, p.At(2).(*ir.NumericBinary).Op)
	assert.True(t, p.At(3).(*ir.Goto).NoWiden)
	assert.False(t, p.At(4).(*ir.Goto).NoWiden)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		code string
	}{
		{"unknown op", "{op: frobnicate}"},
		{"unknown label", "{op: goto, target: nowhere}"},
		{"target out of range", "{op: goto, target: 9}"},
		{"bad type", `{op: push, const: "int{x}"}`},
		{"bad relation", `{op: cmp, rel: "<>"}`},
		{"unknown problem", `{op: check_not_null, problem: stack-smash}`},
		{"ensure without problem", `{op: ensure, rel: "!=", const: "int{0}"}`},
		{"traps without throw", `{op: cast, type: T, traps: [{catch: "*", target: end}]}`},
		{"push both", `{op: push, var: x, const: "int{1}"}`},
		{"pending throw", `{op: throw, type: E, pending: true}`},
		{"bad conversion", `{op: convert, type: string}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := "programs:\n  - name: p\n    code:\n      - " + tt.code + "\n"
			_, err := Parse("bad.ir", []byte(src))
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}

	_, err := Parse("dup.ir", []byte("programs:\n  - name: p\n  - name: p\n"))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = Parse("garbage.ir", []byte("programs: [\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ir")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Name)
	assert.Len(t, f.Programs, 2)

	_, err = ReadFile(filepath.Join(dir, "missing.ir"))
	assert.Error(t, err)
}

func TestNolintComments(t *testing.T) {
	t.Parallel()
	src := `programs:
  - name: first
    code:
      - {op: push, var: a}
      # nolint: null-dereference
      - {op: check_not_null}
      - {op: check_not_null} # nolint
      - {op: check_not_null}
  - name: second
    nolint: [class-cast]
    code:
      - {op: push, var: b}
      - {op: cast, type: "!null"}
`
	f, err := Parse("c.ir", []byte(src))
	require.NoError(t, err)

	at := func(line int) token.Position {
		return token.Position{Filename: "c.ir", Line: line, Column: 9}
	}
	assert.True(t, f.Nolint.IsNolint(at(6), "null-dereference"))
	assert.False(t, f.Nolint.IsNolint(at(6), "class-cast"))
	assert.True(t, f.Nolint.IsNolint(at(7), "class-cast"))
	assert.False(t, f.Nolint.IsNolint(at(8), "null-dereference"))
	assert.True(t, f.Nolint.IsNolint(at(12), "class-cast"))
	assert.True(t, f.Nolint.IsNolint(at(13), "class-cast"))
	assert.False(t, f.Nolint.IsNolint(at(13), "null-dereference"))

	whole, err := Parse("w.ir", []byte("# nolint\n"+src))
	require.NoError(t, err)
	assert.True(t, whole.Nolint.IsNolint(token.Position{Filename: "w.ir", Line: 9}, "null-dereference"))
}
