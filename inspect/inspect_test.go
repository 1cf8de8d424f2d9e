package inspect

import (
	"context"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/dfa/internal/analysis/interp"
	tt "github.com/gnolang/dfa/internal/types"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Run(ctx context.Context, filename string) ([]tt.Issue, error) {
	args := m.Called(filename)
	return args.Get(0).([]tt.Issue), args.Error(1)
}

func (m *mockEngine) RunSource(ctx context.Context, name string, src []byte) ([]tt.Issue, error) {
	args := m.Called(src)
	return args.Get(0).([]tt.Issue), args.Error(1)
}

func (m *mockEngine) IgnoreRule(rule string) {
	m.Called(rule)
}

func testIssue(filename string) tt.Issue {
	return tt.Issue{
		Rule:     "null-dereference",
		Filename: filename,
		Start:    token.Position{Filename: filename, Line: 7, Column: 9},
		End:      token.Position{Filename: filename, Line: 7, Column: 9},
		Message:  "dereference of a value that is always null",
		Verdict:  tt.Violates,
		Severity: tt.SeverityError,
	}
}

const derefProgram = `programs:
  - name: deref
    vars:
      s: "null"
    code:
      - {op: push, var: s}
      - {op: check_not_null, src: "s.length()"}
`

func TestProcessFile(t *testing.T) {
	t.Parallel()
	expected := []tt.Issue{testIssue("test.ir")}
	engine := new(mockEngine)
	engine.On("Run", "test.ir").Return(expected, nil)

	issues, err := ProcessFile(context.Background(), engine, "test.ir")
	assert.NoError(t, err)
	assert.Equal(t, expected, issues)
	engine.AssertExpectations(t)
}

func TestProcessFileError(t *testing.T) {
	t.Parallel()
	engine := new(mockEngine)
	engine.On("Run", "broken.ir").Return([]tt.Issue(nil), assert.AnError)

	_, err := ProcessFile(context.Background(), engine, "broken.ir")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "broken.ir")
}

func TestProcessSources(t *testing.T) {
	t.Parallel()
	src := []byte(derefProgram)
	expected := []tt.Issue{testIssue("")}
	engine := new(mockEngine)
	engine.On("RunSource", src).Return(expected, nil)

	issues, err := ProcessSources(context.Background(), zap.NewNop(), engine, [][]byte{src, src}, ProcessSource)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	engine.AssertNumberOfCalls(t, "RunSource", 2)
}

func TestProcessPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))

	files := []string{
		filepath.Join(dir, "a.ir"),
		filepath.Join(nested, "b.ir"),
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, []byte(derefProgram), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# programs"), 0o644))

	engine := new(mockEngine)
	for _, f := range files {
		engine.On("Run", f).Return([]tt.Issue{testIssue(f)}, nil)
	}

	issues, err := ProcessPath(context.Background(), zap.NewNop(), engine, dir, ProcessFile)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	engine.AssertExpectations(t)
	engine.AssertNotCalled(t, "Run", filepath.Join(dir, "README.md"))

	// a single file with another extension is skipped
	issues, err = ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "README.md"), ProcessFile)
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, err = ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "missing"), ProcessFile)
	assert.Error(t, err)
}

func TestProcessPathErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := filepath.Join(dir, "good.ir")
	bad := filepath.Join(dir, "bad.ir")
	require.NoError(t, os.WriteFile(good, []byte(derefProgram), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("programs: [{code: [{op: pop}]}]"), 0o644))

	engine, err := New(filepath.Join(dir, "none.yaml"), nil)
	require.Error(t, err, "an explicit configuration file must exist")
	assert.Nil(t, engine)

	engine, err = New("", nil)
	require.NoError(t, err)

	issues, err := ProcessPath(context.Background(), zap.NewNop(), engine, dir, ProcessFile)
	require.ErrorIs(t, err, interp.ErrStackUnderflow)
	require.Len(t, issues, 1)
	assert.Equal(t, good, issues[0].Filename)

	issues, err = ProcessPath(context.Background(), nil, engine, bad, ProcessFile)
	assert.Error(t, err)
	assert.Equal(t, []tt.Issue{}, issues)

	_, err = ProcessFiles(context.Background(), nil, engine, []string{good, bad}, ProcessFile)
	assert.Error(t, err)
}

func TestProcessPathCanceled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"a.ir", "b.ir", "c.ir"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(derefProgram), 0o644))
	}
	engine, err := New("", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	issues, err := ProcessPath(ctx, nil, engine, dir, ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, issues)
}

func TestNewWithConfiguration(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	config := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(config, []byte(`name: test
rules:
  null-dereference:
    severity: INFO
  constant-condition:
    severity: OFF
limits:
  max_states: 1000
contracts:
  requireNonEmpty:
    - when: [{arg: 0, rel: "==", value: "null"}]
      fails: true
`), 0o644))

	engine, err := New(config, zap.NewNop())
	require.NoError(t, err)

	issues, err := engine.RunSource(context.Background(), "test.ir", []byte(`programs:
  - name: guarded
    vars:
      s: "null"
    code:
      - {op: push, var: s}
      - {op: call, callable: requireNonEmpty, count: 1, type: "bool"}
      - {op: push, const: "int{1}"}
      - {op: push, const: "int{1}"}
      - {op: cmp, rel: "=="}
`))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "contract-failure", issues[0].Rule)

	issues, err = engine.RunSource(context.Background(), "test.ir", []byte(derefProgram))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, tt.SeverityInfo, issues[0].Severity)
}

func TestConfigurationErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "name: x\nthreshold: 3\n"},
		{"bad relation", "contracts:\n  f:\n    - when: [{arg: 0, rel: \"~\", value: \"null\"}]\n      fails: true\n"},
		{"bad type", "contracts:\n  f:\n    - returns: \"int{\"\n"},
	}
	for i, tc := range tests {
		path := filepath.Join(dir, tc.name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644), i)
		_, err := New(path, nil)
		assert.Error(t, err, tc.name)
	}

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := New(empty, nil)
	assert.NoError(t, err)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	assert.Equal(t, "dfa", config.Name)
	assert.Len(t, config.Rules, len(tt.AllProblems)+1)
	assert.Equal(t, tt.SeverityWarning, config.Rules[string(tt.AnalysisIncomplete)].Severity)
	assert.Equal(t, tt.SeverityWarning, config.Rules["constant-condition"].Severity)
	assert.Equal(t, interp.DefaultOptions().MaxStates, config.Limits.MaxStates)

	d, err := yaml.Marshal(config)
	require.NoError(t, err)
	var decoded Config
	require.NoError(t, yaml.Unmarshal(d, &decoded))
	assert.Equal(t, config, decoded)
}
