package internal

import (
	"context"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gnolang/dfa/internal/analysis/contract"
	"github.com/gnolang/dfa/internal/analysis/interp"
	"github.com/gnolang/dfa/internal/analysis/ir"
	"github.com/gnolang/dfa/internal/irfile"
	"github.com/gnolang/dfa/internal/nolint"
	tt "github.com/gnolang/dfa/internal/types"
)

const category = "dataflow"

// Engine runs programs through the interpreter and turns the merged
// verdicts into issues.
type Engine struct {
	ignoredRules map[string]bool
	rules        map[tt.ProblemKind]ProblemRule
	contracts    contract.Provider
	opts         interp.Options
	workers      int
	logger       *zap.Logger
	cache        *Cache
	mu           sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger of the engine and of every run.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithContracts sets the contracts consulted after those of each file.
func WithContracts(p contract.Provider) Option {
	return func(e *Engine) { e.contracts = p }
}

// WithLimits sets the interpreter options used for every run.
func WithLimits(o interp.Options) Option {
	return func(e *Engine) { e.opts = o }
}

// WithWorkers bounds the number of programs analyzed at once.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithCache makes Run reuse the issues of files that did not change.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// NewEngine creates an engine with the default rules, adjusted by rules.
func NewEngine(rules map[string]tt.ConfigRule, options ...Option) (*Engine, error) {
	engine := &Engine{
		opts:    interp.DefaultOptions(),
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
	for _, o := range options {
		o(engine)
	}
	if engine.workers <= 0 {
		engine.workers = 1
	}
	engine.opts.Logger = engine.logger
	engine.applyRules(rules)

	return engine, nil
}

type ruleConstructor func() ProblemRule

type ruleMap map[tt.ProblemKind]ruleConstructor

var allRuleConstructors = ruleMap{
	tt.NullDereference:      NewNullDereferenceRule,
	tt.ArrayIndexOutOfRange: NewArrayIndexRule,
	tt.NegativeArraySize:    NewNegativeArraySizeRule,
	tt.ClassCast:            NewClassCastRule,
	tt.DivisionByZero:       NewDivisionByZeroRule,
	tt.ConstantCondition:    NewConstantConditionRule,
	tt.ContractFailure:      NewContractFailureRule,
	tt.AnalysisIncomplete:   NewAnalysisIncompleteRule,
}

func (e *Engine) applyRules(rules map[string]tt.ConfigRule) {
	e.rules = make(map[tt.ProblemKind]ProblemRule)
	e.registerDefaultRules()

	for key, rule := range rules {
		r := e.findRule(key)
		if r == nil {
			newRuleCstr := allRuleConstructors[tt.ProblemKind(key)]
			if newRuleCstr == nil {
				e.logger.Warn("unknown rule in configuration", zap.String("rule", key))
				continue
			}
			r = newRuleCstr()
			e.rules[r.Kind()] = r
		}
		if rule.Severity == tt.SeverityOff {
			e.IgnoreRule(key)
		}
		r.SetSeverity(rule.Severity)
	}
}

func (e *Engine) registerDefaultRules() {
	for kind, newRuleCstr := range allRuleConstructors {
		newRule := newRuleCstr()
		if newRule.Severity() != tt.SeverityOff {
			e.rules[kind] = newRule
		}
	}
}

func (e *Engine) findRule(name string) ProblemRule {
	if rule, ok := e.rules[tt.ProblemKind(name)]; ok {
		return rule
	}
	return nil
}

// IgnoreRule stops reporting issues of the named rule.
func (e *Engine) IgnoreRule(rule string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ignoredRules == nil {
		e.ignoredRules = make(map[string]bool)
	}
	e.ignoredRules[rule] = true
}

func (e *Engine) isIgnored(rule string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ignoredRules[rule]
}

// Rules returns the active rules sorted by name.
func (e *Engine) Rules() []ProblemRule {
	out := make([]ProblemRule, 0, len(e.rules))
	for _, r := range e.rules {
		if !e.isIgnored(r.Name()) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Run analyzes every program of the file at filename. Files with a program
// that was not fully analyzed are never cached.
func (e *Engine) Run(ctx context.Context, filename string) ([]tt.Issue, error) {
	if e.cache != nil {
		if issues, ok := e.cache.Get(filename); ok {
			e.logger.Debug("cache hit", zap.String("file", filename))
			return issues, nil
		}
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "error reading program file")
	}
	issues, complete, err := e.runSource(ctx, filename, src)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && complete {
		if err := e.cache.Set(filename, issues); err != nil {
			e.logger.Warn("cannot cache issues", zap.String("file", filename), zap.Error(err))
		}
	}
	return issues, nil
}

// RunSource analyzes the programs of an in-memory file. name is used in
// anchors and issues.
func (e *Engine) RunSource(ctx context.Context, name string, src []byte) ([]tt.Issue, error) {
	issues, _, err := e.runSource(ctx, name, src)
	return issues, err
}

func (e *Engine) runSource(ctx context.Context, name string, src []byte) ([]tt.Issue, bool, error) {
	f, err := irfile.Parse(name, src)
	if err != nil {
		return nil, false, err
	}
	issues, complete, err := e.runAll(ctx, f.Programs, contract.Chain{f.Contracts, e.contracts})
	if err != nil {
		return nil, false, err
	}
	return filterNolintIssues(issues, f.Nolint), complete, nil
}

// RunAll analyzes independent programs on a worker pool. A program that
// exceeds the state budget is reported as incomplete instead of with its
// partial findings; any other failure aborts the batch.
func (e *Engine) RunAll(ctx context.Context, programs []*ir.Program, contracts contract.Provider) ([]tt.Issue, error) {
	issues, _, err := e.runAll(ctx, programs, contracts)
	return issues, err
}

func (e *Engine) runAll(ctx context.Context, programs []*ir.Program, contracts contract.Provider) ([]tt.Issue, bool, error) {
	pool, err := ants.NewPool(e.workers)
	if err != nil {
		return nil, false, errors.Wrap(err, "creating worker pool")
	}
	defer pool.Release()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		allIssues []tt.Issue
		firstErr  error
		complete  = true
	)
	for _, p := range programs {
		p := p
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			issues, err := e.RunProgram(ctx, p, contracts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, interp.ErrBudgetExceeded):
				e.logger.Warn("analysis incomplete", zap.String("program", p.Name), zap.Error(err))
				complete = false
				allIssues = append(allIssues, e.incomplete(p)...)
			case err != nil:
				if firstErr == nil {
					firstErr = errors.Wrapf(err, "program %s", p.Name)
				}
			default:
				allIssues = append(allIssues, issues...)
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = errors.Wrap(err, "submitting program")
			}
			mu.Unlock()
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, false, firstErr
	}
	sortIssues(allIssues)
	return allIssues, complete, nil
}

// incomplete reports that p was not fully analyzed.
func (e *Engine) incomplete(p *ir.Program) []tt.Issue {
	issues := e.issues([]finding{{
		key:     findingKey{kind: tt.AnalysisIncomplete, anchor: p.Anchor},
		verdict: tt.Unsure,
	}})
	for i := range issues {
		issues[i].Note = "program: " + p.Name
	}
	return issues
}

// RunProgram interprets a single program and reports its issues.
func (e *Engine) RunProgram(ctx context.Context, p *ir.Program, contracts contract.Provider) ([]tt.Issue, error) {
	c := newCollector()
	res, err := interp.New(p, c, contracts, e.opts).Run(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("program analyzed",
		zap.String("program", p.Name),
		zap.Int("states", res.Processed),
		zap.Int("subsumed", res.Subsumed),
		zap.Int("exits", len(res.Exits)),
		zap.Int("thrown", len(res.Thrown)),
	)
	return e.issues(c.results()), nil
}

func (e *Engine) issues(findings []finding) []tt.Issue {
	var out []tt.Issue
	for _, f := range findings {
		rule, ok := e.rules[f.key.kind]
		if !ok || e.isIgnored(rule.Name()) {
			continue
		}
		msg, ok := rule.Message(f.verdict)
		if !ok {
			continue
		}
		issue := tt.Issue{
			Rule:     rule.Name(),
			Category: category,
			Message:  msg,
			Verdict:  f.verdict,
			Severity: rule.Severity(),
			Anchor:   f.key.anchor,
		}
		if loc, ok := f.key.anchor.(tt.Location); ok {
			issue.Filename = loc.Filename
			issue.Start = loc.Position()
			issue.End = loc.Position()
		}
		if f.value != "" {
			issue.Note = "value: " + f.value
		}
		out = append(out, issue)
	}
	return out
}

// filterNolintIssues drops issues silenced where they start.
func filterNolintIssues(issues []tt.Issue, manager *nolint.Manager) []tt.Issue {
	filtered := make([]tt.Issue, 0, len(issues))
	for _, issue := range issues {
		if manager.IsNolint(issue.Start, issue.Rule) {
			continue
		}
		filtered = append(filtered, issue)
	}
	return filtered
}

func sortIssues(issues []tt.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Start.Line != b.Start.Line {
			return a.Start.Line < b.Start.Line
		}
		if a.Start.Column != b.Start.Column {
			return a.Start.Column < b.Start.Column
		}
		return a.Rule < b.Rule
	})
}

// SourceCode stores the content of a program file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	return &SourceCode{Lines: lines}, nil
}
