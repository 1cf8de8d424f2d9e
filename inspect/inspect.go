package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/dfa/internal"
	"github.com/gnolang/dfa/internal/analysis/contract"
	"github.com/gnolang/dfa/internal/analysis/interp"
	"github.com/gnolang/dfa/internal/irfile"
	tt "github.com/gnolang/dfa/internal/types"
	"github.com/gnolang/dfa/scanner"
)

// DefaultConfigFile is the configuration read when no path is given.
const DefaultConfigFile = ".dfa.yaml"

const contractCacheSize = 1024

type Engine interface {
	Run(ctx context.Context, filename string) ([]tt.Issue, error)
	RunSource(ctx context.Context, name string, src []byte) ([]tt.Issue, error)
	IgnoreRule(rule string)
}

// Config is the content of a configuration file.
type Config struct {
	Name      string                     `yaml:"name"`
	Rules     map[string]tt.ConfigRule   `yaml:"rules"`
	Limits    Limits                     `yaml:"limits,omitempty"`
	Contracts map[string][]contract.Spec `yaml:"contracts,omitempty"`
}

// Limits overrides the interpreter budgets. Zero keeps the default.
type Limits struct {
	MaxStates               int `yaml:"max_states,omitempty"`
	WideningThreshold       int `yaml:"widening_threshold,omitempty"`
	MaxStatesPerInstruction int `yaml:"max_states_per_instruction,omitempty"`
}

func (l Limits) options() interp.Options {
	opts := interp.DefaultOptions()
	if l.MaxStates > 0 {
		opts.MaxStates = l.MaxStates
	}
	if l.WideningThreshold > 0 {
		opts.WideningThreshold = l.WideningThreshold
	}
	if l.MaxStatesPerInstruction > 0 {
		opts.MaxStatesPerInstruction = l.MaxStatesPerInstruction
	}
	return opts
}

// DefaultConfig returns the configuration written by "dfa init".
func DefaultConfig() Config {
	rules := make(map[string]tt.ConfigRule)
	for _, r := range mustEngine().Rules() {
		rules[r.Name()] = tt.ConfigRule{Severity: r.Severity()}
	}
	defaults := interp.DefaultOptions()
	return Config{
		Name:  "dfa",
		Rules: rules,
		Limits: Limits{
			MaxStates:               defaults.MaxStates,
			WideningThreshold:       defaults.WideningThreshold,
			MaxStatesPerInstruction: defaults.MaxStatesPerInstruction,
		},
	}
}

func mustEngine() *internal.Engine {
	e, err := internal.NewEngine(nil)
	if err != nil {
		panic(err)
	}
	return e
}

// New reads the configuration at configurationPath and creates an engine
// from it. A missing default configuration file is not an error.
func New(configurationPath string, logger *zap.Logger, options ...internal.Option) (*internal.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config, err := parseConfigurationFile(configurationPath)
	if err != nil {
		return nil, err
	}

	static, err := contract.Compile(config.Contracts)
	if err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	contracts, err := contract.NewCachingProvider(static, contractCacheSize)
	if err != nil {
		return nil, err
	}

	opts := []internal.Option{
		internal.WithLogger(logger),
		internal.WithLimits(config.Limits.options()),
		internal.WithContracts(contracts),
	}
	return internal.NewEngine(config.Rules, append(opts, options...)...)
}

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine Engine,
	sources [][]byte,
	processor func(context.Context, Engine, []byte) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for i, source := range sources {
		issues, err := processor(ctx, engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		allIssues = append(allIssues, issues...)
	}

	return allIssues, nil
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine Engine,
	paths []string,
	processor func(context.Context, Engine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for _, path := range paths {
		issues, err := ProcessPath(ctx, logger, engine, path, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return nil, err
		}
		allIssues = append(allIssues, issues...)
	}

	return allIssues, nil
}

// ProcessPath analyzes path, or every program file below it when it is a
// directory. Directory entries are analyzed concurrently; the first file
// error is returned along with the issues of the files that succeeded.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine Engine,
	path string,
	processor func(context.Context, Engine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	issues := []tt.Issue{}
	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return issues, nil
		}
		fileIssues, err := processor(ctx, engine, path)
		if err != nil {
			return issues, err
		}
		return append(issues, fileIssues...), nil
	}

	files, err := scanner.New(path, irfile.Ext).Scan()
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", path, err)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	defer bar.Finish()

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	record := func(fileIssues []tt.Issue, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		issues = append(issues, fileIssues...)
	}

	for _, file := range files {
		if ctx.Err() != nil {
			record(nil, ctx.Err())
			break
		}
		fp := file.Path
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			fileIssues, err := processor(ctx, engine, fp)
			if err != nil && logger != nil {
				logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
			}
			record(fileIssues, err)
			_ = bar.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			record(nil, submitErr)
			break
		}
	}
	wg.Wait()

	return issues, firstErr
}

func ProcessFile(ctx context.Context, engine Engine, filePath string) ([]tt.Issue, error) {
	issues, err := engine.Run(ctx, filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "error analyzing %s", filePath)
	}
	return issues, nil
}

func ProcessSource(ctx context.Context, engine Engine, source []byte) ([]tt.Issue, error) {
	return engine.RunSource(ctx, "", source)
}

var desiredExtensions = map[string]bool{
	irfile.Ext: true,
}

func hasDesiredExtension(path string) bool {
	return desiredExtensions[filepath.Ext(path)]
}

func parseConfigurationFile(configurationPath string) (Config, error) {
	var config Config

	path := configurationPath
	if path == "" {
		path = DefaultConfigFile
	}
	f, err := os.Open(path)
	if err != nil {
		if configurationPath == "" && os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && err != io.EOF {
		return config, errors.Wrapf(err, "parse %s", path)
	}

	return config, nil
}
