package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/dfa/formatter"
	"github.com/gnolang/dfa/inspect"
	"github.com/gnolang/dfa/internal"
	tt "github.com/gnolang/dfa/internal/types"
)

var (
	ignoreRules string
	jsonOutput  bool
	outPath     string
	watchMode   bool
	cacheDir    string
	cacheMaxAge time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Analyze program files and report problems",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}
		setColorMode(os.Stdout)

		var options []internal.Option
		if cacheDir != "" {
			var deps []string
			if cfgFile != "" {
				deps = append(deps, cfgFile)
			}
			cache, err := internal.NewCache(cacheDir, cacheMaxAge, deps...)
			if err != nil {
				logger.Fatal("Failed to open cache", zap.Error(err))
			}
			options = append(options, internal.WithCache(cache))
		}

		engine, err := inspect.New(cfgFile, logger, options...)
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}

		if ignoreRules != "" {
			for _, rule := range strings.Split(ignoreRules, ",") {
				engine.IgnoreRule(strings.TrimSpace(rule))
			}
		}

		if watchMode {
			runWatch(engine, args)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		runAnalysis(ctx, logger, engine, args, jsonOutput, outPath)
	},
}

func init() {
	runCmd.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of rules to ignore")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output issues in JSON format")
	runCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	runCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-analyze program files when they change")
	runCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory of the result cache (disabled when empty)")
	runCmd.Flags().DurationVar(&cacheMaxAge, "cache-max-age", 24*time.Hour, "Age after which cached results are discarded")
}

func setColorMode(f *os.File) {
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		color.NoColor = true
	}
}

func runAnalysis(ctx context.Context, logger *zap.Logger, engine inspect.Engine, paths []string, isJson bool, jsonOutput string) {
	issues, err := inspect.ProcessFiles(ctx, logger, engine, paths, inspect.ProcessFile)
	if err != nil {
		logger.Error("Error processing files", zap.Error(err))
		os.Exit(1)
	}

	if err := printIssues(logger, issues, isJson, jsonOutput); err != nil {
		logger.Error("Error printing issues", zap.Error(err))
		os.Exit(1)
	}

	if hasErrors(issues) {
		os.Exit(1)
	}
}

// runWatch reports the issues of every program file written under the
// directories of paths until interrupted.
func runWatch(engine *internal.Engine, paths []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dirs := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			logger.Fatal("Error accessing path", zap.String("path", p), zap.Error(err))
		}
		if !info.IsDir() {
			p = filepath.Dir(p)
		}
		dirs = append(dirs, p)
	}

	w, err := engine.NewWatcher(dirs, func(filename string, issues []tt.Issue, err error) {
		if err != nil {
			logger.Error("Error analyzing file", zap.String("file", filename), zap.Error(err))
			return
		}
		if len(issues) == 0 {
			fmt.Printf("%s: no issues\n", filename)
			return
		}
		if err := printIssues(logger, issues, false, ""); err != nil {
			logger.Error("Error printing issues", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("Failed to create watcher", zap.Error(err))
	}
	if err := w.StartWatching(ctx); err != nil {
		logger.Fatal("Failed to start watching", zap.Error(err))
	}
	logger.Info("Watching for changes", zap.Strings("dirs", dirs))

	<-ctx.Done()
	if err := w.StopWatching(); err != nil {
		logger.Error("Error stopping watcher", zap.Error(err))
	}
}

// hasErrors reports whether an issue has error severity. Warnings and
// infos do not fail the run.
func hasErrors(issues []tt.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == tt.SeverityError {
			return true
		}
	}
	return false
}

func printIssues(logger *zap.Logger, issues []tt.Issue, isJson bool, jsonOutput string) error {
	issuesByFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByFile[issue.Filename] = append(issuesByFile[issue.Filename], issue)
	}

	sortedFiles := make([]string, 0, len(issuesByFile))
	for filename := range issuesByFile {
		sortedFiles = append(sortedFiles, filename)
	}
	sort.Strings(sortedFiles)

	if isJson {
		d, err := json.MarshalIndent(issuesByFile, "", "  ")
		if err != nil {
			return err
		}
		if jsonOutput == "" {
			fmt.Println(string(d))
			return nil
		}
		return os.WriteFile(jsonOutput, d, 0o644)
	}

	for _, filename := range sortedFiles {
		fileIssues := issuesByFile[filename]
		sourceCode, err := internal.ReadSourceCode(filename)
		if err != nil {
			// the issues are still printed, without their snippets
			logger.Warn("Error reading source file", zap.String("file", filename), zap.Error(err))
		}
		fmt.Print(formatter.GenerateFormattedIssue(fileIssues, sourceCode))
	}
	return nil
}
