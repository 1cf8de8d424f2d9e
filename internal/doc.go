// Package internal turns the verdicts of the dataflow interpreter into
// issues a user can act on.
//
// Key components:
//
// Engine: Runs every program of a file through the interpreter on a worker
// pool and merges what the interpreter observed at each anchor.
//
// ProblemRule: Decides whether a merged verdict is worth reporting and how
// to word it. Each problem kind has one rule, whose severity comes from the
// configuration.
//
// Cache: Keeps the issues of files whose content did not change between runs.
//
// Watcher: Re-analyzes program files when they are written.
//
// SourceCode: The content of a file as a collection of lines.
//
// Usage:
//
//	engine, err := internal.NewEngine(nil, internal.WithLogger(logger))
//	if err != nil {
//	    // handle error
//	}
//
//	issues, err := engine.Run(ctx, "path/to/file.ir")
//	if err != nil {
//	    // handle error
//	}
//
//	for _, issue := range issues {
//	    fmt.Printf("Found issue: %s at %s\n", issue.Message, issue.Start)
//	}
//
// This package is intended for internal use within the analyzer and should not be
// imported by external packages.
package internal
