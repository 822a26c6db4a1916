// Package lint statically checks the typed sources of a game project.
//
// Every *.ts file below the source root is parsed with esbuild and checked
// against a fixed rule set. Violations are reported, not raised: callers
// decide whether a non-empty report fails the build.
package lint

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/gamekit/internal/project"
	"github.com/wolfeidau/gamekit/internal/telemetry"
)

// Violation is a single rule failure.
type Violation struct {
	File    string
	Line    int
	Column  int
	Rule    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d:%d: %s (%s)", v.File, v.Line, v.Column, v.Message, v.Rule)
}

// Report is the outcome of a lint run.
type Report struct {
	Files      int
	Violations []Violation
	// ExternalExitCode is the exit code of the configured external linter,
	// or -1 when none ran.
	ExternalExitCode int
}

// Failed is true when any rule or the external linter reported a problem.
func (r *Report) Failed() bool {
	return len(r.Violations) > 0 || r.ExternalExitCode > 0
}

// Err returns a summary error for a failed report, otherwise nil.
func (r *Report) Err() error {
	if !r.Failed() {
		return nil
	}
	if r.ExternalExitCode > 0 {
		return fmt.Errorf("lint failed: %d violation(s), external linter exited with %d", len(r.Violations), r.ExternalExitCode)
	}
	return fmt.Errorf("lint failed: %d violation(s)", len(r.Violations))
}

// Run lints the project sources and, if configured, runs the external linter.
func Run(ctx context.Context, cfg project.Config) (*Report, error) {
	logger := zerolog.Ctx(ctx)

	files, err := sourceFiles(cfg.SourceDir)
	if err != nil {
		return nil, err
	}

	report := &Report{Files: len(files), ExternalExitCode: -1}
	rules := Rules(cfg.Lint.MaxLineLength)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		rel, err := filepath.Rel(cfg.Root, file)
		if err != nil {
			rel = file
		}

		report.Violations = append(report.Violations, CheckSource(rel, src, rules)...)
	}

	for _, v := range report.Violations {
		logger.Warn().Str("file", v.File).Int("line", v.Line).Int("column", v.Column).Str("rule", v.Rule).Msg(v.Message)
	}

	if len(cfg.Lint.Command) > 0 {
		code, err := runExternal(ctx, cfg.Lint.Command)
		if err != nil {
			return nil, err
		}
		report.ExternalExitCode = code
	}

	telemetry.GetMetrics().LintViolations.Add(ctx, int64(len(report.Violations)))

	logger.Info().Int("files", report.Files).Int("violations", len(report.Violations)).Msg("Lint finished")

	return report, nil
}

// CheckSource parses src as TypeScript and applies rules to each line.
// A file that does not parse only reports its syntax errors.
func CheckSource(name string, src []byte, rules []Rule) []Violation {
	result := api.Transform(string(src), api.TransformOptions{
		Loader:     api.LoaderTS,
		Sourcefile: name,
		LogLevel:   api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		violations := make([]Violation, 0, len(result.Errors))
		for _, msg := range result.Errors {
			v := Violation{File: name, Rule: "syntax", Message: msg.Text}
			if msg.Location != nil {
				v.Line = msg.Location.Line
				v.Column = msg.Location.Column + 1
			}
			violations = append(violations, v)
		}
		return violations
	}

	var violations []Violation
	inBlockComment := false

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		var code string
		code, inBlockComment = maskBlockComments(line, inBlockComment)

		for _, rule := range rules {
			target := code
			if rule.Name == "no-trailing-whitespace" || rule.Name == "max-line-length" {
				target = line
			}
			if col, msg, ok := rule.Check(target); ok {
				violations = append(violations, Violation{File: name, Line: lineNo, Column: col, Rule: rule.Name, Message: msg})
			}
		}
	}

	return violations
}

// sourceFiles returns every .ts file below dir in lexical order.
func sourceFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "node_modules" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".ts") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sources: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
