package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/gamekit/internal/telemetry"
)

var ErrNoEntryPoint = errors.New("no entry point found")

// Build bundles the entry point and everything reachable from it into the
// configured output file. Bundler errors come back as *BuildError.
func (b *Bundler) Build(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	logger := zerolog.Ctx(ctx)

	if _, err := os.Stat(b.config.EntryPoint); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, b.config.EntryPoint)
	}

	declarations, err := findDeclarations(b.config.TypingsDir)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("entrypoint", b.config.EntryPoint).
		Int("declarations", len(declarations)).
		Bool("minify", b.config.Minify).
		Bool("sourcemap", b.config.SourceMap).
		Msg("Building bundle")

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{b.config.EntryPoint},
		AbsWorkingDir:     filepath.Dir(b.config.EntryPoint),
		NodePaths:         b.config.NodePaths,
		Bundle:            true,
		Write:             false,
		Outfile:           b.config.OutFile,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2015,
		MinifyWhitespace:  b.config.Minify,
		MinifyIdentifiers: b.config.Minify,
		MinifySyntax:      b.config.Minify,
		Sourcemap:         cond(b.config.SourceMap, api.SourceMapExternal, api.SourceMapNone),
		SourcesContent:    api.SourcesContentInclude,
		LogLevel:          api.LogLevelSilent,
		Metafile:          true,
	})

	warnings := convertMessages(result.Warnings)
	for _, msg := range warnings {
		logger.Warn().Str("warning", msg.String()).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		buildErr := &BuildError{Messages: convertMessages(result.Errors)}
		for _, msg := range buildErr.Messages {
			logger.Error().Str("error", msg.Text).Str("location", msg.String()).Msg("Build error")
		}
		telemetry.GetMetrics().CompileErrors.Add(ctx, int64(len(buildErr.Messages)))
		return nil, buildErr
	}

	var js, sourceMap []byte
	for _, file := range result.OutputFiles {
		if strings.HasSuffix(file.Path, ".map") {
			sourceMap = file.Contents
		} else {
			js = file.Contents
		}
	}
	if js == nil {
		return nil, errors.New("esbuild returned no output files")
	}

	if b.config.SourceMap {
		js = append(js, "//# sourceMappingURL="+filepath.Base(b.config.MapFile)+"\n"...)
		if err := writeFileAtomic(b.config.MapFile, sourceMap); err != nil {
			return nil, err
		}
	} else if err := os.Remove(b.config.MapFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale source map: %w", err)
	}

	if err := writeFileAtomic(b.config.OutFile, js); err != nil {
		return nil, err
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	res := &Result{
		ID:           uuid.NewString(),
		OutFile:      b.config.OutFile,
		Bytes:        len(js),
		Modules:      len(metadata.Inputs),
		Declarations: declarations,
		Warnings:     warnings,
	}
	if b.config.SourceMap {
		res.MapFile = b.config.MapFile
	}

	telemetry.GetMetrics().CompileBytes.Record(ctx, int64(len(js)))

	logger.Info().Str("file", res.OutFile).Int("bytes", res.Bytes).Int("modules", res.Modules).Msg("Built file")

	b.last = res
	return res, nil
}

// findDeclarations collects every *.d.ts below dir. A missing directory has
// no declarations.
func findDeclarations(dir string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".d.ts") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan declarations: %w", err)
	}

	return found, nil
}

// writeFileAtomic replaces path so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	// #nosec G302 - served to browsers, must be world readable
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}

	return os.Rename(tmp.Name(), path)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
