// Package deps installs third-party engine files into a game project.
//
// Files are only written when their content differs from what is already
// at the destination, so running Install twice performs no writes.
package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/gamekit/internal/project"
	"github.com/wolfeidau/gamekit/internal/telemetry"
)

var ErrMissingFile = errors.New("dependency file not found")

// Result lists the destination paths written and skipped by Install.
type Result struct {
	Copied  []string
	Skipped []string
}

// Install copies the files of every configured dependency. In release mode a
// dependency with Release patterns only copies the matching files.
func Install(ctx context.Context, cfg project.Config) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	res := &Result{}

	for _, dep := range cfg.Dependencies {
		from := cfg.FromDir(dep)
		dest := cfg.DestDir(dep)

		files, err := Select(dep, cfg.Mode)
		if err != nil {
			return res, fmt.Errorf("dependency %s: %w", dep.Name, err)
		}

		for _, name := range files {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			src := filepath.Join(from, name)
			dst := filepath.Join(dest, name)

			written, err := copyIfChanged(src, dst)
			if err != nil {
				return res, fmt.Errorf("dependency %s: %w", dep.Name, err)
			}

			if written {
				logger.Debug().Str("dependency", dep.Name).Str("file", dst).Msg("Copied file")
				res.Copied = append(res.Copied, dst)
			} else {
				res.Skipped = append(res.Skipped, dst)
			}
		}
	}

	m := telemetry.GetMetrics()
	m.FilesCopiedTotal.Add(ctx, int64(len(res.Copied)))
	m.FilesSkipped.Add(ctx, int64(len(res.Skipped)))

	logger.Info().Int("copied", len(res.Copied)).Int("unchanged", len(res.Skipped)).Msg("Dependencies installed")

	return res, nil
}

// Select returns the files of dep copied in the given mode.
func Select(dep project.Dependency, mode project.Mode) ([]string, error) {
	if mode.IsDebug() || len(dep.Release) == 0 {
		return dep.Files, nil
	}

	var files []string
	for _, name := range dep.Files {
		ok, err := matchAny(dep.Release, path.Base(filepath.ToSlash(name)))
		if err != nil {
			return nil, err
		}
		if ok {
			files = append(files, name)
		}
	}
	return files, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := path.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid release pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// copyIfChanged writes src to dst unless dst already has the same size and
// CRC64-NVME checksum.
func copyIfChanged(src, dst string) (bool, error) {
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: %s", ErrMissingFile, src)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", src, err)
	}

	same, err := matchesChecksum(dst, int64(len(data)), checksum(data))
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}

	// #nosec G306 - served to browsers, must be world readable
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return true, nil
}

// matchesChecksum streams dst through the checksum. A missing dst never
// matches.
func matchesChecksum(dst string, size int64, sum uint64) (bool, error) {
	f, err := os.Open(dst)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dst, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", dst, err)
	}
	if info.IsDir() || info.Size() != size {
		return false, nil
	}

	h := crc64nvme.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dst, err)
	}
	return h.Sum64() == sum, nil
}

func checksum(data []byte) uint64 {
	h := crc64nvme.New()
	h.Write(data)
	return h.Sum64()
}
