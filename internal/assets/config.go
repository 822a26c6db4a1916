package assets

import (
	"github.com/wolfeidau/gamekit/internal/project"
)

type Config struct {
	// Main source file the bundle starts from
	EntryPoint string
	// Directory searched for *.d.ts declarations
	TypingsDir string
	// Extra module resolution roots, like browserify's "paths"
	NodePaths []string
	// Bundle output file
	OutFile string
	// Source map output file, used when SourceMap is set
	MapFile string
	// Whether to minify output
	Minify bool
	// Whether to extract a source map
	SourceMap bool
}

// ConfigFor derives the bundler settings from the project: debug builds get
// an external source map, release builds are minified.
func ConfigFor(cfg project.Config) Config {
	return Config{
		EntryPoint: cfg.MainFile,
		TypingsDir: cfg.TypingsDir,
		NodePaths:  []string{cfg.SourceDir},
		OutFile:    cfg.TargetPath(),
		MapFile:    cfg.MapPath(),
		Minify:     !cfg.Mode.IsDebug(),
		SourceMap:  cfg.Mode.IsDebug(),
	}
}
