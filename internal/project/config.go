// Package project loads the build configuration of a game project.
//
// The main source file is read from package.json and its directory is the
// root of all source code. A gamekit.yaml file next to package.json may
// override any of the defaults. The resulting Config is resolved to absolute
// paths once and then passed by value; nothing mutates it afterwards.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "gamekit.yaml"

	defaultTargetFile = "game.js"
	defaultTargetDir  = "public"
	defaultVendorDir  = "node_modules"
	defaultTypingsDir = "typings"
	defaultEngine     = "phaser"
	defaultMaxLine    = 140
)

var (
	ErrNoMainFile = errors.New("no main file configured, set \"main\" in package.json or gamekit.yaml")
	ErrBadTarget  = errors.New("target file must end in .js")
)

// Destination names understood by Dependency.Dest. Any other value is a path
// relative to the project root.
const (
	DestScripts = "scripts"
	DestTypings = "typings"
)

// Dependency is a set of third-party files copied into the project.
type Dependency struct {
	Name string `yaml:"name"`
	// From is the directory the files are copied from, relative to the project root.
	From string `yaml:"from"`
	// Dest is DestScripts, DestTypings, or a directory relative to the project root.
	Dest  string   `yaml:"dest"`
	Files []string `yaml:"files"`
	// Release holds base name patterns selecting the files copied in release
	// mode. Empty means all files.
	Release []string `yaml:"release"`
}

// Lint configures the lint task.
type Lint struct {
	// Enabled adds lint to the build prerequisites.
	Enabled bool `yaml:"enabled"`
	// Fatal turns violations into a task failure.
	Fatal bool `yaml:"fatal"`
	// Command is an optional external linter run after the built-in rules.
	Command       []string `yaml:"command"`
	MaxLineLength int      `yaml:"max_line_length"`
}

// Config is the immutable build configuration. All paths are absolute.
type Config struct {
	Root       string
	MainFile   string
	SourceDir  string
	TargetFile string
	TargetDir  string
	ScriptsDir string
	VendorDir  string
	TypingsDir string
	EngineDir  string

	Dependencies []Dependency
	Lint         Lint
	Mode         Mode
}

// TargetPath is the bundle location. It does not depend on the mode.
func (c Config) TargetPath() string {
	return filepath.Join(c.ScriptsDir, c.TargetFile)
}

// MapPath is the location of the extracted source map in debug builds.
func (c Config) MapPath() string {
	return filepath.Join(c.ScriptsDir, strings.TrimSuffix(c.TargetFile, ".js")+".map")
}

// DestDir resolves a dependency destination to an absolute directory.
func (c Config) DestDir(d Dependency) string {
	switch d.Dest {
	case DestScripts, "":
		return c.ScriptsDir
	case DestTypings:
		return c.TypingsDir
	default:
		return c.abs(d.Dest)
	}
}

// FromDir resolves the directory a dependency is copied from.
func (c Config) FromDir(d Dependency) string {
	return c.abs(d.From)
}

func (c Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

type packageJSON struct {
	Main string `json:"main"`
}

type fileConfig struct {
	Main         string       `yaml:"main"`
	TargetFile   string       `yaml:"target_file"`
	TargetDir    string       `yaml:"target_dir"`
	VendorDir    string       `yaml:"vendor_dir"`
	TypingsDir   string       `yaml:"typings_dir"`
	EngineDir    string       `yaml:"engine_dir"`
	Dependencies []Dependency `yaml:"dependencies"`
	Lint         *Lint        `yaml:"lint"`
}

// Load reads the configuration of the project in root. configFile may be
// empty, in which case gamekit.yaml is used when present.
func Load(root, configFile string, mode Mode) (Config, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	fc := fileConfig{}

	pkg, err := readPackageJSON(filepath.Join(root, "package.json"))
	if err != nil {
		return Config{}, err
	}
	fc.Main = pkg.Main

	override, err := readConfigFile(root, configFile)
	if err != nil {
		return Config{}, err
	}
	merge(&fc, override)

	return resolve(root, fc, mode)
}

func readPackageJSON(path string) (packageJSON, error) {
	var pkg packageJSON

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return pkg, nil
	}
	if err != nil {
		return pkg, fmt.Errorf("failed to read package.json: %w", err)
	}

	if err := json.Unmarshal(data, &pkg); err != nil {
		return pkg, fmt.Errorf("failed to parse package.json: %w", err)
	}

	return pkg, nil
}

func readConfigFile(root, configFile string) (fileConfig, error) {
	var fc fileConfig

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(root, configFile)
	}

	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return fc, nil
}

// merge copies every value set in src over dst.
func merge(dst *fileConfig, src fileConfig) {
	if src.Main != "" {
		dst.Main = src.Main
	}
	if src.TargetFile != "" {
		dst.TargetFile = src.TargetFile
	}
	if src.TargetDir != "" {
		dst.TargetDir = src.TargetDir
	}
	if src.VendorDir != "" {
		dst.VendorDir = src.VendorDir
	}
	if src.TypingsDir != "" {
		dst.TypingsDir = src.TypingsDir
	}
	if src.EngineDir != "" {
		dst.EngineDir = src.EngineDir
	}
	if len(src.Dependencies) > 0 {
		dst.Dependencies = src.Dependencies
	}
	if src.Lint != nil {
		dst.Lint = src.Lint
	}
}

func resolve(root string, fc fileConfig, mode Mode) (Config, error) {
	if fc.Main == "" {
		return Config{}, ErrNoMainFile
	}

	c := Config{Root: root, Mode: mode}
	c.MainFile = c.abs(fc.Main)
	c.SourceDir = filepath.Dir(c.MainFile)
	c.TargetFile = or(fc.TargetFile, defaultTargetFile)
	if filepath.Ext(c.TargetFile) != ".js" || filepath.Base(c.TargetFile) != c.TargetFile {
		return Config{}, fmt.Errorf("%w: %q", ErrBadTarget, c.TargetFile)
	}
	c.TargetDir = c.abs(or(fc.TargetDir, defaultTargetDir))
	c.ScriptsDir = filepath.Join(c.TargetDir, "scripts")
	c.VendorDir = c.abs(or(fc.VendorDir, defaultVendorDir))
	c.TypingsDir = c.abs(or(fc.TypingsDir, defaultTypingsDir))
	if fc.EngineDir != "" {
		c.EngineDir = c.abs(fc.EngineDir)
	} else {
		c.EngineDir = filepath.Join(c.VendorDir, defaultEngine)
	}

	c.Dependencies = fc.Dependencies
	if len(c.Dependencies) == 0 {
		c.Dependencies = defaultDependencies(c)
	}
	for i, d := range c.Dependencies {
		if d.Name == "" {
			c.Dependencies[i].Name = fmt.Sprintf("dependency-%d", i)
		}
	}

	if fc.Lint != nil {
		c.Lint = *fc.Lint
		c.Lint.Command = append([]string(nil), fc.Lint.Command...)
	}
	if c.Lint.MaxLineLength <= 0 {
		c.Lint.MaxLineLength = defaultMaxLine
	}

	return c, nil
}

// defaultDependencies installs Phaser and its type definitions.
func defaultDependencies(c Config) []Dependency {
	return []Dependency{
		{
			Name:    "phaser",
			From:    filepath.Join(c.EngineDir, "build"),
			Dest:    DestScripts,
			Files:   []string{"phaser.min.js", "phaser.js", "phaser.map"},
			Release: []string{"*.min.js"},
		},
		{
			Name:  "phaser-typings",
			From:  filepath.Join(c.EngineDir, "typescript"),
			Dest:  DestTypings,
			Files: []string{"phaser.comments.d.ts", "pixi.comments.d.ts", "p2.d.ts"},
		},
	}
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
