package project

// Mode selects between a debug (development) and release (production) build.
type Mode int

const (
	// Release minifies the bundle and copies only minified engine files.
	Release Mode = iota
	// Debug keeps the bundle readable and extracts its source map.
	Debug
)

// ModeFromDebug maps the CLI --debug flag onto a Mode.
func ModeFromDebug(debug bool) Mode {
	if debug {
		return Debug
	}
	return Release
}

func (m Mode) IsDebug() bool { return m == Debug }

func (m Mode) String() string {
	switch m {
	case Debug:
		return "debug"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}
