package assets

import (
	"fmt"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
)

type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes int `json:"bytes"`
}

type OutputInfo struct {
	Bytes      int    `json:"bytes"`
	EntryPoint string `json:"entryPoint"`
}

// Message is a single bundler diagnostic. Line and Column are 1-based.
type Message struct {
	File   string
	Line   int
	Column int
	Text   string
}

func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}

func convertMessages(msgs []api.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		m := Message{Text: msg.Text}
		if msg.Location != nil {
			m.File = msg.Location.File
			m.Line = msg.Location.Line
			m.Column = msg.Location.Column + 1
		}
		out = append(out, m)
	}
	return out
}

// BuildError is returned when the bundler reports errors. Nothing is written
// in that case, so the previous bundle stays in place.
type BuildError struct {
	Messages []Message
}

func (e *BuildError) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("esbuild failed with %d error(s): %s", len(e.Messages), strings.Join(parts, "; "))
}

// Result describes a successful compile.
type Result struct {
	// ID changes on every successful compile
	ID           string
	OutFile      string
	MapFile      string
	Bytes        int
	Modules      int
	Declarations []string
	Warnings     []Message
}

// Bundler compiles the game sources into a single script.
type Bundler struct {
	config Config
	last   *Result
	mu     sync.Mutex
}

// New creates a new bundler with the given configuration
func New(config Config) *Bundler {
	return &Bundler{
		config: config,
	}
}

// Last returns the most recent successful result, or nil.
func (b *Bundler) Last() *Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
