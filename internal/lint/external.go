package lint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	consolestream "github.com/wolfeidau/console-stream"
)

var ErrNoCommand = errors.New("empty lint command")

// runExternal runs the configured linter in the current working directory,
// streaming its output into the log, and returns its exit code.
func runExternal(ctx context.Context, command []string) (int, error) {
	if len(command) == 0 || command[0] == "" {
		return 0, ErrNoCommand
	}

	logger := zerolog.Ctx(ctx).With().Str("linter", command[0]).Logger()
	logger.Info().Strs("args", command[1:]).Msg("Running external linter")

	process := consolestream.NewProcess(command[0], command[1:],
		consolestream.WithPipeMode(),
		consolestream.WithFlushInterval(200*time.Millisecond),
	)

	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			return 0, fmt.Errorf("external linter failed: %w", err)
		}

		switch e := event.Event.(type) {
		case *consolestream.OutputData:
			for _, line := range strings.Split(strings.TrimRight(string(e.Data), "\n"), "\n") {
				if line != "" {
					logger.Warn().Msg(line)
				}
			}
		case *consolestream.ProcessEnd:
			logger.Info().Int("exit_code", e.ExitCode).Dur("duration", e.Duration).Msg("External linter finished")
			return e.ExitCode, nil
		}
	}

	return 0, errors.New("external linter ended without an exit status")
}
