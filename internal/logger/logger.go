package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New builds the process logger writing to w. Dev mode switches to the
// console writer and debug level.
func New(w io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.Kitchen)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Task returns a child of the context logger tagged with the task name and
// a context carrying it.
func Task(ctx context.Context, name string) (context.Context, zerolog.Logger) {
	l := zerolog.Ctx(ctx).With().Str("task", name).Logger()
	return l.WithContext(ctx), l
}
