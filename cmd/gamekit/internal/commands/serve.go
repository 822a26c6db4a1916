package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfeidau/gamekit/internal/devserver"
)

// ServeCmd rebuilds, serves the target directory with live reload and
// recompiles on source changes.
type ServeCmd struct {
	Listen      string        `help:"HTTP listen address" default:"127.0.0.1:8080" env:"GAMEKIT_LISTEN"`
	CORSOrigins []string      `help:"allowed CORS origins" env:"GAMEKIT_CORS_ORIGINS"`
	Debounce    time.Duration `help:"quiet period before recompiling after a change" default:"100ms" env:"GAMEKIT_DEBOUNCE"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	srv := devserver.New(s.pipeline, devserver.Options{
		Listen:      c.Listen,
		CORSOrigins: c.CORSOrigins,
		Debounce:    c.Debounce,
	})

	return srv.ListenAndServe(s.ctx)
}
