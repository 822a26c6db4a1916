package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/gamekit/internal/logger"
	"github.com/wolfeidau/gamekit/internal/pipeline"
	"github.com/wolfeidau/gamekit/internal/project"
	"github.com/wolfeidau/gamekit/internal/telemetry"
)

type Globals struct {
	Debug     bool
	Project   string
	Config    string
	Telemetry bool
	Version   string

	// Output receives the log. Defaults to stderr.
	Output io.Writer
}

// session is everything a command needs to run pipeline tasks.
type session struct {
	ctx      context.Context
	log      zerolog.Logger
	pipeline *pipeline.Pipeline
	shutdown telemetry.ShutdownFunc
}

func (g *Globals) open(ctx context.Context) (*session, error) {
	out := g.Output
	if out == nil {
		out = os.Stderr
	}
	log := logger.New(out, g.Debug)
	ctx = log.WithContext(ctx)

	s := &session{ctx: ctx, log: log, shutdown: func(context.Context) error { return nil }}

	if g.Telemetry {
		log.Info().Msg("Telemetry is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "gamekit", g.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			s.shutdown = shutdown
		}
	}

	mode := project.ModeFromDebug(g.Debug)
	cfg, err := project.Load(g.Project, g.Config, mode)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.pipeline = p

	log.Debug().Str("version", g.Version).Str("mode", mode.String()).Str("root", cfg.Root).Msg("Loaded project")

	return s, nil
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 5*time.Second)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to shutdown telemetry")
	}
}

// runTasks runs the named pipeline tasks with their prerequisites.
func runTasks(ctx context.Context, globals *Globals, names ...string) error {
	s, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	started := time.Now()
	if err := s.pipeline.Run(s.ctx, names...); err != nil {
		return err
	}
	s.log.Info().Strs("tasks", names).Dur("duration", time.Since(started)).Msg("Done")
	return nil
}
