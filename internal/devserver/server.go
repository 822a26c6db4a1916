// Package devserver serves the built game with live reload and recompiles
// on source changes.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/gamekit/internal/http"
	"github.com/wolfeidau/gamekit/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Listen      string
	CORSOrigins []string
	Debounce    time.Duration
}

// Server runs the watch loop for one pipeline and serves its target dir.
type Server struct {
	pipeline *pipeline.Pipeline
	hub      *Hub
	opts     Options
}

func New(p *pipeline.Pipeline, opts Options) *Server {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Server{pipeline: p, hub: NewHub(), opts: opts}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes of the dev server.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(ReloadScriptPath, gzhttp.GzipHandler(http.HandlerFunc(serveReloadScript)))
	mux.Handle(WebsocketPath, s.hub.Handler())
	mux.Handle("/", gzhttp.GzipHandler(newStaticHandler(s.pipeline.Config.TargetDir)))

	var handler http.Handler = mux
	if len(s.opts.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		}).Handler(handler)
	}
	handler = httpmiddleware.AccessLogMiddleware()(handler)
	handler = httpmiddleware.LoggerMiddleware(log)(handler)

	return handler
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve rebuilds the project, then serves it on ln while watching the
// source tree until ctx is done. A failed build is logged and the previous
// output keeps being served.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := zerolog.Ctx(ctx)
	cfg := s.pipeline.Config

	if err := s.pipeline.Run(ctx, pipeline.TaskRebuild); err != nil {
		log.Error().Err(err).Msg("Initial build failed")
	}

	watcher, err := NewWatcher(cfg.SourceDir, MatchExt(".ts"), s.opts.Debounce)
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := configureHTTPServer(s.Handler(*log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return watcher.Run(gctx, s.recompile)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info().
		Str("addr", "http://"+ln.Addr().String()).
		Str("root", cfg.TargetDir).
		Str("watching", cfg.SourceDir).
		Msg("Serving")

	return g.Wait()
}

func (s *Server) recompile(ctx context.Context, changed []string) {
	log := zerolog.Ctx(ctx)

	names := make([]string, 0, len(changed))
	for _, name := range changed {
		if rel, err := filepath.Rel(s.pipeline.Config.Root, name); err == nil {
			name = rel
		}
		names = append(names, name)
	}
	log.Info().Strs("files", names).Msg("Source changed")

	if err := s.pipeline.Run(ctx, pipeline.TaskCompile); err != nil {
		log.Error().Err(err).Msg("Compile failed, keeping previous bundle")
		return
	}

	if res := s.pipeline.Bundler.Last(); res != nil {
		s.hub.Broadcast(ctx, res.ID)
	}
}

func configureHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
