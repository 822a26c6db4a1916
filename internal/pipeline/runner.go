// Package pipeline runs named build tasks with prerequisites.
//
// A task's prerequisites run concurrently and must all succeed before the
// task itself runs. Within one call to Run every task executes at most once,
// however many tasks depend on it. Series composes tasks that must run
// strictly one after another.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/gamekit/internal/logger"
	"github.com/wolfeidau/gamekit/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownTask   = errors.New("unknown task")
	ErrDuplicateTask = errors.New("task already registered")
	ErrCycle         = errors.New("task dependency cycle")
	ErrSkipped       = errors.New("skipped due to upstream failure")
)

// TaskFunc is the body of a task.
type TaskFunc func(ctx context.Context) error

// Task is a named unit of work. Run may be nil for tasks that only group
// their prerequisites.
type Task struct {
	Name string
	Deps []string
	Run  TaskFunc
}

// Runner holds the registered tasks. Register everything before calling Run.
type Runner struct {
	tasks   map[string]Task
	aliases map[string]string
}

func NewRunner() *Runner {
	return &Runner{
		tasks:   map[string]Task{},
		aliases: map[string]string{},
	}
}

// Register adds a task.
func (r *Runner) Register(t Task) error {
	if t.Name == "" {
		return errors.New("task name is required")
	}
	if _, ok := r.tasks[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name)
	}
	if _, ok := r.aliases[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name)
	}
	r.tasks[t.Name] = t
	return nil
}

// Alias makes name refer to target.
func (r *Runner) Alias(name, target string) error {
	if _, ok := r.tasks[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	if _, ok := r.aliases[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	r.aliases[name] = target
	return nil
}

// Tasks lists the names of registered tasks and aliases.
func (r *Runner) Tasks() []string {
	names := make([]string, 0, len(r.tasks)+len(r.aliases))
	for name := range r.tasks {
		names = append(names, name)
	}
	for name := range r.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every prerequisite exists and that there are no cycles.
func (r *Runner) Validate() error {
	for alias, target := range r.aliases {
		if _, ok := r.tasks[target]; !ok {
			return fmt.Errorf("%w: %s (alias %s)", ErrUnknownTask, target, alias)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		name = r.resolve(name)
		t, ok := r.tasks[name]
		if !ok {
			return fmt.Errorf("%w: %s (required by %s)", ErrUnknownTask, name, strings.Join(path, " -> "))
		}
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(path, name), " -> "))
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range t.Deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range r.Tasks() {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) resolve(name string) string {
	if target, ok := r.aliases[name]; ok {
		return target
	}
	return name
}

// Run executes the named tasks concurrently with their prerequisites.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := r.tasks[r.resolve(name)]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTask, name)
		}
	}

	ctx = withRun(ctx, &run{runner: r, results: map[string]*result{}})

	return runAll(ctx, names)
}

// Series returns a task body running names one after another, each with
// its prerequisites. It stops at the first failure.
func (r *Runner) Series(names ...string) TaskFunc {
	return func(ctx context.Context) error {
		for _, name := range names {
			if err := runOne(ctx, name); err != nil {
				return err
			}
		}
		return nil
	}
}

type result struct {
	once sync.Once
	err  error
}

type run struct {
	runner  *Runner
	mu      sync.Mutex
	results map[string]*result
}

func (rn *run) result(name string) *result {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	res, ok := rn.results[name]
	if !ok {
		res = &result{}
		rn.results[name] = res
	}
	return res
}

type runKey struct{}

func withRun(ctx context.Context, rn *run) context.Context {
	return context.WithValue(ctx, runKey{}, rn)
}

func runFromContext(ctx context.Context) (*run, bool) {
	rn, ok := ctx.Value(runKey{}).(*run)
	return rn, ok
}

func runAll(ctx context.Context, names []string) error {
	if len(names) == 1 {
		return runOne(ctx, names[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(names))
	for i, name := range names {
		g.Go(func() error {
			errs[i] = runOne(gctx, name)
			return errs[i]
		})
	}
	_ = g.Wait()

	return rootCause(names, errs)
}

// rootCause prefers a real failure over the skips it caused.
func rootCause(names []string, errs []error) error {
	var skipped error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, ErrSkipped) || errors.Is(err, context.Canceled) {
			if skipped == nil {
				skipped = err
			}
			continue
		}
		return fmt.Errorf("%s: %w", names[i], err)
	}
	return skipped
}

func runOne(ctx context.Context, name string) error {
	rn, ok := runFromContext(ctx)
	if !ok {
		return errors.New("task run outside of Runner.Run")
	}

	name = rn.runner.resolve(name)
	t, ok := rn.runner.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	res := rn.result(name)
	res.once.Do(func() {
		res.err = execute(ctx, t)
	})
	return res.err
}

func execute(ctx context.Context, t Task) error {
	ctx, log := logger.Task(ctx, t.Name)

	if len(t.Deps) > 0 {
		if err := runAll(ctx, t.Deps); err != nil {
			log.Warn().Err(err).Msg("Skipping task due to upstream failure")
			if errors.Is(err, ErrSkipped) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrSkipped, err)
		}
	}

	if t.Run == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return instrument(ctx, log, t)
}

func instrument(ctx context.Context, log zerolog.Logger, t Task) error {
	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("task", t.Name))

	ctx, span := telemetry.Tracer().Start(ctx, "task "+t.Name)
	defer span.End()

	log.Info().Msg("Starting task")
	started := time.Now()

	err := t.Run(ctx)

	elapsed := time.Since(started)
	m.TasksTotal.Add(ctx, 1, attrs)
	m.TaskDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if err != nil {
		m.TaskErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Dur("duration", elapsed).Msg("Task failed")
		return err
	}

	log.Info().Dur("duration", elapsed).Msg("Finished task")
	return nil
}
