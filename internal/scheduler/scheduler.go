// Package scheduler runs periodic maintenance for the search backend: it
// resyncs the in-memory job catalog and user directory from the database,
// sweeps idle search sessions and purges expired idempotency records.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Task is one unit of periodic work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler wraps robfig/cron and runs every task on each tick.
type Scheduler struct {
	cron  *cron.Cron
	spec  string
	tasks []Task
}

// New validates spec (standard 5-field cron or a descriptor such as
// "@every 5m") and returns a scheduler for tasks.
func New(spec string, tasks ...Task) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	lg := cronLogger{lg: log.Logger}
	return &Scheduler{
		cron:  cron.New(cron.WithLogger(lg), cron.WithChain(cron.SkipIfStillRunning(lg))),
		spec:  spec,
		tasks: tasks,
	}, nil
}

// Start registers the tick and starts the cron loop. One pass runs
// immediately so state is fresh without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	log.Info().Str("spec", s.spec).Int("tasks", len(s.tasks)).Msg("scheduler: started")

	go s.RunOnce(ctx)
	return nil
}

// RunOnce runs every task in order. A failing task is logged and does not
// stop the ones after it.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, t := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := t.Run(ctx); err != nil {
			log.Error().Err(err).Str("task", t.Name).Msg("scheduler: task failed")
			continue
		}
		log.Debug().Str("task", t.Name).Dur("took", time.Since(start)).Msg("scheduler: task done")
	}
}

// Stop halts the cron loop and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler: stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ lg zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.lg.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.lg.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
