package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zappabad/liquidbook/internal/logger"
)

// Scheduler runs jobs on fixed intervals.
type Scheduler struct {
	cron *cron.Cron
	log  logger.Interface
}

// NewScheduler creates a stopped scheduler. Jobs recover from panics and a
// job still running when its next tick fires is skipped.
func NewScheduler(log logger.Interface) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Every schedules fn every d. Intervals are rounded to whole seconds with a
// one second minimum.
func (s *Scheduler) Every(d time.Duration, name string, fn func()) cron.EntryID {
	id := s.cron.Schedule(cron.Every(d), cron.FuncJob(fn))
	s.log.Debug("job scheduled",
		logger.NewField("job", name),
		logger.NewField("every", d.String()))
	return id
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

type cronLogger struct {
	log logger.Interface
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(fmt.Errorf("cron: %s: %w", msg, err), kvFields(keysAndValues)...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.NewField(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
