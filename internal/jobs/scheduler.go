// Package jobs runs the background maintenance of the quote API on cron schedules.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultJobTimeout bounds a job run when AddJob is given no timeout
const DefaultJobTimeout = 5 * time.Minute

// ErrJobRunning is returned when a job is triggered while an earlier run is still active
var ErrJobRunning = errors.New("job is already running")

// Job is one unit of background work. ctx carries the deadline of the run.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function to Job
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// scheduledJob is a registered job. running is held for the whole run, so a cron tick
// and a manual trigger never execute the same job at once.
type scheduledJob struct {
	name    string
	job     Job
	timeout time.Duration
	entry   cron.EntryID
	running atomic.Bool
}

// Scheduler runs named jobs on six-field (seconds) cron expressions and on demand.
type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	mu       sync.Mutex
	jobs     map[string]*scheduledJob
	inflight sync.WaitGroup
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{logger.Sugar()})),
		logger: logger,
		jobs:   make(map[string]*scheduledJob),
	}
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler", zap.Strings("jobs", s.JobNames()))
	s.cron.Start()
}

// Stop stops the cron loop. The returned context is done once every active run,
// scheduled or triggered with RunNow, has returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	cronDone := s.cron.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.inflight.Wait()
		cancel()
	}()
	return ctx
}

// AddJob registers job under name with a cron expression such as "0 */5 * * * *" or "@every 1h".
// Each run gets a context that expires after timeout.
func (s *Scheduler) AddJob(name, cronExpr string, timeout time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	sj := &scheduledJob{name: name, job: job, timeout: timeout}
	entryID, err := s.cron.AddFunc(cronExpr, func() { s.fire(sj) })
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}
	sj.entry = entryID
	s.jobs[name] = sj

	s.logger.Info("added scheduled job",
		zap.String("job_name", name),
		zap.String("cron_expr", cronExpr),
		zap.Duration("timeout", timeout))
	return nil
}

// RemoveJob unschedules a job by name. A run already in progress completes.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(sj.entry)
	delete(s.jobs, name)

	s.logger.Info("removed scheduled job", zap.String("job_name", name))
	return nil
}

// RunNow starts a run of the named job in the background, outside its schedule.
// It returns ErrJobRunning when the job is busy.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	sj, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	if !sj.running.CompareAndSwap(false, true) {
		return fmt.Errorf("job %s: %w", name, ErrJobRunning)
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.run(sj)
	}()
	return nil
}

// JobNames returns the registered job names in sorted order.
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fire is the cron entry point
func (s *Scheduler) fire(sj *scheduledJob) {
	if !sj.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping scheduled run, previous run still active", zap.String("job_name", sj.name))
		return
	}
	s.inflight.Add(1)
	defer s.inflight.Done()
	s.run(sj)
}

// run executes a job whose running flag the caller set, and clears it afterwards
func (s *Scheduler) run(sj *scheduledJob) {
	defer sj.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("job_name", sj.name),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sj.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Debug("running job", zap.String("job_name", sj.name))
	if err := sj.job.Run(ctx); err != nil {
		s.logger.Error("job failed",
			zap.String("job_name", sj.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	s.logger.Debug("job finished",
		zap.String("job_name", sj.name),
		zap.Duration("duration", time.Since(start)))
}

// cronLogger routes the cron library's own messages to zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
