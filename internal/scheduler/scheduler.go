package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/monitoring"
	"github.com/ducminhle1904/smart-ea/internal/recovery"
)

// Job is a named task run on a fixed interval.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// ErrorReporter is told about failed job runs.
type ErrorReporter interface {
	RecordError(msg string)
}

// Scheduler runs each job on its own ticker until the context is cancelled.
type Scheduler struct {
	logger   *logger.Logger
	reporter ErrorReporter
	recovery *recovery.RecoveryHandler

	mu      sync.Mutex
	jobs    []Job
	running bool
}

// New creates an empty scheduler. reporter may be nil.
func New(log *logger.Logger, reporter ErrorReporter) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{logger: log, reporter: reporter}
}

// WithRecovery retries transient job failures through rh.
func (s *Scheduler) WithRecovery(rh *recovery.RecoveryHandler) *Scheduler {
	s.recovery = rh
	return s
}

// Add registers a job. Jobs cannot be added once Run has started.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if job.Every <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", job.Name, job.Every)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("job %s: scheduler already running", job.Name)
	}
	for _, j := range s.jobs {
		if j.Name == job.Name {
			return fmt.Errorf("job %s already registered", job.Name)
		}
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Run blocks until ctx is cancelled and every job loop has exited.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	s.logger.Info("scheduler started with %d jobs", len(jobs))
	wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// RunNow executes the named job once.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, j := range s.Jobs() {
		if j.Name == name {
			return s.execute(ctx, j)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("job %s stopped", job.Name)
			return
		case <-ticker.C:
			_ = s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		monitoring.RecordJobRun(job.Name, err)
		if err != nil {
			s.logger.LogError("job "+job.Name, err)
			if s.reporter != nil {
				s.reporter.RecordError(err.Error())
			}
		}
	}()

	start := time.Now()
	if s.recovery != nil {
		err = s.recovery.ExecuteWithRecovery(ctx, "scheduler", job.Name, job.Run)
	} else {
		err = job.Run(ctx)
	}
	s.logger.Debug("job %s finished in %s", job.Name, time.Since(start))
	return err
}
