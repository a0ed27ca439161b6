package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autotrader/src/utils"

	logger "github.com/sirupsen/logrus"
)

// TriggerSpec describes when a job fires: a daily wall-clock time, or a
// fixed interval when Interval is set.
type TriggerSpec struct {
	Hour     int
	Minute   int
	Interval time.Duration
}

// Daily fires once per day at hour:minute local time.
func Daily(hour, minute int) TriggerSpec {
	return TriggerSpec{Hour: hour, Minute: minute}
}

// Every fires on a fixed interval.
func Every(interval time.Duration) TriggerSpec {
	return TriggerSpec{Interval: interval}
}

// Job is one registered callback. Run takes no arguments; anything the
// callback needs is captured at registration time.
type Job struct {
	ID   string
	Spec TriggerSpec
	Run  func()
}

// Scheduler is an explicit service instance holding a job registry, with a
// start/stop lifecycle instead of process-wide implicit state. It provides
// no mutual exclusion between invocations of the same job; overlap
// protection is cooperative (the coordinator's running flag).
type Scheduler struct {
	log *logger.Entry
	now func() time.Time

	mu      sync.Mutex
	jobs    map[string]Job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(log *logger.Entry) *Scheduler {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	return &Scheduler{
		log:  log,
		now:  time.Now,
		jobs: make(map[string]Job),
	}
}

// Register adds a job to the registry. Jobs must be registered before Start;
// duplicate ids are rejected.
func (s *Scheduler) Register(job Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is empty")
	}
	if job.Run == nil {
		return fmt.Errorf("job %q has no callback", job.ID)
	}
	if job.Spec.Interval <= 0 && (job.Spec.Hour < 0 || job.Spec.Hour > 23 || job.Spec.Minute < 0 || job.Spec.Minute > 59) {
		return fmt.Errorf("job %q has an invalid trigger spec", job.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if _, dup := s.jobs[job.ID]; dup {
		return fmt.Errorf("job %q already registered", job.ID)
	}

	s.jobs[job.ID] = job
	return nil
}

// Start launches one goroutine per registered job.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if len(s.jobs) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}

	s.log.WithField("jobs", len(s.jobs)).Info("scheduler started")
	return nil
}

// Stop cancels all job goroutines and waits for them to exit. A stopped
// scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	log := s.log.WithField("job", job.ID)

	for {
		wait := s.untilNextFire(job.Spec)
		log.WithField("next_fire_in", wait.String()).Debug("job sleeping")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		log.Info("job fired")
		job.Run()
	}
}

func (s *Scheduler) untilNextFire(spec TriggerSpec) time.Duration {
	now := s.now()
	if spec.Interval > 0 {
		return spec.Interval
	}
	return utils.NextDailyFire(now, spec.Hour, spec.Minute).Sub(now)
}
