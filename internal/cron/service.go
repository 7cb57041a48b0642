package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// ServiceParams configure the cron service. JobTimeout bounds each job of a
// cycle and defaults to the interval.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
	Now        func() time.Time
}

// Service runs the banking jobs once per interval on whichever worker holds
// the lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

// CycleReport is the outcome of one cycle. Skipped means another worker held
// the lock and no job ran.
type CycleReport struct {
	ID        string
	Skipped   bool
	Succeeded []string
	Failed    []string
	Duration  time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry, _ = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	jobTimeout := params.JobTimeout
	if jobTimeout <= 0 || jobTimeout > interval {
		jobTimeout = interval
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: jobTimeout,
		now:        now,
	}, nil
}

// Run runs a cycle immediately and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil {
		s.logg.Error(ctx, "banking cycle failed", err)
	}
}

// RunCycle takes the lock and runs every job in order. A failing job is
// logged and counted; the remaining jobs still run.
func (s *Service) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ID: uuid.NewString()}
	ctx = s.logg.WithField(ctx, "cron_cycle_id", report.ID)

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		report.Skipped = true
		s.logg.Info(ctx, "cron lock held elsewhere; cycle skipped")
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron lock not released", err)
		}
	}()

	started := s.now()
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		if s.runJob(ctx, job) {
			report.Succeeded = append(report.Succeeded, job.Name())
		} else {
			report.Failed = append(report.Failed, job.Name())
		}
	}
	report.Duration = s.now().Sub(started)

	summary := s.logg.WithFields(ctx, map[string]any{
		"jobs_succeeded": len(report.Succeeded),
		"jobs_failed":    len(report.Failed),
		"duration_ms":    report.Duration.Milliseconds(),
	})
	if len(report.Failed) > 0 {
		s.logg.Warn(s.logg.WithField(summary, "failed_jobs", report.Failed), "banking cycle finished with failures")
	} else {
		s.logg.Info(summary, "banking cycle finished")
	}
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "cron_job", name)
	runCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	started := s.now()
	err := job.Run(runCtx)
	elapsed := s.now().Sub(started)
	s.metrics.ObserveDuration(name, elapsed)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s exceeded %s: %w", name, s.jobTimeout, err)
		}
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "banking job failed", err)
		return false
	}
	s.metrics.IncSuccess(name)
	s.logg.Debug(jobCtx, "banking job finished")
	return true
}
