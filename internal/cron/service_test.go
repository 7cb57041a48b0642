package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
	wait bool
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	if t.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	return t.err
}

func newCronService(t *testing.T, lock Lock, timeout time.Duration, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	service, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   registry,
		Lock:       lock,
		Interval:   time.Minute,
		JobTimeout: timeout,
	})
	require.NoError(t, err)
	return service
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	integrity := &testJob{name: JobIntegrityCheck}
	poll := &testJob{name: JobPayoutStatusPoll, err: errors.New("paypal unavailable")}
	retention := &testJob{name: JobOutboxRetention}
	lock := &fakeLock{}
	service := newCronService(t, lock, time.Second, poll, integrity, retention)

	report, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.False(t, report.Skipped)
	assert.Equal(t, []string{JobIntegrityCheck, JobOutboxRetention}, report.Succeeded)
	assert.Equal(t, []string{JobPayoutStatusPoll}, report.Failed)
	assert.Equal(t, 1, integrity.runs)
	assert.Equal(t, 1, retention.runs)
	assert.Equal(t, 1, lock.released)
	assert.False(t, lock.held)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	credits := &testJob{name: JobSubscriptionCredits}
	service := newCronService(t, &fakeLock{held: true}, 0, credits)

	report, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, credits.runs)
}

func TestRunCycleBoundsSlowJob(t *testing.T) {
	slow := &testJob{name: JobPayoutStatusPoll, wait: true}
	next := &testJob{name: JobIntegrityCheck}
	service := newCronService(t, &fakeLock{}, 20*time.Millisecond, slow, next)

	report, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{JobPayoutStatusPoll}, report.Failed)
	assert.Equal(t, 1, next.runs)
}

func TestNewServiceClampsJobTimeoutToInterval(t *testing.T) {
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Interval: time.Minute, JobTimeout: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, service.jobTimeout)

	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
