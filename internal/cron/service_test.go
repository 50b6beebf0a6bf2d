package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name     string
	err      error
	runs     int
	deadline time.Time
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	t.deadline, _ = ctx.Deadline()
	return t.err
}

func newTestService(t *testing.T, lock Lock, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	after := &testJob{name: "after"}
	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	service := newTestService(t, lock, reg, success, failing, after)

	err := service.runCycle(context.Background())
	if err == nil {
		t.Fatal("expected combined job error")
	}
	if success.runs != 1 || failing.runs != 1 || after.runs != 1 {
		t.Fatalf("expected every job to run once, got %d/%d/%d", success.runs, failing.runs, after.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("expected lock released once, held=%v releases=%d", lock.held, lock.releases)
	}
	if got := counterValue(t, reg, "cron_job_failure_total", "fail"); got != 1 {
		t.Fatalf("expected one failure recorded, got %v", got)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	lock := &fakeLock{held: true}
	service := newTestService(t, lock, nil, job)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("expected no release when lock not acquired")
	}
}

func TestServiceRunCycleReturnsLockError(t *testing.T) {
	job := &testJob{name: "job"}
	service := newTestService(t, &fakeLock{acquireErr: errors.New("redis down")}, nil, job)

	if err := service.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d", job.runs)
	}
}

func TestServiceBoundsEachJob(t *testing.T) {
	job := &testJob{name: "slow"}
	registry, err := NewRegistry(job)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry:   registry,
		Lock:       &fakeLock{},
		Interval:   time.Hour,
		JobTimeout: 5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	start := time.Now()
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.deadline.IsZero() {
		t.Fatal("expected job context to carry a deadline")
	}
	if remaining := job.deadline.Sub(start); remaining > 5*time.Minute+time.Second || remaining < 4*time.Minute {
		t.Fatalf("unexpected job deadline %v after start", remaining)
	}
}

func TestNewServiceClampsJobTimeoutToInterval(t *testing.T) {
	registry, _ := NewRegistry(&testJob{name: "job"})
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry:   registry,
		Lock:       &fakeLock{},
		Interval:   time.Minute,
		JobTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if service.jobTimeout != time.Minute {
		t.Fatalf("expected timeout clamped to interval, got %v", service.jobTimeout)
	}
}

func TestNewServiceRequiresJobs(t *testing.T) {
	registry, _ := NewRegistry()
	_, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err == nil {
		t.Fatal("expected error for empty registry")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{job=%q} not found", name, job)
	return 0
}
