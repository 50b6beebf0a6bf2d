package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type outboxBacklogRepo interface {
	CountPending(ctx context.Context) (int64, error)
}

type OutboxBacklogJobParams struct {
	Logger     *logger.Logger
	Repository outboxBacklogRepo
	Metrics    *metrics.CronJobMetrics
	WarnAt     int64
}

// NewOutboxBacklogJob publishes the unpublished outbox count and warns once it
// reaches WarnAt, which usually means the publisher is down.
func NewOutboxBacklogJob(params OutboxBacklogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &outboxBacklogJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
		warnAt:  params.WarnAt,
	}, nil
}

type outboxBacklogJob struct {
	logg    *logger.Logger
	repo    outboxBacklogRepo
	metrics *metrics.CronJobMetrics
	warnAt  int64
}

func (j *outboxBacklogJob) Name() string { return "outbox-backlog" }

func (j *outboxBacklogJob) Run(ctx context.Context) error {
	pending, err := j.repo.CountPending(ctx)
	if err != nil {
		return fmt.Errorf("count pending outbox events: %w", err)
	}
	j.metrics.SetOutboxPending(pending)

	logCtx := j.logg.WithField(ctx, "pending", pending)
	if j.warnAt > 0 && pending >= j.warnAt {
		j.logg.Warn(j.logg.WithField(logCtx, "warn_at", j.warnAt), "outbox.backlog.high")
		return nil
	}
	j.logg.Debug(logCtx, "outbox backlog checked")
	return nil
}
