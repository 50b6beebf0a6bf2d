package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  time.Duration
}

// NewOutboxRetentionJob removes published outbox rows older than the retention
// window. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if err := requireRetentionDeps(params.Logger, params.DB, params.Repository == nil); err != nil {
		return nil, err
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &retentionJob{
		name:      "outbox-retention",
		logg:      params.Logger,
		db:        params.DB,
		retention: retention,
		delete:    params.Repository.DeletePublishedBefore,
		now:       time.Now,
	}, nil
}

type dlqRetentionRepo interface {
	DeleteBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type DLQRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository dlqRetentionRepo
	Retention  time.Duration
}

// NewDLQRetentionJob prunes dead-lettered events once operators have had the
// retention window to inspect them.
func NewDLQRetentionJob(params DLQRetentionJobParams) (Job, error) {
	if err := requireRetentionDeps(params.Logger, params.DB, params.Repository == nil); err != nil {
		return nil, err
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultDLQRetention
	}
	return &retentionJob{
		name:      "outbox-dlq-retention",
		logg:      params.Logger,
		db:        params.DB,
		retention: retention,
		delete:    params.Repository.DeleteBefore,
		now:       time.Now,
	}, nil
}

func requireRetentionDeps(logg *logger.Logger, db txRunner, missingRepo bool) error {
	switch {
	case logg == nil:
		return fmt.Errorf("logger required")
	case db == nil:
		return fmt.Errorf("db runner required")
	case missingRepo:
		return fmt.Errorf("repository required")
	}
	return nil
}

type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention time.Duration
	delete    func(tx *gorm.DB, cutoff time.Time) (int64, error)
	now       func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.delete(tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "retention cleanup complete")
	return nil
}
