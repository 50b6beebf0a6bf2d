package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const lowStockReportLimit = 200

type lowStockRepo interface {
	ListLowStock(ctx context.Context, threshold, limit int) ([]models.ProductVariant, error)
}

type LowStockJobParams struct {
	Logger     *logger.Logger
	Repository lowStockRepo
	Metrics    *metrics.CronJobMetrics
	Threshold  int
}

// NewLowStockJob reports sizes of active products that are running out so the
// back office can restock before checkouts start failing.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Threshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be >= 0")
	}
	return &lowStockJob{
		logg:      params.Logger,
		repo:      params.Repository,
		metrics:   params.Metrics,
		threshold: params.Threshold,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	repo      lowStockRepo
	metrics   *metrics.CronJobMetrics
	threshold int
}

func (j *lowStockJob) Name() string { return "low-stock-report" }

func (j *lowStockJob) Run(ctx context.Context) error {
	variants, err := j.repo.ListLowStock(ctx, j.threshold, lowStockReportLimit)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	j.metrics.SetLowStock(len(variants))

	for _, variant := range variants {
		fields := map[string]any{
			"product_id": variant.ProductID.String(),
			"variant_id": variant.ID.String(),
			"size":       variant.Size,
			"quantity":   variant.Quantity,
		}
		if variant.Product != nil {
			fields["product_name"] = variant.Product.Name
		}
		msg := "inventory.low_stock"
		if variant.Quantity == 0 {
			msg = "inventory.sold_out"
		}
		j.logg.Warn(j.logg.WithFields(ctx, fields), msg)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"threshold": j.threshold,
		"variants":  len(variants),
	}), "low stock report complete")
	return nil
}
