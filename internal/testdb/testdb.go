// Package testdb opens throwaway sqlite databases with the storefront schema
// and seeds catalog fixtures for package tests.
package testdb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// New returns an isolated in-memory database. The pool is pinned to one
// connection so concurrent transactions queue instead of failing with SQLITE_BUSY.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:storefront_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// Category seeds a category with the given slug.
func Category(t *testing.T, db *gorm.DB, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Slug: slug, Name: slug}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category
}

// ProductOpts describes a seeded product.
type ProductOpts struct {
	Name          string
	CategoryID    uuid.UUID
	Cost          string
	MinimumMargin string
}

// Product seeds an active product whose cost band is [Cost, Cost].
func Product(t *testing.T, db *gorm.DB, opts ProductOpts) *models.Product {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "Home Jersey 24/25"
	}
	if opts.MinimumMargin == "" {
		opts.MinimumMargin = "20"
	}
	product := &models.Product{
		CategoryID:    opts.CategoryID,
		Name:          opts.Name,
		CostMin:       decimal.RequireFromString(opts.Cost),
		CostMax:       decimal.RequireFromString(opts.Cost),
		MinimumMargin: decimal.RequireFromString(opts.MinimumMargin),
		Active:        true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// Variant seeds one size with the given stock.
func Variant(t *testing.T, db *gorm.DB, productID uuid.UUID, size string, qty int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{ProductID: productID, Size: size, Quantity: qty}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

// Campaign seeds an active campaign covering now ± a day.
func Campaign(t *testing.T, db *gorm.DB, targetSlug *string, override string) *models.Campaign {
	t.Helper()
	now := time.Now().UTC()
	campaign := &models.Campaign{
		Name:               "Campaign " + uuid.NewString()[:8],
		Active:             true,
		StartDate:          now.Add(-24 * time.Hour),
		EndDate:            now.Add(24 * time.Hour),
		TargetCategorySlug: targetSlug,
	}
	if override != "" {
		campaign.MinMarginOverride = decimal.NewNullDecimal(decimal.RequireFromString(override))
	}
	if err := db.Create(campaign).Error; err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return campaign
}

// Influencer seeds an influencer with an uppercase coupon code.
func Influencer(t *testing.T, db *gorm.DB, code, rate string, active bool) *models.Influencer {
	t.Helper()
	influencer := &models.Influencer{
		Name:           "Influencer " + code,
		CouponCode:     code,
		CommissionRate: decimal.RequireFromString(rate),
		Active:         active,
	}
	if err := db.Create(influencer).Error; err != nil {
		t.Fatalf("seed influencer: %v", err)
	}
	return influencer
}
