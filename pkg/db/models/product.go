package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog jersey with its purchase cost band and default margin policy.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID    uuid.UUID        `gorm:"column:category_id;type:uuid;not null;index"`
	Name          string           `gorm:"column:name;not null"`
	CostMin       decimal.Decimal  `gorm:"column:cost_min;type:numeric(12,2);not null"`
	CostMax       decimal.Decimal  `gorm:"column:cost_max;type:numeric(12,2);not null"`
	MinimumMargin decimal.Decimal  `gorm:"column:minimum_margin;type:numeric(7,4);not null"`
	Active        bool             `gorm:"column:active;not null"`
	Category      *Category        `gorm:"foreignKey:CategoryID"`
	Variants      []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// UnitCost returns the authoritative per-unit cost used for margin math:
// the top of the cost band, falling back to the bottom when no ceiling is set.
func (p *Product) UnitCost() decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	if p.CostMax.IsPositive() {
		return p.CostMax
	}
	return p.CostMin
}

// CategorySlug returns the preloaded category slug or an empty string.
func (p *Product) CategorySlug() string {
	if p == nil || p.Category == nil {
		return ""
	}
	return p.Category.Slug
}

// ProductVariant is one size of a product and owns its stock count.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_variants_product_size"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:idx_product_variants_product_size"`
	SKU       *string   `gorm:"column:sku"`
	Quantity  int       `gorm:"column:quantity;not null;check:chk_product_variants_quantity,quantity >= 0"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
