package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Campaign is a time-boxed promotion that may override the minimum margin,
// either store-wide or for a single category.
type Campaign struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name               string              `gorm:"column:name;not null"`
	Active             bool                `gorm:"column:active;not null"`
	StartDate          time.Time           `gorm:"column:start_date;not null"`
	EndDate            time.Time           `gorm:"column:end_date;not null"`
	TargetCategorySlug *string             `gorm:"column:target_category_slug"`
	MinMarginOverride  decimal.NullDecimal `gorm:"column:min_margin_override;type:numeric(7,4)"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Campaign) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Covers reports whether the campaign window includes t (inclusive on both ends).
func (c *Campaign) Covers(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}
