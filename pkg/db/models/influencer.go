package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Influencer owns a coupon code and earns a commission on attributed subtotals.
type Influencer struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	CouponCode     string          `gorm:"column:coupon_code;not null;uniqueIndex:influencers_coupon_code_key"`
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:numeric(7,4);not null"`
	Active         bool            `gorm:"column:active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Influencer) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
