package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is a committed customer order with its full financial snapshot.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber          string              `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	CustomerName         string              `gorm:"column:customer_name;not null"`
	CustomerEmail        string              `gorm:"column:customer_email;not null"`
	CustomerPhone        *string             `gorm:"column:customer_phone"`
	CustomerDocument     *string             `gorm:"column:customer_document"`
	ShippingAddress      types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	Subtotal             decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost         decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	ShippingCostPaid     decimal.Decimal     `gorm:"column:shipping_cost_paid;type:numeric(12,2);not null"`
	TotalAmount          decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	TotalCost            decimal.Decimal     `gorm:"column:total_cost;type:numeric(12,2);not null"`
	PlatformFee          decimal.Decimal     `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	CommissionValue      decimal.Decimal     `gorm:"column:commission_value;type:numeric(12,2);not null"`
	EstimatedProfit      decimal.Decimal     `gorm:"column:estimated_profit;type:numeric(12,2);not null"`
	NetProfit            decimal.Decimal     `gorm:"column:net_profit;type:numeric(12,2);not null"`
	NetMarginPercent     decimal.Decimal     `gorm:"column:net_margin_percent;type:numeric(9,4);not null"`
	MinimumMarginPercent decimal.Decimal     `gorm:"column:minimum_margin_percent;type:numeric(9,4);not null"`
	InfluencerID         *uuid.UUID          `gorm:"column:influencer_id;type:uuid;index"`
	AppliedCoupon        *string             `gorm:"column:applied_coupon"`
	PaymentStatus        enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	OrderStatus          enums.OrderStatus   `gorm:"column:order_status;type:order_status;not null"`
	PaymentID            *string             `gorm:"column:payment_id"`
	TrackingCode         *string             `gorm:"column:tracking_code"`
	Influencer           *Influencer         `gorm:"foreignKey:InfluencerID"`
	Items                []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots one priced cart line at commit time.
type OrderItem struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	VariantID   *uuid.UUID          `gorm:"column:variant_id;type:uuid"`
	ProductName string              `gorm:"column:product_name;not null"`
	Size        *string             `gorm:"column:size"`
	Quantity    int                 `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UnitCost    decimal.NullDecimal `gorm:"column:unit_cost;type:numeric(12,2)"`
	LineTotal   decimal.Decimal     `gorm:"column:line_total;type:numeric(12,2);not null"`
	LineCost    decimal.NullDecimal `gorm:"column:line_cost;type:numeric(12,2)"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderCounter is the single-row sequence the commit transaction increments
// to hand out order numbers.
type OrderCounter struct {
	Name      string    `gorm:"column:name;primaryKey"`
	LastValue int64     `gorm:"column:last_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
