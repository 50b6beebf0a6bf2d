package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ListFilters describe the inputs supported by the admin orders list.
type ListFilters struct {
	PaymentStatus *enums.PaymentStatus
	OrderStatus   *enums.OrderStatus
	InfluencerID  *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}

// OrderSummary is one row of the admin orders list.
type OrderSummary struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	CreatedAt        time.Time           `json:"created_at"`
	CustomerName     string              `json:"customer_name"`
	CustomerEmail    string              `json:"customer_email"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	NetProfit        decimal.Decimal     `json:"net_profit"`
	NetMarginPercent decimal.Decimal     `json:"net_margin_percent"`
	TotalItems       int                 `json:"total_items"`
	AppliedCoupon    *string             `json:"applied_coupon,omitempty"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	OrderStatus      enums.OrderStatus   `json:"order_status"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// NewOrderSummary maps an order row to its list representation.
func NewOrderSummary(o models.Order) OrderSummary {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return OrderSummary{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CreatedAt:        o.CreatedAt,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		TotalAmount:      o.TotalAmount,
		NetProfit:        o.NetProfit,
		NetMarginPercent: o.NetMarginPercent.Round(2),
		TotalItems:       total,
		AppliedCoupon:    o.AppliedCoupon,
		PaymentStatus:    o.PaymentStatus,
		OrderStatus:      o.OrderStatus,
	}
}

// OrderItemView is an item as returned by both order views.
type OrderItemView struct {
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	VariantID   *uuid.UUID       `json:"variant_id,omitempty"`
	ProductName string           `json:"product_name"`
	Size        *string          `json:"size,omitempty"`
	Quantity    int              `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	LineTotal   decimal.Decimal  `json:"line_total"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	LineCost    *decimal.Decimal `json:"line_cost,omitempty"`
}

// OrderDetail is the operator view with the full financial snapshot.
type OrderDetail struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	CreatedAt            time.Time           `json:"created_at"`
	CustomerName         string              `json:"customer_name"`
	CustomerEmail        string              `json:"customer_email"`
	CustomerPhone        *string             `json:"customer_phone,omitempty"`
	CustomerDocument     *string             `json:"customer_document,omitempty"`
	ShippingAddress      types.Address       `json:"shipping_address"`
	Items                []OrderItemView     `json:"items"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	ShippingCost         decimal.Decimal     `json:"shipping_cost"`
	ShippingCostPaid     decimal.Decimal     `json:"shipping_cost_paid"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	TotalCost            decimal.Decimal     `json:"total_cost"`
	PlatformFee          decimal.Decimal     `json:"platform_fee"`
	CommissionValue      decimal.Decimal     `json:"commission_value"`
	EstimatedProfit      decimal.Decimal     `json:"estimated_profit"`
	NetProfit            decimal.Decimal     `json:"net_profit"`
	NetMarginPercent     decimal.Decimal     `json:"net_margin_percent"`
	MinimumMarginPercent decimal.Decimal     `json:"minimum_margin_percent"`
	InfluencerID         *uuid.UUID          `json:"influencer_id,omitempty"`
	InfluencerName       *string             `json:"influencer_name,omitempty"`
	AppliedCoupon        *string             `json:"applied_coupon,omitempty"`
	PaymentStatus        enums.PaymentStatus `json:"payment_status"`
	OrderStatus          enums.OrderStatus   `json:"order_status"`
	PaymentID            *string             `json:"payment_id,omitempty"`
	TrackingCode         *string             `json:"tracking_code,omitempty"`
}

// NewOrderDetail maps an order with items to the operator view.
func NewOrderDetail(o models.Order) OrderDetail {
	detail := OrderDetail{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		CreatedAt:            o.CreatedAt,
		CustomerName:         o.CustomerName,
		CustomerEmail:        o.CustomerEmail,
		CustomerPhone:        o.CustomerPhone,
		CustomerDocument:     o.CustomerDocument,
		ShippingAddress:      o.ShippingAddress,
		Items:                make([]OrderItemView, 0, len(o.Items)),
		Subtotal:             o.Subtotal,
		ShippingCost:         o.ShippingCost,
		ShippingCostPaid:     o.ShippingCostPaid,
		TotalAmount:          o.TotalAmount,
		TotalCost:            o.TotalCost,
		PlatformFee:          o.PlatformFee,
		CommissionValue:      o.CommissionValue,
		EstimatedProfit:      o.EstimatedProfit,
		NetProfit:            o.NetProfit,
		NetMarginPercent:     o.NetMarginPercent.Round(2),
		MinimumMarginPercent: o.MinimumMarginPercent.Round(2),
		InfluencerID:         o.InfluencerID,
		AppliedCoupon:        o.AppliedCoupon,
		PaymentStatus:        o.PaymentStatus,
		OrderStatus:          o.OrderStatus,
		PaymentID:            o.PaymentID,
		TrackingCode:         o.TrackingCode,
	}
	if o.Influencer != nil {
		name := o.Influencer.Name
		detail.InfluencerName = &name
	}
	for _, item := range o.Items {
		view := itemView(item)
		if item.UnitCost.Valid {
			cost := item.UnitCost.Decimal
			view.UnitCost = &cost
		}
		if item.LineCost.Valid {
			cost := item.LineCost.Decimal
			view.LineCost = &cost
		}
		detail.Items = append(detail.Items, view)
	}
	return detail
}

// PublicOrder is what the storefront confirmation page may see: no costs,
// margins, or attribution.
type PublicOrder struct {
	OrderNumber     string              `json:"order_number"`
	CreatedAt       time.Time           `json:"created_at"`
	CustomerName    string              `json:"customer_name"`
	ShippingAddress types.Address       `json:"shipping_address"`
	Items           []OrderItemView     `json:"items"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	AppliedCoupon   *string             `json:"applied_coupon,omitempty"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	OrderStatus     enums.OrderStatus   `json:"order_status"`
	TrackingCode    *string             `json:"tracking_code,omitempty"`
}

// NewPublicOrder maps an order to its storefront view.
func NewPublicOrder(o models.Order) PublicOrder {
	public := PublicOrder{
		OrderNumber:     o.OrderNumber,
		CreatedAt:       o.CreatedAt,
		CustomerName:    o.CustomerName,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]OrderItemView, 0, len(o.Items)),
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		TotalAmount:     o.TotalAmount,
		AppliedCoupon:   o.AppliedCoupon,
		PaymentStatus:   o.PaymentStatus,
		OrderStatus:     o.OrderStatus,
		TrackingCode:    o.TrackingCode,
	}
	for _, item := range o.Items {
		public.Items = append(public.Items, itemView(item))
	}
	return public
}

func itemView(item models.OrderItem) OrderItemView {
	return OrderItemView{
		ProductID:   item.ProductID,
		VariantID:   item.VariantID,
		ProductName: item.ProductName,
		Size:        item.Size,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   item.LineTotal,
	}
}

// InfluencerCommission is one influencer's share of a reporting window.
type InfluencerCommission struct {
	InfluencerID uuid.UUID       `json:"influencer_id"`
	Name         string          `json:"name"`
	CouponCode   string          `json:"coupon_code"`
	OrderCount   int64           `json:"order_count"`
	Revenue      decimal.Decimal `json:"revenue"`
	Commission   decimal.Decimal `json:"commission"`
}

// Summary aggregates orders created within [From, To).
type Summary struct {
	From             time.Time              `json:"from"`
	To               time.Time              `json:"to"`
	OrderCount       int64                  `json:"order_count"`
	Revenue          decimal.Decimal        `json:"revenue"`
	TotalCost        decimal.Decimal        `json:"total_cost"`
	PlatformFees     decimal.Decimal        `json:"platform_fees"`
	Commissions      decimal.Decimal        `json:"commissions"`
	NetProfit        decimal.Decimal        `json:"net_profit"`
	AverageNetMargin decimal.Decimal        `json:"average_net_margin"`
	Influencers      []InfluencerCommission `json:"influencers"`
}
