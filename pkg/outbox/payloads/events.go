package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderCreatedItem is one purchased line as shown in the confirmation email.
type OrderCreatedItem struct {
	ProductName string          `json:"product_name"`
	Size        *string         `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderCreatedEvent carries what the notification worker needs to confirm an
// order without reading the database.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	ShippingAddress types.Address       `json:"shipping_address"`
	Items           []OrderCreatedItem  `json:"items"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	AppliedCoupon   *string             `json:"applied_coupon,omitempty"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	OrderStatus     enums.OrderStatus   `json:"order_status"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderStatusChangedEvent is emitted when an operator updates an order.
type OrderStatusChangedEvent struct {
	OrderID               uuid.UUID           `json:"order_id"`
	OrderNumber           string              `json:"order_number"`
	CustomerName          string              `json:"customer_name"`
	CustomerEmail         string              `json:"customer_email"`
	PreviousPaymentStatus enums.PaymentStatus `json:"previous_payment_status"`
	PaymentStatus         enums.PaymentStatus `json:"payment_status"`
	PreviousOrderStatus   enums.OrderStatus   `json:"previous_order_status"`
	OrderStatus           enums.OrderStatus   `json:"order_status"`
	TrackingCode          *string             `json:"tracking_code,omitempty"`
}
