package controllers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type customerRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email,max=254"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Document *string `json:"document,omitempty" validate:"omitempty,max=32"`
}

type orderItemRequest struct {
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	Variation   string           `json:"variation,omitempty" validate:"max=16"`
	ProductName string           `json:"product_name,omitempty" validate:"required_without=ProductID,max=200"`
	Quantity    int              `json:"quantity" validate:"gt=0,lte=1000"`
	UnitPrice   decimal.Decimal  `json:"unit_price" validate:"gte=0"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
}

type quoteRequest struct {
	Items            []orderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingCost     decimal.Decimal    `json:"shipping_cost" validate:"gte=0"`
	ShippingCostPaid *decimal.Decimal   `json:"shipping_cost_paid,omitempty" validate:"omitempty,gte=0"`
	CouponCode       *string            `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
}

type orderRequest struct {
	Items            []orderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingCost     decimal.Decimal    `json:"shipping_cost" validate:"gte=0"`
	ShippingCostPaid *decimal.Decimal   `json:"shipping_cost_paid,omitempty" validate:"omitempty,gte=0"`
	CouponCode       *string            `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
	Customer         customerRequest    `json:"customer"`
	ShippingAddress  types.Address      `json:"shipping_address"`
	PaymentStatus    *string            `json:"payment_status,omitempty" validate:"omitempty,oneof=pending approved refunded"`
	OrderStatus      *string            `json:"order_status,omitempty" validate:"omitempty,oneof=awaiting picking shipped delivered returned"`
	PaymentID        *string            `json:"payment_id,omitempty" validate:"omitempty,max=128"`
}

func (q quoteRequest) toInput() checkout.QuoteInput {
	input := checkout.QuoteInput{
		Items:        make([]checkout.ItemInput, 0, len(q.Items)),
		ShippingCost: q.ShippingCost,
	}
	if q.ShippingCostPaid != nil {
		input.ShippingCostPaid = *q.ShippingCostPaid
	}
	if q.CouponCode != nil {
		input.CouponCode = validators.SanitizeString(*q.CouponCode, 64)
	}
	for _, item := range q.Items {
		input.Items = append(input.Items, checkout.ItemInput{
			ProductID:   item.ProductID,
			Size:        validators.SanitizeString(item.Variation, 16),
			ProductName: validators.SanitizeString(item.ProductName, 200),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			UnitCost:    item.UnitCost,
		})
	}
	return input
}

func (o orderRequest) toInput() checkout.Input {
	return checkout.Input{
		QuoteInput: quoteRequest{
			Items:            o.Items,
			ShippingCost:     o.ShippingCost,
			ShippingCostPaid: o.ShippingCostPaid,
			CouponCode:       o.CouponCode,
		}.toInput(),
		Customer: checkout.Customer{
			Name:     o.Customer.Name,
			Email:    o.Customer.Email,
			Phone:    validators.SanitizeOptional(o.Customer.Phone, 32),
			Document: validators.SanitizeOptional(o.Customer.Document, 32),
		},
		ShippingAddress: o.ShippingAddress,
		PaymentStatus:   o.PaymentStatus,
		OrderStatus:     o.OrderStatus,
		PaymentID:       o.PaymentID,
	}
}
