package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/influencers"
)

// LineItem is one requested cart line as received from the storefront.
type LineItem struct {
	ProductID      *uuid.UUID
	Size           string
	RequestedName  string
	Quantity       int
	UnitPrice      decimal.Decimal
	ClientUnitCost *decimal.Decimal
}

// PricedItem is a line enriched with authoritative cost and margin policy.
type PricedItem struct {
	LineItem
	// Managed is true when a variant backs the line; only managed lines touch stock.
	Managed       bool
	VariantID     *uuid.UUID
	// ProductName is the catalog name when known, else the requested one.
	ProductName   string
	UnitCost      decimal.Decimal
	CostKnown     bool
	MinimumMargin decimal.Decimal
	LineTotal     decimal.Decimal
	LineCost      decimal.Decimal
}

// Request is the input to PriceOrder.
type Request struct {
	Items            []LineItem
	ShippingCost     decimal.Decimal
	ShippingCostPaid decimal.Decimal
	CouponCode       string
}

// PricedOrder is an admitted proposal ready for commit.
type PricedOrder struct {
	Items                []PricedItem
	Commission           *influencers.Commission
	Subtotal             decimal.Decimal
	ShippingCost         decimal.Decimal
	ShippingCostPaid     decimal.Decimal
	TotalAmount          decimal.Decimal
	TotalCost            decimal.Decimal
	PlatformFee          decimal.Decimal
	CommissionRate       decimal.Decimal
	CommissionValue      decimal.Decimal
	EstimatedProfit      decimal.Decimal
	NetProfit            decimal.Decimal
	NetMarginPercent     decimal.Decimal
	MinimumMarginPercent decimal.Decimal
}

// Display renders an amount or percent with two decimals.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
