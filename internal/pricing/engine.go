package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/influencers"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var (
	// PlatformFeeRate is the platform's cut of the order total.
	PlatformFeeRate = decimal.RequireFromString("0.10")

	hundred = decimal.NewFromInt(100)
)

// Catalog is the read side of the product catalog. Both lookups report a
// missing row as (nil, nil).
type Catalog interface {
	FindVariant(ctx context.Context, productID uuid.UUID, size string) (*models.ProductVariant, error)
	LookupProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type commissionResolver interface {
	Resolve(ctx context.Context, code string) (*influencers.Commission, error)
}

// Engine prices carts and applies the margin admission gate. It only reads.
type Engine struct {
	catalog     Catalog
	margins     *MarginResolver
	commissions commissionResolver
	now         func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for campaign windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires the pricing engine.
func NewEngine(catalog Catalog, margins *MarginResolver, commissions commissionResolver, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if margins == nil {
		return nil, fmt.Errorf("margin resolver required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission resolver required")
	}
	e := &Engine{
		catalog:     catalog,
		margins:     margins,
		commissions: commissions,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// PriceOrder resolves costs, margin floors and commission for req and
// returns the priced proposal, or MARGIN_TOO_LOW / INSUFFICIENT_STOCK.
func (e *Engine) PriceOrder(ctx context.Context, req Request) (*PricedOrder, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := e.now().UTC()

	commission, err := e.commissions.Resolve(ctx, req.CouponCode)
	if err != nil {
		return nil, err
	}

	items := make([]PricedItem, 0, len(req.Items))
	requested := map[uuid.UUID]int{}
	for _, line := range req.Items {
		item, variant, err := e.priceLine(ctx, line, now)
		if err != nil {
			return nil, err
		}
		if variant != nil {
			requested[variant.ID] += line.Quantity
			if requested[variant.ID] > variant.Quantity {
				return nil, InsufficientStockError(StockShortage{
					ProductName: item.ProductName,
					Size:        variant.Size,
					Available:   variant.Quantity,
					Requested:   requested[variant.ID],
				})
			}
		}
		items = append(items, item)
	}

	order := &PricedOrder{
		Items:            items,
		Commission:       commission,
		ShippingCost:     req.ShippingCost,
		ShippingCostPaid: req.ShippingCostPaid,
		CommissionRate:   decimal.Zero,
	}
	if commission != nil {
		order.CommissionRate = commission.Rate
	}

	subtotal := decimal.Zero
	itemsCost := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
		itemsCost = itemsCost.Add(item.LineCost)
	}

	order.Subtotal = subtotal
	order.TotalAmount = subtotal.Add(req.ShippingCost)
	order.TotalCost = itemsCost.Add(req.ShippingCostPaid)
	order.PlatformFee = order.TotalAmount.Mul(PlatformFeeRate)
	order.CommissionValue = subtotal.Mul(order.CommissionRate).Div(hundred)
	order.EstimatedProfit = order.TotalAmount.Sub(order.TotalCost)
	order.NetProfit = order.TotalAmount.Sub(order.TotalCost).Sub(order.PlatformFee).Sub(order.CommissionValue)
	order.NetMarginPercent = decimal.Zero
	if order.TotalAmount.IsPositive() {
		order.NetMarginPercent = order.NetProfit.Div(order.TotalAmount).Mul(hundred)
	}
	order.MinimumMarginPercent = OrderMinimumMargin(items)

	if order.NetMarginPercent.LessThan(order.MinimumMarginPercent) {
		return nil, MarginTooLowError(order.NetMarginPercent, order.MinimumMarginPercent, order.NetProfit)
	}

	return order, nil
}

func (e *Engine) priceLine(ctx context.Context, line LineItem, now time.Time) (PricedItem, *models.ProductVariant, error) {
	item := PricedItem{
		LineItem:    line,
		ProductName: strings.TrimSpace(line.RequestedName),
	}

	var (
		variant *models.ProductVariant
		product *models.Product
	)
	if line.ProductID != nil {
		if strings.TrimSpace(line.Size) != "" {
			found, err := e.catalog.FindVariant(ctx, *line.ProductID, line.Size)
			if err != nil {
				return item, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
			}
			variant = found
		}
		if variant != nil {
			product = variant.Product
		}
		// An unknown size on a known product still prices against the
		// catalog; only the stock check is skipped.
		if product == nil {
			found, err := e.catalog.LookupProduct(ctx, *line.ProductID)
			if err != nil {
				return item, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
			}
			product = found
		}
	}

	if variant != nil {
		id := variant.ID
		item.Managed = true
		item.VariantID = &id
		item.Size = variant.Size
	}
	if product != nil {
		item.ProductName = product.Name
		item.UnitCost = product.UnitCost()
		item.CostKnown = true
	}
	if !item.CostKnown && line.ClientUnitCost != nil {
		item.UnitCost = *line.ClientUnitCost
		item.CostKnown = true
	}
	if item.ProductName == "" {
		item.ProductName = "item"
	}

	minimum, err := e.margins.ResolveMinimumMargin(ctx, product, now)
	if err != nil {
		return item, nil, err
	}
	item.MinimumMargin = minimum

	qty := decimal.NewFromInt(int64(line.Quantity))
	item.LineTotal = line.UnitPrice.Mul(qty)
	item.LineCost = item.UnitCost.Mul(qty)
	return item, variant, nil
}

func validateRequest(req Request) error {
	if len(req.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: quantity must be greater than zero", i))
		}
		if line.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: unit price must not be negative", i))
		}
		if line.ClientUnitCost != nil && line.ClientUnitCost.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: unit cost must not be negative", i))
		}
	}
	if req.ShippingCost.IsNegative() || req.ShippingCostPaid.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping amounts must not be negative")
	}
	return nil
}
