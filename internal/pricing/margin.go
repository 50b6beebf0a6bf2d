package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// DefaultMinimumMargin is the floor for lines without a catalog product.
var DefaultMinimumMargin = decimal.NewFromInt(20)

type campaignLookup interface {
	FindApplicable(ctx context.Context, categorySlug string, now time.Time) (*models.Campaign, error)
}

// MarginResolver decides the minimum net margin a line must clear.
type MarginResolver struct {
	campaigns campaignLookup
}

// NewMarginResolver wires the resolver to the campaign store.
func NewMarginResolver(campaigns campaignLookup) (*MarginResolver, error) {
	if campaigns == nil {
		return nil, fmt.Errorf("campaign lookup required")
	}
	return &MarginResolver{campaigns: campaigns}, nil
}

// ResolveMinimumMargin returns the percent floor for a line of product (nil
// when the catalog does not know it). A campaign override replaces the
// product default.
func (r *MarginResolver) ResolveMinimumMargin(ctx context.Context, product *models.Product, now time.Time) (decimal.Decimal, error) {
	if product == nil {
		return DefaultMinimumMargin, nil
	}
	minimum := product.MinimumMargin

	campaign, err := r.campaigns.FindApplicable(ctx, product.CategorySlug(), now)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve campaign")
	}
	if campaign != nil && campaign.MinMarginOverride.Valid {
		minimum = campaign.MinMarginOverride.Decimal
	}
	return minimum, nil
}

// OrderMinimumMargin is the strictest line floor; an empty order has none.
func OrderMinimumMargin(items []PricedItem) decimal.Decimal {
	minimum := decimal.Zero
	for i, item := range items {
		if i == 0 || item.MinimumMargin.GreaterThan(minimum) {
			minimum = item.MinimumMargin
		}
	}
	return minimum
}
