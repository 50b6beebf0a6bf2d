package influencers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Commission is the attribution a valid coupon brings to an order.
type Commission struct {
	InfluencerID uuid.UUID
	CouponCode   string
	Rate         decimal.Decimal
}

type activeLookup interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Influencer, error)
}

// CommissionResolver maps coupon codes to influencer commissions.
type CommissionResolver struct {
	repo activeLookup
}

// NewCommissionResolver wires the resolver.
func NewCommissionResolver(repo activeLookup) (*CommissionResolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("influencer lookup required")
	}
	return &CommissionResolver{repo: repo}, nil
}

// CanonicalCode trims and uppercases a coupon code.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve returns the commission for code. Empty, unknown, and inactive codes
// yield (nil, nil) so the order proceeds without attribution.
func (r *CommissionResolver) Resolve(ctx context.Context, code string) (*Commission, error) {
	canonical := CanonicalCode(code)
	if canonical == "" {
		return nil, nil
	}
	influencer, err := r.repo.FindActiveByCode(ctx, canonical)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve coupon")
	}
	if influencer == nil {
		return nil, nil
	}
	return &Commission{
		InfluencerID: influencer.ID,
		CouponCode:   influencer.CouponCode,
		Rate:         influencer.CommissionRate,
	}, nil
}
