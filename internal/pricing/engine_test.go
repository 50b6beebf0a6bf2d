package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/influencers"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCatalog struct {
	products map[uuid.UUID]*models.Product
	variants map[string]*models.ProductVariant
	lookups  int
	err      error
}

func (s *stubCatalog) FindVariant(_ context.Context, productID uuid.UUID, size string) (*models.ProductVariant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.variants[productID.String()+"/"+size], nil
}

func (s *stubCatalog) LookupProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	return s.products[id], nil
}

type stubCampaigns struct {
	campaign *models.Campaign
	slugs    []string
}

func (s *stubCampaigns) FindApplicable(_ context.Context, slug string, _ time.Time) (*models.Campaign, error) {
	s.slugs = append(s.slugs, slug)
	if s.campaign == nil {
		return nil, nil
	}
	if s.campaign.TargetCategorySlug != nil && *s.campaign.TargetCategorySlug != slug {
		return nil, nil
	}
	return s.campaign, nil
}

type stubCommissions struct {
	commission *influencers.Commission
}

func (s stubCommissions) Resolve(_ context.Context, code string) (*influencers.Commission, error) {
	if s.commission == nil || influencers.CanonicalCode(code) != s.commission.CouponCode {
		return nil, nil
	}
	return s.commission, nil
}

type fixture struct {
	productID  uuid.UUID
	variants   *stubCatalog
	campaigns  *stubCampaigns
	commission stubCommissions
}

func newFixture(stock int) *fixture {
	productID := uuid.New()
	product := &models.Product{
		ID:            productID,
		Name:          "Home Jersey 24/25",
		CostMin:       decimal.NewFromInt(45),
		CostMax:       decimal.NewFromInt(50),
		MinimumMargin: decimal.NewFromInt(20),
		Category:      &models.Category{Slug: "brasileirao"},
	}
	variant := &models.ProductVariant{ID: uuid.New(), ProductID: productID, Size: "M", Quantity: stock, Product: product}
	return &fixture{
		productID: productID,
		variants: &stubCatalog{
			products: map[uuid.UUID]*models.Product{productID: product},
			variants: map[string]*models.ProductVariant{productID.String() + "/M": variant},
		},
		campaigns: &stubCampaigns{},
	}
}

func (f *fixture) engine(t *testing.T) *Engine {
	t.Helper()
	margins, err := NewMarginResolver(f.campaigns)
	if err != nil {
		t.Fatalf("margin resolver: %v", err)
	}
	engine, err := NewEngine(f.variants, margins, f.commission, WithClock(func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}

func (f *fixture) line(qty int, price string) LineItem {
	id := f.productID
	return LineItem{ProductID: &id, Size: "M", Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestPriceOrderRejectsBelowMinimumMargin(t *testing.T) {
	f := newFixture(10)
	_, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{f.line(1, "70")}})

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeMarginTooLow {
		t.Fatalf("expected MARGIN_TOO_LOW, got %v", err)
	}
	details, ok := typed.Details().(MarginShortfall)
	if !ok {
		t.Fatalf("unexpected details type %T", typed.Details())
	}
	if details.NetMarginPercent != "18.57" || details.MinimumMarginPercent != "20.00" || details.ProjectedProfit != "13.00" {
		t.Fatalf("unexpected shortfall details: %+v", details)
	}
	want := "order blocked: net margin (18.57%) below required minimum (20.00%). projected profit: R$ 13.00"
	if typed.Message() != want {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestPriceOrderAcceptsWithCommissionAndCampaignOverride(t *testing.T) {
	f := newFixture(10)
	slug := "brasileirao"
	f.campaigns.campaign = &models.Campaign{
		Active:             true,
		TargetCategorySlug: &slug,
		MinMarginOverride:  decimal.NewNullDecimal(decimal.NewFromInt(30)),
	}
	influencerID := uuid.New()
	f.commission = stubCommissions{commission: &influencers.Commission{InfluencerID: influencerID, CouponCode: "CRAQUE10", Rate: decimal.NewFromInt(10)}}

	priced, err := f.engine(t).PriceOrder(context.Background(), Request{
		Items:      []LineItem{f.line(1, "110")},
		CouponCode: "craque10",
	})
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}

	checks := map[string]struct{ got, want decimal.Decimal }{
		"subtotal":   {priced.Subtotal, decimal.NewFromInt(110)},
		"total":      {priced.TotalAmount, decimal.NewFromInt(110)},
		"cost":       {priced.TotalCost, decimal.NewFromInt(50)},
		"fee":        {priced.PlatformFee, decimal.NewFromInt(11)},
		"commission": {priced.CommissionValue, decimal.NewFromInt(11)},
		"gross":      {priced.EstimatedProfit, decimal.NewFromInt(60)},
		"net":        {priced.NetProfit, decimal.NewFromInt(38)},
		"minimum":    {priced.MinimumMarginPercent, decimal.NewFromInt(30)},
	}
	for name, c := range checks {
		if !c.got.Equal(c.want) {
			t.Fatalf("%s: expected %s, got %s", name, c.want, c.got)
		}
	}
	if Display(priced.NetMarginPercent) != "34.55" {
		t.Fatalf("expected net margin 34.55, got %s", priced.NetMarginPercent)
	}
	if priced.Commission == nil || priced.Commission.InfluencerID != influencerID {
		t.Fatalf("expected influencer attribution")
	}
	if len(f.campaigns.slugs) != 1 || f.campaigns.slugs[0] != "brasileirao" {
		t.Fatalf("expected campaign lookup by category slug, got %v", f.campaigns.slugs)
	}
}

func TestPriceOrderMarginEqualToMinimumPasses(t *testing.T) {
	f := newFixture(10)
	// total 100, cost 50, shipping paid 20, fee 10 => net 20 => 20%.
	priced, err := f.engine(t).PriceOrder(context.Background(), Request{
		Items:            []LineItem{f.line(1, "100")},
		ShippingCostPaid: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("margin equal to floor must pass, got %v", err)
	}
	if !priced.NetMarginPercent.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20%% margin, got %s", priced.NetMarginPercent)
	}
}

func TestPriceOrderIgnoresClientCostForManagedItems(t *testing.T) {
	f := newFixture(10)
	line := f.line(2, "100")
	cheap := decimal.NewFromInt(1)
	line.ClientUnitCost = &cheap

	priced, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{line}})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	item := priced.Items[0]
	if !item.Managed || !item.UnitCost.Equal(decimal.NewFromInt(50)) || !item.LineCost.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected stored cost 50 to win, got %+v", item)
	}
	if item.ProductName != "Home Jersey 24/25" {
		t.Fatalf("expected catalog name, got %q", item.ProductName)
	}
	if f.variants.lookups != 0 {
		t.Fatalf("variant hit must not fall back to a product lookup")
	}
}

func TestPriceOrderUnmanagedItemUsesDefaults(t *testing.T) {
	f := newFixture(10)
	cost := decimal.NewFromInt(40)
	unknown := uuid.New()

	priced, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{
		{ProductID: &unknown, Size: "M", RequestedName: "Retro 1970", Quantity: 1, UnitPrice: decimal.NewFromInt(100), ClientUnitCost: &cost},
		{RequestedName: "Patch", Quantity: 3, UnitPrice: decimal.NewFromInt(10)},
	}})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if priced.Items[0].Managed || priced.Items[1].Managed {
		t.Fatalf("unmanaged items must not be marked managed")
	}
	if !priced.Items[0].UnitCost.Equal(cost) || priced.Items[1].CostKnown {
		t.Fatalf("unexpected costs: %+v", priced.Items)
	}
	if !priced.MinimumMarginPercent.Equal(DefaultMinimumMargin) {
		t.Fatalf("expected default floor, got %s", priced.MinimumMarginPercent)
	}
	if len(f.campaigns.slugs) != 0 {
		t.Fatalf("unmanaged lines never consult campaigns")
	}
}

func TestPriceOrderUnknownSizeKeepsCatalogPolicy(t *testing.T) {
	f := newFixture(10)
	product := f.variants.products[f.productID]
	product.MinimumMargin = decimal.NewFromInt(40)
	line := f.line(1, "70")
	line.Size = "ZZ"
	zero := decimal.Zero
	line.ClientUnitCost = &zero

	_, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{line}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeMarginTooLow {
		t.Fatalf("expected MARGIN_TOO_LOW for an unknown size, got %v", err)
	}
	details := typed.Details().(MarginShortfall)
	if details.NetMarginPercent != "18.57" || details.MinimumMarginPercent != "40.00" {
		t.Fatalf("expected stored cost and product floor, got %+v", details)
	}

	f.campaigns.slugs = nil
	line.UnitPrice = decimal.NewFromInt(200)
	priced, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{line}})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	item := priced.Items[0]
	if item.Managed || item.VariantID != nil {
		t.Fatalf("unknown size must not reserve stock: %+v", item)
	}
	if !item.UnitCost.Equal(decimal.NewFromInt(50)) || item.ProductName != "Home Jersey 24/25" {
		t.Fatalf("expected catalog cost and name, got %+v", item)
	}
	if len(f.campaigns.slugs) != 1 || f.campaigns.slugs[0] != "brasileirao" {
		t.Fatalf("expected the category campaign lookup, got %v", f.campaigns.slugs)
	}
}

func TestPriceOrderUnknownSizeAppliesCampaign(t *testing.T) {
	f := newFixture(10)
	slug := "brasileirao"
	f.campaigns.campaign = &models.Campaign{
		TargetCategorySlug: &slug,
		MinMarginOverride:  decimal.NewNullDecimal(decimal.NewFromInt(45)),
	}
	line := f.line(1, "200")
	line.Size = "XGG"

	priced, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{line}})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !priced.MinimumMarginPercent.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("expected campaign floor, got %s", priced.MinimumMarginPercent)
	}
}

func TestPriceOrderStrictestLineGoverns(t *testing.T) {
	f := newFixture(10)
	f.variants.variants[f.productID.String()+"/M"].Product.MinimumMargin = decimal.NewFromInt(35)

	priced, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{
		{RequestedName: "Patch", Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
		f.line(1, "110"),
	}})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !priced.MinimumMarginPercent.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("expected the 35%% line floor to govern, got %s", priced.MinimumMarginPercent)
	}
	if !priced.Items[0].MinimumMargin.Equal(DefaultMinimumMargin) {
		t.Fatalf("unmanaged line keeps the default floor, got %s", priced.Items[0].MinimumMargin)
	}
}

func TestPriceOrderInsufficientStockSumsLines(t *testing.T) {
	f := newFixture(3)
	_, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{f.line(2, "200"), f.line(2, "200")}})

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
	shortage := typed.Details().(StockShortage)
	if shortage.Available != 3 || shortage.Requested != 4 || shortage.Size != "M" || shortage.ProductName != "Home Jersey 24/25" {
		t.Fatalf("unexpected shortage: %+v", shortage)
	}
}

func TestPriceOrderIsIdempotent(t *testing.T) {
	f := newFixture(5)
	engine := f.engine(t)
	req := Request{Items: []LineItem{f.line(2, "150")}, ShippingCost: decimal.NewFromInt(20), ShippingCostPaid: decimal.NewFromInt(15)}

	first, err := engine.PriceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("first price: %v", err)
	}
	second, err := engine.PriceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("second price: %v", err)
	}
	if !first.NetProfit.Equal(second.NetProfit) || !first.NetMarginPercent.Equal(second.NetMarginPercent) || !first.TotalCost.Equal(second.TotalCost) {
		t.Fatalf("pricing must be deterministic: %+v vs %+v", first, second)
	}
	if f.variants.variants[f.productID.String()+"/M"].Quantity != 5 {
		t.Fatalf("pricing must not touch stock")
	}
}

func TestPriceOrderZeroTotalHasZeroMargin(t *testing.T) {
	f := newFixture(5)
	_, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{{RequestedName: "Brinde", Quantity: 1, UnitPrice: decimal.Zero}}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeMarginTooLow {
		t.Fatalf("zero-total order sits at 0%% margin and must be rejected, got %v", err)
	}
	if typed.Details().(MarginShortfall).NetMarginPercent != "0.00" {
		t.Fatalf("unexpected details %+v", typed.Details())
	}
}

func TestPriceOrderValidation(t *testing.T) {
	f := newFixture(5)
	engine := f.engine(t)
	negative := decimal.NewFromInt(-1)

	cases := map[string]Request{
		"empty":          {},
		"zero qty":       {Items: []LineItem{f.line(0, "10")}},
		"negative price": {Items: []LineItem{f.line(1, "-1")}},
		"negative cost":  {Items: []LineItem{{Quantity: 1, UnitPrice: decimal.NewFromInt(1), ClientUnitCost: &negative}}},
		"shipping":       {Items: []LineItem{f.line(1, "10")}, ShippingCost: negative},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.PriceOrder(context.Background(), req)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPriceOrderVariantLookupFailure(t *testing.T) {
	f := newFixture(5)
	f.variants.err = errors.New("connection reset")
	_, err := f.engine(t).PriceOrder(context.Background(), Request{Items: []LineItem{f.line(1, "100")}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
