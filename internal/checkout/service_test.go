package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/campaigns"
	"github.com/angelmondragon/storefront-backend/internal/influencers"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/testdb"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type harness struct {
	db      *gorm.DB
	engine  *pricing.Engine
	product *models.Product
	variant *models.ProductVariant
}

func newHarness(t *testing.T, stock int) *harness {
	t.Helper()
	db := testdb.New(t)
	category := testdb.Category(t, db, "brasileirao")
	product := testdb.Product(t, db, testdb.ProductOpts{CategoryID: category.ID, Cost: "50", MinimumMargin: "20"})
	variant := testdb.Variant(t, db, product.ID, "M", stock)

	margins, err := pricing.NewMarginResolver(campaigns.NewRepository(db))
	require.NoError(t, err)
	commissions, err := influencers.NewCommissionResolver(influencers.NewRepository(db))
	require.NoError(t, err)
	engine, err := pricing.NewEngine(products.NewRepository(db), margins, commissions)
	require.NoError(t, err)

	return &harness{db: db, engine: engine, product: product, variant: variant}
}

func (h *harness) service(t *testing.T, opts ...Option) Service {
	t.Helper()
	return h.serviceWith(t, h.engine, outbox.NewService(outbox.NewRepository(h.db), nil), opts...)
}

func (h *harness) serviceWith(t *testing.T, p pricer, publisher outboxPublisher, opts ...Option) Service {
	t.Helper()
	opts = append([]Option{WithLogger(logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}))}, opts...)
	svc, err := NewService(dbpkg.Wrap(h.db), p, orders.NewRepository(h.db), publisher, opts...)
	require.NoError(t, err)
	return svc
}

func (h *harness) input(qty int, price string) Input {
	productID := h.product.ID
	return Input{
		QuoteInput: QuoteInput{
			Items: []ItemInput{{
				ProductID: &productID,
				Size:      "M",
				Quantity:  qty,
				UnitPrice: decimal.RequireFromString(price),
			}},
		},
		Customer: Customer{Name: "Ana Souza", Email: "Ana@Example.com"},
		ShippingAddress: types.Address{
			Street:     "Rua das Flores",
			Number:     "10",
			City:       "Recife",
			State:      "pe",
			PostalCode: "50000-000",
		},
	}
}

func (h *harness) stock(t *testing.T) int {
	t.Helper()
	var variant models.ProductVariant
	require.NoError(t, h.db.First(&variant, "id = ?", h.variant.ID).Error)
	return variant.Quantity
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func TestExecuteCommitsOrderWithSnapshot(t *testing.T) {
	h := newHarness(t, 5)
	svc := h.service(t)

	order, err := svc.Execute(context.Background(), h.input(2, "100"))
	require.NoError(t, err)

	assert.Equal(t, "1001", order.OrderNumber)
	assert.Equal(t, "ana@example.com", order.CustomerEmail)
	assert.Equal(t, "PE", order.ShippingAddress.State)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusAwaiting, order.OrderStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, order.TotalCost.Equal(decimal.NewFromInt(100)))
	assert.True(t, order.PlatformFee.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.NetProfit.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 3, h.stock(t))

	stored, err := orders.NewRepository(h.db).FindByNumber(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	item := stored.Items[0]
	require.NotNil(t, item.Size)
	assert.Equal(t, "M", *item.Size)
	assert.Equal(t, h.product.Name, item.ProductName)
	require.True(t, item.LineCost.Valid)
	assert.True(t, item.LineCost.Decimal.Equal(decimal.NewFromInt(100)))
	assert.True(t, item.LineTotal.Equal(decimal.NewFromInt(200)))
}

func TestExecuteWritesOrderCreatedEvent(t *testing.T) {
	h := newHarness(t, 5)
	order, err := h.service(t).Execute(context.Background(), h.input(1, "100"))
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, h.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	assert.Equal(t, order.ID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var payload payloads.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, "1001", payload.OrderNumber)
	assert.Equal(t, "ana@example.com", payload.CustomerEmail)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, 1, payload.Items[0].Quantity)
	assert.Equal(t, "storefront", envelope.Actor.Kind)
}

func TestExecuteMarginRejectionWritesNothing(t *testing.T) {
	h := newHarness(t, 5)
	svc := h.service(t)

	_, err := svc.Execute(context.Background(), h.input(1, "70"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMarginTooLow), "got %v", err)

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(pricing.MarginShortfall)
	require.True(t, ok)
	assert.Equal(t, "18.57", details.NetMarginPercent)
	assert.Equal(t, "20.00", details.MinimumMarginPercent)

	assert.Equal(t, 5, h.stock(t))
	assert.Zero(t, h.count(t, &models.Order{}))
	assert.Zero(t, h.count(t, &models.OrderItem{}))
	assert.Zero(t, h.count(t, &models.OutboxEvent{}))
}

func TestExecuteCommissionPersisted(t *testing.T) {
	h := newHarness(t, 5)
	slug := "brasileirao"
	testdb.Campaign(t, h.db, &slug, "30")
	influencer := testdb.Influencer(t, h.db, "CRAQUE10", "10", true)

	input := h.input(1, "110")
	input.CouponCode = " craque10 "
	order, err := h.service(t).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, order.CommissionValue.Equal(decimal.NewFromInt(11)), "commission %s", order.CommissionValue)
	assert.True(t, order.PlatformFee.Equal(decimal.NewFromInt(11)))
	assert.True(t, order.NetProfit.Equal(decimal.NewFromInt(38)))
	assert.Equal(t, "34.55", order.NetMarginPercent.StringFixed(2))
	assert.Equal(t, "30.00", order.MinimumMarginPercent.StringFixed(2))
	require.NotNil(t, order.InfluencerID)
	assert.Equal(t, influencer.ID, *order.InfluencerID)
	require.NotNil(t, order.AppliedCoupon)
	assert.Equal(t, "CRAQUE10", *order.AppliedCoupon)
}

func TestExecuteUnmanagedItemPassesThrough(t *testing.T) {
	h := newHarness(t, 5)
	cost := decimal.NewFromInt(50)
	input := h.input(1, "100")
	input.Items = []ItemInput{
		{ProductName: "Retro Scarf", Quantity: 1, UnitPrice: decimal.NewFromInt(100), UnitCost: &cost},
		{ProductName: "Sticker", Quantity: 2, UnitPrice: decimal.NewFromInt(5)},
	}

	order, err := h.service(t).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "20.00", order.MinimumMarginPercent.StringFixed(2))
	assert.Equal(t, 5, h.stock(t), "unmanaged lines never touch stock")

	require.Len(t, order.Items, 2)
	assert.Nil(t, order.Items[0].VariantID)
	require.True(t, order.Items[0].LineCost.Valid)
	assert.True(t, order.Items[0].LineCost.Decimal.Equal(cost))
	assert.False(t, order.Items[1].UnitCost.Valid, "no cost known for the second line")
	assert.Nil(t, order.Items[1].Size)
}

func TestExecuteUnknownSizeUsesCatalogPolicy(t *testing.T) {
	h := newHarness(t, 5)
	zero := decimal.Zero
	input := h.input(1, "70")
	input.Items[0].Size = "ZZ"
	input.Items[0].UnitCost = &zero

	_, err := h.service(t).Execute(context.Background(), input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMarginTooLow), "got %v", err)
	details := pkgerrors.As(err).Details().(pricing.MarginShortfall)
	assert.Equal(t, "18.57", details.NetMarginPercent)

	input.Items[0].UnitPrice = decimal.NewFromInt(100)
	order, err := h.service(t).Execute(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Nil(t, order.Items[0].VariantID)
	require.True(t, order.Items[0].UnitCost.Valid)
	assert.True(t, order.Items[0].UnitCost.Decimal.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 5, h.stock(t), "unknown size never touches stock")
}

func TestExecuteStatusOverrides(t *testing.T) {
	h := newHarness(t, 5)
	svc := h.service(t)

	input := h.input(1, "100")
	approved, picking, paymentID := "approved", "picking", " pay_1 "
	input.PaymentStatus, input.OrderStatus, input.PaymentID = &approved, &picking, &paymentID
	order, err := svc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusApproved, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPicking, order.OrderStatus)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, "pay_1", *order.PaymentID)

	bad := "paid"
	input.PaymentStatus = &bad
	_, err = svc.Execute(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestExecuteValidation(t *testing.T) {
	h := newHarness(t, 5)
	svc := h.service(t)

	cases := map[string]func(*Input){
		"no name":       func(in *Input) { in.Customer.Name = " " },
		"bad email":     func(in *Input) { in.Customer.Email = "ana" },
		"no street":     func(in *Input) { in.ShippingAddress.Street = "" },
		"no items":      func(in *Input) { in.Items = nil },
		"zero quantity": func(in *Input) { in.Items[0].Quantity = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := h.input(1, "100")
			mutate(&input)
			_, err := svc.Execute(context.Background(), input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	assert.Zero(t, h.count(t, &models.Order{}))
}

func TestExecuteConcurrentOrdersGetConsecutiveNumbers(t *testing.T) {
	const n = 10
	h := newHarness(t, 20)
	svc := h.service(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.Execute(context.Background(), h.input(1, "100"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[order.OrderNumber] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, numbers, n)
	for i := 1001; i <= 1000+n; i++ {
		assert.True(t, numbers[fmt.Sprint(i)], "missing order number %d", i)
	}
	assert.Equal(t, 20-n, h.stock(t))
}

func TestExecuteConcurrentOversellIsRejected(t *testing.T) {
	const attempts = 8
	h := newHarness(t, 3)
	svc := h.service(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed []string
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.Execute(context.Background(), h.input(1, "100"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
				rejected++
				return
			}
			committed = append(committed, order.OrderNumber)
		}()
	}
	wg.Wait()

	assert.Len(t, committed, 3)
	assert.Equal(t, attempts-3, rejected)
	assert.ElementsMatch(t, []string{"1001", "1002", "1003"}, committed)
	assert.Zero(t, h.stock(t))
}

// drainingPricer empties the variant after pricing, simulating a checkout that
// committed in between.
type drainingPricer struct {
	inner pricer
	db    *gorm.DB
	id    uuid.UUID
}

func (p drainingPricer) PriceOrder(ctx context.Context, req pricing.Request) (*pricing.PricedOrder, error) {
	priced, err := p.inner.PriceOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := p.db.Model(&models.ProductVariant{}).Where("id = ?", p.id).Update("quantity", 0).Error; err != nil {
		return nil, err
	}
	return priced, nil
}

func TestExecuteCommitTimeStockRace(t *testing.T) {
	h := newHarness(t, 2)
	svc := h.serviceWith(t, drainingPricer{inner: h.engine, db: h.db, id: h.variant.ID}, outbox.NewService(outbox.NewRepository(h.db), nil))

	_, err := svc.Execute(context.Background(), h.input(1, "100"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	shortage, ok := pkgerrors.As(err).Details().(pricing.StockShortage)
	require.True(t, ok)
	assert.Equal(t, 0, shortage.Available)
	assert.Equal(t, 1, shortage.Requested)
	assert.Zero(t, h.count(t, &models.Order{}))
	assert.Zero(t, h.stock(t))
}

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func TestExecuteRollsBackOnLateFailure(t *testing.T) {
	h := newHarness(t, 5)
	broken := h.serviceWith(t, h.engine, failingPublisher{})

	_, err := broken.Execute(context.Background(), h.input(2, "100"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)

	assert.Equal(t, 5, h.stock(t))
	assert.Zero(t, h.count(t, &models.Order{}))
	assert.Zero(t, h.count(t, &models.OrderItem{}))
	assert.Zero(t, h.count(t, &models.OutboxEvent{}))

	order, err := h.service(t).Execute(context.Background(), h.input(1, "100"))
	require.NoError(t, err)
	assert.Equal(t, "1001", order.OrderNumber, "rolled back number is reused")
}

func TestQuoteDoesNotWrite(t *testing.T) {
	h := newHarness(t, 5)
	svc := h.service(t)

	priced, err := svc.Quote(context.Background(), h.input(1, "100").QuoteInput)
	require.NoError(t, err)
	assert.True(t, priced.NetProfit.Equal(decimal.NewFromInt(40)))

	again, err := svc.Quote(context.Background(), h.input(1, "100").QuoteInput)
	require.NoError(t, err)
	assert.True(t, priced.NetMarginPercent.Equal(again.NetMarginPercent))

	assert.Equal(t, 5, h.stock(t))
	assert.Zero(t, h.count(t, &models.Order{}))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	h := newHarness(t, 1)
	publisher := outbox.NewService(outbox.NewRepository(h.db), nil)
	client := dbpkg.Wrap(h.db)
	repo := orders.NewRepository(h.db)

	_, err := NewService(nil, h.engine, repo, publisher)
	assert.Error(t, err)
	_, err = NewService(client, nil, repo, publisher)
	assert.Error(t, err)
	_, err = NewService(client, h.engine, nil, publisher)
	assert.Error(t, err)
	_, err = NewService(client, h.engine, repo, nil)
	assert.Error(t, err)
}

type replayReceiver struct {
	messages []*pubsub.Message
}

func (r replayReceiver) Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error {
	for _, msg := range r.messages {
		f(ctx, msg)
	}
	return nil
}

type onceGuard struct {
	claimed map[string]bool
}

func (g *onceGuard) Claim(_ context.Context, eventID string) (bool, error) {
	if g.claimed[eventID] {
		return false, nil
	}
	g.claimed[eventID] = true
	return true, nil
}

func (g *onceGuard) Release(_ context.Context, eventID string) error {
	delete(g.claimed, eventID)
	return nil
}

type downMailer struct {
	attempts int
}

func (m *downMailer) Send(context.Context, mailer.Message) error {
	m.attempts++
	return errors.New("smtp: connection refused")
}

func TestExecuteSurvivesEmailOutage(t *testing.T) {
	h := newHarness(t, 5)
	order, err := h.service(t).Execute(context.Background(), h.input(1, "100"))
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, h.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	msg := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       rows[0].Payload,
		Attributes: map[string]string{"event_type": string(rows[0].EventType)},
	}

	mail := &downMailer{}
	consumer, err := notifications.NewOrderConsumer(notifications.OrderConsumerParams{
		Subscription: replayReceiver{messages: []*pubsub.Message{msg, msg}},
		Idempotency:  &onceGuard{claimed: map[string]bool{}},
		Decoders:     notifications.NewDecoders(),
		Mailer:       mail,
		Logger:       logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	require.NoError(t, consumer.Run(context.Background()))
	assert.Equal(t, 2, mail.attempts, "a failed send releases the event for redelivery")

	stored, err := orders.NewRepository(h.db).FindByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "1001", stored.OrderNumber)
	assert.Equal(t, order.ID, stored.ID)
	assert.True(t, stored.TotalAmount.Equal(order.TotalAmount))
	assert.Equal(t, enums.OrderStatusAwaiting, stored.OrderStatus)
	assert.Equal(t, 4, h.stock(t))
}
