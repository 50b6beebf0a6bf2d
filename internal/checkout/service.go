package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pricer interface {
	PriceOrder(ctx context.Context, req pricing.Request) (*pricing.PricedOrder, error)
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.InventoryReservationRequest) ([]reservation.InventoryReservationResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.InventoryReservationRequest) ([]reservation.InventoryReservationResult, error) {
	return reservation.ReserveInventory(ctx, tx, requests)
}

// Service prices and commits storefront orders.
type Service interface {
	Execute(ctx context.Context, input Input) (*models.Order, error)
	Quote(ctx context.Context, input QuoteInput) (*pricing.PricedOrder, error)
}

// Customer identifies the buyer.
type Customer struct {
	Name     string
	Email    string
	Phone    *string
	Document *string
}

// ItemInput is one cart line as sent by the storefront.
type ItemInput struct {
	ProductID   *uuid.UUID
	Size        string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	UnitCost    *decimal.Decimal
}

// QuoteInput carries everything pricing needs.
type QuoteInput struct {
	Items            []ItemInput
	ShippingCost     decimal.Decimal
	ShippingCostPaid decimal.Decimal
	CouponCode       string
}

// Input is a full order submission.
type Input struct {
	QuoteInput
	Customer        Customer
	ShippingAddress types.Address
	PaymentStatus   *string
	OrderStatus     *string
	PaymentID       *string
}

// Option customizes the checkout service.
type Option func(*service)

// WithLogger attaches a structured logger.
func WithLogger(logg *logger.Logger) Option {
	return func(s *service) { s.logg = logg }
}

// WithMetrics attaches checkout metrics.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithReservation overrides the inventory ledger used at commit.
func WithReservation(r reservationRunner) Option {
	return func(s *service) {
		if r != nil {
			s.reservation = r
		}
	}
}

type service struct {
	tx          txRunner
	pricer      pricer
	ordersRepo  *orders.Repository
	reservation reservationRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	metrics     *metrics.CheckoutMetrics
}

// NewService builds the checkout service.
func NewService(tx txRunner, pricer pricer, ordersRepo *orders.Repository, publisher outboxPublisher, opts ...Option) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	s := &service{
		tx:          tx,
		pricer:      pricer,
		ordersRepo:  ordersRepo,
		reservation: reservationEngine{},
		outbox:      publisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*pricing.PricedOrder, error) {
	return s.pricer.PriceOrder(ctx, pricingRequest(input))
}

func (s *service) Execute(ctx context.Context, input Input) (*models.Order, error) {
	started := time.Now()
	order, err := s.execute(ctx, input)
	if err != nil {
		reason := "error"
		if typed := pkgerrors.As(err); typed != nil {
			reason = string(typed.Code())
		}
		s.metrics.ObserveDuration("rejected", time.Since(started))
		s.metrics.IncRejected(reason)
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "reason", reason)
			if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
				s.logg.Warn(logCtx, "order.rejected: "+typed.Message())
			} else {
				s.logg.Error(logCtx, "order.rejected", err)
			}
		}
		return nil, err
	}

	s.metrics.ObserveDuration("created", time.Since(started))
	s.metrics.IncCreated(order.NetMarginPercent.InexactFloat64())
	if s.logg != nil {
		logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"total_amount":       order.TotalAmount.StringFixed(2),
			"net_profit":         order.NetProfit.StringFixed(2),
			"net_margin_percent": order.NetMarginPercent.StringFixed(2),
			"commission_value":   order.CommissionValue.StringFixed(2),
		})
		s.logg.Info(logCtx, "order.created")
	}
	return order, nil
}

func (s *service) execute(ctx context.Context, input Input) (*models.Order, error) {
	header, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	priced, err := s.pricer.PriceOrder(ctx, pricingRequest(input.QuoteInput))
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.reserve(ctx, tx, priced); err != nil {
			return err
		}

		ordersRepo := s.ordersRepo.WithTx(tx)
		number, err := ordersRepo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate order number")
		}

		order := buildOrder(number, header, priced)
		if _, err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		items := buildItems(order.ID, priced.Items)
		if err := ordersRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}
		order.Items = items

		if err := s.emitOrderCreated(ctx, tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order_created")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// reserve decrements stock for every managed line and turns the first shortfall
// into the same error pricing returns.
func (s *service) reserve(ctx context.Context, tx *gorm.DB, priced *pricing.PricedOrder) error {
	requests := make([]reservation.InventoryReservationRequest, 0, len(priced.Items))
	for i, item := range priced.Items {
		if !item.Managed || item.VariantID == nil {
			continue
		}
		requests = append(requests, reservation.InventoryReservationRequest{
			LineIndex: i,
			VariantID: *item.VariantID,
			Qty:       item.Quantity,
		})
	}
	if len(requests) == 0 {
		return nil
	}

	results, err := s.reservation.Reserve(ctx, tx, requests)
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Reserved {
			continue
		}
		item := priced.Items[result.LineIndex]
		return pricing.InsufficientStockError(pricing.StockShortage{
			ProductName: item.ProductName,
			Size:        item.Size,
			Available:   result.Available,
			Requested:   result.Qty,
		})
	}
	return nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	items := make([]payloads.OrderCreatedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, payloads.OrderCreatedItem{
			ProductName: item.ProductName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         outbox.ActorStorefront,
		Data: payloads.OrderCreatedEvent{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			CustomerName:    order.CustomerName,
			CustomerEmail:   order.CustomerEmail,
			ShippingAddress: order.ShippingAddress,
			Items:           items,
			Subtotal:        order.Subtotal,
			ShippingCost:    order.ShippingCost,
			TotalAmount:     order.TotalAmount,
			AppliedCoupon:   order.AppliedCoupon,
			PaymentStatus:   order.PaymentStatus,
			OrderStatus:     order.OrderStatus,
			CreatedAt:       order.CreatedAt,
		},
	})
}

type orderHeader struct {
	customer      Customer
	address       types.Address
	paymentStatus enums.PaymentStatus
	orderStatus   enums.OrderStatus
	paymentID     *string
}

func validateInput(input Input) (*orderHeader, error) {
	header := &orderHeader{
		customer: Customer{
			Name:     strings.TrimSpace(input.Customer.Name),
			Email:    strings.ToLower(strings.TrimSpace(input.Customer.Email)),
			Phone:    trimmedOrNil(input.Customer.Phone),
			Document: trimmedOrNil(input.Customer.Document),
		},
		address:       input.ShippingAddress.Normalize(),
		paymentStatus: enums.PaymentStatusPending,
		orderStatus:   enums.OrderStatusAwaiting,
		paymentID:     trimmedOrNil(input.PaymentID),
	}
	if header.customer.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if header.customer.Email == "" || !strings.Contains(header.customer.Email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email invalid")
	}
	addr := header.address
	if addr.Street == "" || addr.Number == "" || addr.City == "" || addr.State == "" || addr.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete")
	}
	if input.PaymentStatus != nil && strings.TrimSpace(*input.PaymentStatus) != "" {
		status, err := enums.ParsePaymentStatus(strings.TrimSpace(*input.PaymentStatus))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status")
		}
		header.paymentStatus = status
	}
	if input.OrderStatus != nil && strings.TrimSpace(*input.OrderStatus) != "" {
		status, err := enums.ParseOrderStatus(strings.TrimSpace(*input.OrderStatus))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_status")
		}
		header.orderStatus = status
	}
	return header, nil
}

func pricingRequest(input QuoteInput) pricing.Request {
	items := make([]pricing.LineItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, pricing.LineItem{
			ProductID:      item.ProductID,
			Size:           item.Size,
			RequestedName:  item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			ClientUnitCost: item.UnitCost,
		})
	}
	return pricing.Request{
		Items:            items,
		ShippingCost:     input.ShippingCost,
		ShippingCostPaid: input.ShippingCostPaid,
		CouponCode:       input.CouponCode,
	}
}

func buildOrder(number string, header *orderHeader, priced *pricing.PricedOrder) *models.Order {
	order := &models.Order{
		OrderNumber:          number,
		CustomerName:         header.customer.Name,
		CustomerEmail:        header.customer.Email,
		CustomerPhone:        header.customer.Phone,
		CustomerDocument:     header.customer.Document,
		ShippingAddress:      header.address,
		Subtotal:             priced.Subtotal,
		ShippingCost:         priced.ShippingCost,
		ShippingCostPaid:     priced.ShippingCostPaid,
		TotalAmount:          priced.TotalAmount,
		TotalCost:            priced.TotalCost,
		PlatformFee:          priced.PlatformFee,
		CommissionValue:      priced.CommissionValue,
		EstimatedProfit:      priced.EstimatedProfit,
		NetProfit:            priced.NetProfit,
		NetMarginPercent:     priced.NetMarginPercent,
		MinimumMarginPercent: priced.MinimumMarginPercent,
		PaymentStatus:        header.paymentStatus,
		OrderStatus:          header.orderStatus,
		PaymentID:            header.paymentID,
	}
	if priced.Commission != nil {
		id := priced.Commission.InfluencerID
		code := priced.Commission.CouponCode
		order.InfluencerID = &id
		order.AppliedCoupon = &code
	}
	return order
}

func buildItems(orderID uuid.UUID, priced []pricing.PricedItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(priced))
	for _, p := range priced {
		item := models.OrderItem{
			OrderID:     orderID,
			ProductID:   p.ProductID,
			VariantID:   p.VariantID,
			ProductName: p.ProductName,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			LineTotal:   p.LineTotal,
		}
		if size := strings.TrimSpace(p.Size); size != "" {
			item.Size = &size
		}
		if p.CostKnown {
			item.UnitCost = decimal.NewNullDecimal(p.UnitCost)
			item.LineCost = decimal.NewNullDecimal(p.LineCost)
		}
		items = append(items, item)
	}
	return items
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
