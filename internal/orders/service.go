package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order reads and operator updates.
type Service interface {
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Detail(ctx context.Context, orderNumber string) (*OrderDetail, error)
	Public(ctx context.Context, orderNumber string) (*PublicOrder, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderDetail, error)
	Summary(ctx context.Context, from, to time.Time) (*Summary, error)
}

// StatusUpdateInput carries the operator's changes; nil fields stay untouched.
type StatusUpdateInput struct {
	OrderNumber   string
	PaymentStatus *string
	OrderStatus   *string
	TrackingCode  *string
	PaymentID     *string
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo *Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if filters.DateFrom != nil && filters.DateTo != nil && !filters.DateFrom.Before(*filters.DateTo) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_from must be before date_to")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func (s *service) Detail(ctx context.Context, orderNumber string) (*OrderDetail, error) {
	order, err := s.load(ctx, s.repo, orderNumber)
	if err != nil {
		return nil, err
	}
	detail := NewOrderDetail(*order)
	return &detail, nil
}

func (s *service) Public(ctx context.Context, orderNumber string) (*PublicOrder, error) {
	order, err := s.load(ctx, s.repo, orderNumber)
	if err != nil {
		return nil, err
	}
	public := NewPublicOrder(*order)
	return &public, nil
}

func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderDetail, error) {
	updates, err := parseStatusUpdate(input)
	if err != nil {
		return nil, err
	}
	if updates.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one field must be provided")
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderNumber)
		if err != nil {
			return err
		}

		previousPayment, previousStatus := order.PaymentStatus, order.OrderStatus
		columns := updates.columns(order)
		if len(columns) == 0 {
			updated = order
			return nil
		}
		if err := repo.UpdateOrder(ctx, order.ID, columns); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
		}

		updated, err = s.load(ctx, repo, order.OrderNumber)
		if err != nil {
			return err
		}
		if updated.PaymentStatus == previousPayment && updated.OrderStatus == previousStatus && !updates.trackingChanged {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   updated.ID,
			Version:       1,
			Actor:         outbox.ActorAdmin,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:               updated.ID,
				OrderNumber:           updated.OrderNumber,
				CustomerName:          updated.CustomerName,
				CustomerEmail:         updated.CustomerEmail,
				PreviousPaymentStatus: previousPayment,
				PaymentStatus:         updated.PaymentStatus,
				PreviousOrderStatus:   previousStatus,
				OrderStatus:           updated.OrderStatus,
				TrackingCode:          updated.TrackingCode,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	detail := NewOrderDetail(*updated)
	return &detail, nil
}

func (s *service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	summary, err := s.repo.Summary(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build summary")
	}
	return summary, nil
}

func (s *service) load(ctx context.Context, repo *Repository, orderNumber string) (*models.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

type statusUpdate struct {
	paymentStatus   *enums.PaymentStatus
	orderStatus     *enums.OrderStatus
	trackingCode    *string
	paymentID       *string
	trackingChanged bool
}

func (u *statusUpdate) empty() bool {
	return u.paymentStatus == nil && u.orderStatus == nil && u.trackingCode == nil && u.paymentID == nil
}

// columns returns only the values that differ from order.
func (u *statusUpdate) columns(order *models.Order) map[string]any {
	columns := map[string]any{}
	if u.paymentStatus != nil && *u.paymentStatus != order.PaymentStatus {
		columns["payment_status"] = *u.paymentStatus
	}
	if u.orderStatus != nil && *u.orderStatus != order.OrderStatus {
		columns["order_status"] = *u.orderStatus
	}
	if u.trackingCode != nil && (order.TrackingCode == nil || *order.TrackingCode != *u.trackingCode) {
		columns["tracking_code"] = *u.trackingCode
		u.trackingChanged = true
	}
	if u.paymentID != nil && (order.PaymentID == nil || *order.PaymentID != *u.paymentID) {
		columns["payment_id"] = *u.paymentID
	}
	return columns
}

func parseStatusUpdate(input StatusUpdateInput) (*statusUpdate, error) {
	update := &statusUpdate{}
	if input.PaymentStatus != nil {
		status, err := enums.ParsePaymentStatus(strings.TrimSpace(*input.PaymentStatus))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status")
		}
		update.paymentStatus = &status
	}
	if input.OrderStatus != nil {
		status, err := enums.ParseOrderStatus(strings.TrimSpace(*input.OrderStatus))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_status")
		}
		update.orderStatus = &status
	}
	if input.TrackingCode != nil {
		code := strings.TrimSpace(*input.TrackingCode)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking_code must not be blank")
		}
		update.trackingCode = &code
	}
	if input.PaymentID != nil {
		id := strings.TrimSpace(*input.PaymentID)
		if id == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_id must not be blank")
		}
		update.paymentID = &id
	}
	return update, nil
}
