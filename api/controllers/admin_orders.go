package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type adminOrderService interface {
	List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error)
	Detail(ctx context.Context, orderNumber string) (*orders.OrderDetail, error)
	UpdateStatus(ctx context.Context, input orders.StatusUpdateInput) (*orders.OrderDetail, error)
	Summary(ctx context.Context, from, to time.Time) (*orders.Summary, error)
}

type orderStatusRequest struct {
	PaymentStatus *string `json:"payment_status,omitempty" validate:"omitempty,oneof=pending approved refunded"`
	OrderStatus   *string `json:"order_status,omitempty" validate:"omitempty,oneof=awaiting picking shipped delivered returned"`
	TrackingCode  *string `json:"tracking_code,omitempty" validate:"omitempty,max=64"`
	PaymentID     *string `json:"payment_id,omitempty" validate:"omitempty,max=128"`
}

// AdminListOrders returns a cursor page of orders matching the query filters.
func AdminListOrders(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminOrderDetail returns the operator view of one order.
func AdminOrderDetail(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderNumber, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Detail(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminUpdateOrderStatus applies payment/fulfillment changes to an order.
func AdminUpdateOrderStatus(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderNumber, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.PaymentStatus == nil && req.OrderStatus == nil && req.TrackingCode == nil && req.PaymentID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no changes supplied"))
			return
		}

		detail, err := svc.UpdateStatus(r.Context(), orders.StatusUpdateInput{
			OrderNumber:   orderNumber,
			PaymentStatus: req.PaymentStatus,
			OrderStatus:   req.OrderStatus,
			TrackingCode:  validators.SanitizeOptional(req.TrackingCode, 64),
			PaymentID:     validators.SanitizeOptional(req.PaymentID, 128),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminOrdersSummary aggregates revenue, profit and commissions over [from, to).
// The window defaults to the last 30 days.
func AdminOrdersSummary(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		end := time.Now().UTC()
		if to != nil {
			end = *to
		}
		start := end.AddDate(0, 0, -30)
		if from != nil {
			start = *from
		}
		if !start.Before(end) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to"))
			return
		}

		summary, err := svc.Summary(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func parseOrderFilters(r *http.Request) (orders.ListFilters, error) {
	var filters orders.ListFilters

	if raw := validators.ParseQueryString(r, "payment_status", 32); raw != nil {
		status, err := enums.ParsePaymentStatus(*raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status")
		}
		filters.PaymentStatus = &status
	}
	if raw := validators.ParseQueryString(r, "order_status", 32); raw != nil {
		status, err := enums.ParseOrderStatus(*raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_status")
		}
		filters.OrderStatus = &status
	}
	if raw := validators.ParseQueryString(r, "influencer_id", 64); raw != nil {
		id, err := uuid.Parse(*raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid influencer_id")
		}
		filters.InfluencerID = &id
	}

	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filters, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filters, err
	}
	filters.DateFrom = from
	filters.DateTo = to

	if q := validators.ParseQueryString(r, "q", 200); q != nil {
		filters.Query = *q
	}
	return filters, nil
}
