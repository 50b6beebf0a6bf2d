package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// quotedItem and quoteResponse carry customer-facing figures only. Costs,
// fees and margins stay on the admin order detail.
type quotedItem struct {
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name"`
	Size        string     `json:"size,omitempty"`
	Quantity    int        `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	LineTotal   string     `json:"line_total"`
	InStock     bool       `json:"in_stock"`
}

type quoteResponse struct {
	Items        []quotedItem `json:"items"`
	CouponCode   *string      `json:"coupon_code,omitempty"`
	Subtotal     string       `json:"subtotal"`
	ShippingCost string       `json:"shipping_cost"`
	TotalAmount  string       `json:"total_amount"`
}

func newQuoteResponse(p *pricing.PricedOrder) quoteResponse {
	resp := quoteResponse{
		Items:        make([]quotedItem, 0, len(p.Items)),
		Subtotal:     pricing.Display(p.Subtotal),
		ShippingCost: pricing.Display(p.ShippingCost),
		TotalAmount:  pricing.Display(p.TotalAmount),
	}
	if p.Commission != nil {
		code := p.Commission.CouponCode
		resp.CouponCode = &code
	}
	for _, item := range p.Items {
		resp.Items = append(resp.Items, quotedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   pricing.Display(item.UnitPrice),
			LineTotal:   pricing.Display(item.LineTotal),
			InStock:     item.Managed,
		})
	}
	return resp
}

// CreateOrder prices, admits and commits an order, returning the persisted record.
func CreateOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req orderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithOrderNumber(r.Context(), order.OrderNumber), "order.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderDetail(*order))
	}
}

// QuoteOrder runs pricing and the margin gate without reserving stock.
func QuoteOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priced, err := svc.Quote(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteResponse(priced))
	}
}

// PublicOrder returns the customer-facing view of an order.
func PublicOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		view, err := svc.Public(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func orderNumberParam(r *http.Request) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	n, ok := orders.ParseOrderNumber(raw)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order number must be numeric")
	}
	return strconv.FormatInt(n, 10), nil
}
