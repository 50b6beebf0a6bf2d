package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stockService interface {
	ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error)
	SetVariantStock(ctx context.Context, variantID uuid.UUID, qty int) (*models.ProductVariant, error)
	SetProductStock(ctx context.Context, productID uuid.UUID, sizes map[string]int) ([]models.ProductVariant, error)
}

type variantStockRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type productStockRequest struct {
	Sizes map[string]int `json:"sizes" validate:"required,min=1"`
}

type variantResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	SKU       *string   `json:"sku,omitempty"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newVariantResponse(v models.ProductVariant) variantResponse {
	return variantResponse{
		ID:        v.ID,
		ProductID: v.ProductID,
		Size:      v.Size,
		SKU:       v.SKU,
		Quantity:  v.Quantity,
		UpdatedAt: v.UpdatedAt,
	}
}

func newVariantResponses(rows []models.ProductVariant) []variantResponse {
	out := make([]variantResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, newVariantResponse(row))
	}
	return out
}

// AdminListVariants returns a product's variants with their current stock.
func AdminListVariants(svc stockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}
		productID, err := uuidParam(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListVariants(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newVariantResponses(rows))
	}
}

// AdminSetVariantStock overwrites the quantity of one variant.
func AdminSetVariantStock(svc stockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}
		variantID, err := uuidParam(r, "variantId", "variant id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req variantStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variant, err := svc.SetVariantStock(r.Context(), variantID, *req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newVariantResponse(*variant))
	}
}

// AdminSetProductStock upserts quantities for a product's sizes in one transaction.
// Invalid entries are all reported together by the service.
func AdminSetProductStock(svc stockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}
		productID, err := uuidParam(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req productStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.SetProductStock(r.Context(), productID, req.Sizes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newVariantResponses(rows))
	}
}
