package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/influencers"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type influencerService interface {
	List(ctx context.Context) ([]models.Influencer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Influencer, error)
	Create(ctx context.Context, input influencers.Input) (*models.Influencer, error)
	Update(ctx context.Context, id uuid.UUID, input influencers.Input) (*models.Influencer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type influencerRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	CouponCode     string          `json:"coupon_code" validate:"required,max=64"`
	CommissionRate decimal.Decimal `json:"commission_rate" validate:"gte=0,lte=100"`
	Active         bool            `json:"active"`
}

type influencerResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	CouponCode     string          `json:"coupon_code"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (i influencerRequest) toInput() influencers.Input {
	return influencers.Input{
		Name:           validators.SanitizeString(i.Name, 200),
		CouponCode:     validators.SanitizeString(i.CouponCode, 64),
		CommissionRate: i.CommissionRate,
		Active:         i.Active,
	}
}

func newInfluencerResponse(i models.Influencer) influencerResponse {
	return influencerResponse{
		ID:             i.ID,
		Name:           i.Name,
		CouponCode:     i.CouponCode,
		CommissionRate: i.CommissionRate,
		Active:         i.Active,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

func AdminListInfluencers(svc influencerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "influencer service unavailable"))
			return
		}
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]influencerResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newInfluencerResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminGetInfluencer(svc influencerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "influencer service unavailable"))
			return
		}
		id, err := uuidParam(r, "influencerId", "influencer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		influencer, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInfluencerResponse(*influencer))
	}
}

// AdminCreateInfluencer registers an influencer and its coupon code.
func AdminCreateInfluencer(svc influencerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "influencer service unavailable"))
			return
		}
		var req influencerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		influencer, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newInfluencerResponse(*influencer))
	}
}

func AdminUpdateInfluencer(svc influencerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "influencer service unavailable"))
			return
		}
		id, err := uuidParam(r, "influencerId", "influencer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req influencerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		influencer, err := svc.Update(r.Context(), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInfluencerResponse(*influencer))
	}
}

func AdminDeleteInfluencer(svc influencerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "influencer service unavailable"))
			return
		}
		id, err := uuidParam(r, "influencerId", "influencer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
