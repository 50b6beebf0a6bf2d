package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/campaigns"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type campaignService interface {
	List(ctx context.Context) ([]models.Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	Create(ctx context.Context, input campaigns.Input) (*models.Campaign, error)
	Update(ctx context.Context, id uuid.UUID, input campaigns.Input) (*models.Campaign, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type campaignRequest struct {
	Name               string           `json:"name" validate:"required,max=200"`
	Active             bool             `json:"active"`
	StartDate          time.Time        `json:"start_date" validate:"required"`
	EndDate            time.Time        `json:"end_date" validate:"required,gtefield=StartDate"`
	TargetCategorySlug *string          `json:"target_category_slug,omitempty" validate:"omitempty,max=120"`
	MinMarginOverride  *decimal.Decimal `json:"min_margin_override,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type campaignResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Active             bool             `json:"active"`
	StartDate          time.Time        `json:"start_date"`
	EndDate            time.Time        `json:"end_date"`
	TargetCategorySlug *string          `json:"target_category_slug,omitempty"`
	MinMarginOverride  *decimal.Decimal `json:"min_margin_override,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (c campaignRequest) toInput() campaigns.Input {
	return campaigns.Input{
		Name:               validators.SanitizeString(c.Name, 200),
		Active:             c.Active,
		StartDate:          c.StartDate.UTC(),
		EndDate:            c.EndDate.UTC(),
		TargetCategorySlug: validators.SanitizeOptional(c.TargetCategorySlug, 120),
		MinMarginOverride:  c.MinMarginOverride,
	}
}

func newCampaignResponse(c models.Campaign) campaignResponse {
	resp := campaignResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Active:             c.Active,
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		TargetCategorySlug: c.TargetCategorySlug,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if c.MinMarginOverride.Valid {
		override := c.MinMarginOverride.Decimal
		resp.MinMarginOverride = &override
	}
	return resp
}

func AdminListCampaigns(svc campaignService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]campaignResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newCampaignResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminGetCampaign(svc campaignService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}
		id, err := uuidParam(r, "campaignId", "campaign id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaign, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCampaignResponse(*campaign))
	}
}

func AdminCreateCampaign(svc campaignService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}
		var req campaignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaign, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCampaignResponse(*campaign))
	}
}

// AdminUpdateCampaign replaces the editable state of a campaign.
func AdminUpdateCampaign(svc campaignService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}
		id, err := uuidParam(r, "campaignId", "campaign id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req campaignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaign, err := svc.Update(r.Context(), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCampaignResponse(*campaign))
	}
}

func AdminDeleteCampaign(svc campaignService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}
		id, err := uuidParam(r, "campaignId", "campaign id")
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
