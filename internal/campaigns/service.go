package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var maxPercent = decimal.NewFromInt(100)

// Service is the back-office campaign surface.
type Service interface {
	List(ctx context.Context) ([]models.Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	Create(ctx context.Context, input Input) (*models.Campaign, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.Campaign, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Input is the full editable state of a campaign.
type Input struct {
	Name               string
	Active             bool
	StartDate          time.Time
	EndDate            time.Time
	TargetCategorySlug *string
	MinMarginOverride  *decimal.Decimal
}

type campaignStore interface {
	List(ctx context.Context) ([]models.Campaign, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	Create(ctx context.Context, campaign *models.Campaign) error
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo campaignStore
}

// NewService wires the campaign service.
func NewService(repo campaignStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("campaign repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.Campaign, error) {
	campaigns, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list campaigns")
	}
	return campaigns, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "load campaign")
	}
	return campaign, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.Campaign, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	campaign := &models.Campaign{}
	apply(campaign, input)
	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create campaign")
	}
	return campaign, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.Campaign, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	campaign, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "load campaign")
	}
	apply(campaign, input)
	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update campaign")
	}
	return campaign, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err, "delete campaign")
	}
	return nil
}

func validate(input Input) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign name is required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign start and end dates are required")
	}
	if input.EndDate.Before(input.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign end date must not precede start date")
	}
	if o := input.MinMarginOverride; o != nil && (o.IsNegative() || o.GreaterThan(maxPercent)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum margin override must be between 0 and 100")
	}
	return nil
}

func apply(campaign *models.Campaign, input Input) {
	campaign.Name = strings.TrimSpace(input.Name)
	campaign.Active = input.Active
	campaign.StartDate = input.StartDate.UTC()
	campaign.EndDate = input.EndDate.UTC()
	campaign.TargetCategorySlug = nil
	if input.TargetCategorySlug != nil {
		if slug := strings.ToLower(strings.TrimSpace(*input.TargetCategorySlug)); slug != "" {
			campaign.TargetCategorySlug = &slug
		}
	}
	campaign.MinMarginOverride = decimal.NullDecimal{}
	if input.MinMarginOverride != nil {
		campaign.MinMarginOverride = decimal.NewNullDecimal(*input.MinMarginOverride)
	}
}

func mapError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
