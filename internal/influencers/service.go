package influencers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var maxRate = decimal.NewFromInt(100)

// Service is the back-office influencer surface.
type Service interface {
	List(ctx context.Context) ([]models.Influencer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Influencer, error)
	Create(ctx context.Context, input Input) (*models.Influencer, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.Influencer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CouponActive(ctx context.Context, code string) (bool, error)
}

// Input is the full editable state of an influencer.
type Input struct {
	Name           string
	CouponCode     string
	CommissionRate decimal.Decimal
	Active         bool
}

type service struct {
	repo     *Repository
	resolver *CommissionResolver
}

// NewService wires the influencer service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("influencer repository required")
	}
	resolver, err := NewCommissionResolver(repo)
	if err != nil {
		return nil, err
	}
	return &service{repo: repo, resolver: resolver}, nil
}

func (s *service) List(ctx context.Context) ([]models.Influencer, error) {
	influencers, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list influencers")
	}
	return influencers, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Influencer, error) {
	influencer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "load influencer")
	}
	return influencer, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.Influencer, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	influencer := &models.Influencer{}
	apply(influencer, input)
	if err := s.repo.Create(ctx, influencer); err != nil {
		return nil, mapError(err, "create influencer")
	}
	return influencer, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.Influencer, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	influencer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "load influencer")
	}
	apply(influencer, input)
	if err := s.repo.Update(ctx, influencer); err != nil {
		return nil, mapError(err, "update influencer")
	}
	return influencer, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err, "delete influencer")
	}
	return nil
}

// CouponActive reports whether code currently maps to an active influencer.
func (s *service) CouponActive(ctx context.Context, code string) (bool, error) {
	commission, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		return false, err
	}
	return commission != nil, nil
}

func validate(input Input) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "influencer name is required")
	}
	if CanonicalCode(input.CouponCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if input.CommissionRate.IsNegative() || input.CommissionRate.GreaterThan(maxRate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
	}
	return nil
}

func apply(influencer *models.Influencer, input Input) {
	influencer.Name = strings.TrimSpace(input.Name)
	influencer.CouponCode = CanonicalCode(input.CouponCode)
	influencer.CommissionRate = input.CommissionRate
	influencer.Active = input.Active
}

func mapError(err error, action string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "influencer not found")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon code already in use")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
	}
}
