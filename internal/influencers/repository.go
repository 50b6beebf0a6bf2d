package influencers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists influencers and their coupon codes.
type Repository struct {
	repo.Base
}

// NewRepository builds an influencers repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindActiveByCode returns the active influencer owning the canonical code, or nil.
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (*models.Influencer, error) {
	return repo.FirstOrNil[models.Influencer](r.DB(ctx).Where("coupon_code = ? AND active = ?", code, true))
}

func (r *Repository) List(ctx context.Context) ([]models.Influencer, error) {
	var influencers []models.Influencer
	err := r.DB(ctx).Order("name ASC").Find(&influencers).Error
	return influencers, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Influencer, error) {
	return repo.First[models.Influencer](r.DB(ctx).Where("id = ?", id))
}

func (r *Repository) Create(ctx context.Context, influencer *models.Influencer) error {
	return r.DB(ctx).Create(influencer).Error
}

func (r *Repository) Update(ctx context.Context, influencer *models.Influencer) error {
	return r.DB(ctx).Save(influencer).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return repo.DeleteWhere[models.Influencer](r.DB(ctx), "id = ?", id)
}
