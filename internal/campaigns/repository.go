package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists campaigns and answers the pricing-time lookup.
type Repository struct {
	repo.Base
}

// NewRepository builds a campaigns repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindApplicable returns the campaign that governs categorySlug at now, or nil.
// Candidates are active, cover now, and target either every category or this
// one. When several match, the most recently created wins.
func (r *Repository) FindApplicable(ctx context.Context, categorySlug string, now time.Time) (*models.Campaign, error) {
	query := r.DB(ctx).
		Where("active = ?", true).
		Where("start_date <= ? AND end_date >= ?", now, now)
	if categorySlug == "" {
		query = query.Where("target_category_slug IS NULL")
	} else {
		query = query.Where("target_category_slug IS NULL OR target_category_slug = ?", categorySlug)
	}
	return repo.FirstOrNil[models.Campaign](query.Order("created_at DESC").Order("id DESC"))
}

func (r *Repository) List(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.DB(ctx).Order("start_date DESC").Order("created_at DESC").Find(&campaigns).Error
	return campaigns, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return repo.First[models.Campaign](r.DB(ctx).Where("id = ?", id))
}

func (r *Repository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.DB(ctx).Create(campaign).Error
}

func (r *Repository) Update(ctx context.Context, campaign *models.Campaign) error {
	return r.DB(ctx).Save(campaign).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return repo.DeleteWhere[models.Campaign](r.DB(ctx), "id = ?", id)
}
