package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository reads catalog variants and owns admin stock writes.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// NormalizeSize canonicalizes a size label ("gg " -> "GG").
func NormalizeSize(size string) string {
	return strings.ToUpper(strings.TrimSpace(size))
}

// FindVariant loads the variant for (productID, size) with its product and
// category. A missing variant returns (nil, nil): unmanaged items are not errors.
func (r *Repository) FindVariant(ctx context.Context, productID uuid.UUID, size string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product.Category").
		Where("product_id = ? AND size = ?", productID, NormalizeSize(size)).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantByID loads a variant by primary key.
func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Preload("Product").First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindProduct loads a product by primary key.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LookupProduct is FindProduct with a missing product reported as (nil, nil).
func (r *Repository) LookupProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.FirstOrNil[models.Product](r.db.WithContext(ctx).Preload("Category").Where("id = ?", id))
}

// ListVariants returns all sizes of a product ordered by size label.
func (r *Repository) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("size ASC").
		Find(&variants).Error
	return variants, err
}

// SetQuantity overwrites a variant's stock count.
func (r *Repository) SetQuantity(ctx context.Context, variantID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateVariant inserts a new size for a product.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	variant.Size = NormalizeSize(variant.Size)
	return r.db.WithContext(ctx).Create(variant).Error
}

// ListLowStock returns variants of active products at or below threshold,
// emptiest first.
func (r *Repository) ListLowStock(ctx context.Context, threshold, limit int) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.active = ?", true).
		Where("product_variants.quantity <= ?", threshold).
		Preload("Product").
		Order("product_variants.quantity ASC").
		Order("product_variants.size ASC").
		Limit(limit).
		Find(&variants).Error
	return variants, err
}
