package products

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes back-office stock management.
type Service interface {
	ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error)
	SetVariantStock(ctx context.Context, variantID uuid.UUID, qty int) (*models.ProductVariant, error)
	SetProductStock(ctx context.Context, productID uuid.UUID, sizes map[string]int) ([]models.ProductVariant, error)
}

type service struct {
	tx   txRunner
	repo *Repository
}

// NewService wires the stock service.
func NewService(tx txRunner, repo *Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, mapLookupError(err, "product not found")
	}
	variants, err := s.repo.ListVariants(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list variants")
	}
	return variants, nil
}

func (s *service) SetVariantStock(ctx context.Context, variantID uuid.UUID, qty int) (*models.ProductVariant, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or greater")
	}
	if err := s.repo.SetQuantity(ctx, variantID, qty); err != nil {
		return nil, mapLookupError(err, "variant not found")
	}
	variant, err := s.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, mapLookupError(err, "variant not found")
	}
	return variant, nil
}

// SetProductStock sets quantities per size in one transaction, creating sizes
// that do not exist yet. Every invalid size is reported, not just the first.
func (s *service) SetProductStock(ctx context.Context, productID uuid.UUID, sizes map[string]int) ([]models.ProductVariant, error) {
	if len(sizes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one size is required")
	}

	raw := make([]string, 0, len(sizes))
	for size := range sizes {
		raw = append(raw, size)
	}
	sort.Strings(raw)

	var invalid error
	normalized := make(map[string]int, len(sizes))
	for _, size := range raw {
		label := NormalizeSize(size)
		switch {
		case label == "":
			invalid = multierr.Append(invalid, errors.New("size label is required"))
		case sizes[size] < 0:
			invalid = multierr.Append(invalid, fmt.Errorf("size %s: quantity must be zero or greater", label))
		default:
			if _, dup := normalized[label]; dup {
				invalid = multierr.Append(invalid, fmt.Errorf("size %s: listed more than once", label))
				continue
			}
			normalized[label] = sizes[size]
		}
	}
	if invalid != nil {
		details := []string{}
		for _, err := range multierr.Errors(invalid) {
			details = append(details, err.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, invalid, "invalid stock update").WithDetails(details)
	}

	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, mapLookupError(err, "product not found")
	}

	labels := make([]string, 0, len(normalized))
	for label := range normalized {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	sizes = normalized

	var result []models.ProductVariant
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, size := range labels {
			variant, err := repo.FindVariant(ctx, productID, size)
			if err != nil {
				return err
			}
			if variant == nil {
				if err := repo.CreateVariant(ctx, &models.ProductVariant{ProductID: productID, Size: size, Quantity: sizes[size]}); err != nil {
					return err
				}
				continue
			}
			if err := repo.SetQuantity(ctx, variant.ID, sizes[size]); err != nil {
				return err
			}
		}
		variants, err := repo.ListVariants(ctx, productID)
		if err != nil {
			return err
		}
		result = variants
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set product stock")
	}
	return result, nil
}

func mapLookupError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup failed")
}
