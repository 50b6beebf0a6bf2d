package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// InventoryReservationRequest asks the ledger to take Qty units from a variant.
type InventoryReservationRequest struct {
	LineIndex int
	VariantID uuid.UUID
	Qty       int
}

// InventoryReservationResult reports the outcome for one request. Available is
// the stock seen when the guarded decrement did not apply.
type InventoryReservationResult struct {
	LineIndex int
	VariantID uuid.UUID
	Qty       int
	Reserved  bool
	Available int
	Reason    string
}

// ReserveInventory applies guarded decrements inside tx. A request only takes
// effect when the variant still holds at least Qty units; otherwise the result
// is marked unreserved and the caller decides whether to abort the tx.
func ReserveInventory(ctx context.Context, tx *gorm.DB, requests []InventoryReservationRequest) ([]InventoryReservationResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}

	results := make([]InventoryReservationResult, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be greater than zero")
		}
		if req.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation variant id required")
		}

		result := InventoryReservationResult{
			LineIndex: req.LineIndex,
			VariantID: req.VariantID,
			Qty:       req.Qty,
		}

		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND quantity >= ?", req.VariantID, req.Qty).
			Updates(map[string]any{
				"quantity":   gorm.Expr("quantity - ?", req.Qty),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserve inventory")
		}

		if res.RowsAffected == 0 {
			available, err := currentQuantity(ctx, tx, req.VariantID)
			if err != nil {
				return nil, err
			}
			result.Available = available
			result.Reason = fmt.Sprintf("requested %d, available %d", req.Qty, available)
		} else {
			result.Reserved = true
		}

		results = append(results, result)
	}

	return results, nil
}

func currentQuantity(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (int, error) {
	var variant models.ProductVariant
	err := tx.WithContext(ctx).
		Select("id", "quantity").
		First(&variant, "id = ?", variantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant quantity")
	}
	return variant.Quantity, nil
}
