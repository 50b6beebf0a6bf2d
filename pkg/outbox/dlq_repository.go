package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	DefaultDLQLimit = 50
	MaxDLQLimit     = 200
)

// DLQFilter narrows List. A nil Reason matches every reason.
type DLQFilter struct {
	Reason *enums.DLQReason
	Limit  int
}

// DLQRepository reads and writes outbox_dlq.
type DLQRepository struct {
	repo.Base
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{Base: repo.NewBase(db)}
}

// InsertTx stores entry inside the publisher's batch transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errTxRequired
	}
	if entry.ErrorMessage != nil {
		clipped := clip(*entry.ErrorMessage)
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil, nil when the event was never parked.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	return repo.FirstOrNil[models.OutboxDLQ](
		r.DB(ctx).Where("event_id = ?", eventID).Order("failed_at DESC"),
	)
}

// List returns the newest entries first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := min(filter.Limit, MaxDLQLimit)
	if limit <= 0 {
		limit = DefaultDLQLimit
	}
	query := r.DB(ctx).Order("failed_at DESC, id DESC").Limit(limit)
	if filter.Reason != nil {
		query = query.Where("error_reason = ?", *filter.Reason)
	}
	entries := make([]models.OutboxDLQ, 0, limit)
	return entries, query.Find(&entries).Error
}

// DeleteBefore removes entries parked before cutoff and reports how many went.
func (r *DLQRepository) DeleteBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errTxRequired
	}
	res := tx.Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}
