package records

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dcrespo-dev/orderstream/internal/repo"
	"github.com/dcrespo-dev/orderstream/pkg/db/models"
	pkgerrors "github.com/dcrespo-dev/orderstream/pkg/errors"
)

// Repository persists enriched order records keyed by order_id. Writes are
// idempotent upserts: concurrent or repeated writes for the same identifier
// converge on the last processed value.
type Repository struct {
	repo.Base
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db), now: time.Now}
}

// Upsert writes the record, overwriting any existing row with the same
// order_id. Storage failures surface as retryable dependency errors.
func (r *Repository) Upsert(ctx context.Context, record *models.OrderRecord) error {
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "record is missing")
	}
	record.UpdatedAt = r.now().UTC()

	err := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Create(record).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting order record")
	}
	return nil
}

// FindByOrderID loads one record, returning nil when it does not exist.
func (r *Repository) FindByOrderID(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	var record models.OrderRecord
	err := r.DB(ctx).Where("order_id = ?", orderID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order record")
	}
	return &record, nil
}
