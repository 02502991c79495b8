package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dcrespo-dev/orderstream/pkg/types"
)

// OrderRecord is the persisted, enriched form of one order event. The
// business identifier is the key: repeated writes for the same order_id
// overwrite rather than duplicate.
type OrderRecord struct {
	OrderID     string           `gorm:"column:order_id;type:text;primaryKey" json:"order_id"`
	CustomerRef string           `gorm:"column:customer_ref;type:text;not null" json:"customer_ref"`
	Amount      decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency    string           `gorm:"column:currency;type:text;not null;default:'USD'" json:"currency"`
	Items       types.OrderItems `gorm:"column:items;type:jsonb" json:"items"`
	OccurredAt  *time.Time       `gorm:"column:occurred_at;type:timestamptz" json:"occurred_at,omitempty"`
	IngestedAt  time.Time        `gorm:"column:ingested_at;type:timestamptz;not null" json:"ingested_at"`
	Truncated   bool             `gorm:"column:truncated;not null;default:false" json:"truncated"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;type:timestamptz" json:"-"`
}

// TableName pins the table name independent of GORM pluralization rules.
func (OrderRecord) TableName() string {
	return "order_records"
}
