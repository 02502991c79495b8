package ingest

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dcrespo-dev/orderstream/pkg/db/models"
	pkgerrors "github.com/dcrespo-dev/orderstream/pkg/errors"
)

const defaultCurrency = "USD"

// Enricher derives the persisted record from a validated event and caps its
// serialized size at the configured byte budget.
type Enricher struct {
	byteBudget int
	now        func() time.Time
}

func NewEnricher(byteBudget int, now func() time.Time) (*Enricher, error) {
	if byteBudget <= 0 {
		return nil, errors.New("byte budget must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &Enricher{byteBudget: byteBudget, now: now}, nil
}

// Enrich builds the record: normalized two-decimal amount, ingestion
// timestamp, currency default, and item-list compaction when the serialized
// record exceeds the budget. Compaction is deterministic: the same input
// always keeps the same item prefix, and re-running it on an already
// compacted record changes nothing.
func (e *Enricher) Enrich(event *ParsedEvent) (*models.OrderRecord, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event is missing")
	}

	currency := event.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	record := &models.OrderRecord{
		OrderID:     event.OrderID,
		CustomerRef: event.CustomerRef,
		Amount:      decimal.NewFromFloat(event.Amount).Round(2),
		Currency:    currency,
		Items:       event.Items,
		OccurredAt:  event.OccurredAt,
		IngestedAt:  e.now().UTC(),
	}

	if err := e.compact(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (e *Enricher) compact(record *models.OrderRecord) error {
	size, err := recordSize(record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "measuring record size")
	}
	if size <= e.byteBudget {
		return nil
	}

	// Binary search the longest item prefix that fits. Items are the only
	// unbounded field; identifier, amount, and timestamps stay untouched.
	items := record.Items
	lo, hi := 0, len(items)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		record.Items = items[:mid]
		size, err = recordSize(record)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "measuring record size")
		}
		if size <= e.byteBudget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	record.Items = items[:lo]
	record.Truncated = true

	size, err = recordSize(record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "measuring record size")
	}
	if size > e.byteBudget {
		// Even the empty item list does not fit; the fixed fields alone
		// blow the budget and no truncation policy can save the record.
		return pkgerrors.New(pkgerrors.CodeInternal, "record exceeds byte budget after compaction")
	}
	return nil
}

func recordSize(record *models.OrderRecord) (int, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
