package ingest

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/dcrespo-dev/orderstream/pkg/types"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func manyItems(n int) types.OrderItems {
	items := make(types.OrderItems, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, types.OrderItem{
			SKU:  fmt.Sprintf("sku-%04d", i),
			Qty:  i + 1,
			Note: "a reasonably long note that pads out the serialized item",
		})
	}
	return items
}

func TestEnrichDefaultsAndNormalizes(t *testing.T) {
	enricher, err := NewEnricher(399360, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := validEvent()
	event.Amount = 10.555
	event.Currency = ""

	record, err := enricher.Enrich(event)
	if err != nil {
		t.Fatalf("unexpected enrich error: %v", err)
	}
	if record.Currency != "USD" {
		t.Fatalf("expected currency default USD, got %q", record.Currency)
	}
	if record.Amount.StringFixed(2) != "10.56" {
		t.Fatalf("expected amount rounded to 10.56, got %s", record.Amount.String())
	}
	if !record.IngestedAt.Equal(fixedNow()) {
		t.Fatalf("expected ingested_at %v, got %v", fixedNow(), record.IngestedAt)
	}
	if record.Truncated {
		t.Fatalf("small record must not be truncated")
	}
}

func TestEnrichCompactsOversizedRecords(t *testing.T) {
	budget := 2048
	enricher, err := NewEnricher(budget, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := validEvent()
	event.Items = manyItems(200)

	record, err := enricher.Enrich(event)
	if err != nil {
		t.Fatalf("unexpected enrich error: %v", err)
	}

	if !record.Truncated {
		t.Fatalf("expected truncated flag")
	}
	size, err := recordSize(record)
	if err != nil {
		t.Fatalf("unexpected size error: %v", err)
	}
	if size > budget {
		t.Fatalf("compacted record is %d bytes, budget is %d", size, budget)
	}
	if len(record.Items) == 0 || len(record.Items) >= 200 {
		t.Fatalf("expected a proper item prefix, kept %d items", len(record.Items))
	}
	// Only the item list shrinks.
	if record.OrderID != event.OrderID {
		t.Fatalf("order id changed during compaction")
	}
	if record.Amount.StringFixed(2) != "10.00" {
		t.Fatalf("amount changed during compaction: %s", record.Amount.String())
	}
	if !record.IngestedAt.Equal(fixedNow()) {
		t.Fatalf("ingested_at changed during compaction")
	}
	// The kept items are the leading prefix, in order.
	for i, item := range record.Items {
		if item.SKU != fmt.Sprintf("sku-%04d", i) {
			t.Fatalf("item %d is not part of the original prefix: %+v", i, item)
		}
	}
}

func TestEnrichCompactionIsDeterministicAndIdempotent(t *testing.T) {
	enricher, err := NewEnricher(2048, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	build := func() *ParsedEvent {
		event := validEvent()
		event.Items = manyItems(200)
		return event
	}

	recordA, err := enricher.Enrich(build())
	if err != nil {
		t.Fatalf("unexpected enrich error: %v", err)
	}
	recordB, err := enricher.Enrich(build())
	if err != nil {
		t.Fatalf("unexpected enrich error: %v", err)
	}
	if !reflect.DeepEqual(recordA.Items, recordB.Items) {
		t.Fatalf("same input compacted to different prefixes")
	}

	// Re-running compaction on an already compacted record changes nothing.
	kept := len(recordA.Items)
	if err := enricher.compact(recordA); err != nil {
		t.Fatalf("unexpected compact error: %v", err)
	}
	if len(recordA.Items) != kept {
		t.Fatalf("re-compaction changed the item prefix: %d -> %d", kept, len(recordA.Items))
	}
	if !recordA.Truncated {
		t.Fatalf("truncated flag lost on re-compaction")
	}
}

func TestEnrichFailsWhenFixedFieldsExceedBudget(t *testing.T) {
	enricher, err := NewEnricher(10, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := enricher.Enrich(validEvent()); err == nil {
		t.Fatalf("expected error when fixed fields alone exceed the budget")
	}
}

func TestNewEnricherRejectsBadBudget(t *testing.T) {
	if _, err := NewEnricher(0, nil); err == nil {
		t.Fatalf("expected error for zero budget")
	}
}
