package ingest

import (
	"testing"

	pkgerrors "github.com/dcrespo-dev/orderstream/pkg/errors"
)

func TestParseEventDecodesFullPayload(t *testing.T) {
	body := []byte(`{
		"order_id": "ord-123",
		"customer_ref": "cust-9",
		"amount": 42.5,
		"currency": "EUR",
		"items": [{"sku": "widget", "qty": 2}],
		"occurred_at": "2026-08-01T10:00:00Z"
	}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if event.OrderID != "ord-123" {
		t.Fatalf("expected order id ord-123, got %q", event.OrderID)
	}
	if event.Amount != 42.5 {
		t.Fatalf("expected amount 42.5, got %v", event.Amount)
	}
	if len(event.Items) != 1 || event.Items[0].SKU != "widget" {
		t.Fatalf("unexpected items: %+v", event.Items)
	}
	if event.OccurredAt == nil {
		t.Fatalf("expected occurred_at to be set")
	}
}

func TestParseEventRejectsNonObjects(t *testing.T) {
	cases := []struct {
		name string
		body []byte
	}{
		{"empty", nil},
		{"whitespace", []byte("   \n")},
		{"array", []byte(`[1,2,3]`)},
		{"string", []byte(`"not an object"`)},
		{"garbage", []byte(`{{{`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEvent(tc.body)
			if err == nil {
				t.Fatalf("expected parse error")
			}
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeParse {
				t.Fatalf("expected parse code, got %v", err)
			}
		})
	}
}

func TestParseEventToleratesUnknownFields(t *testing.T) {
	body := []byte(`{"order_id": "ord-1", "customer_ref": "c", "amount": 1, "items": [{"sku": "a", "qty": 1}], "source_system": "legacy"}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if event.OrderID != "ord-1" {
		t.Fatalf("expected order id ord-1, got %q", event.OrderID)
	}
}
