package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// OrderItem is one free-form line item carried by an order event.
type OrderItem struct {
	SKU  string `json:"sku"`
	Qty  int    `json:"qty"`
	Note string `json:"note,omitempty"`
}

// OrderItems stores the item list as a JSON column so the same model works
// against Postgres jsonb and the sqlite TEXT used in tests.
type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	return string(data), nil
}

func (items *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*items = OrderItems{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("order items: unsupported scan type %T", value)
	}

	if len(raw) == 0 {
		*items = OrderItems{}
		return nil
	}
	return json.Unmarshal(raw, items)
}
