package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-tour/internal/pricing"
)

var (
	// ErrDecode marks a stored items blob that could not be decoded.
	ErrDecode = errors.New("invoice: malformed stored json")
	// ErrInvalidQuantity rejects fractional or oversized item quantities.
	ErrInvalidQuantity = errors.New("item quantity must be a whole number up to 1000000")
)

const maxQuantity = 1_000_000

type itemWire struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Quantity    pricing.Amount `json:"quantity"`
	UnitPrice   pricing.Amount `json:"unitPrice"`
	Total       pricing.Amount `json:"total"`
}

// UnmarshalJSON accepts numeric strings for quantity and recomputes the total.
// Negative quantities clamp to zero; fractional ones are rejected.
func (i *Item) UnmarshalJSON(data []byte) error {
	var wire itemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	qty := wire.Quantity.Money()
	if !qty.Equal(qty.Truncate(0)) || qty.GreaterThan(decimal.NewFromInt(maxQuantity)) {
		return fmt.Errorf("%w: got %s", ErrInvalidQuantity, qty.String())
	}
	*i = normalizeItem(Item{
		ID:          wire.ID,
		Description: wire.Description,
		Quantity:    int(qty.IntPart()),
		UnitPrice:   wire.UnitPrice,
	})
	return nil
}

// DecodeItems decodes a stored items blob. On failure it returns an empty
// slice together with an error wrapping ErrDecode.
func DecodeItems(raw []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Item{}, nil
	}
	var items []Item
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return []Item{}, fmt.Errorf("%w: items: %v", ErrDecode, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// EncodeItems serialises items for storage.
func EncodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(items)
}
