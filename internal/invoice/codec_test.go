package invoice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemQuantityAcceptsWholeNumbers(t *testing.T) {
	var items []Item
	err := json.Unmarshal([]byte(`[
		{"description":"Snorkel trip","quantity":"4","unitPrice":"150000"},
		{"description":"Refund line","quantity":-2,"unitPrice":50000},
		{"description":"Boat","quantity":2.0,"unitPrice":1e6}
	]`), &items)
	require.NoError(t, err)
	require.Equal(t, 4, items[0].Quantity)
	require.Equal(t, "600000", items[0].Total.String())
	require.Zero(t, items[1].Quantity)
	require.Equal(t, 2, items[2].Quantity)
	require.Equal(t, "2000000", items[2].Total.String())
}

func TestItemQuantityRejectsFractionsAndOverflow(t *testing.T) {
	for _, raw := range []string{
		`{"description":"Half day","quantity":"1.5","unitPrice":100}`,
		`{"description":"Bulk","quantity":1e7,"unitPrice":100}`,
		`{"description":"Bulk","quantity":"1000001","unitPrice":100}`,
	} {
		var item Item
		err := json.Unmarshal([]byte(raw), &item)
		require.ErrorIs(t, err, ErrInvalidQuantity, raw)
	}
}

func TestDecodeItemsFallsBackToEmpty(t *testing.T) {
	items, err := DecodeItems([]byte(`[{"quantity":"0.5"}]`))
	require.ErrorIs(t, err, ErrDecode)
	require.Empty(t, items)
}
