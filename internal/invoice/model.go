package invoice

import (
	"time"

	"github.com/noah-isme/backend-tour/internal/pricing"
)

// Item is one billable line. Total always equals Quantity × UnitPrice.
type Item struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Quantity    int            `json:"quantity"`
	UnitPrice   pricing.Amount `json:"unitPrice"`
	Total       pricing.Amount `json:"total"`
}

// Totals are the invoice-stage totals: subtotal plus tax, never a service fee.
type Totals struct {
	Subtotal pricing.Amount `json:"subtotal"`
	Tax      pricing.Amount `json:"tax"`
	Total    pricing.Amount `json:"total"`
}

// Invoice is a snapshot billed to a customer. Editing it never touches the
// itinerary it was projected from.
type Invoice struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId,omitempty"`
	ItineraryID   *string        `json:"itineraryId"`
	CustomerName  string         `json:"customerName"`
	CustomerEmail string         `json:"customerEmail"`
	Date          string         `json:"date"`
	DueDate       string         `json:"dueDate"`
	Items         []Item         `json:"items"`
	Subtotal      pricing.Amount `json:"subtotal"`
	Tax           pricing.Amount `json:"tax"`
	Total         pricing.Amount `json:"total"`
	Status        Status         `json:"status"`
	CreatedAt     time.Time      `json:"createdAt,omitzero"`
	UpdatedAt     time.Time      `json:"updatedAt,omitzero"`
}

// Totals returns the stored totals of the invoice.
func (inv Invoice) Totals() Totals {
	return Totals{Subtotal: inv.Subtotal, Tax: inv.Tax, Total: inv.Total}
}

// Reference is the short human reference printed on documents.
func (inv Invoice) Reference() string {
	if len(inv.ID) >= 8 {
		return "INV-" + inv.ID[:8]
	}
	return "INV-" + inv.ID
}

func (inv *Invoice) applyTotals(t Totals) {
	inv.Subtotal = t.Subtotal
	inv.Tax = t.Tax
	inv.Total = t.Total
}
