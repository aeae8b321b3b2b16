package invoice

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-tour/internal/itinerary"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

// ProjectFromItinerary derives billable lines from an itinerary. Content is
// deterministic for the same input; only the item ids differ between calls.
func ProjectFromItinerary(it itinerary.TourItinerary) []Item {
	people := it.NumberOfPeople
	if people < 0 {
		people = 0
	}
	items := make([]Item, 0)
	for _, day := range it.Days {
		for _, dest := range day.Destinations {
			items = append(items, newItem(fmt.Sprintf("Day %d: %s", day.Day, dest.Name), people, dest.PricePerPerson))
		}
		if day.Hotel != nil {
			rooms := pricing.RoomCount(day.Hotel.RoomAmount, people)
			items = append(items, newItem(
				fmt.Sprintf("Day %d: Hotel %s (%d rooms)", day.Day, day.Hotel.Name, rooms),
				rooms, day.Hotel.PricePerNight,
			))
		}
		for _, meal := range day.Meals {
			items = append(items, newItem(fmt.Sprintf("Day %d: %s - %s", day.Day, meal.Type.Label(), meal.Description), people, meal.PricePerPerson))
		}
		for _, leg := range day.TransportationItems {
			items = append(items, newItem(transportDescription(day.Day, leg), 1, leg.PricePerPerson))
		}
	}
	dayCount := len(it.Days)
	for _, guide := range it.TourGuides {
		rate := guide.PricePerDay.NonNegative().Mul(decimal.NewFromInt(int64(dayCount)))
		items = append(items, newItem(fmt.Sprintf("Tour Guide: %s (%d days)", guide.Name, dayCount), 1, pricing.AmountOf(rate)))
	}
	return items
}

func transportDescription(day int, leg itinerary.Transportation) string {
	label := strings.TrimSpace(leg.Type)
	if label == "" {
		label = "Transportation"
	}
	if desc := strings.TrimSpace(leg.Description); desc != "" {
		return fmt.Sprintf("Day %d: Transportation %s - %s", day, label, desc)
	}
	return fmt.Sprintf("Day %d: Transportation %s", day, label)
}

func newItem(description string, quantity int, unit pricing.Amount) Item {
	return normalizeItem(Item{
		ID:          uuid.NewString(),
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unit,
	})
}

// normalizeItem clamps negative inputs to zero and recomputes the line total.
func normalizeItem(item Item) Item {
	if item.Quantity < 0 {
		item.Quantity = 0
	}
	unit := item.UnitPrice.NonNegative()
	item.UnitPrice = pricing.AmountOf(unit)
	item.Total = pricing.AmountOf(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	item.Description = strings.TrimSpace(item.Description)
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return item
}

// NormalizeItems applies normalizeItem to every line.
func NormalizeItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, normalizeItem(item))
	}
	return out
}

// ComputeInvoiceTotals sums recomputed line totals and applies tax only.
func ComputeInvoiceTotals(items []Item) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(normalizeItem(item).Total.Money())
	}
	tax := subtotal.Mul(pricing.DefaultRates().Tax)
	return Totals{
		Subtotal: pricing.AmountOf(subtotal),
		Tax:      pricing.AmountOf(tax),
		Total:    pricing.AmountOf(subtotal.Add(tax)),
	}
}
