package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-tour/internal/common"
)

// ErrInvalidPeople is returned when the head count is below one.
var ErrInvalidPeople = errors.New("number of people must be at least 1")

// Rates holds the fixed percentages applied on top of the subtotal.
type Rates struct {
	ServiceFee decimal.Decimal
	Tax        decimal.Decimal
}

// DefaultRates returns the 10% service fee and 5% tax used across the platform.
func DefaultRates() Rates {
	return Rates{
		ServiceFee: decimal.New(10, -2),
		Tax:        decimal.New(5, -2),
	}
}

// HotelInput is the priced view of a day's hotel.
type HotelInput struct {
	PricePerNight Amount
	RoomAmount    int
}

// DayInput is the priced view of one itinerary day.
type DayInput struct {
	Destinations   []Amount
	Hotel          *HotelInput
	Meals          []Amount
	Transportation []Amount
}

// Input is the snapshot the engine prices. Per-person charges are multiplied
// by NumberOfPeople; hotel, transportation and guide charges are not.
type Input struct {
	NumberOfPeople int
	Days           []DayInput
	GuideRates     []Amount
}

// Breakdown aggregates computed pricing components.
type Breakdown struct {
	DestinationsTotal   Amount `json:"destinationsTotal"`
	HotelsTotal         Amount `json:"hotelsTotal"`
	MealsTotal          Amount `json:"mealsTotal"`
	TransportationTotal Amount `json:"transportationTotal"`
	GuidesTotal         Amount `json:"guidesTotal"`
	Subtotal            Amount `json:"subtotal"`
	ServiceFee          Amount `json:"serviceFee"`
	Tax                 Amount `json:"tax"`
	Total               Amount `json:"total"`
	PerPersonTotal      Amount `json:"perPersonTotal"`
}

// RoomCount returns the explicit room amount, or one room per two people.
func RoomCount(roomAmount, numberOfPeople int) int {
	if roomAmount > 0 {
		return roomAmount
	}
	if numberOfPeople <= 0 {
		return 0
	}
	return (numberOfPeople + 1) / 2
}

// HotelCharge is the single rule for a night's hotel cost, shared by the
// itinerary preview and the invoice line items.
func HotelCharge(h HotelInput, numberOfPeople int) Money {
	rooms := RoomCount(h.RoomAmount, numberOfPeople)
	return h.PricePerNight.NonNegative().Mul(decimal.NewFromInt(int64(rooms)))
}

// ComputeBreakdown prices the itinerary for preview: subtotal plus service fee
// plus tax.
func ComputeBreakdown(in Input) (Breakdown, error) {
	return compute(in, DefaultRates(), true)
}

// ComputeInvoiceBreakdown prices the itinerary for invoicing: subtotal plus tax,
// without the service fee.
func ComputeInvoiceBreakdown(in Input) (Breakdown, error) {
	return compute(in, DefaultRates(), false)
}

// ComputeWithRates is ComputeBreakdown/ComputeInvoiceBreakdown with explicit rates.
func ComputeWithRates(in Input, rates Rates, withServiceFee bool) (Breakdown, error) {
	return compute(in, rates, withServiceFee)
}

func compute(in Input, rates Rates, withServiceFee bool) (Breakdown, error) {
	if in.NumberOfPeople < 1 {
		return Breakdown{}, common.NewValidationError("number of people must be at least 1", ErrInvalidPeople)
	}
	people := decimal.NewFromInt(int64(in.NumberOfPeople))
	dayCount := decimal.NewFromInt(int64(len(in.Days)))

	destinations := decimal.Zero
	hotels := decimal.Zero
	meals := decimal.Zero
	transport := decimal.Zero
	for _, day := range in.Days {
		for _, price := range day.Destinations {
			destinations = destinations.Add(price.NonNegative().Mul(people))
		}
		if day.Hotel != nil {
			hotels = hotels.Add(HotelCharge(*day.Hotel, in.NumberOfPeople))
		}
		for _, price := range day.Meals {
			meals = meals.Add(price.NonNegative().Mul(people))
		}
		for _, price := range day.Transportation {
			transport = transport.Add(price.NonNegative())
		}
	}
	guides := decimal.Zero
	for _, rate := range in.GuideRates {
		guides = guides.Add(rate.NonNegative().Mul(dayCount))
	}

	subtotal := destinations.Add(hotels).Add(meals).Add(transport).Add(guides)
	fee := decimal.Zero
	if withServiceFee {
		fee = subtotal.Mul(rates.ServiceFee)
	}
	tax := subtotal.Mul(rates.Tax)
	total := subtotal.Add(fee).Add(tax)

	return Breakdown{
		DestinationsTotal:   AmountOf(destinations),
		HotelsTotal:         AmountOf(hotels),
		MealsTotal:          AmountOf(meals),
		TransportationTotal: AmountOf(transport),
		GuidesTotal:         AmountOf(guides),
		Subtotal:            AmountOf(subtotal),
		ServiceFee:          AmountOf(fee),
		Tax:                 AmountOf(tax),
		Total:               AmountOf(total),
		PerPersonTotal:      AmountOf(total.Div(people)),
	}, nil
}
