package itinerary

import (
	"strings"
	"time"

	"github.com/noah-isme/backend-tour/internal/pricing"
)

// MealType tags a meal with its slot in the day.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// Valid reports whether t is one of the known meal types.
func (t MealType) Valid() bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

// Label returns the capitalised meal type used in descriptions.
func (t MealType) Label() string {
	switch t {
	case MealBreakfast:
		return "Breakfast"
	case MealDinner:
		return "Dinner"
	default:
		return "Lunch"
	}
}

// Destination is a place visited on a day, charged per person.
type Destination struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	PricePerPerson pricing.Amount `json:"pricePerPerson"`
}

// Hotel is the day's accommodation, charged per room per night.
type Hotel struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Address       string         `json:"address,omitempty"`
	PricePerNight pricing.Amount `json:"pricePerNight"`
	RoomAmount    int            `json:"roomAmount,omitempty"`
}

// Meal is charged per person.
type Meal struct {
	ID             string         `json:"id"`
	Type           MealType       `json:"type"`
	Description    string         `json:"description"`
	Restaurant     string         `json:"restaurant,omitempty"`
	PricePerPerson pricing.Amount `json:"pricePerPerson"`
}

// Transportation is one leg of a day's travel. PricePerPerson is a flat
// per-day amount and is never multiplied by the head count.
type Transportation struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Description    string         `json:"description,omitempty"`
	PricePerPerson pricing.Amount `json:"pricePerPerson"`
}

// Activity is informational and does not enter the price breakdown.
type Activity struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	PricePerPerson pricing.Amount `json:"pricePerPerson"`
}

// TourGuide is charged PricePerDay for every day of the trip.
type TourGuide struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone,omitempty"`
	PricePerDay pricing.Amount `json:"pricePerDay"`
}

// DayItinerary is one chronological day. Day always equals position + 1.
type DayItinerary struct {
	ID                  string           `json:"id"`
	Day                 int              `json:"day"`
	Destinations        []Destination    `json:"destinations"`
	Hotel               *Hotel           `json:"hotel"`
	Meals               []Meal           `json:"meals"`
	TransportationItems []Transportation `json:"transportationItems"`
	Activities          []Activity       `json:"activities"`
}

// TourItinerary is the root aggregate priced by the engine.
type TourItinerary struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId,omitempty"`
	Name           string         `json:"name"`
	StartDate      string         `json:"startDate"`
	NumberOfPeople int            `json:"numberOfPeople"`
	Days           []DayItinerary `json:"days"`
	TourGuides     []TourGuide    `json:"tourGuides"`
	CreatedAt      time.Time      `json:"createdAt,omitzero"`
	UpdatedAt      time.Time      `json:"updatedAt,omitzero"`
}

// PricingInput projects the aggregate into the engine's input view.
func (t TourItinerary) PricingInput() pricing.Input {
	in := pricing.Input{
		NumberOfPeople: t.NumberOfPeople,
		Days:           make([]pricing.DayInput, 0, len(t.Days)),
		GuideRates:     make([]pricing.Amount, 0, len(t.TourGuides)),
	}
	for _, day := range t.Days {
		d := pricing.DayInput{}
		for _, dest := range day.Destinations {
			d.Destinations = append(d.Destinations, dest.PricePerPerson)
		}
		if day.Hotel != nil {
			d.Hotel = &pricing.HotelInput{
				PricePerNight: day.Hotel.PricePerNight,
				RoomAmount:    day.Hotel.RoomAmount,
			}
		}
		for _, meal := range day.Meals {
			d.Meals = append(d.Meals, meal.PricePerPerson)
		}
		for _, leg := range day.TransportationItems {
			d.Transportation = append(d.Transportation, leg.PricePerPerson)
		}
		in.Days = append(in.Days, d)
	}
	for _, g := range t.TourGuides {
		in.GuideRates = append(in.GuideRates, g.PricePerDay)
	}
	return in
}

// Breakdown returns the full preview breakdown, service fee included.
func (t TourItinerary) Breakdown() (pricing.Breakdown, error) {
	return pricing.ComputeBreakdown(t.PricingInput())
}

// Clone returns a deep copy of the aggregate.
func (t TourItinerary) Clone() TourItinerary {
	out := t
	out.Days = make([]DayItinerary, len(t.Days))
	for i, day := range t.Days {
		out.Days[i] = day.clone()
	}
	out.TourGuides = append([]TourGuide(nil), t.TourGuides...)
	return out
}

func (d DayItinerary) clone() DayItinerary {
	out := d
	out.Destinations = append([]Destination(nil), d.Destinations...)
	out.Meals = append([]Meal(nil), d.Meals...)
	out.TransportationItems = append([]Transportation(nil), d.TransportationItems...)
	out.Activities = append([]Activity(nil), d.Activities...)
	if d.Hotel != nil {
		h := *d.Hotel
		out.Hotel = &h
	}
	return out
}

// Lines lists the contents of a day as short readable lines, in the order
// destinations, hotel, meals, transportation, activities.
func (d DayItinerary) Lines() []string {
	lines := make([]string, 0)
	for _, dest := range d.Destinations {
		lines = append(lines, "Visit: "+dest.Name)
	}
	if d.Hotel != nil && strings.TrimSpace(d.Hotel.Name) != "" {
		lines = append(lines, "Hotel: "+d.Hotel.Name)
	}
	for _, m := range d.Meals {
		line := m.Type.Label()
		if desc := strings.TrimSpace(m.Description); desc != "" {
			line += ": " + desc
		}
		lines = append(lines, line)
	}
	for _, t := range d.TransportationItems {
		line := "Transportation: " + t.Type
		if desc := strings.TrimSpace(t.Description); desc != "" {
			line += " - " + desc
		}
		lines = append(lines, line)
	}
	for _, a := range d.Activities {
		lines = append(lines, "Activity: "+a.Name)
	}
	return lines
}
