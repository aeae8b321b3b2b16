package itinerary

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

// Domain errors raised by the edit operations. They are returned wrapped in a
// common.AppError so both errors.Is and errors.As work.
var (
	ErrLastDay         = errors.New("itinerary must keep at least one day")
	ErrDayNotFound     = errors.New("day not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrEmptyName       = errors.New("name must not be empty")
	ErrDuplicateGuide  = errors.New("tour guide already exists")
	ErrInvalidPeople   = pricing.ErrInvalidPeople
	ErrInvalidDate     = errors.New("start date must be formatted as YYYY-MM-DD")
	ErrInvalidMealType = errors.New("meal type must be breakfast, lunch or dinner")
)

// DateLayout is the ISO date format used for start dates.
const DateLayout = "2006-01-02"

// New returns an empty in-memory itinerary with one default day.
func New() TourItinerary {
	return TourItinerary{
		NumberOfPeople: 1,
		Days:           []DayItinerary{newDay(1)},
		TourGuides:     []TourGuide{},
	}
}

func newDay(n int) DayItinerary {
	return DayItinerary{
		ID:                  uuid.NewString(),
		Day:                 n,
		Destinations:        []Destination{},
		Meals:               []Meal{},
		TransportationItems: []Transportation{},
		Activities:          []Activity{},
	}
}

// AddDay appends an empty day.
func AddDay(it TourItinerary) (TourItinerary, error) {
	out := it.Clone()
	out.Days = append(out.Days, newDay(len(out.Days)+1))
	return out, nil
}

// RemoveDay drops a day and renumbers the rest. The last remaining day cannot
// be removed.
func RemoveDay(it TourItinerary, dayID string) (TourItinerary, error) {
	if len(it.Days) <= 1 {
		return it, common.NewValidationError("cannot remove the only day", ErrLastDay)
	}
	idx := dayIndex(it, dayID)
	if idx < 0 {
		return it, dayNotFound()
	}
	out := it.Clone()
	out.Days = append(out.Days[:idx], out.Days[idx+1:]...)
	renumber(out.Days)
	return out, nil
}

// AddDestination appends a destination to a day.
func AddDestination(it TourItinerary, dayID string, d Destination) (TourItinerary, error) {
	if blank(d.Name) {
		return it, emptyName("destination name")
	}
	d.ID = uuid.NewString()
	d.Name = strings.TrimSpace(d.Name)
	return editDay(it, dayID, func(day *DayItinerary) error {
		day.Destinations = append(day.Destinations, d)
		return nil
	})
}

// RemoveDestination removes a destination from a day.
func RemoveDestination(it TourItinerary, dayID, destinationID string) (TourItinerary, error) {
	return editDay(it, dayID, func(day *DayItinerary) error {
		var ok bool
		day.Destinations, ok = without(day.Destinations, func(d Destination) bool { return d.ID == destinationID })
		return foundOr(ok)
	})
}

// AddMeal appends a meal to a day. An empty type defaults to lunch.
func AddMeal(it TourItinerary, dayID string, m Meal) (TourItinerary, error) {
	if blank(m.Description) {
		return it, emptyName("meal description")
	}
	if blank(string(m.Type)) {
		m.Type = MealLunch
	}
	m.Type = MealType(strings.ToLower(strings.TrimSpace(string(m.Type))))
	if !m.Type.Valid() {
		return it, common.NewValidationError(ErrInvalidMealType.Error(), ErrInvalidMealType)
	}
	m.ID = uuid.NewString()
	m.Description = strings.TrimSpace(m.Description)
	return editDay(it, dayID, func(day *DayItinerary) error {
		day.Meals = append(day.Meals, m)
		return nil
	})
}

// RemoveMeal removes a meal from a day.
func RemoveMeal(it TourItinerary, dayID, mealID string) (TourItinerary, error) {
	return editDay(it, dayID, func(day *DayItinerary) error {
		var ok bool
		day.Meals, ok = without(day.Meals, func(m Meal) bool { return m.ID == mealID })
		return foundOr(ok)
	})
}

// AddActivity appends an activity to a day.
func AddActivity(it TourItinerary, dayID string, a Activity) (TourItinerary, error) {
	if blank(a.Name) {
		return it, emptyName("activity name")
	}
	a.ID = uuid.NewString()
	a.Name = strings.TrimSpace(a.Name)
	return editDay(it, dayID, func(day *DayItinerary) error {
		day.Activities = append(day.Activities, a)
		return nil
	})
}

// RemoveActivity removes an activity from a day.
func RemoveActivity(it TourItinerary, dayID, activityID string) (TourItinerary, error) {
	return editDay(it, dayID, func(day *DayItinerary) error {
		var ok bool
		day.Activities, ok = without(day.Activities, func(a Activity) bool { return a.ID == activityID })
		return foundOr(ok)
	})
}

// SetHotel sets the day's hotel. An empty name clears it.
func SetHotel(it TourItinerary, dayID string, h Hotel) (TourItinerary, error) {
	return editDay(it, dayID, func(day *DayItinerary) error {
		if blank(h.Name) {
			day.Hotel = nil
			return nil
		}
		if h.RoomAmount < 0 {
			h.RoomAmount = 0
		}
		h.Name = strings.TrimSpace(h.Name)
		if day.Hotel != nil && day.Hotel.ID != "" {
			h.ID = day.Hotel.ID
		} else {
			h.ID = uuid.NewString()
		}
		day.Hotel = &h
		return nil
	})
}

// SetTransportation is the single-leg setter: it replaces the day's first leg,
// or clears it when both type and description are empty.
func SetTransportation(it TourItinerary, dayID string, t Transportation) (TourItinerary, error) {
	return editDay(it, dayID, func(day *DayItinerary) error {
		if blank(t.Type) && blank(t.Description) {
			if len(day.TransportationItems) > 0 {
				day.TransportationItems = day.TransportationItems[1:]
			}
			return nil
		}
		t.Type = strings.TrimSpace(t.Type)
		if len(day.TransportationItems) == 0 {
			t.ID = uuid.NewString()
			day.TransportationItems = []Transportation{t}
			return nil
		}
		t.ID = day.TransportationItems[0].ID
		day.TransportationItems[0] = t
		return nil
	})
}

// AddTransportationItem appends a transportation leg to a day.
func AddTransportationItem(it TourItinerary, dayID string, t Transportation) (TourItinerary, error) {
	if blank(t.Type) {
		return it, emptyName("transportation type")
	}
	t.ID = uuid.NewString()
	t.Type = strings.TrimSpace(t.Type)
	return editDay(it, dayID, func(day *DayItinerary) error {
		day.TransportationItems = append(day.TransportationItems, t)
		return nil
	})
}

// RemoveTransportationItem removes a transportation leg from a day.
func RemoveTransportationItem(it TourItinerary, dayID, itemID string) (TourItinerary, error) {
	return editDay(it, dayID, func(day *DayItinerary) error {
		var ok bool
		day.TransportationItems, ok = without(day.TransportationItems, func(t Transportation) bool { return t.ID == itemID })
		return foundOr(ok)
	})
}

// AddTourGuide adds a guide. Names are unique ignoring case.
func AddTourGuide(it TourItinerary, g TourGuide) (TourItinerary, error) {
	if blank(g.Name) {
		return it, emptyName("tour guide name")
	}
	g.Name = strings.TrimSpace(g.Name)
	for _, existing := range it.TourGuides {
		if strings.EqualFold(strings.TrimSpace(existing.Name), g.Name) {
			return it, common.NewConflictError("tour guide "+g.Name+" already exists", ErrDuplicateGuide)
		}
	}
	g.ID = uuid.NewString()
	out := it.Clone()
	out.TourGuides = append(out.TourGuides, g)
	return out, nil
}

// CheckUniqueGuides rejects an aggregate holding two guides whose names match
// case-insensitively.
func CheckUniqueGuides(it TourItinerary) error {
	seen := make(map[string]struct{}, len(it.TourGuides))
	for _, g := range it.TourGuides {
		name := strings.TrimSpace(g.Name)
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return common.NewConflictError("tour guide "+name+" already exists", ErrDuplicateGuide)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// RemoveTourGuide removes a guide by id.
func RemoveTourGuide(it TourItinerary, guideID string) (TourItinerary, error) {
	out := it.Clone()
	var ok bool
	out.TourGuides, ok = without(out.TourGuides, func(g TourGuide) bool { return g.ID == guideID })
	if !ok {
		return it, common.NewValidationError("tour guide not found", ErrItemNotFound)
	}
	return out, nil
}

// SetNumberOfPeople updates the head count.
func SetNumberOfPeople(it TourItinerary, n int) (TourItinerary, error) {
	if n < 1 {
		return it, common.NewValidationError(ErrInvalidPeople.Error(), ErrInvalidPeople)
	}
	out := it.Clone()
	out.NumberOfPeople = n
	return out, nil
}

// Rename sets the display name. Emptiness is only checked at save time.
func Rename(it TourItinerary, name string) (TourItinerary, error) {
	out := it.Clone()
	out.Name = strings.TrimSpace(name)
	return out, nil
}

// SetStartDate sets the ISO start date. An empty value clears it.
func SetStartDate(it TourItinerary, date string) (TourItinerary, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return it, common.NewValidationError(ErrInvalidDate.Error(), ErrInvalidDate)
		}
	}
	out := it.Clone()
	out.StartDate = date
	return out, nil
}

// Normalize renumbers days and fills missing ids on a posted aggregate.
func Normalize(it TourItinerary) TourItinerary {
	out := it.Clone()
	if len(out.Days) == 0 {
		out.Days = []DayItinerary{newDay(1)}
	}
	for i := range out.Days {
		day := &out.Days[i]
		if day.ID == "" {
			day.ID = uuid.NewString()
		}
		for j := range day.Destinations {
			ensureID(&day.Destinations[j].ID)
		}
		for j := range day.Meals {
			ensureID(&day.Meals[j].ID)
		}
		for j := range day.TransportationItems {
			ensureID(&day.TransportationItems[j].ID)
		}
		for j := range day.Activities {
			ensureID(&day.Activities[j].ID)
		}
		if day.Hotel != nil {
			ensureID(&day.Hotel.ID)
		}
	}
	for j := range out.TourGuides {
		ensureID(&out.TourGuides[j].ID)
	}
	renumber(out.Days)
	return out
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func editDay(it TourItinerary, dayID string, fn func(day *DayItinerary) error) (TourItinerary, error) {
	idx := dayIndex(it, dayID)
	if idx < 0 {
		return it, dayNotFound()
	}
	out := it.Clone()
	if err := fn(&out.Days[idx]); err != nil {
		return it, err
	}
	return out, nil
}

func dayIndex(it TourItinerary, dayID string) int {
	for i, day := range it.Days {
		if day.ID == dayID {
			return i
		}
	}
	return -1
}

func renumber(days []DayItinerary) {
	for i := range days {
		days[i].Day = i + 1
	}
}

func without[T any](items []T, match func(T) bool) ([]T, bool) {
	out := make([]T, 0, len(items))
	found := false
	for _, item := range items {
		if match(item) {
			found = true
			continue
		}
		out = append(out, item)
	}
	return out, found
}

func foundOr(ok bool) error {
	if ok {
		return nil
	}
	return common.NewValidationError("item not found", ErrItemNotFound)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func emptyName(field string) error {
	return common.NewValidationError(field+" must not be empty", ErrEmptyName)
}

func dayNotFound() error {
	return common.NewValidationError("day not found", ErrDayNotFound)
}
