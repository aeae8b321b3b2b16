package itinerary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrDecode marks a stored JSON blob that could not be decoded. Callers
// substitute an empty collection and log it.
var ErrDecode = errors.New("itinerary: malformed stored json")

type dayAlias DayItinerary

type dayWire struct {
	dayAlias
	Transportation *Transportation `json:"transportation"`
}

// MarshalJSON emits the legacy single transportation field as a view of the
// first leg so older readers keep working.
func (d DayItinerary) MarshalJSON() ([]byte, error) {
	wire := dayWire{dayAlias: dayAlias(d)}
	if wire.Destinations == nil {
		wire.Destinations = []Destination{}
	}
	if wire.Meals == nil {
		wire.Meals = []Meal{}
	}
	if wire.TransportationItems == nil {
		wire.TransportationItems = []Transportation{}
	}
	if wire.Activities == nil {
		wire.Activities = []Activity{}
	}
	if len(d.TransportationItems) > 0 {
		first := d.TransportationItems[0]
		wire.Transportation = &first
	}
	return json.Marshal(wire)
}

// UnmarshalJSON folds the legacy single transportation field into the
// collection, skipping it when a leg with the same id is already present.
func (d *DayItinerary) UnmarshalJSON(data []byte) error {
	var wire dayWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	day := DayItinerary(wire.dayAlias)
	if legacy := wire.Transportation; legacy != nil && !legacyEmpty(*legacy) {
		if legacy.ID == "" || !hasLeg(day.TransportationItems, legacy.ID) {
			if legacy.ID == "" {
				legacy.ID = uuid.NewString()
			}
			day.TransportationItems = append([]Transportation{*legacy}, day.TransportationItems...)
		}
	}
	*d = day
	return nil
}

func legacyEmpty(t Transportation) bool {
	return t.ID == "" && strings.TrimSpace(t.Type) == "" && strings.TrimSpace(t.Description) == "" && t.PricePerPerson.IsZero()
}

func hasLeg(legs []Transportation, id string) bool {
	for _, leg := range legs {
		if leg.ID == id {
			return true
		}
	}
	return false
}

type mealAlias Meal

// UnmarshalJSON upgrades legacy string meals to tagged meals. A string that
// names a meal type becomes that type; any other text becomes a lunch whose
// description is the text. Unknown types are normalised to lunch.
func (m *Meal) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*m = mealFromText(text)
		return nil
	}
	var alias mealAlias
	if err := json.Unmarshal(trimmed, &alias); err != nil {
		return err
	}
	meal := Meal(alias)
	meal.Type = normalizeMealType(string(meal.Type))
	if meal.ID == "" {
		meal.ID = uuid.NewString()
	}
	*m = meal
	return nil
}

func mealFromText(text string) Meal {
	text = strings.TrimSpace(text)
	meal := Meal{ID: uuid.NewString(), Type: MealLunch, Description: text}
	if t := MealType(strings.ToLower(text)); t.Valid() {
		meal.Type = t
		meal.Description = t.Label()
	}
	return meal
}

func normalizeMealType(raw string) MealType {
	t := MealType(strings.ToLower(strings.TrimSpace(raw)))
	if t.Valid() {
		return t
	}
	return MealLunch
}

// DecodeDays decodes a stored days blob. On failure it returns an empty slice
// together with an error wrapping ErrDecode.
func DecodeDays(raw []byte) ([]DayItinerary, error) {
	if isEmptyBlob(raw) {
		return []DayItinerary{}, nil
	}
	var days []DayItinerary
	if err := json.Unmarshal(raw, &days); err != nil {
		return []DayItinerary{}, fmt.Errorf("%w: days: %v", ErrDecode, err)
	}
	if days == nil {
		days = []DayItinerary{}
	}
	renumber(days)
	return days, nil
}

// DecodeGuides decodes a stored tour guides blob with the same fallback as
// DecodeDays.
func DecodeGuides(raw []byte) ([]TourGuide, error) {
	if isEmptyBlob(raw) {
		return []TourGuide{}, nil
	}
	var guides []TourGuide
	if err := json.Unmarshal(raw, &guides); err != nil {
		return []TourGuide{}, fmt.Errorf("%w: tour guides: %v", ErrDecode, err)
	}
	if guides == nil {
		guides = []TourGuide{}
	}
	return guides, nil
}

// EncodeDays serialises days for storage.
func EncodeDays(days []DayItinerary) ([]byte, error) {
	if days == nil {
		days = []DayItinerary{}
	}
	return json.Marshal(days)
}

// EncodeGuides serialises tour guides for storage.
func EncodeGuides(guides []TourGuide) ([]byte, error) {
	if guides == nil {
		guides = []TourGuide{}
	}
	return json.Marshal(guides)
}

func isEmptyBlob(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
