package itinerary

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

func requireContiguous(t *testing.T, it TourItinerary) {
	t.Helper()
	for i, day := range it.Days {
		require.Equalf(t, i+1, day.Day, "day at position %d", i)
	}
}

func TestNewHasOneDay(t *testing.T) {
	it := New()
	require.Len(t, it.Days, 1)
	require.Equal(t, 1, it.Days[0].Day)
	require.NotEmpty(t, it.Days[0].ID)
	require.Equal(t, 1, it.NumberOfPeople)
	require.Empty(t, it.ID)
}

func TestRemoveMiddleDayRenumbers(t *testing.T) {
	it := New()
	it, _ = AddDay(it)
	it, _ = AddDay(it)
	require.Len(t, it.Days, 3)

	middle := it.Days[1].ID
	last := it.Days[2].ID
	out, err := RemoveDay(it, middle)
	require.NoError(t, err)
	require.Len(t, out.Days, 2)
	require.Equal(t, 1, out.Days[0].Day)
	require.Equal(t, 2, out.Days[1].Day)
	require.Equal(t, last, out.Days[1].ID)

	require.Len(t, it.Days, 3, "original must not change")
}

func TestRemoveLastRemainingDayRejected(t *testing.T) {
	it := New()
	out, err := RemoveDay(it, it.Days[0].ID)
	require.ErrorIs(t, err, ErrLastDay)
	require.True(t, common.HasCode(err, common.CodeValidation))
	require.Len(t, out.Days, 1)
}

func TestDayNumberingSurvivesRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	it := New()
	for i := 0; i < 200; i++ {
		var err error
		if rng.Intn(2) == 0 || len(it.Days) == 1 {
			it, err = AddDay(it)
		} else {
			it, err = RemoveDay(it, it.Days[rng.Intn(len(it.Days))].ID)
		}
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(it.Days), 1)
		requireContiguous(t, it)
	}
}

func TestAddTourGuideRejectsDuplicateNames(t *testing.T) {
	it := New()
	it, err := AddTourGuide(it, TourGuide{Name: "Bob", PricePerDay: pricing.NewAmount(100_000)})
	require.NoError(t, err)

	out, err := AddTourGuide(it, TourGuide{Name: "bob ", PricePerDay: pricing.NewAmount(150_000)})
	require.ErrorIs(t, err, ErrDuplicateGuide)
	require.True(t, common.HasCode(err, common.CodeConflict))
	require.Len(t, out.TourGuides, 1)
	require.Len(t, it.TourGuides, 1)
}

func TestAddRejectsBlankNames(t *testing.T) {
	it := New()
	dayID := it.Days[0].ID

	_, err := AddDestination(it, dayID, Destination{Name: "   "})
	require.ErrorIs(t, err, ErrEmptyName)
	_, err = AddActivity(it, dayID, Activity{Name: ""})
	require.ErrorIs(t, err, ErrEmptyName)
	_, err = AddMeal(it, dayID, Meal{Type: MealDinner, Description: "\t"})
	require.ErrorIs(t, err, ErrEmptyName)
	_, err = AddTourGuide(it, TourGuide{Name: " "})
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestAddAndRemoveItemsDoNotMutateInput(t *testing.T) {
	it := New()
	dayID := it.Days[0].ID

	withDest, err := AddDestination(it, dayID, Destination{Name: "Tanah Lot", PricePerPerson: pricing.NewAmount(60_000)})
	require.NoError(t, err)
	require.Empty(t, it.Days[0].Destinations)
	require.Len(t, withDest.Days[0].Destinations, 1)
	destID := withDest.Days[0].Destinations[0].ID
	require.NotEmpty(t, destID)

	withMeal, err := AddMeal(withDest, dayID, Meal{Type: "Breakfast", Description: "Hotel buffet", PricePerPerson: pricing.NewAmount(50_000)})
	require.NoError(t, err)
	require.Equal(t, MealBreakfast, withMeal.Days[0].Meals[0].Type)

	removed, err := RemoveDestination(withMeal, dayID, destID)
	require.NoError(t, err)
	require.Empty(t, removed.Days[0].Destinations)
	require.Len(t, withMeal.Days[0].Destinations, 1)

	_, err = RemoveDestination(removed, dayID, destID)
	require.ErrorIs(t, err, ErrItemNotFound)

	_, err = AddMeal(it, dayID, Meal{Type: "brunch", Description: "x"})
	require.ErrorIs(t, err, ErrInvalidMealType)
}

func TestSetHotelEmptyNameClears(t *testing.T) {
	it := New()
	dayID := it.Days[0].ID
	it, err := SetHotel(it, dayID, Hotel{Name: "Ayana", PricePerNight: pricing.NewAmount(1_200_000), RoomAmount: -2})
	require.NoError(t, err)
	require.NotNil(t, it.Days[0].Hotel)
	require.Equal(t, 0, it.Days[0].Hotel.RoomAmount)
	hotelID := it.Days[0].Hotel.ID

	it, err = SetHotel(it, dayID, Hotel{Name: "Ayana Resort", PricePerNight: pricing.NewAmount(1_500_000)})
	require.NoError(t, err)
	require.Equal(t, hotelID, it.Days[0].Hotel.ID)

	it, err = SetHotel(it, dayID, Hotel{Name: ""})
	require.NoError(t, err)
	require.Nil(t, it.Days[0].Hotel)
}

func TestSetTransportationReplacesFirstLeg(t *testing.T) {
	it := New()
	dayID := it.Days[0].ID
	it, err := AddTransportationItem(it, dayID, Transportation{Type: "boat", PricePerPerson: pricing.NewAmount(200_000)})
	require.NoError(t, err)
	it, err = AddTransportationItem(it, dayID, Transportation{Type: "van", PricePerPerson: pricing.NewAmount(300_000)})
	require.NoError(t, err)
	firstID := it.Days[0].TransportationItems[0].ID

	it, err = SetTransportation(it, dayID, Transportation{Type: "bus", PricePerPerson: pricing.NewAmount(250_000)})
	require.NoError(t, err)
	require.Len(t, it.Days[0].TransportationItems, 2)
	require.Equal(t, firstID, it.Days[0].TransportationItems[0].ID)
	require.Equal(t, "bus", it.Days[0].TransportationItems[0].Type)

	it, err = SetTransportation(it, dayID, Transportation{})
	require.NoError(t, err)
	require.Len(t, it.Days[0].TransportationItems, 1)
	require.Equal(t, "van", it.Days[0].TransportationItems[0].Type)

	legID := it.Days[0].TransportationItems[0].ID
	it, err = RemoveTransportationItem(it, dayID, legID)
	require.NoError(t, err)
	require.Empty(t, it.Days[0].TransportationItems)
}

func TestSetNumberOfPeopleAndStartDate(t *testing.T) {
	it := New()
	_, err := SetNumberOfPeople(it, 0)
	require.ErrorIs(t, err, ErrInvalidPeople)

	it, err = SetNumberOfPeople(it, 4)
	require.NoError(t, err)
	require.Equal(t, 4, it.NumberOfPeople)

	_, err = SetStartDate(it, "15/10/2026")
	require.ErrorIs(t, err, ErrInvalidDate)
	it, err = SetStartDate(it, "2026-10-15")
	require.NoError(t, err)
	require.Equal(t, "2026-10-15", it.StartDate)

	it, err = Rename(it, "  Bali Escape ")
	require.NoError(t, err)
	require.Equal(t, "Bali Escape", it.Name)
}

func TestApplyDispatchesNamedOperations(t *testing.T) {
	it := New()
	dayID := it.Days[0].ID

	it, err := Apply(it, EditRequest{Op: OpAddDestination, DayID: dayID, Destination: &Destination{Name: "Ubud", PricePerPerson: pricing.NewAmount(40_000)}})
	require.NoError(t, err)
	require.Len(t, it.Days[0].Destinations, 1)

	it, err = Apply(it, EditRequest{Op: OpAddDay})
	require.NoError(t, err)
	require.Len(t, it.Days, 2)

	_, err = Apply(it, EditRequest{Op: OpAddMeal, DayID: dayID})
	require.True(t, common.HasCode(err, common.CodeValidation))

	out, err := Apply(it, EditRequest{Op: "teleport"})
	require.True(t, errors.Is(err, ErrUnknownOp))
	require.Len(t, out.Days, 2)
}

func TestNormalizeFillsIDsAndNumbers(t *testing.T) {
	it := TourItinerary{
		NumberOfPeople: 2,
		Days: []DayItinerary{
			{Day: 4, Destinations: []Destination{{Name: "A"}}},
			{Day: 9},
		},
		TourGuides: []TourGuide{{Name: "Made"}},
	}
	out := Normalize(it)
	requireContiguous(t, out)
	require.NotEmpty(t, out.Days[0].ID)
	require.NotEmpty(t, out.Days[0].Destinations[0].ID)
	require.NotEmpty(t, out.TourGuides[0].ID)
	require.Empty(t, it.Days[0].ID)
}
