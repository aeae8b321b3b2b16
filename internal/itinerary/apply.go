package itinerary

import (
	"errors"

	"github.com/noah-isme/backend-tour/internal/common"
)

// Edit operation names accepted by Apply.
const (
	OpAddDay                   = "add_day"
	OpRemoveDay                = "remove_day"
	OpAddDestination           = "add_destination"
	OpRemoveDestination        = "remove_destination"
	OpAddMeal                  = "add_meal"
	OpRemoveMeal               = "remove_meal"
	OpAddActivity              = "add_activity"
	OpRemoveActivity           = "remove_activity"
	OpSetHotel                 = "set_hotel"
	OpSetTransportation        = "set_transportation"
	OpAddTransportationItem    = "add_transportation_item"
	OpRemoveTransportationItem = "remove_transportation_item"
	OpAddTourGuide             = "add_tour_guide"
	OpRemoveTourGuide          = "remove_tour_guide"
	OpSetNumberOfPeople        = "set_number_of_people"
	OpRename                   = "rename"
	OpSetStartDate             = "set_start_date"
)

// ErrUnknownOp is returned for an unrecognised operation name.
var ErrUnknownOp = errors.New("unknown edit operation")

// EditRequest names one edit operation and carries its arguments.
type EditRequest struct {
	Op             string          `json:"op" validate:"required"`
	DayID          string          `json:"dayId,omitempty"`
	ItemID         string          `json:"itemId,omitempty"`
	Destination    *Destination    `json:"destination,omitempty"`
	Meal           *Meal           `json:"meal,omitempty"`
	Activity       *Activity       `json:"activity,omitempty"`
	Hotel          *Hotel          `json:"hotel,omitempty"`
	Transportation *Transportation `json:"transportation,omitempty"`
	TourGuide      *TourGuide      `json:"tourGuide,omitempty"`
	NumberOfPeople int             `json:"numberOfPeople,omitempty"`
	Name           string          `json:"name,omitempty"`
	StartDate      string          `json:"startDate,omitempty"`
}

// Apply runs the named edit operation against it. On error the original
// aggregate is returned unchanged.
func Apply(it TourItinerary, req EditRequest) (TourItinerary, error) {
	switch req.Op {
	case OpAddDay:
		return AddDay(it)
	case OpRemoveDay:
		return RemoveDay(it, req.DayID)
	case OpAddDestination:
		if req.Destination == nil {
			return it, missingArg("destination")
		}
		return AddDestination(it, req.DayID, *req.Destination)
	case OpRemoveDestination:
		return RemoveDestination(it, req.DayID, req.ItemID)
	case OpAddMeal:
		if req.Meal == nil {
			return it, missingArg("meal")
		}
		return AddMeal(it, req.DayID, *req.Meal)
	case OpRemoveMeal:
		return RemoveMeal(it, req.DayID, req.ItemID)
	case OpAddActivity:
		if req.Activity == nil {
			return it, missingArg("activity")
		}
		return AddActivity(it, req.DayID, *req.Activity)
	case OpRemoveActivity:
		return RemoveActivity(it, req.DayID, req.ItemID)
	case OpSetHotel:
		var h Hotel
		if req.Hotel != nil {
			h = *req.Hotel
		}
		return SetHotel(it, req.DayID, h)
	case OpSetTransportation:
		var t Transportation
		if req.Transportation != nil {
			t = *req.Transportation
		}
		return SetTransportation(it, req.DayID, t)
	case OpAddTransportationItem:
		if req.Transportation == nil {
			return it, missingArg("transportation")
		}
		return AddTransportationItem(it, req.DayID, *req.Transportation)
	case OpRemoveTransportationItem:
		return RemoveTransportationItem(it, req.DayID, req.ItemID)
	case OpAddTourGuide:
		if req.TourGuide == nil {
			return it, missingArg("tourGuide")
		}
		return AddTourGuide(it, *req.TourGuide)
	case OpRemoveTourGuide:
		return RemoveTourGuide(it, req.ItemID)
	case OpSetNumberOfPeople:
		return SetNumberOfPeople(it, req.NumberOfPeople)
	case OpRename:
		return Rename(it, req.Name)
	case OpSetStartDate:
		return SetStartDate(it, req.StartDate)
	default:
		return it, common.NewValidationError("unknown edit operation "+req.Op, ErrUnknownOp)
	}
}

func missingArg(name string) error {
	return common.NewValidationError(name+" is required for this operation", nil)
}
