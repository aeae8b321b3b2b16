package calendar

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/itinerary"
)

// TokenHeader carries the caller's Google OAuth access token.
const TokenHeader = "X-Google-Access-Token"

// ItineraryLoader loads a stored itinerary owned by a user.
type ItineraryLoader interface {
	Load(ctx context.Context, userID, id string) (itinerary.TourItinerary, error)
}

// Handler exposes the calendar export endpoint.
type Handler struct {
	Itineraries ItineraryLoader
	Exporter    *Exporter
}

// Export writes the itinerary's days to the caller's calendar. The calendar
// defaults to "primary" and can be chosen with ?calendarId=.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.NewUnauthorizedError("authentication required"))
		return
	}
	token := r.Header.Get(TokenHeader)
	if token == "" {
		common.WriteError(w, common.NewValidationError(ErrMissingToken.Error(), ErrMissingToken))
		return
	}
	it, err := h.Itineraries.Load(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	created, err := h.Exporter.Export(r.Context(), token, r.URL.Query().Get("calendarId"), it)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}
