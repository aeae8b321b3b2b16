package itinerary

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-tour/internal/common"
)

const defaultPerPage = 50

// Handler exposes itinerary endpoints.
type Handler struct {
	Svc *Service
}

type saveRequest struct {
	Name           string         `json:"name" validate:"required"`
	StartDate      string         `json:"startDate" validate:"required,datetime=2006-01-02"`
	NumberOfPeople int            `json:"numberOfPeople" validate:"min=1"`
	Days           []DayItinerary `json:"days"`
	TourGuides     []TourGuide    `json:"tourGuides"`
}

func (r saveRequest) itinerary() TourItinerary {
	return TourItinerary{
		Name:           r.Name,
		StartDate:      r.StartDate,
		NumberOfPeople: r.NumberOfPeople,
		Days:           r.Days,
		TourGuides:     r.TourGuides,
	}
}

type editRequest struct {
	Itinerary TourItinerary `json:"itinerary"`
	Edit      EditRequest   `json:"edit"`
}

// Routes mounts the itinerary endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/draft", h.Draft)
	r.Post("/edit", h.Edit)
	r.Post("/breakdown", h.Breakdown)
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// Draft returns a fresh one-day itinerary.
func (h *Handler) Draft(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Svc.Draft()})
}

// Edit applies a single edit operation to a posted itinerary.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.ValidateStruct(req.Edit); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.Edit(req.Itinerary, req.Edit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Breakdown prices a posted itinerary without persisting it.
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	var it TourItinerary
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	b, err := h.Svc.Preview(it)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

// List returns the caller's itineraries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	views, err := h.Svc.List(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, defaultPerPage)
	data, meta := common.Paginate(views, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{"data": data, "pagination": meta})
}

// Create saves a new itinerary.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSave(w, r)
	if !ok {
		return
	}
	userID := common.RequestUser(r)
	view, err := h.Svc.Create(r.Context(), userID, req.itinerary())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get returns one itinerary with its breakdown.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	view, err := h.Svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Update overwrites an existing itinerary.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSave(w, r)
	if !ok {
		return
	}
	userID := common.RequestUser(r)
	view, err := h.Svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req.itinerary())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Delete removes an itinerary.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	if err := h.Svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeSave(w http.ResponseWriter, r *http.Request) (saveRequest, bool) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return saveRequest{}, false
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return saveRequest{}, false
	}
	return req, true
}
