package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-tour/internal/common"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const defaultPerPage = 50

// Handler exposes invoice endpoints.
type Handler struct {
	Svc *Service
	// Send wraps the send endpoint, typically with a rate limiter.
	Send func(http.Handler) http.Handler
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Routes mounts the invoice endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/from-itinerary", h.CreateFromItinerary)
	r.Get("/export.xlsx", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Get("/{id}/pdf", h.PDF)
	if h.Send != nil {
		r.With(h.Send).Post("/{id}/send", h.SendInvoice)
	} else {
		r.Post("/{id}/send", h.SendInvoice)
	}
}

// List returns the caller's invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	invoices, err := h.Svc.List(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, defaultPerPage)
	data, meta := common.Paginate(invoices, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{"data": data, "pagination": meta})
}

// Create stores a manual invoice.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req ManualInput
	if !decode(w, r, &req) {
		return
	}
	userID := common.RequestUser(r)
	inv, err := h.Svc.CreateManual(r.Context(), userID, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": inv})
}

// CreateFromItinerary projects a stored itinerary into a new invoice.
func (h *Handler) CreateFromItinerary(w http.ResponseWriter, r *http.Request) {
	var req FromItineraryInput
	if !decode(w, r, &req) {
		return
	}
	userID := common.RequestUser(r)
	inv, err := h.Svc.CreateFromItinerary(r.Context(), userID, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": inv})
}

// Get returns one invoice.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	inv, err := h.Svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Update replaces customer details and items.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateInput
	if !decode(w, r, &req) {
		return
	}
	userID := common.RequestUser(r)
	inv, err := h.Svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Delete removes an invoice.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	if err := h.Svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus applies a manual status change.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	userID := common.RequestUser(r)
	inv, err := h.Svc.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// SendInvoice emails the invoice PDF and marks it sent.
func (h *Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	inv, err := h.Svc.Send(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// PDF downloads the invoice document.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	pdf, inv, err := h.Svc.RenderPDF(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeDocument(w, contentTypePDF, inv.Reference()+".pdf", pdf)
}

// Export downloads every invoice of the caller as a spreadsheet.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	out, err := h.Svc.ExportXLSX(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeDocument(w, contentTypeXLSX, "invoices.xlsx", out)
}

// Quote downloads a priced quote PDF for a stored itinerary. It is mounted
// under the itinerary routes.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	userID := common.RequestUser(r)
	pdf, it, err := h.Svc.QuotePDF(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	name := "quote.pdf"
	if len(it.ID) >= 8 {
		name = "quote-" + it.ID[:8] + ".pdf"
	}
	writeDocument(w, contentTypePDF, name, pdf)
}

func writeDocument(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, ErrInvalidQuantity) {
			common.WriteError(w, common.NewValidationError(ErrInvalidQuantity.Error(), err))
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	return true
}
