package invoice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/itinerary"
	"github.com/noah-isme/backend-tour/internal/lock"
	"github.com/noah-isme/backend-tour/internal/notify"
	"github.com/noah-isme/backend-tour/internal/obs"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

const (
	dateLayout   = "2006-01-02"
	sendLockTTL  = 2 * time.Minute
	sendLockName = "invoice-send:"
)

var (
	// ErrMissingCustomer is returned when the customer name or email is absent.
	ErrMissingCustomer = errors.New("customer name and email are required")
	// ErrPaidImmutable is returned when editing a paid invoice.
	ErrPaidImmutable = errors.New("paid invoices cannot be edited")
	// ErrDispatchFailed is returned when the email function reports a failure.
	ErrDispatchFailed = errors.New("invoice email dispatch failed")
)

// Renderer turns computed invoices into documents. Implementations never price.
type Renderer interface {
	InvoicePDF(inv Invoice) ([]byte, error)
	QuotePDF(it itinerary.TourItinerary, items []Item, totals Totals) ([]byte, error)
	InvoicesXLSX(invoices []Invoice) ([]byte, error)
}

// ItineraryLoader loads a stored itinerary owned by a user.
type ItineraryLoader interface {
	Load(ctx context.Context, userID, id string) (itinerary.TourItinerary, error)
}

// SendLocker keeps two sends of the same invoice from overlapping.
type SendLocker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service manages invoice lifecycle.
type Service struct {
	Store       Store
	Itineraries ItineraryLoader
	Renderer    Renderer
	Mailer      notify.Dispatcher
	SendLock    SendLocker
	Log         zerolog.Logger
	Now         func() time.Time
	DueDays     int
	CompanyName string
}

// CustomerInput identifies who is billed.
type CustomerInput struct {
	CustomerName  string `json:"customerName" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// ManualInput creates an invoice from hand-entered items.
type ManualInput struct {
	CustomerInput
	ItineraryID *string `json:"itineraryId"`
	Items       []Item  `json:"items"`
	Status      string  `json:"status"`
}

// FromItineraryInput creates an invoice by projecting a stored itinerary.
type FromItineraryInput struct {
	CustomerInput
	ItineraryID string `json:"itineraryId" validate:"required"`
	Status      string `json:"status"`
}

// UpdateInput replaces the editable parts of an invoice.
type UpdateInput struct {
	CustomerInput
	Items []Item `json:"items"`
}

// CreateManual stores an invoice built from the provided items.
func (s *Service) CreateManual(ctx context.Context, userID string, in ManualInput) (Invoice, error) {
	if err := s.ready(userID); err != nil {
		return Invoice{}, err
	}
	in.CustomerInput = in.CustomerInput.trimmed()
	if err := validateInput(in.CustomerInput, in); err != nil {
		return Invoice{}, err
	}
	status, err := InitialStatus(in.Status)
	if err != nil {
		return Invoice{}, err
	}
	inv, err := s.build(userID, in.CustomerInput, NormalizeItems(in.Items), status)
	if err != nil {
		return Invoice{}, err
	}
	if in.ItineraryID != nil && strings.TrimSpace(*in.ItineraryID) != "" {
		id := strings.TrimSpace(*in.ItineraryID)
		if _, err := uuid.Parse(id); err != nil {
			return Invoice{}, common.NewValidationError("itinerary id is invalid", err)
		}
		inv.ItineraryID = &id
	}
	return s.persist(ctx, inv, "manual")
}

// CreateFromItinerary projects a stored itinerary into a new invoice.
func (s *Service) CreateFromItinerary(ctx context.Context, userID string, in FromItineraryInput) (Invoice, error) {
	if err := s.ready(userID); err != nil {
		return Invoice{}, err
	}
	in.CustomerInput = in.CustomerInput.trimmed()
	in.ItineraryID = strings.TrimSpace(in.ItineraryID)
	if err := validateInput(in.CustomerInput, in); err != nil {
		return Invoice{}, err
	}
	status, err := InitialStatus(in.Status)
	if err != nil {
		return Invoice{}, err
	}
	if s.Itineraries == nil {
		return Invoice{}, common.NewDependencyError("itinerary source not configured", ErrStoreUnavailable)
	}
	it, err := s.Itineraries.Load(ctx, userID, in.ItineraryID)
	if err != nil {
		return Invoice{}, err
	}
	if it.NumberOfPeople < 1 {
		return Invoice{}, common.NewValidationError(pricing.ErrInvalidPeople.Error(), pricing.ErrInvalidPeople)
	}
	inv, err := s.build(userID, in.CustomerInput, ProjectFromItinerary(it), status)
	if err != nil {
		return Invoice{}, err
	}
	itineraryID := it.ID
	inv.ItineraryID = &itineraryID
	return s.persist(ctx, inv, "itinerary")
}

// Get loads one invoice.
func (s *Service) Get(ctx context.Context, userID, id string) (Invoice, error) {
	if err := s.ready(userID); err != nil {
		return Invoice{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Invoice{}, common.NewNotFoundError("invoice not found", ErrNotFound)
	}
	inv, err := s.Store.Get(ctx, userID, id)
	if err != nil {
		return Invoice{}, storeError("failed to load invoice", err)
	}
	return inv, nil
}

// List returns the caller's invoices.
func (s *Service) List(ctx context.Context, userID string) ([]Invoice, error) {
	if err := s.ready(userID); err != nil {
		return nil, err
	}
	invoices, err := s.Store.List(ctx, userID)
	if err != nil {
		return nil, common.NewDependencyError("failed to list invoices", err)
	}
	return invoices, nil
}

// Update replaces customer, dates and items, recomputing totals. Paid
// invoices are immutable.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Invoice, error) {
	in.CustomerInput = in.CustomerInput.trimmed()
	if err := validateInput(in.CustomerInput, in); err != nil {
		return Invoice{}, err
	}
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return Invoice{}, err
	}
	if current.Status == StatusPaid {
		return Invoice{}, common.NewConflictError(ErrPaidImmutable.Error(), ErrPaidImmutable)
	}
	next, err := s.build(userID, in.CustomerInput, NormalizeItems(in.Items), current.Status)
	if err != nil {
		return Invoice{}, err
	}
	next.ID = current.ID
	next.ItineraryID = current.ItineraryID
	next.CreatedAt = current.CreatedAt
	if strings.TrimSpace(in.Date) == "" {
		next.Date = current.Date
	}
	if strings.TrimSpace(in.DueDate) == "" {
		next.DueDate = current.DueDate
	}
	saved, err := s.Store.Update(ctx, next)
	if err != nil {
		return Invoice{}, storeError("failed to save invoice", err)
	}
	s.Log.Info().Str("invoice_id", id).Str("user_id", userID).Msg("invoice updated")
	return saved, nil
}

// Delete removes an invoice.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.ready(userID); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return common.NewNotFoundError("invoice not found", ErrNotFound)
	}
	if err := s.Store.Delete(ctx, userID, id); err != nil {
		return storeError("failed to delete invoice", err)
	}
	s.Log.Info().Str("invoice_id", id).Str("user_id", userID).Msg("invoice deleted")
	return nil
}

// UpdateStatus applies a manual status change such as marking an invoice paid.
func (s *Service) UpdateStatus(ctx context.Context, userID, id string, raw string) (Invoice, error) {
	to, err := ParseStatus(raw)
	if err != nil {
		return Invoice{}, err
	}
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return Invoice{}, err
	}
	return s.transition(ctx, current, to)
}

// Send renders the invoice PDF, emails it to the customer and marks the
// invoice sent. When dispatch fails the status is left unchanged. A send
// already in flight for the same invoice yields a Conflict.
func (s *Service) Send(ctx context.Context, userID, id string) (Invoice, error) {
	if s.SendLock == nil {
		return s.send(ctx, userID, id)
	}
	var sent Invoice
	err := s.SendLock.TryWithLock(ctx, sendLockName+id, sendLockTTL, func(ctx context.Context) error {
		var err error
		sent, err = s.send(ctx, userID, id)
		return err
	})
	switch {
	case errors.Is(err, lock.ErrHeld):
		return Invoice{}, common.NewConflictError("invoice is already being sent", err)
	case err != nil && !common.IsAppError(err):
		return Invoice{}, common.NewDependencyError("send lock unavailable", err)
	}
	return sent, err
}

func (s *Service) send(ctx context.Context, userID, id string) (Invoice, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return Invoice{}, err
	}
	if !CanTransition(inv.Status, StatusSent) {
		_, err := Transition(inv.Status, StatusSent)
		return Invoice{}, err
	}
	if s.Mailer == nil {
		return Invoice{}, common.NewDependencyError("email dispatch not configured", notify.ErrNotConfigured)
	}
	pdf, err := s.renderInvoice(inv)
	if err != nil {
		return Invoice{}, err
	}
	email := notify.InvoiceEmail{
		CompanyName:  s.CompanyName,
		CustomerName: inv.CustomerName,
		Reference:    inv.Reference(),
		Date:         inv.Date,
		DueDate:      inv.DueDate,
		Total:        pricing.FormatIDR(inv.Total.Money()),
	}
	body, err := email.HTML()
	if err != nil {
		return Invoice{}, err
	}
	result, err := s.Mailer.Send(ctx, notify.Message{
		To:             inv.CustomerEmail,
		Subject:        email.Subject(),
		HTMLBody:       body,
		PDFAttachment:  pdf,
		AttachmentName: inv.Reference() + ".pdf",
	})
	if err == nil && !result.Success {
		err = ErrDispatchFailed
		if result.Error != "" {
			err = errors.New(result.Error)
		}
	}
	if err != nil {
		s.Log.Error().Err(err).Str("invoice_id", inv.ID).Str("user_id", userID).Msg("invoice dispatch failed")
		return Invoice{}, common.NewDependencyError("failed to send invoice", err)
	}
	s.Log.Info().Str("invoice_id", inv.ID).Str("user_id", userID).Str("to", inv.CustomerEmail).Msg("invoice dispatched")
	return s.transition(ctx, inv, StatusSent)
}

// RenderPDF returns the invoice as a PDF document.
func (s *Service) RenderPDF(ctx context.Context, userID, id string) ([]byte, Invoice, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, Invoice{}, err
	}
	pdf, err := s.renderInvoice(inv)
	if err != nil {
		return nil, Invoice{}, err
	}
	return pdf, inv, nil
}

// QuotePDF renders a priced quote for a stored itinerary without creating an
// invoice.
func (s *Service) QuotePDF(ctx context.Context, userID, itineraryID string) ([]byte, itinerary.TourItinerary, error) {
	if err := s.ready(userID); err != nil {
		return nil, itinerary.TourItinerary{}, err
	}
	if s.Itineraries == nil || s.Renderer == nil {
		return nil, itinerary.TourItinerary{}, common.NewDependencyError("document rendering not configured", nil)
	}
	it, err := s.Itineraries.Load(ctx, userID, itineraryID)
	if err != nil {
		return nil, itinerary.TourItinerary{}, err
	}
	items := ProjectFromItinerary(it)
	pdf, err := s.Renderer.QuotePDF(it, items, ComputeInvoiceTotals(items))
	obs.IncDocumentRender("quote_pdf", err)
	if err != nil {
		return nil, itinerary.TourItinerary{}, common.NewDependencyError("failed to render quote", err)
	}
	return pdf, it, nil
}

// ExportXLSX renders every invoice of the caller into a spreadsheet.
func (s *Service) ExportXLSX(ctx context.Context, userID string) ([]byte, error) {
	invoices, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Renderer == nil {
		return nil, common.NewDependencyError("document rendering not configured", nil)
	}
	out, err := s.Renderer.InvoicesXLSX(invoices)
	obs.IncDocumentRender("invoices_xlsx", err)
	if err != nil {
		return nil, common.NewDependencyError("failed to export invoices", err)
	}
	return out, nil
}

func (s *Service) renderInvoice(inv Invoice) ([]byte, error) {
	if s.Renderer == nil {
		return nil, common.NewDependencyError("document rendering not configured", nil)
	}
	pdf, err := s.Renderer.InvoicePDF(inv)
	obs.IncDocumentRender("invoice_pdf", err)
	if err != nil {
		return nil, common.NewDependencyError("failed to render invoice", err)
	}
	return pdf, nil
}

func (s *Service) transition(ctx context.Context, inv Invoice, to Status) (Invoice, error) {
	from := inv.Status
	if _, err := Transition(from, to); err != nil {
		return Invoice{}, err
	}
	saved, err := s.Store.UpdateStatus(ctx, inv.UserID, inv.ID, to, s.now())
	if err != nil {
		return Invoice{}, storeError("failed to update invoice status", err)
	}
	if obs.InvoiceStatusTransitions != nil {
		obs.InvoiceStatusTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
	s.Log.Info().Str("invoice_id", inv.ID).Str("user_id", inv.UserID).Str("from", string(from)).Str("to", string(to)).Msg("invoice status changed")
	return saved, nil
}

func (s *Service) build(userID string, c CustomerInput, items []Item, status Status) (Invoice, error) {
	now := s.now()
	date := strings.TrimSpace(c.Date)
	if date == "" {
		date = now.Format(dateLayout)
	}
	issued, err := time.Parse(dateLayout, date)
	if err != nil {
		return Invoice{}, common.NewValidationError("date must be formatted as YYYY-MM-DD", err)
	}
	due := strings.TrimSpace(c.DueDate)
	if due == "" {
		due = issued.AddDate(0, 0, s.dueDays()).Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, due); err != nil {
		return Invoice{}, common.NewValidationError("due date must be formatted as YYYY-MM-DD", err)
	}
	inv := Invoice{
		ID:            uuid.NewString(),
		UserID:        userID,
		CustomerName:  strings.TrimSpace(c.CustomerName),
		CustomerEmail: strings.TrimSpace(c.CustomerEmail),
		Date:          date,
		DueDate:       due,
		Items:         items,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	inv.applyTotals(ComputeInvoiceTotals(items))
	return inv, nil
}

func (s *Service) persist(ctx context.Context, inv Invoice, source string) (Invoice, error) {
	saved, err := s.Store.Create(ctx, inv)
	if err != nil {
		return Invoice{}, common.NewDependencyError("failed to save invoice", err)
	}
	if obs.InvoicesCreatedTotal != nil {
		obs.InvoicesCreatedTotal.WithLabelValues(source).Inc()
	}
	s.Log.Info().Str("invoice_id", saved.ID).Str("user_id", saved.UserID).Str("source", source).Msg("invoice created")
	return saved, nil
}

func (c CustomerInput) trimmed() CustomerInput {
	return CustomerInput{
		CustomerName:  strings.TrimSpace(c.CustomerName),
		CustomerEmail: strings.TrimSpace(c.CustomerEmail),
		Date:          strings.TrimSpace(c.Date),
		DueDate:       strings.TrimSpace(c.DueDate),
	}
}

// validateInput keeps the missing-customer sentinel ahead of the tag rules.
func validateInput(c CustomerInput, in any) error {
	if err := validateCustomer(c); err != nil {
		return err
	}
	return common.ValidateStruct(in)
}

func validateCustomer(c CustomerInput) error {
	if strings.TrimSpace(c.CustomerName) == "" || strings.TrimSpace(c.CustomerEmail) == "" {
		return common.NewValidationError(ErrMissingCustomer.Error(), ErrMissingCustomer)
	}
	if err := common.Validator().Var(strings.TrimSpace(c.CustomerEmail), "email"); err != nil {
		return common.NewValidationError("customer email is invalid", err)
	}
	return nil
}

func (s *Service) ready(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return common.NewUnauthorizedError("authentication required")
	}
	if s == nil || s.Store == nil {
		return common.NewDependencyError("invoice store not configured", ErrStoreUnavailable)
	}
	return nil
}

func (s *Service) dueDays() int {
	if s.DueDays > 0 {
		return s.DueDays
	}
	return 14
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func storeError(message string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewNotFoundError("invoice not found", err)
	}
	return common.NewDependencyError(message, err)
}
