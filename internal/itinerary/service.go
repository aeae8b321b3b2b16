package itinerary

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

// View pairs an itinerary with its freshly computed breakdown.
type View struct {
	Itinerary TourItinerary     `json:"itinerary"`
	Breakdown pricing.Breakdown `json:"breakdown"`
}

// Service coordinates itinerary persistence. Totals are always recomputed
// from the aggregate before they are stored or returned.
type Service struct {
	Store Store
	Log   zerolog.Logger
	Now   func() time.Time
}

// Draft returns a new in-memory itinerary.
func (s *Service) Draft() View {
	it := New()
	b, _ := it.Breakdown()
	return View{Itinerary: it, Breakdown: b}
}

// Edit applies one edit operation to a client-held aggregate.
func (s *Service) Edit(it TourItinerary, req EditRequest) (View, error) {
	if err := CheckUniqueGuides(it); err != nil {
		return View{}, err
	}
	next, err := Apply(Normalize(it), req)
	if err != nil {
		return View{}, err
	}
	b, err := next.Breakdown()
	if err != nil {
		return View{}, err
	}
	return View{Itinerary: next, Breakdown: b}, nil
}

// Preview computes the full breakdown of a client-held aggregate.
func (s *Service) Preview(it TourItinerary) (pricing.Breakdown, error) {
	if err := CheckUniqueGuides(it); err != nil {
		return pricing.Breakdown{}, err
	}
	return it.Breakdown()
}

// ValidateForSave checks the fields required before persistence.
func ValidateForSave(it TourItinerary) error {
	if blank(it.Name) {
		return common.NewValidationError("itinerary name is required", ErrEmptyName)
	}
	if blank(it.StartDate) {
		return common.NewValidationError("start date is required", ErrInvalidDate)
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(it.StartDate)); err != nil {
		return common.NewValidationError(ErrInvalidDate.Error(), ErrInvalidDate)
	}
	if it.NumberOfPeople < 1 {
		return common.NewValidationError(ErrInvalidPeople.Error(), ErrInvalidPeople)
	}
	return CheckUniqueGuides(it)
}

// List returns the owner's itineraries with recomputed totals.
func (s *Service) List(ctx context.Context, userID string) ([]View, error) {
	if err := s.ready(userID); err != nil {
		return nil, err
	}
	items, err := s.Store.List(ctx, userID)
	if err != nil {
		return nil, common.NewDependencyError("failed to list itineraries", err)
	}
	out := make([]View, 0, len(items))
	for _, it := range items {
		out = append(out, s.view(it))
	}
	return out, nil
}

// Get loads one itinerary owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (View, error) {
	it, err := s.Load(ctx, userID, id)
	if err != nil {
		return View{}, err
	}
	return s.view(it), nil
}

// Load returns the stored aggregate without computing a breakdown.
func (s *Service) Load(ctx context.Context, userID, id string) (TourItinerary, error) {
	if err := s.ready(userID); err != nil {
		return TourItinerary{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return TourItinerary{}, common.NewNotFoundError("itinerary not found", ErrNotFound)
	}
	it, err := s.Store.Get(ctx, userID, id)
	if err != nil {
		return TourItinerary{}, storeError("failed to load itinerary", err)
	}
	return it, nil
}

// Create persists a new itinerary for userID.
func (s *Service) Create(ctx context.Context, userID string, it TourItinerary) (View, error) {
	if err := s.ready(userID); err != nil {
		return View{}, err
	}
	if err := ValidateForSave(it); err != nil {
		return View{}, err
	}
	it = Normalize(it)
	now := s.now()
	it.ID = uuid.NewString()
	it.UserID = userID
	it.Name = strings.TrimSpace(it.Name)
	it.StartDate = strings.TrimSpace(it.StartDate)
	it.CreatedAt = now
	it.UpdatedAt = now
	b, err := it.Breakdown()
	if err != nil {
		return View{}, err
	}
	saved, err := s.Store.Create(ctx, it, b.Total.Money())
	if err != nil {
		return View{}, common.NewDependencyError("failed to save itinerary", err)
	}
	s.Log.Info().Str("itinerary_id", saved.ID).Str("user_id", userID).Msg("itinerary created")
	return s.view(saved), nil
}

// Update overwrites an existing itinerary. Last write wins.
func (s *Service) Update(ctx context.Context, userID, id string, it TourItinerary) (View, error) {
	if err := s.ready(userID); err != nil {
		return View{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return View{}, common.NewNotFoundError("itinerary not found", ErrNotFound)
	}
	if err := ValidateForSave(it); err != nil {
		return View{}, err
	}
	it = Normalize(it)
	it.ID = id
	it.UserID = userID
	it.Name = strings.TrimSpace(it.Name)
	it.StartDate = strings.TrimSpace(it.StartDate)
	it.UpdatedAt = s.now()
	b, err := it.Breakdown()
	if err != nil {
		return View{}, err
	}
	saved, err := s.Store.Update(ctx, it, b.Total.Money())
	if err != nil {
		return View{}, storeError("failed to save itinerary", err)
	}
	s.Log.Info().Str("itinerary_id", id).Str("user_id", userID).Msg("itinerary updated")
	return s.view(saved), nil
}

// Delete removes an itinerary owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.ready(userID); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return common.NewNotFoundError("itinerary not found", ErrNotFound)
	}
	if err := s.Store.Delete(ctx, userID, id); err != nil {
		return storeError("failed to delete itinerary", err)
	}
	s.Log.Info().Str("itinerary_id", id).Str("user_id", userID).Msg("itinerary deleted")
	return nil
}

func (s *Service) view(it TourItinerary) View {
	b, err := it.Breakdown()
	if err != nil {
		s.Log.Warn().Err(err).Str("itinerary_id", it.ID).Msg("compute itinerary breakdown")
	}
	return View{Itinerary: it, Breakdown: b}
}

func (s *Service) ready(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return common.NewUnauthorizedError("authentication required")
	}
	if s == nil || s.Store == nil {
		return common.NewDependencyError("itinerary store not configured", ErrStoreUnavailable)
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func storeError(message string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewNotFoundError("itinerary not found", err)
	}
	return common.NewDependencyError(message, err)
}
