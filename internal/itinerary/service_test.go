package itinerary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

type memStore struct {
	mu     sync.Mutex
	items  map[string]TourItinerary
	totals map[string]pricing.Money
	calls  int
	err    error
}

func newMemStore() *memStore {
	return &memStore{items: map[string]TourItinerary{}, totals: map[string]pricing.Money{}}
}

func (m *memStore) List(_ context.Context, userID string) ([]TourItinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := []TourItinerary{}
	for _, it := range m.items {
		if it.UserID == userID {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) Get(_ context.Context, userID, id string) (TourItinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	it, ok := m.items[id]
	if !ok || it.UserID != userID {
		return TourItinerary{}, ErrNotFound
	}
	return it.Clone(), nil
}

func (m *memStore) Create(_ context.Context, it TourItinerary, total pricing.Money) (TourItinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return TourItinerary{}, m.err
	}
	m.items[it.ID] = it.Clone()
	m.totals[it.ID] = total
	return it, nil
}

func (m *memStore) Update(_ context.Context, it TourItinerary, total pricing.Money) (TourItinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	existing, ok := m.items[it.ID]
	if !ok || existing.UserID != it.UserID {
		return TourItinerary{}, ErrNotFound
	}
	it.CreatedAt = existing.CreatedAt
	m.items[it.ID] = it.Clone()
	m.totals[it.ID] = total
	return it, nil
}

func (m *memStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	it, ok := m.items[id]
	if !ok || it.UserID != userID {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func newTestService(store Store) *Service {
	return &Service{
		Store: store,
		Log:   zerolog.Nop(),
		Now:   func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) },
	}
}

func sampleItinerary(t *testing.T) TourItinerary {
	t.Helper()
	it := New()
	it, err := Rename(it, "Bali 3D2N")
	require.NoError(t, err)
	it, err = SetStartDate(it, "2026-11-01")
	require.NoError(t, err)
	it, err = SetNumberOfPeople(it, 2)
	require.NoError(t, err)
	it, err = AddDestination(it, it.Days[0].ID, Destination{Name: "Uluwatu", PricePerPerson: pricing.NewAmount(50_000)})
	require.NoError(t, err)
	it, err = AddDestination(it, it.Days[0].ID, Destination{Name: "Kecak", PricePerPerson: pricing.NewAmount(30_000)})
	require.NoError(t, err)
	return it
}

func TestCreateValidatesBeforeStoreCall(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	cases := map[string]func(TourItinerary) TourItinerary{
		"name":   func(it TourItinerary) TourItinerary { it.Name = " "; return it },
		"date":   func(it TourItinerary) TourItinerary { it.StartDate = ""; return it },
		"people": func(it TourItinerary) TourItinerary { it.NumberOfPeople = 0; return it },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "user-1", mutate(sampleItinerary(t)))
			require.True(t, common.HasCode(err, common.CodeValidation), "got %v", err)
		})
	}
	require.Zero(t, store.calls)
}

func TestSaveRejectsCaseInsensitiveDuplicateGuides(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	it := sampleItinerary(t)
	it.TourGuides = []TourGuide{
		{ID: "g1", Name: "Bob", PricePerDay: pricing.NewAmount(100000)},
		{ID: "g2", Name: " bob ", PricePerDay: pricing.NewAmount(100000)},
	}

	_, err := svc.Create(context.Background(), "user-1", it)
	require.True(t, common.HasCode(err, common.CodeConflict), "got %v", err)
	require.ErrorIs(t, err, ErrDuplicateGuide)

	_, err = svc.Update(context.Background(), "user-1", "7d4f8a6e-2f1b-4c8e-9a3d-0b1c2d3e4f50", it)
	require.True(t, common.HasCode(err, common.CodeConflict), "got %v", err)
	require.Zero(t, store.calls)

	_, err = svc.Edit(it, EditRequest{Op: "rename", Name: "Bali"})
	require.ErrorIs(t, err, ErrDuplicateGuide)

	_, err = svc.Preview(it)
	require.ErrorIs(t, err, ErrDuplicateGuide)
}

func TestCreateRequiresSession(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	_, err := svc.Create(context.Background(), "", sampleItinerary(t))
	require.True(t, common.HasCode(err, common.CodeUnauthorized))
	require.Zero(t, store.calls)
}

func TestCreateStoresRecomputedTotal(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	view, err := svc.Create(context.Background(), "user-1", sampleItinerary(t))
	require.NoError(t, err)
	require.NotEmpty(t, view.Itinerary.ID)
	require.Equal(t, "user-1", view.Itinerary.UserID)
	require.Equal(t, "184000", view.Breakdown.Total.String())
	require.Equal(t, "92000", view.Breakdown.PerPersonTotal.String())
	require.Equal(t, "184000", store.totals[view.Itinerary.ID].String())
}

func TestGetIsOwnerScoped(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	view, err := svc.Create(context.Background(), "user-1", sampleItinerary(t))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "user-2", view.Itinerary.ID)
	require.True(t, common.HasCode(err, common.CodeNotFound))

	_, err = svc.Get(context.Background(), "user-1", "not-a-uuid")
	require.True(t, common.HasCode(err, common.CodeNotFound))

	got, err := svc.Get(context.Background(), "user-1", view.Itinerary.ID)
	require.NoError(t, err)
	require.Equal(t, "Bali 3D2N", got.Itinerary.Name)
}

func TestStoreFailureIsDependencyError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), "user-1", sampleItinerary(t))
	require.True(t, common.HasCode(err, common.CodeDependency))
	require.Contains(t, err.Error(), "connection refused")
}

func TestUpdateAndDelete(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	view, err := svc.Create(context.Background(), "user-1", sampleItinerary(t))
	require.NoError(t, err)

	it := view.Itinerary
	it, err = AddDay(it)
	require.NoError(t, err)
	updated, err := svc.Update(context.Background(), "user-1", it.ID, it)
	require.NoError(t, err)
	require.Len(t, updated.Itinerary.Days, 2)

	require.NoError(t, svc.Delete(context.Background(), "user-1", it.ID))
	err = svc.Delete(context.Background(), "user-1", it.ID)
	require.True(t, common.HasCode(err, common.CodeNotFound))
}

func newTestRouter(svc *Service, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(common.WithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	h := &Handler{Svc: svc}
	r.Route("/itineraries", h.Routes)
	return r
}

func TestEditEndpointReturnsBreakdown(t *testing.T) {
	router := newTestRouter(newTestService(newMemStore()), "user-1")
	it := New()
	it.NumberOfPeople = 2
	body, err := json.Marshal(map[string]any{
		"itinerary": it,
		"edit": map[string]any{
			"op":          OpAddDestination,
			"dayId":       it.Days[0].ID,
			"destination": map[string]any{"name": "Uluwatu", "pricePerPerson": "50000"},
		},
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/itineraries/edit", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Data struct {
			Itinerary TourItinerary `json:"itinerary"`
			Breakdown struct {
				DestinationsTotal json.Number `json:"destinationsTotal"`
				Total             json.Number `json:"total"`
			} `json:"breakdown"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Itinerary.Days[0].Destinations, 1)
	require.Equal(t, "100000", resp.Data.Breakdown.DestinationsTotal.String())
	require.Equal(t, "115000", resp.Data.Breakdown.Total.String())
}

func TestEditEndpointRejectsDuplicateGuide(t *testing.T) {
	router := newTestRouter(newTestService(newMemStore()), "user-1")
	it, err := AddTourGuide(New(), TourGuide{Name: "Bob"})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"itinerary": it,
		"edit":      map[string]any{"op": OpAddTourGuide, "tourGuide": map[string]any{"name": "BOB"}},
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/itineraries/edit", bytes.NewReader(body)))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), common.CodeConflict)
}

func TestCreateEndpointValidatesPayload(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(newTestService(store), "user-1")
	body := []byte(`{"name":"","startDate":"2026-13-40","numberOfPeople":0}`)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/itineraries", bytes.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, common.CodeValidation, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "name")
	require.Zero(t, store.calls)
}

func TestCreateEndpointPersists(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(newTestService(store), "user-1")
	body, err := json.Marshal(sampleItinerary(t))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/itineraries", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, store.items, 1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/itineraries", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Bali 3D2N")
	require.Contains(t, rr.Body.String(), `"total_items":1`)
}
