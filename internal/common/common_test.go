package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRejectsReplay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	calls := 0
	h := Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	send := func(userID, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusCreated, send("user-1", "abc").Code)
	replay := send("user-1", "abc")
	require.Equal(t, http.StatusConflict, replay.Code)
	require.Contains(t, replay.Body.String(), CodeIdempotentReplay)
	require.Equal(t, http.StatusCreated, send("user-2", "abc").Code)
	require.Equal(t, http.StatusCreated, send("user-1", "").Code)
	require.Equal(t, http.StatusCreated, send("user-1", "").Code)
	require.Equal(t, 4, calls)

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusCreated, send("user-1", "abc").Code)
}

func TestIdempotencyStoreFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()
	h := Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
	req.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page, meta := Paginate(items, 2, 2)
	require.Equal(t, []int{3, 4}, page)
	require.Equal(t, Pagination{Page: 2, PerPage: 2, TotalItems: 5}, meta)

	page, _ = Paginate(items, 3, 2)
	require.Equal(t, []int{5}, page)

	page, _ = Paginate(items, 9, 2)
	require.Empty(t, page)
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=0&limit=1000", nil)
	page, perPage := ParsePagination(req, 50)
	require.Equal(t, 1, page)
	require.Equal(t, MaxPerPage, perPage)

	req = httptest.NewRequest(http.MethodGet, "/?page=3&limit=x", nil)
	page, perPage = ParsePagination(req, 50)
	require.Equal(t, 3, page)
	require.Equal(t, 50, perPage)
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NewDependencyError("failed to send invoice", errors.New("smtp down")))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.JSONEq(t, `{"error":{"code":"DEPENDENCY_ERROR","message":"failed to send invoice: smtp down"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":{"code":"INTERNAL","message":"internal error"}}`, rec.Body.String())
}

func TestValidateStructDetails(t *testing.T) {
	type payload struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	}
	err := ValidateStruct(payload{Email: "nope"})
	require.True(t, HasCode(err, CodeValidation))
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, map[string]string{"name": "required", "email": "email"}, appErr.Details)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:51234"
	require.Equal(t, "10.0.0.9", ClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.4")
	require.Equal(t, "172.16.0.4", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	require.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestRequestUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, RequestUser(req))

	req = req.WithContext(WithUserID(req.Context(), ""))
	_, ok := UserID(req.Context())
	require.False(t, ok, "empty subject is not a user")

	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	require.Equal(t, "user-1", RequestUser(req))
}
