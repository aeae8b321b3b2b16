package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tour/internal/obs"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

var (
	// ErrStoreUnavailable indicates the invoice store is not configured.
	ErrStoreUnavailable = errors.New("invoice: store unavailable")
	// ErrNotFound is returned when no invoice matches the owner and id.
	ErrNotFound = errors.New("invoice: not found")
)

// Store persists invoices scoped by owner. Every write is a single statement.
type Store interface {
	List(ctx context.Context, userID string) ([]Invoice, error)
	Get(ctx context.Context, userID, id string) (Invoice, error)
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	Update(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateStatus(ctx context.Context, userID, id string, status Status, at time.Time) (Invoice, error)
	Delete(ctx context.Context, userID, id string) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool, log zerolog.Logger) Store {
	return &pgStore{pool: pool, log: log}
}

type pgStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

const returningColumns = `id::text, user_id, itinerary_id::text, customer_name, customer_email, to_char(date, 'YYYY-MM-DD'), to_char(due_date, 'YYYY-MM-DD'), items, subtotal::text, tax::text, total::text, status, created_at, updated_at`

func (s *pgStore) List(ctx context.Context, userID string) ([]Invoice, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+returningColumns+` FROM invoices WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Invoice, 0)
	for rows.Next() {
		inv, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, userID, id string) (Invoice, error) {
	if s == nil || s.pool == nil {
		return Invoice{}, ErrStoreUnavailable
	}
	inv, err := s.scan(s.pool.QueryRow(ctx, `SELECT `+returningColumns+` FROM invoices WHERE user_id = $1 AND id = $2`, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func (s *pgStore) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	if s == nil || s.pool == nil {
		return Invoice{}, ErrStoreUnavailable
	}
	items, err := EncodeItems(inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO invoices (id, user_id, itinerary_id, customer_name, customer_email, date, due_date, items, subtotal, tax, total, status, created_at, updated_at)
VALUES ($1, $2, $3::uuid, $4, $5, $6::date, $7::date, $8, $9::numeric, $10::numeric, $11::numeric, $12, $13, $13)
RETURNING `+returningColumns,
		inv.ID, inv.UserID, inv.ItineraryID, inv.CustomerName, inv.CustomerEmail, inv.Date, inv.DueDate, items,
		inv.Subtotal.String(), inv.Tax.String(), inv.Total.String(), string(inv.Status), inv.CreatedAt)
	return s.scan(row)
}

func (s *pgStore) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	if s == nil || s.pool == nil {
		return Invoice{}, ErrStoreUnavailable
	}
	items, err := EncodeItems(inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE invoices
SET customer_name = $3, customer_email = $4, date = $5::date, due_date = $6::date, items = $7,
    subtotal = $8::numeric, tax = $9::numeric, total = $10::numeric, updated_at = $11
WHERE user_id = $1 AND id = $2
RETURNING `+returningColumns,
		inv.UserID, inv.ID, inv.CustomerName, inv.CustomerEmail, inv.Date, inv.DueDate, items,
		inv.Subtotal.String(), inv.Tax.String(), inv.Total.String(), inv.UpdatedAt)
	updated, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return updated, err
}

func (s *pgStore) UpdateStatus(ctx context.Context, userID, id string, status Status, at time.Time) (Invoice, error) {
	if s == nil || s.pool == nil {
		return Invoice{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE invoices SET status = $3, updated_at = $4 WHERE user_id = $1 AND id = $2 RETURNING `+returningColumns,
		userID, id, string(status), at)
	updated, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return updated, err
}

func (s *pgStore) Delete(ctx context.Context, userID, id string) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) scan(row pgx.Row) (Invoice, error) {
	var (
		inv                  Invoice
		itineraryID          *string
		itemsRaw             []byte
		subtotal, tax, total string
		status               string
	)
	if err := row.Scan(&inv.ID, &inv.UserID, &itineraryID, &inv.CustomerName, &inv.CustomerEmail, &inv.Date, &inv.DueDate,
		&itemsRaw, &subtotal, &tax, &total, &status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return Invoice{}, err
	}
	inv.ItineraryID = itineraryID
	inv.Subtotal = pricing.ParseAmount(subtotal)
	inv.Tax = pricing.ParseAmount(tax)
	inv.Total = pricing.ParseAmount(total)
	inv.Status = Status(status)

	items, err := DecodeItems(itemsRaw)
	if err != nil {
		obs.IncBlobDecodeFailure("invoice_items")
		s.log.Warn().Err(err).Str("invoice_id", inv.ID).Str("user_id", inv.UserID).Msg("decode invoice items")
	}
	inv.Items = items
	return inv, nil
}
