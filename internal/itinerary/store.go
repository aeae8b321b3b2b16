package itinerary

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
	// ErrStoreUnavailable indicates the itinerary store is not configured.
	ErrStoreUnavailable = errors.New("itinerary: store unavailable")
	// ErrNotFound is returned when no itinerary matches the owner and id.
	ErrNotFound = errors.New("itinerary: not found")
)

// Store persists itineraries scoped by owner.
type Store interface {
	List(ctx context.Context, userID string) ([]TourItinerary, error)
	Get(ctx context.Context, userID, id string) (TourItinerary, error)
	Create(ctx context.Context, it TourItinerary, total pricing.Money) (TourItinerary, error)
	Update(ctx context.Context, it TourItinerary, total pricing.Money) (TourItinerary, error)
	Delete(ctx context.Context, userID, id string) error
}

// NewStore constructs a Store backed by a pgx connection pool. Blobs that
// fail to decode are logged and replaced by empty collections.
func NewStore(pool *pgxpool.Pool, log zerolog.Logger) Store {
	return &pgStore{pool: pool, log: log}
}

type pgStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

const selectColumns = `SELECT id::text, user_id, name, COALESCE(to_char(start_date, 'YYYY-MM-DD'), ''), number_of_people, days, tour_guides, created_at, updated_at FROM itineraries`

func (s *pgStore) List(ctx context.Context, userID string) ([]TourItinerary, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TourItinerary, 0)
	for rows.Next() {
		it, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, userID, id string) (TourItinerary, error) {
	if s == nil || s.pool == nil {
		return TourItinerary{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, selectColumns+` WHERE user_id = $1 AND id = $2`, userID, id)
	it, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TourItinerary{}, ErrNotFound
	}
	return it, err
}

func (s *pgStore) Create(ctx context.Context, it TourItinerary, total pricing.Money) (TourItinerary, error) {
	if s == nil || s.pool == nil {
		return TourItinerary{}, ErrStoreUnavailable
	}
	days, guides, err := encodeBlobs(it)
	if err != nil {
		return TourItinerary{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO itineraries (id, user_id, name, start_date, number_of_people, days, tour_guides, total_price, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, '')::date, $5, $6, $7, $8::numeric, $9, $9)
RETURNING id::text, user_id, name, COALESCE(to_char(start_date, 'YYYY-MM-DD'), ''), number_of_people, days, tour_guides, created_at, updated_at`,
		it.ID, it.UserID, it.Name, it.StartDate, it.NumberOfPeople, days, guides, total.String(), it.CreatedAt)
	return s.scan(row)
}

func (s *pgStore) Update(ctx context.Context, it TourItinerary, total pricing.Money) (TourItinerary, error) {
	if s == nil || s.pool == nil {
		return TourItinerary{}, ErrStoreUnavailable
	}
	days, guides, err := encodeBlobs(it)
	if err != nil {
		return TourItinerary{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE itineraries
SET name = $3, start_date = NULLIF($4, '')::date, number_of_people = $5, days = $6, tour_guides = $7, total_price = $8::numeric, updated_at = $9
WHERE user_id = $1 AND id = $2
RETURNING id::text, user_id, name, COALESCE(to_char(start_date, 'YYYY-MM-DD'), ''), number_of_people, days, tour_guides, created_at, updated_at`,
		it.UserID, it.ID, it.Name, it.StartDate, it.NumberOfPeople, days, guides, total.String(), it.UpdatedAt)
	updated, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TourItinerary{}, ErrNotFound
	}
	return updated, err
}

func (s *pgStore) Delete(ctx context.Context, userID, id string) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM itineraries WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) scan(row pgx.Row) (TourItinerary, error) {
	var (
		it        TourItinerary
		daysRaw   []byte
		guidesRaw []byte
		created   time.Time
		updated   time.Time
	)
	if err := row.Scan(&it.ID, &it.UserID, &it.Name, &it.StartDate, &it.NumberOfPeople, &daysRaw, &guidesRaw, &created, &updated); err != nil {
		return TourItinerary{}, err
	}
	it.CreatedAt = created
	it.UpdatedAt = updated

	days, err := DecodeDays(daysRaw)
	if err != nil {
		obs.IncBlobDecodeFailure("itinerary_days")
		s.log.Warn().Err(err).Str("itinerary_id", it.ID).Str("user_id", it.UserID).Msg("decode itinerary days")
	}
	guides, err := DecodeGuides(guidesRaw)
	if err != nil {
		obs.IncBlobDecodeFailure("itinerary_tour_guides")
		s.log.Warn().Err(err).Str("itinerary_id", it.ID).Str("user_id", it.UserID).Msg("decode itinerary tour guides")
	}
	it.Days = days
	it.TourGuides = guides
	return it, nil
}

func encodeBlobs(it TourItinerary) ([]byte, []byte, error) {
	days, err := EncodeDays(it.Days)
	if err != nil {
		return nil, nil, err
	}
	guides, err := EncodeGuides(it.TourGuides)
	if err != nil {
		return nil, nil, err
	}
	return days, guides, nil
}
