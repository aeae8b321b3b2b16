package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tour/internal/config"
	"github.com/noah-isme/backend-tour/internal/itinerary"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

// seeder stores a sample two-day Bali itinerary for a user.
func main() {
	user := flag.String("user", "", "owner of the seeded itinerary")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *user == "" {
		logger.Fatal().Msg("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	it, err := sampleItinerary()
	if err != nil {
		logger.Fatal().Err(err).Msg("build sample itinerary")
	}

	svc := &itinerary.Service{Store: itinerary.NewStore(pool, logger), Log: logger}
	view, err := svc.Create(ctx, *user, it)
	if err != nil {
		logger.Fatal().Err(err).Msg("store sample itinerary")
	}
	logger.Info().
		Str("itinerary_id", view.Itinerary.ID).
		Str("total", pricing.FormatIDR(view.Breakdown.Total.Money())).
		Msg("seeding completed")
}

func sampleItinerary() (itinerary.TourItinerary, error) {
	it := itinerary.New()
	steps := []func(itinerary.TourItinerary) (itinerary.TourItinerary, error){
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.Rename(it, "Bali Highlights")
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.SetStartDate(it, time.Now().AddDate(0, 1, 0).Format(itinerary.DateLayout))
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.SetNumberOfPeople(it, 4)
		},
		itinerary.AddDay,
	}
	for _, step := range steps {
		var err error
		if it, err = step(it); err != nil {
			return it, err
		}
	}

	first, second := it.Days[0].ID, it.Days[1].ID
	edits := []func(itinerary.TourItinerary) (itinerary.TourItinerary, error){
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.AddDestination(it, first, itinerary.Destination{Name: "Tanah Lot", PricePerPerson: pricing.NewAmount(60000)})
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.SetHotel(it, first, itinerary.Hotel{Name: "Ubud Garden Resort", PricePerNight: pricing.NewAmount(850000)})
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.AddMeal(it, first, itinerary.Meal{Type: itinerary.MealDinner, Description: "Seafood at Jimbaran", PricePerPerson: pricing.NewAmount(150000)})
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.AddTransportationItem(it, first, itinerary.Transportation{Type: "Van", Description: "Airport pickup", PricePerPerson: pricing.NewAmount(400000)})
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.AddDestination(it, second, itinerary.Destination{Name: "Tegallalang Rice Terrace", PricePerPerson: pricing.NewAmount(25000)})
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.AddActivity(it, second, itinerary.Activity{Name: "Batik workshop"})
		},
		func(it itinerary.TourItinerary) (itinerary.TourItinerary, error) {
			return itinerary.AddTourGuide(it, itinerary.TourGuide{Name: "Made", PricePerDay: pricing.NewAmount(300000)})
		},
	}
	for _, edit := range edits {
		var err error
		if it, err = edit(it); err != nil {
			return it, err
		}
	}
	return it, nil
}
