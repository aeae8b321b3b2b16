package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tour/internal/auth"
	"github.com/noah-isme/backend-tour/internal/config"
)

// devtoken mints an access token signed with JWT_SECRET for local testing.
func main() {
	user := flag.String("user", "", "user id to put in the token subject")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *user == "" {
		logger.Fatal().Msg("-user is required")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTClockSkew)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise verifier")
	}
	token, err := verifier.Issue(*user, *ttl)
	if err != nil {
		logger.Fatal().Err(err).Msg("issue token")
	}
	fmt.Println(token)
}
