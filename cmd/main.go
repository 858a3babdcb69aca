// Command cmd mints access tokens for local testing and kiosk setup.
//
//	go run ./cmd --user u1 --role employee --venue bar-42 --ttl 12h
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/pflag"

	"leap/internal/auth"
	"leap/internal/config"
	"leap/internal/queue"
)

func main() {
	var (
		userID  = pflag.StringP("user", "u", "", "user id (required)")
		role    = pflag.StringP("role", "r", string(queue.RoleUser), "user, employee or admin")
		venueID = pflag.String("venue", "", "venue an employee works at")
		name    = pflag.String("name", "", "display name")
		ttl     = pflag.Duration("ttl", 24*time.Hour, "token lifetime")
		cfgPath = pflag.String("config", os.Getenv("LEAP_CONFIG"), "config file")
	)
	pflag.Parse()

	logger := &log.Logger{
		Level:  log.InfoLevel,
		Writer: &log.ConsoleWriter{ColorOutput: true, Writer: os.Stderr},
	}

	if *userID == "" {
		pflag.Usage()
		os.Exit(2)
	}
	if !queue.Role(*role).Valid() {
		logger.Fatal().Str("role", *role).Msg("unknown role")
	}
	if queue.Role(*role) == queue.RoleEmployee && *venueID == "" {
		logger.Fatal().Msg("employees need --venue")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	token, err := auth.IssueAccessToken([]byte(cfg.Auth.AccessSecret), auth.AccessClaims{
		UserID:  *userID,
		Role:    *role,
		VenueID: *venueID,
		Name:    *name,
	}, *ttl)
	if err != nil {
		logger.Fatal().Err(err).Msg("sign token")
	}
	fmt.Println(token)
}
