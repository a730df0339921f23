package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every credential the pipeline needs. Flags fill it first;
// Load backfills anything empty from the environment.
type Config struct {
	BixiUsername       string
	BixiPassword       string
	BixiAccount        string
	GoogleMapsAPIKey   string
	StravaClientID     string
	StravaClientSecret string
	StravaRefreshToken string
}

// Load backfills empty fields from the environment.
func Load(c *Config) {
	v := viper.New()
	v.AutomaticEnv()

	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = v.GetString(key)
		}
	}
	fill(&c.BixiUsername, "BIXI_USERNAME")
	fill(&c.BixiPassword, "BIXI_PASSWORD")
	fill(&c.BixiAccount, "BIXI_ACCOUNT")
	fill(&c.GoogleMapsAPIKey, "GOOGLEMAPS_API_KEY")
	fill(&c.StravaClientID, "STRAVA_CLIENT_ID")
	fill(&c.StravaClientSecret, "STRAVA_CLIENT_SECRET")
	fill(&c.StravaRefreshToken, "STRAVA_REFRESH_TOKEN")
}

// RequireStrava validates the fields the OAuth flow needs.
func (c *Config) RequireStrava() error {
	return require([]requirement{
		{c.StravaClientID, "--strava-client-id / STRAVA_CLIENT_ID"},
		{c.StravaClientSecret, "--strava-client-secret / STRAVA_CLIENT_SECRET"},
	})
}

// RequirePipeline validates everything the full run needs.
// GOOGLEMAPS_API_KEY stays optional (straight-line fallback) and
// STRAVA_REFRESH_TOKEN stays optional (interactive auth).
func (c *Config) RequirePipeline() error {
	if err := require([]requirement{
		{c.BixiUsername, "--bixi-username / BIXI_USERNAME"},
		{c.BixiPassword, "--bixi-password / BIXI_PASSWORD"},
		{c.BixiAccount, "--bixi-account / BIXI_ACCOUNT"},
	}); err != nil {
		return err
	}
	return c.RequireStrava()
}

type requirement struct {
	value, hint string
}

func require(reqs []requirement) error {
	for _, r := range reqs {
		if r.value == "" {
			return fmt.Errorf("missing %s", r.hint)
		}
	}
	return nil
}
