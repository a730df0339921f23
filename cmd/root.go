package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuriiter/bixistrava/pkg/bixi"
	"github.com/yuriiter/bixistrava/pkg/config"
	"github.com/yuriiter/bixistrava/pkg/distance"
	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/strava"
	"github.com/yuriiter/bixistrava/pkg/utils"
)

var (
	startDateArg string
	endDateArg   string
	cfg          config.Config
	authTimeout  time.Duration
	debugFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "bixistrava",
	Short: "Upload Bixi rides within a date range to Strava",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		utils.SetDebug(debugFlag)
		return run()
	},
}

func run() error {
	start, err := utils.ParseDate(startDateArg)
	if err != nil {
		return err
	}
	end, err := utils.ParseDate(endDateArg)
	if err != nil {
		return err
	}

	config.Load(&cfg)
	if err := cfg.RequirePipeline(); err != nil {
		return err
	}

	log.Printf("Connecting to Bixi")
	client, err := bixi.NewClient(cfg.BixiAccount)
	if err != nil {
		return err
	}
	if err := client.Login(cfg.BixiUsername, cfg.BixiPassword); err != nil {
		return err
	}
	log.Printf("Connected to Bixi")

	log.Printf("Fetching trips from %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	trips, err := client.Trips(start, end)
	if err != nil {
		return err
	}
	log.Printf("Fetched %d trips", len(trips))
	for _, t := range trips {
		utils.DebugLog("Trip: %s %q -> %s %q", t.StartTime, t.StartStationName, t.EndTime, t.EndStationName)
	}

	if len(trips) == 0 {
		return nil
	}
	for _, t := range trips {
		if t.StartStation == nil {
			return &faults.DataIntegrityError{Msg: fmt.Sprintf("start station %q not in station directory", t.StartStationName)}
		}
		if t.EndStation == nil {
			return &faults.DataIntegrityError{Msg: fmt.Sprintf("end station %q not in station directory", t.EndStationName)}
		}
	}

	var calc distance.Calculator = distance.HaversineCalculator{}
	if cfg.GoogleMapsAPIKey != "" {
		calc = distance.NewGoogleMapsCalculator(cfg.GoogleMapsAPIKey)
		log.Printf("Calculating distances using Google Maps")
	} else {
		log.Printf("No Google Maps API key; using straight-line distances")
	}
	distances, err := calc.Distances(trips)
	if err != nil {
		return err
	}
	for _, d := range distances {
		utils.DebugLog("Distance: %v", d)
	}

	log.Printf("Connecting to Strava")
	auth := strava.NewAuthorizer(cfg.StravaClientID, cfg.StravaClientSecret)
	var tokens strava.TokenBundle
	if cfg.StravaRefreshToken != "" {
		tokens, err = auth.Refresh(cfg.StravaRefreshToken)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		tokens, err = auth.Authorize(ctx)
	}
	if err != nil {
		return err
	}
	log.Printf("Connected to Strava")

	log.Printf("Creating activities")
	sc := strava.NewClient(tokens)
	for i, t := range trips {
		id, err := sc.CreateActivity(strava.Activity{
			Name:           "Bixi Ride",
			Type:           "Ride",
			StartDateLocal: t.StartTime,
			ElapsedTime:    int(t.Duration().Seconds()),
			Description:    fmt.Sprintf("Bixi ride from %s to %s", t.StartStation.Name, t.EndStation.Name),
			Distance:       distances[i],
			Commute:        true,
		})
		if err != nil {
			return err
		}
		utils.DebugLog("Created activity %d", id)
	}
	log.Printf("Created %d activities", len(trips))

	// Strava rotates the refresh token on every exchange; print the new one
	// so the next run can skip the browser.
	fmt.Printf("Refresh token: %s\n", tokens.RefreshToken)
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&startDateArg, "start-date", "s", "today", "Start of the trip range (YYYY-MM-DD)")
	rootCmd.Flags().StringVarP(&endDateArg, "end-date", "e", "today", "End of the trip range (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&cfg.BixiUsername, "bixi-username", "", "Bixi account email")
	rootCmd.Flags().StringVar(&cfg.BixiPassword, "bixi-password", "", "Bixi account password")
	rootCmd.Flags().StringVar(&cfg.BixiAccount, "bixi-account", "", "Bixi account id (from the profile URL)")
	rootCmd.Flags().StringVar(&cfg.GoogleMapsAPIKey, "googlemaps-api-key", "", "Google Maps Distance Matrix API key")
	rootCmd.PersistentFlags().StringVar(&cfg.StravaClientID, "strava-client-id", "", "Strava API client id")
	rootCmd.PersistentFlags().StringVar(&cfg.StravaClientSecret, "strava-client-secret", "", "Strava API client secret")
	rootCmd.Flags().StringVar(&cfg.StravaRefreshToken, "strava-refresh-token", "", "Stored refresh token (skips the browser flow)")
	rootCmd.PersistentFlags().DurationVar(&authTimeout, "auth-timeout", 3*time.Minute, "How long to wait for the OAuth callback")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "v", false, "Enable debug logs")
}
