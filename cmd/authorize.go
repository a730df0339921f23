package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuriiter/bixistrava/pkg/config"
	"github.com/yuriiter/bixistrava/pkg/strava"
	"github.com/yuriiter/bixistrava/pkg/utils"
)

// authorize runs the interactive OAuth flow on its own and prints the token
// bundle, for bootstrapping a refresh token without a full upload run.
var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Run the interactive Strava OAuth flow and print the tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		utils.SetDebug(debugFlag)

		config.Load(&cfg)
		if err := cfg.RequireStrava(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		tokens, err := strava.NewAuthorizer(cfg.StravaClientID, cfg.StravaClientSecret).Authorize(ctx)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(tokens, "", "    ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
}
