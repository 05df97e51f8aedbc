package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/substation/api/substation"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an operator token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.API.JWTSecret == "" {
			return fmt.Errorf("api.jwt_secret is not set")
		}
		tok, err := substation.NewToken([]byte(cfg.API.JWTSecret), tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "", "operator name recorded with each command")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 8*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
