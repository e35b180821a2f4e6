package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/schemafence/schemafence/internal/middleware"
)

// newMintTokenCmd issues a development principal token. Production tokens
// come from the identity layer, never from this command.
func newMintTokenCmd() *cobra.Command {
	var (
		flagUser string
		flagOrg  string
		flagTTL  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mint-token",
		Short: "Mint a development JWT for a principal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			secret := os.Getenv("AUTH_SECRET")
			if len(secret) < 32 {
				return fmt.Errorf("AUTH_SECRET is required and must be at least 32 bytes")
			}

			userID := uuid.New()
			if flagUser != "" {
				var err error
				if userID, err = uuid.Parse(flagUser); err != nil {
					return fmt.Errorf("--user must be a UUID: %w", err)
				}
			}

			token, err := middleware.MintToken([]byte(secret), userID, flagOrg, flagTTL)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user: %s\ntoken: %s\n", userID, token)

			return nil
		},
	}

	cmd.Flags().StringVar(&flagUser, "user", "", "principal user ID (default: random)")
	cmd.Flags().StringVar(&flagOrg, "org", "", "default org slug claim")
	cmd.Flags().DurationVar(&flagTTL, "ttl", time.Hour, "token lifetime")

	return cmd
}
