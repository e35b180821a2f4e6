package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newMFACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Manage the deletion second factor",
	}
	cmd.AddCommand(mfaEnrollCmd())
	return cmd
}

func mfaEnrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a TOTP secret (prints the otpauth URL once)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			url, err := apiClient.MFA.Enroll(context.Background())
			if err != nil {
				fatal("enroll", err)
			}
			output(map[string]string{"otpauth_url": url}, url)
		},
	}
}
