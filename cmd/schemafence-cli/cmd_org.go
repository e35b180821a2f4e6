package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/schemafence/schemafence/client"
)

func newOrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}
	cmd.AddCommand(orgCreateCmd())
	cmd.AddCommand(orgGetCmd())
	cmd.AddCommand(orgUpdateCmd())
	cmd.AddCommand(orgRetryCmd())
	cmd.AddCommand(orgDeleteCmd())
	return cmd
}

func orgCreateCmd() *cobra.Command {
	var retentionDays int
	var settingsJSON string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register an organization (provisioning runs in the background)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.CreateOrgRequest{
				Name:          args[0],
				RetentionDays: retentionDays,
			}
			if settingsJSON != "" {
				if err := json.Unmarshal([]byte(settingsJSON), &req.Settings); err != nil {
					fatal("parse settings", err)
				}
			}
			org, err := apiClient.Orgs.Create(context.Background(), req)
			if err != nil {
				fatal("create org", err)
			}
			output(org, org.Slug)
		},
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "Audit retention in days (0 = server default)")
	cmd.Flags().StringVar(&settingsJSON, "settings", "", "Settings as JSON")
	return cmd
}

func orgGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Show an organization and its lifecycle status",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			org, err := apiClient.Orgs.Get(context.Background(), args[0])
			if err != nil {
				fatal("get org", err)
			}
			output(org, org.Status)
		},
	}
}

func orgUpdateCmd() *cobra.Command {
	var name, slug, settingsJSON string
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "update <slug>",
		Short: "Update organization settings",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.UpdateOrgRequest{}
			if name != "" {
				req.Name = &name
			}
			if slug != "" {
				req.Slug = &slug
			}
			if retentionDays > 0 {
				req.RetentionDays = &retentionDays
			}
			if settingsJSON != "" {
				if err := json.Unmarshal([]byte(settingsJSON), &req.Settings); err != nil {
					fatal("parse settings", err)
				}
			}
			org, err := apiClient.Orgs.Update(context.Background(), args[0], req)
			if err != nil {
				fatal("update org", err)
			}
			output(org, org.Slug)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&slug, "slug", "", "New slug")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "New audit retention in days")
	cmd.Flags().StringVar(&settingsJSON, "settings", "", "Settings as JSON")
	return cmd
}

func orgRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <slug>",
		Short: "Re-queue provisioning for a failed organization",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			org, err := apiClient.Orgs.RetryProvision(context.Background(), args[0])
			if err != nil {
				fatal("retry provisioning", err)
			}
			output(org, org.Status)
		},
	}
}

func orgDeleteCmd() *cobra.Command {
	var confirm, totpCode string
	cmd := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Irreversibly delete an organization (requires owner role and TOTP)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.DeleteOrgRequest{
				Confirm:  confirm,
				TOTPCode: totpCode,
			}
			if err := apiClient.Orgs.Delete(context.Background(), args[0], req); err != nil {
				fatal("delete org", err)
			}
			output(map[string]string{"status": client.OrgDeleting}, args[0])
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "Type the slug back to confirm deletion")
	cmd.Flags().StringVar(&totpCode, "totp", "", "Current 6-digit TOTP code")
	cmd.MarkFlagRequired("confirm") //nolint:errcheck
	cmd.MarkFlagRequired("totp")    //nolint:errcheck
	return cmd
}
