package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemafence/schemafence/client"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and export the audit ledger",
	}
	cmd.AddCommand(auditQueryCmd())
	cmd.AddCommand(auditExportCmd())
	return cmd
}

func auditQueryCmd() *cobra.Command {
	var action, resourceType, actor, since string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "query <slug>",
		Short: "Query audit entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			opts := &client.AuditQueryOptions{
				Action:       action,
				ResourceType: resourceType,
				Actor:        actor,
				Limit:        limit,
				Offset:       offset,
			}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					fatal("parse since", err)
				}
				opts.Since = &t
			}
			entries, hasMore, err := apiClient.Audit.Query(context.Background(), args[0], opts)
			if err != nil {
				fatal("query audit", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.CreatedAt.Format(time.RFC3339), e.Action, e.Actor, e.ResourceType, e.ResourceID,
					})
				}
				formatTable([]string{"TIME", "ACTION", "ACTOR", "RESOURCE", "ID"}, rows)
				return
			}
			output(map[string]any{"entries": entries, "has_more": hasMore}, "")
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Filter by action (e.g. member.added)")
	cmd.Flags().StringVar(&resourceType, "resource-type", "", "Filter by resource type")
	cmd.Flags().StringVar(&actor, "actor", "", "Filter by actor user ID")
	cmd.Flags().StringVar(&since, "since", "", "Only entries after this RFC 3339 time")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

func auditExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <slug>",
		Short: "Export the full ledger to server-side artifact storage",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			artifact, err := apiClient.Audit.Export(context.Background(), args[0])
			if err != nil {
				fatal("export audit", err)
			}
			output(map[string]string{"artifact": artifact}, artifact)
		},
	}
}
