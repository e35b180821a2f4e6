package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/schemafence/schemafence/client"
)

func newMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage organization members",
	}
	cmd.AddCommand(memberListCmd())
	cmd.AddCommand(memberAddCmd())
	cmd.AddCommand(memberRoleCmd())
	cmd.AddCommand(memberRemoveCmd())
	return cmd
}

func memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <slug>",
		Short: "List active members",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			members, err := apiClient.Members.List(context.Background(), args[0])
			if err != nil {
				fatal("list members", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(members))
				for _, m := range members {
					rows = append(rows, []string{m.UserID, m.Role, m.JoinedAt.Format("2006-01-02")})
				}
				formatTable([]string{"USER", "ROLE", "JOINED"}, rows)
				return
			}
			output(members, "")
		},
	}
}

func memberAddCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "add <slug> <user-id>",
		Short: "Add a member",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			member, err := apiClient.Members.Add(context.Background(), args[0], &client.AddMemberRequest{
				UserID: args[1],
				Role:   role,
			})
			if err != nil {
				fatal("add member", err)
			}
			output(member, member.UserID)
		},
	}
	cmd.Flags().StringVar(&role, "role", "member", "Role: owner|admin|member|viewer")
	return cmd
}

func memberRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <slug> <user-id> <role>",
		Short: "Change a member's role",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			member, err := apiClient.Members.ChangeRole(context.Background(), args[0], args[1], args[2])
			if err != nil {
				fatal("change role", err)
			}
			output(member, member.Role)
		},
	}
}

func memberRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug> <user-id>",
		Short: "Remove a member",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Members.Remove(context.Background(), args[0], args[1]); err != nil {
				fatal("remove member", err)
			}
			output(map[string]string{"status": "removed"}, args[1])
		},
	}
}
