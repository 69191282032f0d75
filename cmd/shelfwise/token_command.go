package main

import (
	"fmt"
	"strconv"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint API bearer tokens signed with the server key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "publisher <publisher-id>",
		Short: "Mint a token that submits batches for one publisher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publisherID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid publisher ID %q", args[0])
			}
			tokens, err := do.Invoke[*auth.TokenService](ctx.container())
			if err != nil {
				return err
			}
			token, err := tokens.IssuePublisherToken(publisherID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "admin <subject>",
		Short: "Mint an admin token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := do.Invoke[*auth.TokenService](ctx.container())
			if err != nil {
				return err
			}
			token, err := tokens.IssueAdminToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})

	return cmd
}
