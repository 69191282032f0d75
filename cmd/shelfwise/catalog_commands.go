package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/di/providers"
)

func newPublisherCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publisher",
		Short: "Manage publishers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a publisher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := do.Invoke[*providers.StoreHandle](ctx.container())
			if err != nil {
				return err
			}
			p, err := db.CreatePublisher(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created publisher %d (%s)\n", p.ID, p.Name)
			return nil
		},
	})
	return cmd
}

func newAuthorCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "author",
		Short: "Manage authors",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := do.Invoke[*providers.StoreHandle](ctx.container())
			if err != nil {
				return err
			}
			a, err := db.CreateAuthor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created author %d (%s)\n", a.ID, a.Name)
			return nil
		},
	})
	return cmd
}

func newContractCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Manage publisher/author contracts",
	}
	cmd.AddCommand(newContractStartCommand(ctx))
	cmd.AddCommand(newContractEndCommand(ctx))
	cmd.AddCommand(newContractListCommand(ctx))
	return cmd
}

func parseIDs(args []string) (publisherID, authorID int64, err error) {
	if publisherID, err = strconv.ParseInt(args[0], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid publisher ID %q", args[0])
	}
	if authorID, err = strconv.ParseInt(args[1], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid author ID %q", args[1])
	}
	return publisherID, authorID, nil
}

func newContractStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <publisher-id> <author-id>",
		Short: "Start a contract; the publisher may then create books for the author",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			publisherID, authorID, err := parseIDs(args)
			if err != nil {
				return err
			}
			db, err := do.Invoke[*providers.StoreHandle](ctx.container())
			if err != nil {
				return err
			}
			if err := db.StartContract(cmd.Context(), publisherID, authorID, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Publisher %d now represents author %d\n", publisherID, authorID)
			return nil
		},
	}
}

func newContractEndCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "end <publisher-id> <author-id>",
		Short: "End the active contract between a publisher and an author",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			publisherID, authorID, err := parseIDs(args)
			if err != nil {
				return err
			}
			db, err := do.Invoke[*providers.StoreHandle](ctx.container())
			if err != nil {
				return err
			}
			if err := db.EndContract(cmd.Context(), publisherID, authorID, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ended contract between publisher %d and author %d\n", publisherID, authorID)
			return nil
		},
	}
}

func newContractListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <publisher-id>",
		Short: "List a publisher's contracts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publisherID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid publisher ID %q", args[0])
			}
			db, err := do.Invoke[*providers.StoreHandle](ctx.container())
			if err != nil {
				return err
			}
			edges, err := db.ListOwnershipEdges(cmd.Context(), publisherID)
			if err != nil {
				return err
			}

			rows := make([][]string, len(edges))
			for i, e := range edges {
				end, status := "", "active"
				if e.ContractEnd != nil {
					end = e.ContractEnd.Format(time.DateOnly)
				}
				if !e.IsActive() {
					status = "ended"
				}
				rows[i] = []string{
					strconv.FormatInt(e.AuthorID, 10),
					e.ContractStart.Format(time.DateOnly),
					end,
					status,
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Author", "Start", "End", "Status"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}
