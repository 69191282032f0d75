package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/di/providers"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

func newTaxonomyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage canonical taxonomy terms",
	}
	cmd.AddCommand(newTaxonomySeedCommand(ctx))
	cmd.AddCommand(newTaxonomyListCommand(ctx))
	return cmd
}

func newTaxonomySeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [seed.yaml]",
		Short: "Import taxonomy terms; without a file the built-in defaults are used",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := taxonomy.DefaultSeed()
			if len(args) == 1 {
				loaded, err := taxonomy.LoadSeedFile(args[0])
				if err != nil {
					return err
				}
				seed = loaded
			}

			db, err := do.Invoke[*providers.StoreHandle](ctx.container())
			if err != nil {
				return err
			}
			stats, err := taxonomy.Apply(cmd.Context(), db.Store, seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d terms: %d created, %d already present\n",
				seed.Len(), stats.Created, stats.Existing)
			return nil
		},
	}
}

func newTaxonomyListCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List canonical taxonomy terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var c domain.Category
			if category != "" {
				parsed, err := domain.ParseCategory(category)
				if err != nil {
					return err
				}
				c = parsed
			}

			db, err := do.Invoke[*providers.StoreHandle](ctx.container())
			if err != nil {
				return err
			}
			terms, err := db.ListTerms(cmd.Context(), c)
			if err != nil {
				return err
			}

			rows := make([][]string, len(terms))
			for i, t := range terms {
				rows[i] = []string{fmt.Sprint(t.ID), string(t.Category), t.Name, t.Slug}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Category", "Name", "Slug"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Restrict to genre, subgenre, theme or trope")
	return cmd
}
