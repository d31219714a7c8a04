package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pairledger/internal/core"
)

func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage expense categories",
	}

	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func addCategoryCmd() *cobra.Command {
	var icon, color, budget string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				c := core.Category{HouseholdID: h.ID, Name: args[0], Icon: icon, Color: color}
				if budget != "" {
					m, err := amountFlag(budget)
					if err != nil {
						return err
					}
					c.BudgetMonthly = &m
				}
				if err := a.entries.AddCategory(ctx, &c); err != nil {
					return fmt.Errorf("add category: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Category %q added (%s)\n", c.Name, c.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "icon")
	cmd.Flags().StringVar(&color, "color", "", "color as #RRGGBB")
	cmd.Flags().StringVar(&budget, "budget", "", "monthly budget")
	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				categories, err := a.repo.ListCategories(ctx, h.ID)
				if err != nil {
					return fmt.Errorf("list categories: %w", err)
				}
				if len(categories) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No categories found. Use 'pairledger category add' to create one.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "ID\tNAME\tICON\tCOLOR\tBUDGET")
				for _, c := range categories {
					budget := "-"
					if c.BudgetMonthly != nil {
						budget = c.BudgetMonthly.String()
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Icon, c.Color, budget)
				}
				return nil
			})
		},
	}
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category; its expenses become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				id, err := categoryByName(ctx, a, h.ID, args[0])
				if err != nil {
					return err
				}
				if err := a.entries.DeleteCategory(ctx, h.ID, id); err != nil {
					return fmt.Errorf("delete category: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Category deleted")
				return nil
			})
		},
	}
}
