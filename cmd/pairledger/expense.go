package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pairledger/internal/core"
)

func expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record and review household expenses",
	}

	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(editExpenseCmd())
	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(deleteExpenseCmd())

	return cmd
}

type expenseFlags struct {
	paidBy   string
	date     string
	split    string
	category string
	notes    string
	tags     []string
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.paidBy, "paid-by", "", "paying member A or B (default: you)")
	cmd.Flags().StringVar(&f.date, "date", "", "expense date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&f.split, "split", string(core.SplitShared), "split type: shared, equal or personal")
	cmd.Flags().StringVar(&f.category, "category", "", "category name")
	cmd.Flags().StringVar(&f.notes, "notes", "", "notes")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
}

func addExpenseCmd() *cobra.Command {
	var f expenseFlags

	cmd := &cobra.Command{
		Use:   "add <amount> <description>",
		Short: "Record an expense",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, me core.Member) error {
				amount, err := amountFlag(args[0])
				if err != nil {
					return err
				}
				paidBy, err := memberFlag(f.paidBy, me)
				if err != nil {
					return err
				}
				date, err := dateFlag(f.date)
				if err != nil {
					return err
				}
				split, err := core.ParseSplitType(f.split)
				if err != nil {
					return err
				}
				categoryID, err := categoryByName(ctx, a, h.ID, f.category)
				if err != nil {
					return err
				}

				e := core.Expense{
					HouseholdID: h.ID,
					PaidBy:      paidBy,
					Amount:      amount,
					Date:        date,
					SplitType:   split,
					Description: strings.Join(args[1:], " "),
					CategoryID:  categoryID,
					Notes:       f.notes,
					Tags:        f.tags,
				}
				if err := a.entries.AddExpense(ctx, &e); err != nil {
					return fmt.Errorf("add expense: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Expense %s %q paid by %s on %s (%s)\n", e.Amount, e.Description, e.PaidBy, e.Date, e.ID)
				return nil
			})
		},
	}

	f.register(cmd)
	return cmd
}

func editExpenseCmd() *cobra.Command {
	var (
		f           expenseFlags
		amount      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				e, err := a.repo.GetExpense(ctx, h.ID, args[0])
				if err != nil {
					return fmt.Errorf("get expense: %w", err)
				}

				changed := cmd.Flags().Changed
				if changed("amount") {
					if e.Amount, err = amountFlag(amount); err != nil {
						return err
					}
				}
				if changed("description") {
					e.Description = description
				}
				if changed("paid-by") {
					if e.PaidBy, err = core.ParseMember(f.paidBy); err != nil {
						return err
					}
				}
				if changed("date") {
					if e.Date, err = core.ParseDate(f.date); err != nil {
						return err
					}
				}
				if changed("split") {
					if e.SplitType, err = core.ParseSplitType(f.split); err != nil {
						return err
					}
				}
				if changed("category") {
					if e.CategoryID, err = categoryByName(ctx, a, h.ID, f.category); err != nil {
						return err
					}
				}
				if changed("notes") {
					e.Notes = f.notes
				}
				if changed("tag") {
					e.Tags = f.tags
				}

				if err := a.entries.UpdateExpense(ctx, e); err != nil {
					return fmt.Errorf("update expense: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Expense updated")
				return nil
			})
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func listExpensesCmd() *cobra.Command {
	var (
		from, to, paidBy, split, category, tag string
		limit                                  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses with each member's share",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				var (
					filter = core.ExpenseFilter{Tag: tag, Limit: limit}
					err    error
				)
				if from != "" {
					if filter.From, err = core.ParseDate(from); err != nil {
						return err
					}
				}
				if to != "" {
					if filter.To, err = core.ParseDate(to); err != nil {
						return err
					}
				}
				if paidBy != "" {
					if filter.PaidBy, err = core.ParseMember(paidBy); err != nil {
						return err
					}
				}
				if split != "" {
					if filter.SplitType, err = core.ParseSplitType(split); err != nil {
						return err
					}
				}
				if filter.CategoryID, err = categoryByName(ctx, a, h.ID, category); err != nil {
					return err
				}

				rows, err := a.ledger.Attributions(ctx, h.ID, filter)
				if err != nil {
					return fmt.Errorf("list expenses: %w", err)
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No expenses found.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "DATE\tDESCRIPTION\tPAID BY\tSPLIT\tAMOUNT\tA SHARE\tB SHARE\tID")
				for _, r := range rows {
					e := r.Expense
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						e.Date, e.Description, e.PaidBy, e.SplitType, e.Amount,
						core.FormatAmount(r.AAmount), core.FormatAmount(r.BAmount), e.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date YYYY-MM-DD")
	cmd.Flags().StringVar(&paidBy, "paid-by", "", "paying member A or B")
	cmd.Flags().StringVar(&split, "split", "", "split type")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	cmd.Flags().StringVar(&tag, "tag", "", "tag")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				if err := a.entries.DeleteExpense(ctx, h.ID, args[0]); err != nil {
					return fmt.Errorf("delete expense: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Expense deleted")
				return nil
			})
		},
	}
}
