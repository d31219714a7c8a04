package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pairledger/internal/core"
)

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Record the income observations that drive the split ratio",
	}

	cmd.AddCommand(addIncomeCmd())
	cmd.AddCommand(listIncomesCmd())
	cmd.AddCommand(deleteIncomeCmd())

	return cmd
}

func addIncomeCmd() *cobra.Command {
	var member, from, notes string

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record a member's income from a date onwards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, me core.Member) error {
				cents, err := core.ParseIncomeCents(args[0])
				if err != nil {
					return fmt.Errorf("%w: %q", err, args[0])
				}
				m, err := memberFlag(member, me)
				if err != nil {
					return err
				}
				date, err := dateFlag(from)
				if err != nil {
					return err
				}

				in := core.IncomeObservation{
					HouseholdID:   h.ID,
					Member:        m,
					Amount:        core.Money{Cents: cents},
					EffectiveFrom: date,
					Notes:         notes,
				}
				if err := a.entries.AddIncome(ctx, &in); err != nil {
					return fmt.Errorf("add income: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Income %s for %s from %s (%s)\n", in.Amount, in.Member, in.EffectiveFrom, in.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&member, "member", "", "member A or B (default: you)")
	cmd.Flags().StringVar(&from, "from", "", "effective date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func listIncomesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List income observations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				incomes, err := a.repo.ListIncomes(ctx, h.ID)
				if err != nil {
					return fmt.Errorf("list incomes: %w", err)
				}
				if len(incomes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No incomes recorded. Use 'pairledger income add' to record one.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "ID\tMEMBER\tFROM\tAMOUNT\tNOTES")
				for _, in := range incomes {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", in.ID, in.Member, in.EffectiveFrom, in.Amount, in.Notes)
				}
				return nil
			})
		},
	}
}

func deleteIncomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an income observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				if err := a.entries.DeleteIncome(ctx, h.ID, args[0]); err != nil {
					return fmt.Errorf("delete income: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Income deleted")
				return nil
			})
		},
	}
}
