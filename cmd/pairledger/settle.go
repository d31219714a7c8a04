package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pairledger/internal/core"
)

func settleCmd() *cobra.Command {
	var from, date, notes string

	cmd := &cobra.Command{
		Use:   "settle <amount>",
		Short: "Record a payment from one member to the other",
		Long: `Record a settlement. The payer defaults to you and the receiver is always
the other member.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, me core.Member) error {
				amount, err := amountFlag(args[0])
				if err != nil {
					return err
				}
				payer, err := memberFlag(from, me)
				if err != nil {
					return err
				}
				d, err := dateFlag(date)
				if err != nil {
					return err
				}

				st := core.Settlement{
					HouseholdID: h.ID,
					From:        payer,
					To:          payer.Other(),
					Amount:      amount,
					Date:        d,
					Notes:       notes,
				}
				if err := a.entries.RecordSettlement(ctx, &st); err != nil {
					return fmt.Errorf("record settlement: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Settlement %s from %s to %s on %s (%s)\n", st.Amount, st.From, st.To, st.Date, st.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "paying member A or B (default: you)")
	cmd.Flags().StringVar(&date, "date", "", "settlement date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func settlementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlement",
		Short: "Review recorded settlements",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List settlements",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				settlements, err := a.repo.ListSettlements(ctx, h.ID)
				if err != nil {
					return fmt.Errorf("list settlements: %w", err)
				}
				if len(settlements) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No settlements recorded.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "DATE\tFROM\tTO\tAMOUNT\tNOTES\tID")
				for _, s := range settlements {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.Date, s.From, s.To, s.Amount, s.Notes, s.ID)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				if err := a.entries.DeleteSettlement(ctx, h.ID, args[0]); err != nil {
					return fmt.Errorf("delete settlement: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settlement deleted")
				return nil
			})
		},
	})

	return cmd
}
