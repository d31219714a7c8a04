package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pairledger/internal/core"
	"pairledger/internal/ledger"
)

// settledTolerance is the largest net balance shown as settled.
var settledTolerance = decimal.New(1, -core.PresentationPlaces)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show who owes whom",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				b, err := a.ledger.Balance(ctx, h.ID)
				if err != nil {
					return fmt.Errorf("compute balance: %w", err)
				}
				writeBalance(cmd.OutOrStdout(), h, b)
				return nil
			})
		},
	}
}

func writeBalance(out io.Writer, h core.Household, b core.Balance) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tPAID\tFAIR SHARE")
	fmt.Fprintf(w, "A\t%s\t%s\n", b.APaid, core.FormatAmount(b.AFairShare))
	if h.HasPartner() {
		fmt.Fprintf(w, "B\t%s\t%s\n", b.BPaid, core.FormatAmount(b.BFairShare))
	}
	w.Flush()

	fmt.Fprintf(out, "Settlements: %s\n", b.SettlementsTotal)
	fmt.Fprintln(out, describeBalance(h, b))
}

// describeBalance states the net position in one line.
func describeBalance(h core.Household, b core.Balance) string {
	switch {
	case !h.HasPartner():
		return "No partner yet: nothing is split."
	case ledger.Settled(b, settledTolerance):
		return "All settled up."
	case b.NetBalance.IsPositive():
		return fmt.Sprintf("A owes B %s", core.FormatAmount(b.NetBalance))
	default:
		return fmt.Sprintf("B owes A %s", core.FormatAmount(b.NetBalance.Neg()))
	}
}

func ratioCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "ratio",
		Short: "Show the income split ratio on a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				d, err := dateFlag(date)
				if err != nil {
					return err
				}
				r, err := a.ledger.Ratio(ctx, h.ID, d)
				if err != nil {
					return fmt.Errorf("compute ratio: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Ratio on %s\n", d)
				fmt.Fprintf(out, "A: %s%% (income %s)\n", percent(r.A), r.AIncome)
				fmt.Fprintf(out, "B: %s%% (income %s)\n", percent(r.B), r.BIncome)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default: today)")
	return cmd
}

func percent(d decimal.Decimal) string {
	return d.Shift(2).RoundBank(2).StringFixed(2)
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Spending summaries",
	}

	cmd.AddCommand(monthlyStatsCmd())
	cmd.AddCommand(categoryStatsCmd())
	cmd.AddCommand(trendStatsCmd())

	return cmd
}

func monthlyStatsCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Totals for one month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				now := today()
				if year == 0 {
					year = now.Year()
				}
				if month == 0 {
					month = now.Month()
				}
				s, err := a.ledger.MonthlySummary(ctx, h.ID, year, month)
				if err != nil {
					return fmt.Errorf("monthly summary: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%04d-%02d total %s (shared %s, equal %s, personal %s)\n",
					s.Year, s.Month, s.Total, s.SharedTotal, s.EqualTotal, s.PersonalTotal)
				fmt.Fprintf(out, "Paid by A %s, by B %s\n", s.APaid, s.BPaid)

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "CATEGORY\tAMOUNT")
				for _, c := range s.ByCategory {
					fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Amount)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default: current)")
	return cmd
}

func categoryStatsCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Spending per category, with budgets when a month is given",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				rows, err := a.ledger.CategorySpending(ctx, h.ID, year, month)
				if err != nil {
					return fmt.Errorf("category spending: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "CATEGORY\tTOTAL\tCOUNT\tBUDGET\tOVER")
				for _, r := range rows {
					budget := "-"
					if r.Budget != nil {
						budget = r.Budget.String()
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\n", r.Name, r.Total, r.Count, budget, r.OverBudget)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (default: all)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default: all)")
	return cmd
}

func trendStatsCmd() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Monthly totals over a trailing window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				rows, err := a.ledger.Trends(ctx, h.ID, months, today())
				if err != nil {
					return fmt.Errorf("trends: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "MONTH\tTOTAL\tSHARED\tEQUAL\tPERSONAL")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Month, r.Total, r.Shared, r.Equal, r.Personal)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&months, "months", 12, "window size in months (1-60)")
	return cmd
}
