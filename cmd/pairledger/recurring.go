package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pairledger/internal/core"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recurring",
		Aliases: []string{"rec"},
		Short:   "Manage recurring expense templates",
	}

	cmd.AddCommand(addRecurringCmd())
	cmd.AddCommand(editRecurringCmd())
	cmd.AddCommand(listRecurringCmd())
	cmd.AddCommand(setRecurringActiveCmd("pause", "Stop materializing a template", false))
	cmd.AddCommand(setRecurringActiveCmd("resume", "Resume a template; missed occurrences are caught up", true))
	cmd.AddCommand(deleteRecurringCmd())

	return cmd
}

func addRecurringCmd() *cobra.Command {
	var (
		paidBy, split, frequency, start, category string
		dayOfMonth                                int
	)

	cmd := &cobra.Command{
		Use:   "add <amount> <description>",
		Short: "Add a recurring expense template",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, me core.Member) error {
				amount, err := amountFlag(args[0])
				if err != nil {
					return err
				}
				payer, err := memberFlag(paidBy, me)
				if err != nil {
					return err
				}
				splitType, err := core.ParseSplitType(split)
				if err != nil {
					return err
				}
				freq, err := core.ParseFrequency(frequency)
				if err != nil {
					return err
				}
				anchor, err := dateFlag(start)
				if err != nil {
					return err
				}
				categoryID, err := categoryByName(ctx, a, h.ID, category)
				if err != nil {
					return err
				}

				t := core.RecurringTemplate{
					HouseholdID: h.ID,
					PaidBy:      payer,
					Amount:      amount,
					Description: strings.Join(args[1:], " "),
					CategoryID:  categoryID,
					SplitType:   splitType,
					Frequency:   freq,
					DayOfMonth:  dayOfMonth,
					StartDate:   anchor,
				}
				if err := a.entries.AddTemplate(ctx, &t); err != nil {
					return fmt.Errorf("add recurring template: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recurring %s %q %s from %s (%s)\n", t.Amount, t.Description, t.Frequency, t.StartDate, t.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&paidBy, "paid-by", "", "paying member A or B (default: you)")
	cmd.Flags().StringVar(&split, "split", string(core.SplitShared), "split type: shared, equal or personal")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), "weekly, biweekly, monthly or yearly")
	cmd.Flags().IntVar(&dayOfMonth, "day", 0, "day of month 1-31 (monthly and yearly only)")
	cmd.Flags().StringVar(&start, "start", "", "anchor date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	return cmd
}

func editRecurringCmd() *cobra.Command {
	var (
		amount, description, paidBy, split, frequency, start, category string
		dayOfMonth                                                     int
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a template; already materialized expenses are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				t, err := a.repo.GetTemplate(ctx, args[0])
				if err != nil {
					return fmt.Errorf("get recurring template: %w", err)
				}
				if t.HouseholdID != h.ID {
					return fmt.Errorf("recurring template %s: %w", args[0], core.ErrNotFound)
				}

				changed := cmd.Flags().Changed
				if changed("amount") {
					if t.Amount, err = amountFlag(amount); err != nil {
						return err
					}
				}
				if changed("description") {
					t.Description = description
				}
				if changed("paid-by") {
					if t.PaidBy, err = core.ParseMember(paidBy); err != nil {
						return err
					}
				}
				if changed("split") {
					if t.SplitType, err = core.ParseSplitType(split); err != nil {
						return err
					}
				}
				if changed("frequency") {
					if t.Frequency, err = core.ParseFrequency(frequency); err != nil {
						return err
					}
				}
				if changed("day") {
					t.DayOfMonth = dayOfMonth
				}
				if changed("start") {
					if t.StartDate, err = core.ParseDate(start); err != nil {
						return err
					}
				}
				if changed("category") {
					if t.CategoryID, err = categoryByName(ctx, a, h.ID, category); err != nil {
						return err
					}
				}

				if err := a.entries.UpdateTemplate(ctx, t); err != nil {
					return fmt.Errorf("update recurring template: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recurring template updated")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&paidBy, "paid-by", "", "paying member A or B")
	cmd.Flags().StringVar(&split, "split", "", "split type")
	cmd.Flags().StringVar(&frequency, "frequency", "", "weekly, biweekly, monthly or yearly")
	cmd.Flags().IntVar(&dayOfMonth, "day", 0, "day of month 1-31, 0 to use the anchor's day")
	cmd.Flags().StringVar(&start, "start", "", "new anchor date YYYY-MM-DD")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	return cmd
}

func listRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				templates, err := a.repo.ListTemplates(ctx, h.ID)
				if err != nil {
					return fmt.Errorf("list recurring templates: %w", err)
				}
				if len(templates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recurring templates. Use 'pairledger recurring add' to create one.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "DESCRIPTION\tAMOUNT\tPAID BY\tSPLIT\tFREQUENCY\tANCHOR\tTHROUGH\tACTIVE\tID")
				for _, t := range templates {
					through := "-"
					if !t.LastMaterializedThrough.IsZero() {
						through = t.LastMaterializedThrough.String()
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
						t.Description, t.Amount, t.PaidBy, t.SplitType, t.Frequency, t.Anchor(), through, t.Active, t.ID)
				}
				return nil
			})
		},
	}
}

func setRecurringActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				var err error
				if active {
					err = a.entries.ResumeTemplate(ctx, h.ID, args[0])
				} else {
					err = a.entries.PauseTemplate(ctx, h.ID, args[0])
				}
				if err != nil {
					return fmt.Errorf("%s recurring template: %w", use, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recurring template %s\n", map[bool]string{true: "resumed", false: "paused"}[active])
				return nil
			})
		},
	}
}

func deleteRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a template; its materialized expenses are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				if err := a.entries.DeleteTemplate(ctx, h.ID, args[0]); err != nil {
					return fmt.Errorf("delete recurring template: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recurring template deleted")
				return nil
			})
		},
	}
}
