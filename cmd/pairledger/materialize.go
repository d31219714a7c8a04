package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pairledger/internal/core"
	"pairledger/internal/services"
)

func materializeCmd() *cobra.Command {
	var asOf, templateID string

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Create due expenses from recurring templates now",
		Long: `Materialize every occurrence of the active recurring templates up to a date.
Runs are idempotent: occurrences already materialized are never created twice,
even when the recurring-worker runs at the same time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := dateFlag(asOf)
			if err != nil {
				return err
			}
			m := services.NewMaterializer(a.repo, a.publisher, nil, appConfig.RecurringConcurrency)
			ctx := cmd.Context()

			if templateID != "" {
				return materializeOne(ctx, cmd, a, m, templateID, date)
			}

			summary, err := m.Run(ctx, date)
			if err != nil {
				return fmt.Errorf("materialize: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checked %d templates through %s: %d expenses created, %d failed\n",
				summary.Templates, date, summary.Inserted, summary.Failed)
			if summary.Failed > 0 {
				return fmt.Errorf("%d templates failed to materialize", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "materialize through this date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&templateID, "template", "", "only this template (must belong to your household)")
	return cmd
}

func materializeOne(ctx context.Context, cmd *cobra.Command, a *app, m *services.Materializer, templateID string, asOf core.Date) error {
	h, _, err := a.household(ctx)
	if err != nil {
		return err
	}
	t, err := a.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return fmt.Errorf("get recurring template: %w", err)
	}
	if t.HouseholdID != h.ID {
		return fmt.Errorf("recurring template %s: %w", templateID, core.ErrNotFound)
	}

	res, err := m.MaterializeTemplate(ctx, templateID, asOf)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", templateID, err)
	}
	if res.Through.IsZero() {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing due")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d expenses created, template materialized through %s\n", res.Inserted, res.Through)
	return nil
}
