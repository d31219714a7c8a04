package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pairledger/internal/cli"
	"pairledger/internal/core"
	"pairledger/internal/services"
)

func exportCmd() *cobra.Command {
	var (
		output   string
		toSheets bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the household as JSON or to Google Sheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				if toSheets {
					exporter, err := cli.InitExporter(ctx, appConfig)
					if err != nil {
						return err
					}
					if exporter == nil {
						return fmt.Errorf("sheets export needs GOOGLE_SPREADSHEET_ID")
					}
					ref, err := services.NewExportService(a.repo, exporter).ExportSheet(ctx, h.ID)
					if err != nil {
						return fmt.Errorf("export to sheets: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", ref)
					return nil
				}

				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				if err := services.NewExportService(a.repo, nil).WriteJSON(ctx, h.ID, w); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				if output != "" && output != "-" {
					appLogger.Info("Export written", "path", output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON to this file (default: stdout)")
	cmd.Flags().BoolVar(&toSheets, "sheets", false, "write the ledger to the configured Google Sheet instead")
	return cmd
}
