package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pairledger/internal/amqp"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the ledger event stream",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print ledger events as they arrive",
		Long: `Consume ledger events from the configured queue and print them as JSON lines.
Consumed events are acknowledged, so do not tail the queue a sheets sync
worker depends on.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appConfig.AMQPURL == "" {
				return errors.New("events tail needs AMQP_URL")
			}
			client, err := amqp.NewClient(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
			if err != nil {
				return fmt.Errorf("connect to AMQP: %w", err)
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.ConsumeEvents(cmd.Context(), func(ev *amqp.LedgerEvent) error {
				body, err := ev.ToJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(body))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	})

	return cmd
}
