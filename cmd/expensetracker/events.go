package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
)

// eventsCmd tails the expense event queue, printing one JSON object per line.
func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print expense events from the AMQP queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()

			logger.WithComponent(applog.ComponentAMQP).Info("Listening for expense events",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

			out := cmd.OutOrStdout()
			err = client.ConsumeExpenseEvents(cmd.Context(), func(ev *amqp.ExpenseEvent) error {
				data, err := ev.ToJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
