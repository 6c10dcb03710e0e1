package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/events"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reprint balances whenever the server announces a change",
		Long: `Consume the AMQP change feed (amqp.url) and reprint the balance table
after every created or deleted expense. Stops on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer l.Close()

			if l.cfg.AMQP.URL == "" {
				return errors.New("amqp.url is not configured")
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			show := func() error {
				expenses, err := l.store.ListExpenses(ctx)
				if err != nil {
					return err
				}
				res := calculator.Aggregate(expenses, l.roster, nil)
				printBalances(out, res.Ordered(l.roster))
				return nil
			}
			if err := show(); err != nil {
				return err
			}

			err = events.ConsumeWithRetry(ctx, l.cfg.AMQP.URL, l.cfg.AMQP.Exchange, l.cfg.AMQP.RoutingKey,
				func(msg *events.Message) error {
					slog.Debug("Change event", "kind", msg.Kind, "expense_id", msg.ID)
					fmt.Fprintf(out, "\n%s %s at %s\n", msg.Kind, msg.ID, msg.Timestamp.In(l.loc).Format("15:04:05"))
					return show()
				})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
