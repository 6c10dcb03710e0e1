package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/calculator"
)

func newMonthsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "Show balances per calendar month, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer l.Close()

			expenses, err := l.store.ListExpenses(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			months := calculator.AggregateByMonth(expenses, l.roster)
			if len(months) == 0 {
				fmt.Fprintln(out, "No expenses.")
				return nil
			}
			for i, m := range months {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "== %s (%d expenses, total %s) ==\n", m.Month.Label(), m.Count, m.Total)
				printBalances(out, m.Ordered(l.roster))
				printSkipped(cmd.ErrOrStderr(), m.Skipped)
			}
			return nil
		},
	}
}
