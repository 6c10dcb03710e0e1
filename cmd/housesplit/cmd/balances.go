package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/calculator"
)

func newBalancesCmd(opts *options) *cobra.Command {
	var month, from, to string

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show each member's net balance",
		Long: `Show each roster member's net balance. Positive means the member is owed.

Example:
  housesplit balances
  housesplit balances --month 2024-03
  housesplit balances --from 2024-03-01 --to 2024-03-15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer l.Close()

			window, err := parseWindow(month, from, to, l.loc)
			if err != nil {
				return err
			}

			expenses, err := l.store.ListExpenses(cmd.Context())
			if err != nil {
				return err
			}
			res := calculator.Aggregate(expenses, l.roster, window)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d expenses, total %s\n\n", res.Count, res.Total)
			printBalances(out, res.Ordered(l.roster))
			printSkipped(cmd.ErrOrStderr(), res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only this month (YYYY-MM)")
	cmd.Flags().StringVar(&from, "from", "", "window start date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVar(&to, "to", "", "window end date (YYYY-MM-DD), inclusive")
	cmd.MarkFlagsMutuallyExclusive("month", "from")
	cmd.MarkFlagsMutuallyExclusive("month", "to")
	return cmd
}

// parseWindow turns the CLI date flags into a window in loc. Days are whole:
// --to includes the entire end day.
func parseWindow(month, from, to string, loc *time.Location) (*calculator.Window, error) {
	if month != "" {
		m, err := calculator.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		w := calculator.MonthWindow(m, loc)
		return &w, nil
	}
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, errors.New("--from and --to must be given together")
	}
	start, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid --from: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid --to: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("--to is before --from")
	}
	return &calculator.Window{Start: start, End: end.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
}
