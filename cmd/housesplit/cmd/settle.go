package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/calculator"
)

func newSettleCmd(opts *options) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Suggest transfers that bring every balance to zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer l.Close()

			window, err := parseWindow(month, "", "", l.loc)
			if err != nil {
				return err
			}
			expenses, err := l.store.ListExpenses(cmd.Context())
			if err != nil {
				return err
			}

			res := calculator.Aggregate(expenses, l.roster, window)
			printTransfers(cmd.OutOrStdout(), calculator.Settle(res.Ordered(l.roster)))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "only this month (YYYY-MM)")
	return cmd
}
