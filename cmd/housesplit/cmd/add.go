package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/events"
	"github.com/mmynk/housesplit/internal/models"
)

func newAddCmd(opts *options) *cobra.Command {
	var (
		amount      string
		description string
		category    string
		paidBy      string
		sharedWith  []string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a shared expense",
		Long: `Record a shared expense. --shared-with defaults to the whole roster.

Example:
  housesplit add --amount 45.90 --description "Cleaning supplies" \
    --category "Household Items" --paid-by Bob --shared-with Alice,Bob,Diana`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer l.Close()

			money, err := models.ParseMoney(amount)
			if err != nil {
				return err
			}
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}

			now := time.Now().In(l.loc)
			var when time.Time
			if date != "" {
				when, err = time.ParseInLocation("2006-01-02", date, l.loc)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}
			if len(sharedWith) == 0 {
				sharedWith = append([]string(nil), l.roster...)
			}

			e := models.Expense{
				Amount:      money,
				Description: description,
				Category:    cat,
				PaidBy:      paidBy,
				Date:        when,
				SharedWith:  sharedWith,
			}
			e.ApplyDefaults(now)
			if err := e.ValidateAgainst(l.roster); err != nil {
				return err
			}
			alloc, err := calculator.Allocate(e)
			if err != nil {
				return err
			}

			if err := l.store.CreateExpense(cmd.Context(), &e); err != nil {
				return err
			}
			slog.Debug("Expense created", "expense_id", e.ID)
			l.notify(cmd.Context(), events.KindCreated, e.ID)

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s paid %s, %s each for %d people\n",
				e.ID, e.PaidBy, e.Amount, alloc.Share, len(e.SharedWith))
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "total amount, e.g. 12.50")
	cmd.Flags().StringVar(&description, "description", "", "what the expense was for")
	cmd.Flags().StringVar(&category, "category", string(models.CategoryOther), "expense category")
	cmd.Flags().StringVar(&paidBy, "paid-by", "", "roster member who paid")
	cmd.Flags().StringSliceVar(&sharedWith, "shared-with", nil, "roster members sharing the expense (default: everyone)")
	cmd.Flags().StringVar(&date, "date", "", "date of the expense (YYYY-MM-DD, default: now)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("paid-by")
	return cmd
}
