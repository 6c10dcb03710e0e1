package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/models"
)

func printBalances(w io.Writer, balances []models.PersonBalance) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PERSON\tBALANCE\tITEMS\t")
	for _, b := range balances {
		fmt.Fprintf(tw, "%s\t%s\t%d\t\n", b.Person, b.NetBalance, len(b.Items))
	}
	tw.Flush()
}

func printSkipped(w io.Writer, skipped []models.SkippedRecord) {
	for _, s := range skipped {
		fmt.Fprintf(w, "skipped %q (%s): %s\n", s.Description, s.ExpenseID, s.Reason)
	}
}

func printTransfers(w io.Writer, transfers []calculator.Transfer) {
	if len(transfers) == 0 {
		fmt.Fprintln(w, "All settled.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range transfers {
		fmt.Fprintf(tw, "%s\t->\t%s\t%s\n", t.From, t.To, t.Amount)
	}
	tw.Flush()
}
