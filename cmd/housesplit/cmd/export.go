package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/events"
	"github.com/mmynk/housesplit/internal/export"
	"github.com/mmynk/housesplit/internal/importer"
)

func newExportCmd(opts *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every expense and monthly balances to an XLSX workbook",
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

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Write(f, expenses, l.roster); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d expenses to %s\n", len(expenses), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "housesplit.xlsx", "output file")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON export of the legacy document store",
		Long: `Import a JSON array of legacy expense documents. The whole file is
validated before anything is written. Documents without sharedWith are
shared by the whole roster.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			l, err := openLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer l.Close()

			im, err := importer.New(l.roster)
			if err != nil {
				return err
			}
			expenses, err := im.Parse(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%d expenses would be imported\n", len(expenses))
				return nil
			}
			for i := range expenses {
				if err := l.store.CreateExpense(cmd.Context(), &expenses[i]); err != nil {
					return fmt.Errorf("import %q: %w", expenses[i].Description, err)
				}
				l.notify(cmd.Context(), events.KindCreated, expenses[i].ID)
			}
			fmt.Fprintf(out, "Imported %d expenses\n", len(expenses))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only")
	return cmd
}
