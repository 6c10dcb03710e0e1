package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/events"
	"github.com/mmynk/housesplit/internal/guard"
)

func newDeleteCmd(opts *options) *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an expense (requires the delete secret)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer l.Close()

			g, err := guard.New(guard.Config{
				Secret:     l.cfg.Guard.DeleteSecret,
				SecretHash: l.cfg.Guard.DeleteSecretHash,
			})
			if err != nil {
				return err
			}
			if err := g.CheckSecret(secret); err != nil {
				return err
			}

			if err := l.store.DeleteExpense(cmd.Context(), args[0]); err != nil {
				return err
			}
			l.notify(cmd.Context(), events.KindDeleted, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "delete secret")
	return cmd
}

func newHashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret SECRET",
		Short: "Print a bcrypt hash for guard.delete_secret_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := guard.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
