// Package cmd provides CLI commands for housesplit.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/housesplit/internal/backend"
	"github.com/mmynk/housesplit/internal/config"
	"github.com/mmynk/housesplit/internal/events"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
	"github.com/mmynk/housesplit/pkg/logging"
)

type options struct {
	cfgFile string
	debug   bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "housesplit",
		Short: "Split shared household expenses",
		Long: `housesplit records shared household expenses and shows who owes whom.

It works directly on the configured ledger (sqlite, bolt or postgres), so
it can be used next to a running server or on its own.

Example:
  housesplit add --amount 100 --description "Groceries" --paid-by Alice --shared-with Alice,Bob
  housesplit balances --month 2024-03
  housesplit settle`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.debug {
				logging.SetupWithLevel(slog.LevelDebug)
			} else {
				logging.Setup("")
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./housesplit.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newBalancesCmd(opts),
		newMonthsCmd(opts),
		newSettleCmd(opts),
		newAddCmd(opts),
		newDeleteCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newWatchCmd(opts),
		newHashSecretCmd(),
	)
	return root
}

// Execute runs the CLI until it finishes or is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// publisher is an events.Publisher holding a broker connection.
type publisher interface {
	events.Publisher
	Close() error
}

// dialPublisher connects to the change feed. Tests replace it.
var dialPublisher = func(cfg config.AMQPConfig) (publisher, error) {
	client, err := events.Dial(cfg.URL, cfg.Exchange, cfg.RoutingKey, nil)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ledger is an opened store with the settings commands need.
type ledger struct {
	cfg    *config.Config
	store  storage.Store
	roster models.Roster
	loc    *time.Location

	events     publisher
	dialFailed bool
}

func (l *ledger) Close() error {
	if l.events != nil {
		l.events.Close()
	}
	return l.store.Close()
}

// notify announces a write on the change feed when amqp.url is set. The
// broker connection is opened on first use. Failures are logged because the
// write itself has already been committed.
func (l *ledger) notify(ctx context.Context, kind events.Kind, id string) {
	if l.cfg.AMQP.URL == "" || l.dialFailed {
		return
	}
	if l.events == nil {
		p, err := dialPublisher(l.cfg.AMQP)
		if err != nil {
			l.dialFailed = true
			slog.Warn("Change events will not be published", "error", err)
			return
		}
		l.events = p
	}
	if err := l.events.Publish(ctx, kind, id); err != nil {
		slog.Warn("Failed to publish change event", "kind", kind, "expense_id", id, "error", err)
	}
}

func openLedger(ctx context.Context, opts *options) (*ledger, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	store, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &ledger{cfg: cfg, store: store, roster: cfg.Members(), loc: loc}, nil
}
