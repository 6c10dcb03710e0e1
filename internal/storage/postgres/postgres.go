// Package postgres provides a PostgreSQL-backed storage.Store. Changes made
// by any process sharing the database reach subscribers through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// Channel is the NOTIFY channel the expenses trigger signals on.
const Channel = "housesplit_expenses"

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ storage.Store = (*Store)(nil)

// Config configures the connection pool.
type Config struct {
	URL         string
	MaxConns    int32
	DialTimeout time.Duration
}

// Store implements storage.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	hub  *storage.Hub
	mu   sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// New migrates the schema, opens the pool and starts listening for changes.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := runMigrations(cfg.URL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.HealthCheckPeriod = 15 * time.Second
	pc.ConnConfig.RuntimeParams["application_name"] = "housesplit"

	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	defer cancelDial()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		pool:   pool,
		hub:    storage.NewHub(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.listen(listenCtx)
	return s, nil
}

func runMigrations(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(url))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// URL to the scheme of the pgx v5 migrate driver.
func migrateURL(url string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

// Close stops the listener, ends subscriptions and closes the pool.
func (s *Store) Close() error {
	s.cancel()
	<-s.done
	s.hub.Close()
	s.pool.Close()
	return nil
}

// listen forwards NOTIFY events to subscribers, reconnecting after failures.
func (s *Store) listen(ctx context.Context) {
	defer close(s.done)
	for ctx.Err() == nil {
		if err := s.listenOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("Postgres listener failed, retrying", "channel", Channel, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}
	// Catch up on anything missed while disconnected.
	s.refresh(ctx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Connection may be mid-wait; don't return it to the pool.
				_ = conn.Conn().Close(context.Background())
			}
			return err
		}
		slog.Debug("Expenses changed", "channel", n.Channel, "op", n.Payload)
		s.refresh(ctx)
	}
}

func (s *Store) refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(ctx)
}

// publish sends the current expense list to subscribers. Callers hold s.mu.
func (s *Store) publish(ctx context.Context) {
	expenses, err := s.ListExpenses(context.WithoutCancel(ctx))
	if err != nil {
		slog.Warn("Failed to load expenses for subscribers", "error", err)
		return
	}
	s.hub.Publish(expenses)
}

// CreateExpense persists a new expense with its sharers in one transaction.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	sharers := models.UniqueSorted(expense.SharedWith)
	_, offset := expense.Date.Zone()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO expenses (id, amount_minor, description, category, paid_by, occurred_at, occurred_offset, image, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			expense.ID, int64(expense.Amount), expense.Description, string(expense.Category), expense.PaidBy,
			expense.Date, offset, expense.Image, expense.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		for _, person := range sharers {
			if _, err := tx.Exec(ctx,
				"INSERT INTO expense_shares (expense_id, person) VALUES ($1, $2)",
				expense.ID, person,
			); err != nil {
				return fmt.Errorf("insert expense share: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return storage.Wrap("create expense", err)
	}
	expense.SharedWith = sharers

	s.publish(ctx)
	return nil
}

const selectExpenses = `
	SELECT e.id, e.amount_minor, e.description, e.category, e.paid_by, e.occurred_at, e.occurred_offset,
	       e.image, e.created_at,
	       COALESCE(array_agg(s.person ORDER BY s.person) FILTER (WHERE s.person IS NOT NULL), '{}')
	FROM expenses e
	LEFT JOIN expense_shares s ON s.expense_id = e.id
`

// GetExpense retrieves an expense by ID.
func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	rows, err := s.pool.Query(ctx, selectExpenses+" WHERE e.id = $1 GROUP BY e.id", expenseID)
	if err != nil {
		return nil, storage.Wrap("get expense", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanExpense)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap("get expense", err)
	}
	return &e, nil
}

// ListExpenses returns every expense, most recent date first.
func (s *Store) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	rows, err := s.pool.Query(ctx, selectExpenses+" GROUP BY e.id ORDER BY e.occurred_at DESC, e.created_at DESC, e.id")
	if err != nil {
		return nil, storage.Wrap("list expenses", err)
	}
	expenses, err := pgx.CollectRows(rows, scanExpense)
	if err != nil {
		return nil, storage.Wrap("list expenses", err)
	}
	storage.SortExpenses(expenses)
	return expenses, nil
}

func scanExpense(row pgx.CollectableRow) (models.Expense, error) {
	var (
		e        models.Expense
		amount   int64
		category string
		offset   int
	)
	err := row.Scan(&e.ID, &amount, &e.Description, &category, &e.PaidBy, &e.Date, &offset,
		&e.Image, &e.CreatedAt, &e.SharedWith)
	if err != nil {
		return models.Expense{}, err
	}
	e.Amount = models.Money(amount)
	e.Category = models.Category(category)
	e.Date = e.Date.In(time.FixedZone("", offset))
	return e, nil
}

// DeleteExpense removes an expense; shares go with it.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1", expenseID)
	if err != nil {
		return storage.Wrap("delete expense", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}

	s.publish(ctx)
	return nil
}

// Subscribe registers onChange for expense list changes, including those
// made by other processes.
func (s *Store) Subscribe(ctx context.Context, onChange func([]models.Expense)) (storage.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, current, onChange)
}

// SetPayoutCard inserts or replaces card.Person's payout card.
func (s *Store) SetPayoutCard(ctx context.Context, card *models.PayoutCard) error {
	card.UpdatedAt = time.Now().Unix()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payout_cards (person, number, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (person) DO UPDATE SET number = EXCLUDED.number, updated_at = EXCLUDED.updated_at`,
		card.Person, card.Number, card.UpdatedAt,
	)
	return storage.Wrap("set payout card", err)
}

// ListPayoutCards returns every payout card ordered by person.
func (s *Store) ListPayoutCards(ctx context.Context) ([]models.PayoutCard, error) {
	rows, err := s.pool.Query(ctx, "SELECT person, number, updated_at FROM payout_cards ORDER BY person")
	if err != nil {
		return nil, storage.Wrap("list payout cards", err)
	}
	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PayoutCard, error) {
		var c models.PayoutCard
		err := row.Scan(&c.Person, &c.Number, &c.UpdatedAt)
		return c, err
	})
	if err != nil {
		return nil, storage.Wrap("list payout cards", err)
	}
	return cards, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// truncate empties every table. Tests only.
func (s *Store) truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE expenses, expense_shares, payout_cards")
	return err
}
