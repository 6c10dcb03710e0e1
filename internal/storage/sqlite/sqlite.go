// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// DefaultPollInterval is how often a store checks for commits made through
// other handles on the same file, such as the CLI next to a running server.
const DefaultPollInterval = 500 * time.Millisecond

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	hub *storage.Hub

	// mu orders writes with their change notifications, and subscriptions
	// with their initial snapshot, so no subscriber misses a change.
	mu sync.Mutex

	pollInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithPollInterval sets how often external commits are checked for.
func WithPollInterval(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string, opts ...Option) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps the pragma below in effect for every statement.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// Other processes may hold the write lock briefly.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:           db,
		hub:          storage.NewHub(),
		pollInterval: DefaultPollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.watch()
	return s, nil
}

// Close closes the database connection and ends all subscriptions.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	s.hub.Close()
	return s.db.Close()
}

// watch publishes the expense list whenever another connection commits to
// the database file. PRAGMA data_version only changes for commits made
// through other connections, so this store's own writes are not published
// twice.
func (s *SQLiteStore) watch() {
	defer close(s.done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last int64
	seen := false
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		var version int64
		if err := s.db.QueryRow("PRAGMA data_version").Scan(&version); err != nil {
			slog.Warn("Failed to read SQLite data version", "error", err)
		} else {
			if seen && version != last && s.hub.Len() > 0 {
				slog.Debug("External change detected", "data_version", version)
				s.publish(context.Background())
			}
			last, seen = version, true
		}
		s.mu.Unlock()
	}
}

// CreateExpense persists a new expense to the database.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	sharers := models.UniqueSorted(expense.SharedWith)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Wrap("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, amount_minor, description, category, paid_by, occurred_at, occurred_unix_ms, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, int64(expense.Amount), expense.Description, string(expense.Category), expense.PaidBy,
		expense.Date.Format(time.RFC3339Nano), expense.Date.UnixMilli(), expense.Image, expense.CreatedAt,
	)
	if err != nil {
		return storage.Wrap("insert expense", err)
	}

	for _, person := range sharers {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, person) VALUES (?, ?)",
			expense.ID, person,
		)
		if err != nil {
			return storage.Wrap("insert expense share", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Wrap("commit transaction", err)
	}
	expense.SharedWith = sharers

	s.publish(ctx)
	return nil
}

// GetExpense retrieves an expense by ID, including its sharers.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, amount_minor, description, category, paid_by, occurred_at, image, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap("get expense", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT person FROM expense_shares WHERE expense_id = ? ORDER BY person",
		expenseID,
	)
	if err != nil {
		return nil, storage.Wrap("get expense shares", err)
	}
	defer rows.Close()

	for rows.Next() {
		var person string
		if err := rows.Scan(&person); err != nil {
			return nil, storage.Wrap("scan expense share", err)
		}
		expense.SharedWith = append(expense.SharedWith, person)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("iterate expense shares", err)
	}

	return expense, nil
}

// ListExpenses returns every expense, most recent date first.
func (s *SQLiteStore) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount_minor, description, category, paid_by, occurred_at, image, created_at
		 FROM expenses ORDER BY occurred_unix_ms DESC, created_at DESC, id`,
	)
	if err != nil {
		return nil, storage.Wrap("list expenses", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	index := make(map[string]int)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, storage.Wrap("scan expense", err)
		}
		index[e.ID] = len(expenses)
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("iterate expenses", err)
	}

	shareRows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, person FROM expense_shares ORDER BY expense_id, person",
	)
	if err != nil {
		return nil, storage.Wrap("list expense shares", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var expenseID, person string
		if err := shareRows.Scan(&expenseID, &person); err != nil {
			return nil, storage.Wrap("scan expense share", err)
		}
		if i, ok := index[expenseID]; ok {
			expenses[i].SharedWith = append(expenses[i].SharedWith, person)
		}
	}
	if err := shareRows.Err(); err != nil {
		return nil, storage.Wrap("iterate expense shares", err)
	}

	storage.SortExpenses(expenses)
	return expenses, nil
}

// DeleteExpense removes an expense and its shares.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return storage.Wrap("delete expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Wrap("delete expense", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}

	s.publish(ctx)
	return nil
}

// Subscribe registers onChange for expense list changes.
func (s *SQLiteStore) Subscribe(ctx context.Context, onChange func([]models.Expense)) (storage.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, current, onChange)
}

// publish sends the current expense list to subscribers. Callers hold s.mu.
func (s *SQLiteStore) publish(ctx context.Context) {
	expenses, err := s.ListExpenses(context.WithoutCancel(ctx))
	if err != nil {
		slog.Warn("Failed to load expenses for subscribers", "error", err)
		return
	}
	s.hub.Publish(expenses)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (*models.Expense, error) {
	var (
		e          models.Expense
		amount     int64
		category   string
		occurredAt string
	)
	if err := row.Scan(&e.ID, &amount, &e.Description, &category, &e.PaidBy, &occurredAt, &e.Image, &e.CreatedAt); err != nil {
		return nil, err
	}
	date, err := time.Parse(time.RFC3339Nano, occurredAt)
	if err != nil {
		return nil, fmt.Errorf("parse date of expense %s: %w", e.ID, err)
	}
	e.Amount = models.Money(amount)
	e.Category = models.Category(category)
	e.Date = date
	return &e, nil
}
