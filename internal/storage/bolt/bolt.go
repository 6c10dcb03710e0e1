// Package bolt provides a single-file storage.Store backed by bbolt.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// Bucket names.
const (
	bucketExpenses    = "expenses"
	bucketPayoutCards = "payout_cards"
)

var _ storage.Store = (*Store)(nil)

// ErrLocked is returned by New when another handle has the file open.
// bbolt allows one open handle per file.
var ErrLocked = errors.New("bolt database is in use by another process")

// Store keeps expenses as JSON documents keyed by ID.
type Store struct {
	db  *bolt.DB
	hub *storage.Hub
	mu  sync.Mutex
}

// record is the on-disk form of an expense.
type record struct {
	ID          string       `json:"id"`
	Amount      models.Money `json:"amount"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	PaidBy      string       `json:"paidBy"`
	Date        time.Time    `json:"date"`
	SharedWith  []string     `json:"sharedWith"`
	Image       string       `json:"image,omitempty"`
	CreatedAt   int64        `json:"createdAt"`
}

func toRecord(e *models.Expense) record {
	return record{
		ID:          e.ID,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    string(e.Category),
		PaidBy:      e.PaidBy,
		Date:        e.Date,
		SharedWith:  e.SharedWith,
		Image:       e.Image,
		CreatedAt:   e.CreatedAt,
	}
}

func (r record) expense() models.Expense {
	return models.Expense{
		ID:          r.ID,
		Amount:      r.Amount,
		Description: r.Description,
		Category:    models.Category(r.Category),
		PaidBy:      r.PaidBy,
		Date:        r.Date,
		SharedWith:  r.SharedWith,
		Image:       r.Image,
		CreatedAt:   r.CreatedAt,
	}
}

// New opens (or creates) the database file and initializes buckets.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{bucketExpenses, bucketPayoutCards} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, hub: storage.NewHub()}, nil
}

// Close ends all subscriptions and closes the database.
func (s *Store) Close() error {
	s.hub.Close()
	return s.db.Close()
}

// CreateExpense stores a new expense.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	expense.SharedWith = models.UniqueSorted(expense.SharedWith)

	data, err := json.Marshal(toRecord(expense))
	if err != nil {
		return fmt.Errorf("failed to marshal expense: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketExpenses)).Put([]byte(expense.ID), data)
	})
	if err != nil {
		return storage.Wrap("put expense", err)
	}

	s.publish()
	return nil
}

// GetExpense retrieves an expense by ID.
func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketExpenses)).Get([]byte(expenseID))
		if data == nil {
			return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, storage.Wrap("get expense", err)
	}
	e := rec.expense()
	return &e, nil
}

// ListExpenses returns every expense, most recent date first.
func (s *Store) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var expenses []models.Expense
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketExpenses)).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal expense %s: %w", k, err)
			}
			expenses = append(expenses, rec.expense())
			return nil
		})
	})
	if err != nil {
		return nil, storage.Wrap("list expenses", err)
	}
	storage.SortExpenses(expenses)
	return expenses, nil
}

// DeleteExpense removes an expense by ID.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketExpenses))
		if b.Get([]byte(expenseID)) == nil {
			return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
		}
		return b.Delete([]byte(expenseID))
	})
	if err != nil {
		return storage.Wrap("delete expense", err)
	}

	s.publish()
	return nil
}

// Subscribe registers onChange for expense list changes.
func (s *Store) Subscribe(ctx context.Context, onChange func([]models.Expense)) (storage.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, current, onChange)
}

func (s *Store) publish() {
	expenses, err := s.ListExpenses(context.Background())
	if err != nil {
		slog.Warn("Failed to load expenses for subscribers", "error", err)
		return
	}
	s.hub.Publish(expenses)
}

// SetPayoutCard stores or replaces card.Person's payout card.
func (s *Store) SetPayoutCard(ctx context.Context, card *models.PayoutCard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	card.UpdatedAt = time.Now().Unix()
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal payout card: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPayoutCards)).Put([]byte(card.Person), data)
	})
	return storage.Wrap("put payout card", err)
}

// ListPayoutCards returns every payout card ordered by person.
// bbolt iterates keys in byte order, which is the person order.
func (s *Store) ListPayoutCards(ctx context.Context) ([]models.PayoutCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var cards []models.PayoutCard
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPayoutCards)).ForEach(func(k, v []byte) error {
			var c models.PayoutCard
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("failed to unmarshal payout card %s: %w", k, err)
			}
			cards = append(cards, c)
			return nil
		})
	})
	if err != nil {
		return nil, storage.Wrap("list payout cards", err)
	}
	return cards, nil
}
