package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/housesplit/internal/storage"
	"github.com/mmynk/housesplit/internal/storage/storagetest"
)

func TestBoltStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		store, err := New(filepath.Join(t.TempDir(), "housesplit.bolt"))
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		return store
	})
}

func TestBoltStore_NotFoundIsNotRetryable(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "housesplit.bolt"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	_, err = store.GetExpense(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetExpense error = %v, want ErrNotFound", err)
	}
	if storage.IsRetryable(err) {
		t.Error("ErrNotFound must not be reported as retryable")
	}
}

func TestBoltStore_CanceledContext(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "housesplit.bolt"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := storagetest.NewExpense("Late", 100, "Alice", time.Now(), "Bob")
	if err := store.CreateExpense(ctx, e); !errors.Is(err, context.Canceled) {
		t.Errorf("CreateExpense error = %v, want context.Canceled", err)
	}
}

func TestBoltStore_SecondHandleIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "housesplit.bolt")
	store, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if second, err := New(path); !errors.Is(err, ErrLocked) {
		if second != nil {
			second.Close()
		}
		t.Fatalf("second New error = %v, want ErrLocked", err)
	}
}
