package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/housesplit/internal/models"
)

func snapshot(n int) []models.Expense {
	return make([]models.Expense, n)
}

func receive(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return -1
	}
}

func TestHub_DeliversInitialSnapshot(t *testing.T) {
	h := NewHub()
	defer h.Close()

	got := make(chan int, 1)
	unsub, err := h.Subscribe(context.Background(), snapshot(3), func(s []models.Expense) { got <- len(s) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsub()

	if n := receive(t, got); n != 3 {
		t.Errorf("initial delivery had %d expenses, want 3", n)
	}
}

func TestHub_LatestWins(t *testing.T) {
	h := NewHub()
	defer h.Close()

	release := make(chan struct{})
	got := make(chan int, 32)
	unsub, err := h.Subscribe(context.Background(), snapshot(0), func(s []models.Expense) {
		got <- len(s)
		if len(s) == 0 {
			<-release
		}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsub()

	if n := receive(t, got); n != 0 {
		t.Fatalf("first delivery = %d, want 0", n)
	}

	// The subscriber is blocked in its callback; every publish replaces the pending one.
	for i := 1; i <= 10; i++ {
		h.Publish(snapshot(i))
	}
	close(release)

	if n := receive(t, got); n != 10 {
		t.Errorf("delivery after backlog = %d, want 10", n)
	}
	select {
	case n := <-got:
		t.Errorf("unexpected extra delivery of %d", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_CallbacksDoNotOverlap(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var mu sync.Mutex
	running, overlaps := 0, 0
	last := make(chan int, 1)
	unsub, err := h.Subscribe(context.Background(), snapshot(0), func(s []models.Expense) {
		mu.Lock()
		running++
		if running > 1 {
			overlaps++
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		if len(s) == 50 {
			last <- len(s)
		}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsub()

	for i := 1; i <= 50; i++ {
		h.Publish(snapshot(i))
	}
	receive(t, last)

	mu.Lock()
	defer mu.Unlock()
	if overlaps != 0 {
		t.Errorf("callbacks overlapped %d times", overlaps)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	defer h.Close()

	got := make(chan int, 8)
	unsub, err := h.Subscribe(context.Background(), snapshot(1), func(s []models.Expense) { got <- len(s) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	receive(t, got)

	unsub()
	unsub() // idempotent

	if h.Len() != 0 {
		t.Errorf("Len() = %d after unsubscribe, want 0", h.Len())
	}
	h.Publish(snapshot(2))
	select {
	case n := <-got:
		t.Errorf("delivery of %d after unsubscribe", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ContextCancelUnsubscribes(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan int, 1)
	if _, err := h.Subscribe(ctx, snapshot(1), func(s []models.Expense) { got <- len(s) }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	receive(t, got)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Closed(t *testing.T) {
	h := NewHub()
	h.Close()
	_, err := h.Subscribe(context.Background(), nil, func([]models.Expense) {})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe on closed hub error = %v, want ErrClosed", err)
	}
}

func TestOpError(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap("create expense", cause)
	if !IsRetryable(err) {
		t.Error("wrapped error should be retryable")
	}
	if !errors.Is(err, cause) {
		t.Error("OpError should unwrap to its cause")
	}
	if got := Wrap("get expense", ErrNotFound); got != ErrNotFound {
		t.Errorf("Wrap(ErrNotFound) = %v, want ErrNotFound unchanged", got)
	}
	if Wrap("noop", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if IsRetryable(ErrNotFound) {
		t.Error("ErrNotFound should not be retryable")
	}
}
