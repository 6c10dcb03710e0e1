package projection

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/housesplit/internal/metrics"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage/sqlite"
	"github.com/mmynk/housesplit/internal/storage/storagetest"
)

var roster = models.Roster{"Alice", "Bob", "Charlie", "Diana"}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestProjector_Apply(t *testing.T) {
	p := New(roster, nil)
	e := *storagetest.NewExpense("Groceries", 10000, "Alice", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "Alice", "Bob", "Charlie", "Diana")
	e.ID = "e1"

	gen := p.Apply([]models.Expense{e})
	snap, err := p.Wait(waitCtx(t), gen)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got := snap.Balances.Balances["Alice"].NetBalance; got != 7500 {
		t.Errorf("Alice = %s, want 75.00", got)
	}
	if len(snap.Months) != 1 || snap.Months[0].Month.String() != "2024-03" {
		t.Errorf("Months = %+v", snap.Months)
	}
	if len(snap.Settlements) != 3 {
		t.Errorf("Settlements = %+v, want 3 transfers", snap.Settlements)
	}
}

func TestProjector_DiscardsStaleGeneration(t *testing.T) {
	m := metrics.New()
	p := New(roster, m)

	release := make(chan struct{})
	build := p.compute
	p.compute = func(gen uint64, expenses []models.Expense) *Snapshot {
		if gen == 1 {
			<-release
		}
		return build(gen, expenses)
	}

	old := []models.Expense{{ID: "old", Amount: 100, Description: "old", Category: models.CategoryOther,
		PaidBy: "Alice", Date: time.Now(), SharedWith: []string{"Bob"}}}
	slow := p.Apply(old)
	fast := p.Apply(nil)

	snap, err := p.Wait(waitCtx(t), fast)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if snap.Generation != fast {
		t.Fatalf("Generation = %d, want %d", snap.Generation, fast)
	}

	close(release)
	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(m.DiscardedRecomputes) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("stale projection was not discarded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := p.Latest().Generation; got != fast {
		t.Errorf("latest generation = %d after stale result of %d, want %d", got, slow, fast)
	}
	if len(p.Latest().Expenses) != 0 {
		t.Error("stale expenses overwrote the newer projection")
	}
	if got := testutil.ToFloat64(m.Recomputes); got != 2 {
		t.Errorf("Recomputes = %v, want 2", got)
	}
}

func TestProjector_FollowsStore(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := waitCtx(t)
	p := New(roster, nil)
	unsub, err := p.Start(ctx, store)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer unsub()

	if _, err := p.Wait(ctx, 1); err != nil {
		t.Fatalf("no initial projection: %v", err)
	}

	e := storagetest.NewExpense("Rent", 90000, "Diana", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "Alice", "Bob", "Charlie")
	if err := store.CreateExpense(ctx, e); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	for {
		if snap := p.Latest(); len(snap.Expenses) == 1 {
			if got := snap.Balances.Balances["Diana"].NetBalance; got != 90000 {
				t.Errorf("Diana = %s, want 900.00", got)
			}
			return
		}
		select {
		case <-ctx.Done():
			t.Fatal("projection never caught up with the store")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
