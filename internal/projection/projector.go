// Package projection keeps an up-to-date balance projection of the ledger.
//
// The projector subscribes to a storage.Store and recomputes everything from
// scratch on each change. Each recomputation is tagged with a generation
// number; a result is applied only if nothing newer has been applied, so a
// slow, stale computation can never overwrite a fresher one. Readers always
// see a complete, immutable Snapshot.
package projection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/metrics"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// Snapshot is one complete projection. It must not be modified.
type Snapshot struct {
	Generation  uint64
	ComputedAt  time.Time
	Expenses    []models.Expense
	Balances    calculator.Result
	Months      []calculator.MonthlyResult
	Settlements []calculator.Transfer
}

// Projector maintains the latest Snapshot for a roster.
type Projector struct {
	roster  models.Roster
	metrics *metrics.Metrics
	compute func(gen uint64, expenses []models.Expense) *Snapshot

	gen    atomic.Uint64
	latest atomic.Pointer[Snapshot]

	mu      sync.Mutex
	changed chan struct{}
}

// New creates a projector. m may be nil.
func New(roster models.Roster, m *metrics.Metrics) *Projector {
	p := &Projector{
		roster:  roster,
		metrics: m,
		changed: make(chan struct{}),
	}
	p.compute = p.build
	return p
}

// Start subscribes the projector to store.
func (p *Projector) Start(ctx context.Context, store storage.Store) (storage.Unsubscribe, error) {
	return store.Subscribe(ctx, func(expenses []models.Expense) {
		p.Apply(expenses)
	})
}

// Apply starts a recomputation for expenses and returns its generation.
// It does not wait for the result.
func (p *Projector) Apply(expenses []models.Expense) uint64 {
	gen := p.gen.Add(1)
	go p.run(gen, expenses)
	return gen
}

func (p *Projector) run(gen uint64, expenses []models.Expense) {
	start := time.Now()
	snap := p.compute(gen, expenses)
	if p.metrics != nil {
		p.metrics.Recomputes.Inc()
		p.metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	}

	if !p.publish(snap) {
		slog.Debug("Discarded stale projection", "generation", gen, "latest", p.Generation())
		if p.metrics != nil {
			p.metrics.DiscardedRecomputes.Inc()
		}
		return
	}

	if n := len(snap.Balances.Skipped); n > 0 {
		slog.Warn("Expenses skipped in projection", "count", n, "generation", gen)
	}
	if p.metrics != nil {
		p.metrics.Expenses.Set(float64(len(snap.Expenses)))
		p.metrics.SkippedRecords.Set(float64(len(snap.Balances.Skipped)))
	}
}

// publish installs snap unless a snapshot of the same or a newer generation
// is already installed.
func (p *Projector) publish(snap *Snapshot) bool {
	for {
		cur := p.latest.Load()
		if cur != nil && cur.Generation >= snap.Generation {
			return false
		}
		if p.latest.CompareAndSwap(cur, snap) {
			break
		}
	}

	p.mu.Lock()
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
	return true
}

func (p *Projector) build(gen uint64, expenses []models.Expense) *Snapshot {
	all := calculator.Aggregate(expenses, p.roster, nil)
	for _, s := range all.Skipped {
		slog.Warn("Skipping expense", "expense_id", s.ExpenseID, "description", s.Description, "reason", s.Reason)
	}
	return &Snapshot{
		Generation:  gen,
		ComputedAt:  time.Now(),
		Expenses:    expenses,
		Balances:    all,
		Months:      calculator.AggregateByMonth(expenses, p.roster),
		Settlements: calculator.Settle(all.Ordered(p.roster)),
	}
}

// Latest returns the most recently applied snapshot, or nil before the first.
func (p *Projector) Latest() *Snapshot {
	return p.latest.Load()
}

// Generation returns the generation of the applied snapshot, 0 if none.
func (p *Projector) Generation() uint64 {
	if s := p.latest.Load(); s != nil {
		return s.Generation
	}
	return 0
}

// Roster returns the roster the projector aggregates over.
func (p *Projector) Roster() models.Roster {
	return p.roster
}

// Wait blocks until a snapshot of generation gen or newer is applied.
// Wait(ctx, 1) waits for the first snapshot.
func (p *Projector) Wait(ctx context.Context, gen uint64) (*Snapshot, error) {
	for {
		p.mu.Lock()
		changed := p.changed
		p.mu.Unlock()

		if s := p.latest.Load(); s != nil && s.Generation >= gen {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}
