package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/housesplit/internal/api"
	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/events"
	"github.com/mmynk/housesplit/internal/guard"
	"github.com/mmynk/housesplit/internal/middleware"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	store     storage.Store
	roster    models.Roster
	guard     *guard.Guard
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
}

var _ api.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates an ExpenseService. A nil publisher drops change
// events; a nil loc means UTC. Expenses created without a date are dated now
// in loc.
func NewExpenseService(store storage.Store, roster models.Roster, g *guard.Guard, publisher events.Publisher, loc *time.Location) *ExpenseService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseService{
		store:     store,
		roster:    roster,
		guard:     g,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
	}
}

// CreateExpense validates and records a new expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	expense := req.Msg.Expense.ToExpense()
	expense.ID = ""
	expense.CreatedAt = 0
	expense.ApplyDefaults(s.now().In(s.loc))

	slog.Info("CreateExpense request received",
		"description", expense.Description,
		"amount", expense.Amount,
		"paid_by", expense.PaidBy,
		"shared_with", expense.SharedWith,
	)

	if err := expense.ValidateAgainst(s.roster); err != nil {
		slog.Warn("CreateExpense rejected", "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.CreateExpense(ctx, &expense); err != nil {
		slog.Error("CreateExpense failed", "error", err)
		return nil, toConnectError(err)
	}
	s.notify(ctx, events.KindCreated, expense.ID)

	slog.Info("Expense created", "expense_id", expense.ID)
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: api.FromExpense(expense)}), nil
}

// GetExpense returns one expense.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	expense, err := s.store.GetExpense(ctx, req.Msg.ID)
	if err != nil {
		slog.Warn("GetExpense failed", "expense_id", req.Msg.ID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: api.FromExpense(*expense)}), nil
}

// ListExpenses returns every expense, most recent first, optionally limited
// to one calendar month.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		slog.Error("ListExpenses failed", "error", err)
		return nil, toConnectError(err)
	}

	if req.Msg.Month != "" {
		month, err := calculator.ParseMonth(req.Msg.Month)
		if err != nil {
			return nil, toConnectError(err)
		}
		expenses = inMonth(expenses, month)
	}

	resp := &api.ListExpensesResponse{Expenses: make([]api.Expense, 0, len(expenses))}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, api.FromExpense(e))
	}
	slog.Debug("ListExpenses successful", "count", len(resp.Expenses), "month", req.Msg.Month)
	return connect.NewResponse(resp), nil
}

// DeleteExpense removes an expense. The caller must hold a delete capability
// (checked by middleware.DeleteCapability) or supply the delete secret.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ID)

	if !middleware.DeleteAllowed(ctx) {
		if err := s.guard.Allow(req.Msg.Secret); err != nil {
			slog.Warn("DeleteExpense denied", "expense_id", req.Msg.ID, "error", err)
			return nil, toConnectError(err)
		}
	}

	if err := s.store.DeleteExpense(ctx, req.Msg.ID); err != nil {
		slog.Warn("DeleteExpense failed", "expense_id", req.Msg.ID, "error", err)
		return nil, toConnectError(err)
	}
	s.notify(ctx, events.KindDeleted, req.Msg.ID)

	slog.Info("Expense deleted", "expense_id", req.Msg.ID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// UnlockDelete exchanges the delete secret for a short-lived capability.
func (s *ExpenseService) UnlockDelete(ctx context.Context, req *connect.Request[api.UnlockDeleteRequest]) (*connect.Response[api.UnlockDeleteResponse], error) {
	capability, expiresAt, err := s.guard.Unlock(req.Msg.Secret)
	if err != nil {
		slog.Warn("UnlockDelete denied", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.UnlockDeleteResponse{
		Capability: capability,
		ExpiresAt:  expiresAt,
	}), nil
}

// ListCategories returns the valid categories in display order.
func (s *ExpenseService) ListCategories(ctx context.Context, req *connect.Request[api.ListCategoriesRequest]) (*connect.Response[api.ListCategoriesResponse], error) {
	categories := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		categories = append(categories, string(c))
	}
	return connect.NewResponse(&api.ListCategoriesResponse{Categories: categories}), nil
}

// Allocate previews how an expense would be split without recording it.
func (s *ExpenseService) Allocate(ctx context.Context, req *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error) {
	expense := req.Msg.Expense.ToExpense()
	expense.ApplyDefaults(s.now().In(s.loc))
	if err := expense.ValidateAgainst(s.roster); err != nil {
		return nil, toConnectError(err)
	}

	alloc, err := calculator.Allocate(expense)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.AllocateResponse{
		Share:    alloc.Share,
		PayerNet: alloc.PayerNet,
		Shares:   alloc.Shares,
		Absorber: alloc.Absorber,
	}), nil
}

// notify publishes a change event. The write already succeeded, so a
// publish failure is only logged.
func (s *ExpenseService) notify(ctx context.Context, kind events.Kind, id string) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), kind, id); err != nil {
		slog.Warn("Failed to publish change event", "kind", kind, "expense_id", id, "error", err)
	}
}

// inMonth keeps the expenses whose date falls in month, in their own location.
func inMonth(expenses []models.Expense, month calculator.Month) []models.Expense {
	var out []models.Expense
	for _, e := range expenses {
		if calculator.MonthOf(e.Date) == month {
			out = append(out, e)
		}
	}
	return out
}
