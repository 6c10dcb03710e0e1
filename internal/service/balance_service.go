package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/housesplit/internal/api"
	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/projection"
	"github.com/mmynk/housesplit/internal/storage"
)

// firstSnapshotTimeout bounds how long a read waits for the initial projection.
const firstSnapshotTimeout = 5 * time.Second

// BalanceService implements the Connect BalanceService. It reads from the
// projector's latest snapshot and never aggregates the store directly.
type BalanceService struct {
	projector *projection.Projector
	store     storage.Store
	loc       *time.Location
	now       func() time.Time
}

var _ api.BalanceServiceHandler = (*BalanceService)(nil)

// NewBalanceService creates a BalanceService. store is only used for payout
// cards. A nil loc means UTC.
func NewBalanceService(p *projection.Projector, store storage.Store, loc *time.Location) *BalanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &BalanceService{projector: p, store: store, loc: loc, now: time.Now}
}

// snapshot returns the latest projection, waiting briefly for the first one.
func (s *BalanceService) snapshot(ctx context.Context) (*projection.Snapshot, error) {
	if snap := s.projector.Latest(); snap != nil {
		return snap, nil
	}
	ctx, cancel := context.WithTimeout(ctx, firstSnapshotTimeout)
	defer cancel()
	snap, err := s.projector.Wait(ctx, 1)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("balances not computed yet: %w", err))
	}
	return snap, nil
}

// GetBalances returns every roster member's balance, optionally restricted to
// an inclusive date window.
func (s *BalanceService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	roster := s.projector.Roster()

	result := snap.Balances
	if w := req.Msg.Window; w != nil {
		if w.End.Before(w.Start) {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("window end is before start"))
		}
		result = calculator.Aggregate(snap.Expenses, roster, &calculator.Window{Start: w.Start, End: w.End})
	}

	return connect.NewResponse(&api.GetBalancesResponse{
		Balances:   api.FromBalances(result.Ordered(roster)),
		Skipped:    api.FromSkipped(result.Skipped),
		Generation: snap.Generation,
	}), nil
}

// GetMonthlyBalances returns one balance table per month with expenses,
// most recent month first.
func (s *BalanceService) GetMonthlyBalances(ctx context.Context, req *connect.Request[api.GetMonthlyBalancesRequest]) (*connect.Response[api.GetMonthlyBalancesResponse], error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	roster := s.projector.Roster()

	months := make([]api.MonthlyBalances, 0, len(snap.Months))
	for _, m := range snap.Months {
		months = append(months, api.FromMonthly(m, roster))
	}
	return connect.NewResponse(&api.GetMonthlyBalancesResponse{Months: months}), nil
}

// GetPersonalSummary returns paid and consumed totals per person.
func (s *BalanceService) GetPersonalSummary(ctx context.Context, req *connect.Request[api.GetPersonalSummaryRequest]) (*connect.Response[api.GetPersonalSummaryResponse], error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	roster := s.projector.Roster()

	if req.Msg.Person != "" && !roster.Contains(req.Msg.Person) {
		return nil, toConnectError(fmt.Errorf("%w: %q", models.ErrUnknownParticipant, req.Msg.Person))
	}

	expenses := snap.Expenses
	if req.Msg.Month != "" {
		month, err := calculator.ParseMonth(req.Msg.Month)
		if err != nil {
			return nil, toConnectError(err)
		}
		expenses = inMonth(expenses, month)
	}

	var summaries []api.PersonalSummary
	for _, ps := range calculator.Summarize(expenses, roster, nil) {
		if req.Msg.Person != "" && ps.Person != req.Msg.Person {
			continue
		}
		summaries = append(summaries, api.PersonalSummary{
			Person:  ps.Person,
			Paid:    ps.Paid,
			Share:   ps.Share,
			Balance: ps.Balance,
			Items:   api.FromItems(ps.Items),
		})
	}
	return connect.NewResponse(&api.GetPersonalSummaryResponse{Summaries: summaries}), nil
}

// GetDashboardStats returns headline numbers over every expense.
func (s *BalanceService) GetDashboardStats(ctx context.Context, req *connect.Request[api.GetDashboardStatsRequest]) (*connect.Response[api.GetDashboardStatsResponse], error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := calculator.Stats(snap.Expenses, s.projector.Roster(), s.now().In(s.loc))
	return connect.NewResponse(&api.GetDashboardStatsResponse{
		Count:        stats.Count,
		Total:        stats.Total,
		ThisMonth:    stats.ThisMonth,
		AverageShare: stats.AverageShare,
		PaidBy:       stats.PaidBy,
	}), nil
}

// GetSettlements suggests transfers that settle all balances, or one month's
// balances when a month is given. Each transfer names the recipient's masked
// payout card if one is on file.
func (s *BalanceService) GetSettlements(ctx context.Context, req *connect.Request[api.GetSettlementsRequest]) (*connect.Response[api.GetSettlementsResponse], error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	roster := s.projector.Roster()

	transfers := snap.Settlements
	if req.Msg.Month != "" {
		month, err := calculator.ParseMonth(req.Msg.Month)
		if err != nil {
			return nil, toConnectError(err)
		}
		transfers = nil
		for _, m := range snap.Months {
			if m.Month == month {
				transfers = calculator.Settle(m.Ordered(roster))
				break
			}
		}
	}

	cards, err := s.store.ListPayoutCards(ctx)
	if err != nil {
		slog.Error("GetSettlements: failed to list payout cards", "error", err)
		return nil, toConnectError(err)
	}
	masked := make(map[string]string, len(cards))
	for _, c := range cards {
		masked[c.Person] = c.Masked()
	}

	resp := &api.GetSettlementsResponse{Transfers: make([]api.Transfer, 0, len(transfers))}
	for _, t := range transfers {
		resp.Transfers = append(resp.Transfers, api.Transfer{
			From:   t.From,
			To:     t.To,
			Amount: t.Amount,
			PayTo:  masked[t.To],
		})
	}
	return connect.NewResponse(resp), nil
}
