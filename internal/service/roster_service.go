package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/housesplit/internal/api"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// RosterService implements the Connect RosterService.
type RosterService struct {
	store  storage.Store
	roster models.Roster
}

var _ api.RosterServiceHandler = (*RosterService)(nil)

// NewRosterService creates a RosterService for the configured roster.
func NewRosterService(store storage.Store, roster models.Roster) *RosterService {
	return &RosterService{store: store, roster: roster}
}

// GetRoster returns the household members in configured order.
func (s *RosterService) GetRoster(ctx context.Context, req *connect.Request[api.GetRosterRequest]) (*connect.Response[api.GetRosterResponse], error) {
	members := append([]string(nil), s.roster...)
	return connect.NewResponse(&api.GetRosterResponse{Members: members}), nil
}

// SetPayoutCard stores a member's payout card. The number may contain spaces
// or dashes; it is returned masked.
func (s *RosterService) SetPayoutCard(ctx context.Context, req *connect.Request[api.SetPayoutCardRequest]) (*connect.Response[api.SetPayoutCardResponse], error) {
	card := models.PayoutCard{
		Person: req.Msg.Person,
		Number: models.NormalizeCardNumber(req.Msg.Number),
	}
	if err := card.Validate(s.roster); err != nil {
		slog.Warn("SetPayoutCard rejected", "person", card.Person, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.SetPayoutCard(ctx, &card); err != nil {
		slog.Error("SetPayoutCard failed", "person", card.Person, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Payout card updated", "person", card.Person)
	return connect.NewResponse(&api.SetPayoutCardResponse{Card: api.FromCard(card)}), nil
}

// ListPayoutCards returns every stored card, masked.
func (s *RosterService) ListPayoutCards(ctx context.Context, req *connect.Request[api.ListPayoutCardsRequest]) (*connect.Response[api.ListPayoutCardsResponse], error) {
	cards, err := s.store.ListPayoutCards(ctx)
	if err != nil {
		slog.Error("ListPayoutCards failed", "error", err)
		return nil, toConnectError(err)
	}

	resp := &api.ListPayoutCardsResponse{Cards: make([]api.PayoutCard, 0, len(cards))}
	for _, c := range cards {
		resp.Cards = append(resp.Cards, api.FromCard(c))
	}
	return connect.NewResponse(resp), nil
}
