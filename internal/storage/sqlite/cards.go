package sqlite

import (
	"context"
	"time"

	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// SetPayoutCard inserts or replaces the payout card of card.Person.
func (s *SQLiteStore) SetPayoutCard(ctx context.Context, card *models.PayoutCard) error {
	card.UpdatedAt = time.Now().Unix()

	query := `
		INSERT INTO payout_cards (person, number, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(person) DO UPDATE SET number = excluded.number, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, card.Person, card.Number, card.UpdatedAt); err != nil {
		return storage.Wrap("set payout card", err)
	}
	return nil
}

// ListPayoutCards returns every payout card ordered by person.
func (s *SQLiteStore) ListPayoutCards(ctx context.Context) ([]models.PayoutCard, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT person, number, updated_at FROM payout_cards ORDER BY person")
	if err != nil {
		return nil, storage.Wrap("list payout cards", err)
	}
	defer rows.Close()

	var cards []models.PayoutCard
	for rows.Next() {
		var c models.PayoutCard
		if err := rows.Scan(&c.Person, &c.Number, &c.UpdatedAt); err != nil {
			return nil, storage.Wrap("scan payout card", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("iterate payout cards", err)
	}
	return cards, nil
}
