package store

import (
	"context"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/jmoiron/sqlx"
)

// PlayerStore reads the players the registration side owns. Draws only ever reference them by ID.
type PlayerStore struct {
	db *sqlx.DB
}

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

// PlayerNames maps each known player ID to its display name. Unknown IDs are left out.
func (s *PlayerStore) PlayerNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	query, args, err := sqlx.In("SELECT id, first_name, last_name, club_id FROM players WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var players []bracket.Player
	if err := s.db.SelectContext(ctx, &players, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range players {
		names[p.ID] = p.FullName()
	}
	return names, nil
}
