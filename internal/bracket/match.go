package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Match struct {
	ID     uuid.UUID `db:"id"`
	DrawID uuid.UUID `db:"draw_id"`

	// Position in the draw for reconstructing the tree
	RoundNo int `db:"round_no"`
	SlotA   int `db:"slot_a"`
	SlotB   int `db:"slot_b"`

	PlayerAID *int64 `db:"player_a_id"`
	PlayerBID *int64 `db:"player_b_id"`
	IsBye     bool   `db:"is_bye"`
	WinnerID  *int64 `db:"winner_id"`

	MatNo       *int `db:"mat_no"`
	MatchNumber *int `db:"match_number"`

	CreatedAt time.Time `db:"created_at"`
}

// HasBothPlayers is true once both sides of the match are known.
func (m *Match) HasBothPlayers() bool {
	return m.PlayerAID != nil && m.PlayerBID != nil
}

func (m *Match) IsNumbered() bool {
	return m.MatchNumber != nil
}
