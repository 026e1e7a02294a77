package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/jmoiron/sqlx"
)

// CompetitionStore reads competitions owned by the registration side of the application.
// The only column it writes is the bracket publication stamp.
type CompetitionStore struct {
	db *sqlx.DB
}

func NewCompetitionStore(db *sqlx.DB) *CompetitionStore {
	return &CompetitionStore{db: db}
}

func (s *CompetitionStore) GetCompetition(ctx context.Context, id int64) (*bracket.Competition, error) {
	return getCompetition(ctx, s.db, id)
}

func (s *CompetitionStore) GetCompetitionTx(ctx context.Context, tx *sqlx.Tx, id int64) (*bracket.Competition, error) {
	return getCompetition(ctx, tx, id)
}

func getCompetition(ctx context.Context, q sqlx.QueryerContext, id int64) (*bracket.Competition, error) {
	var competition bracket.Competition
	if err := sqlx.GetContext(ctx, q, &competition, "SELECT * FROM competitions WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &competition, nil
}

func (s *CompetitionStore) SetBracketPublishedAt(ctx context.Context, tx *sqlx.Tx, id int64, at *time.Time) error {
	_, err := tx.ExecContext(ctx, "UPDATE competitions SET bracket_published_at = ? WHERE id = ?", at, id)
	return err
}

func (s *CompetitionStore) HasDraws(ctx context.Context, competitionID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM draws WHERE competition_id = ?)", competitionID)
	return exists, err
}

func (s *CompetitionStore) GetWeightCategories(ctx context.Context, ids []int64) (map[int64]bracket.WeightCategory, error) {
	weights := make(map[int64]bracket.WeightCategory, len(ids))
	if len(ids) == 0 {
		return weights, nil
	}
	query, args, err := sqlx.In("SELECT * FROM weight_categories WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []bracket.WeightCategory
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, w := range rows {
		weights[w.ID] = w
	}
	return weights, nil
}
