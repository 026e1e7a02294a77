package store

import (
	"context"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/jmoiron/sqlx"
)

type MatStore struct {
	db *sqlx.DB
}

func NewMatStore(db *sqlx.DB) *MatStore {
	return &MatStore{db: db}
}

const (
	// A weight configured on several mats goes to the lowest mat number
	weightToMatQuery = `
		SELECT w.weight_category_id, MIN(a.mat_number) AS mat_number
		FROM mat_assignments a
		JOIN mat_assignment_weights w ON w.mat_assignment_id = a.id
		WHERE a.competition_id = ?
		GROUP BY w.weight_category_id
	`
	assignmentsForWeightsQuery = `
		SELECT a.mat_number, w.weight_category_id, c.name AS weight_name
		FROM mat_assignments a
		JOIN mat_assignment_weights w ON w.mat_assignment_id = a.id
		JOIN weight_categories c ON c.id = w.weight_category_id
		WHERE a.competition_id = ? AND w.weight_category_id IN (?)
		ORDER BY a.mat_number ASC, c.min_weight ASC
	`
)

func (s *MatStore) WeightToMat(ctx context.Context, competitionID int64) (map[int64]int, error) {
	return weightToMat(ctx, s.db, competitionID)
}

func (s *MatStore) WeightToMatTx(ctx context.Context, tx *sqlx.Tx, competitionID int64) (map[int64]int, error) {
	return weightToMat(ctx, tx, competitionID)
}

func weightToMat(ctx context.Context, q sqlx.QueryerContext, competitionID int64) (map[int64]int, error) {
	var rows []bracket.MatAssignment
	if err := sqlx.SelectContext(ctx, q, &rows, weightToMatQuery, competitionID); err != nil {
		return nil, err
	}
	mapping := make(map[int64]int, len(rows))
	for _, row := range rows {
		mapping[row.WeightCategoryID] = row.MatNumber
	}
	return mapping, nil
}

// AssignmentsForWeights lists every (mat, weight) pair of the competition restricted to weightIDs.
func (s *MatStore) AssignmentsForWeights(ctx context.Context, competitionID int64, weightIDs []int64) ([]bracket.MatAssignment, error) {
	if len(weightIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(assignmentsForWeightsQuery, competitionID, weightIDs)
	if err != nil {
		return nil, err
	}
	var rows []bracket.MatAssignment
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...)
	return rows, err
}
