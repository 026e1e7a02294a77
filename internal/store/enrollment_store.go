package store

import (
	"context"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/jmoiron/sqlx"
)

type EnrollmentStore struct {
	db *sqlx.DB
}

func NewEnrollmentStore(db *sqlx.DB) *EnrollmentStore {
	return &EnrollmentStore{db: db}
}

const eligibleForDivisionQuery = `
	SELECT * FROM enrollments
	WHERE competition_id = ?
	AND belt_group_id = ?
	AND weight_category_id = ?
	AND status IN (?)
	ORDER BY id ASC
`

func divisionArgs(key bracket.DivisionKey) (string, []interface{}, error) {
	return sqlx.In(eligibleForDivisionQuery, key.CompetitionID, key.BeltGroupID, key.WeightCategoryID, bracket.EligibleStatuses)
}

// EligibleForDivisionTx lists the enrollments of a division whose status puts them into a draw.
func (s *EnrollmentStore) EligibleForDivisionTx(ctx context.Context, tx *sqlx.Tx, key bracket.DivisionKey) ([]bracket.Enrollment, error) {
	query, args, err := divisionArgs(key)
	if err != nil {
		return nil, err
	}
	var enrollments []bracket.Enrollment
	err = tx.SelectContext(ctx, &enrollments, tx.Rebind(query), args...)
	return enrollments, err
}

func (s *EnrollmentStore) CountEligible(ctx context.Context, key bracket.DivisionKey) (int, error) {
	query, args, err := divisionArgs(key)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM ("+query+")"), args...)
	return n, err
}
