package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DrawStore struct {
	db *sqlx.DB
}

func NewDrawStore(db *sqlx.DB) *DrawStore {
	return &DrawStore{db: db}
}

const (
	createDrawQuery = `
		INSERT INTO draws (id, competition_id, gender, age_category_id, belt_group_id, weight_category_id, size, club_threshold, rng_seed, created_at)
		VALUES (:id, :competition_id, :gender, :age_category_id, :belt_group_id, :weight_category_id, :size, :club_threshold, :rng_seed, :created_at)
	`
	createMatchesQuery = `
		INSERT INTO matches (id, draw_id, round_no, slot_a, slot_b, player_a_id, player_b_id, is_bye, winner_id, mat_no, match_number, created_at)
		VALUES (:id, :draw_id, :round_no, :slot_a, :slot_b, :player_a_id, :player_b_id, :is_bye, :winner_id, :mat_no, :match_number, :created_at)
	`
	updateMatchNumberingQuery = `
		UPDATE matches SET
		is_bye = :is_bye,
		mat_no = :mat_no,
		match_number = :match_number
		WHERE id = :id
	`
	latestDrawQuery = `
		SELECT * FROM latest_draws
		WHERE competition_id = ?
		AND gender = ?
		AND age_category_id IS ?
		AND belt_group_id = ?
		AND weight_category_id = ?
	`
	// Lightest weight first, the order brackets are fought and printed in
	latestDrawsForWeightsQuery = `
		SELECT d.* FROM latest_draws d
		JOIN weight_categories w ON w.id = d.weight_category_id
		WHERE d.competition_id = ? AND d.weight_category_id IN (?)
		ORDER BY w.min_weight ASC, d.created_at ASC, d.id ASC
	`
	latestDrawsForCompetitionQuery = `
		SELECT d.* FROM latest_draws d
		JOIN weight_categories w ON w.id = d.weight_category_id
		WHERE d.competition_id = ?
		ORDER BY w.min_weight ASC, d.created_at ASC, d.id ASC
	`
	matchesForDrawQuery = `
		SELECT * FROM matches WHERE draw_id = ?
		ORDER BY round_no ASC, slot_a ASC, slot_b ASC, id ASC
	`
	clearMatchNumbersQuery = `
		UPDATE matches SET match_number = NULL
		WHERE draw_id IN (
			SELECT id FROM draws WHERE competition_id = ? AND weight_category_id IN (?)
		)
	`
	matchesOnMatQuery = `
		SELECT m.* FROM matches m
		JOIN latest_draws d ON d.id = m.draw_id
		WHERE d.competition_id = ? AND m.mat_no = ? AND m.match_number IS NOT NULL
		ORDER BY m.match_number ASC, m.id ASC
	`
	countUnnumberedQuery = `
		SELECT COUNT(*) FROM matches m
		JOIN latest_draws d ON d.id = m.draw_id
		WHERE d.competition_id = ? AND m.is_bye = 0 AND m.match_number IS NULL
	`
	countUnnumberedRealQuery = countUnnumberedQuery + `
		AND m.player_a_id IS NOT NULL AND m.player_b_id IS NOT NULL
	`
)

func (s *DrawStore) CreateDraw(ctx context.Context, tx *sqlx.Tx, draw *bracket.Draw) error {
	_, err := tx.NamedExecContext(ctx, createDrawQuery, draw)
	return err
}

func (s *DrawStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, createMatchesQuery, matches)
	return err
}

// UpdateMatchNumbering writes the fields owned by match numbering and nothing else.
func (s *DrawStore) UpdateMatchNumbering(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	res, err := tx.NamedExecContext(ctx, updateMatchNumberingQuery, match)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("match %s: expected 1 updated row, got %d", match.ID, n)
	}
	return nil
}

func (s *DrawStore) GetDraw(ctx context.Context, id uuid.UUID) (*bracket.Draw, error) {
	var draw bracket.Draw
	err := s.db.GetContext(ctx, &draw, "SELECT * FROM draws WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &draw, nil
}

// LatestDraw returns the authoritative draw of a division.
func (s *DrawStore) LatestDraw(ctx context.Context, key bracket.DivisionKey) (*bracket.Draw, error) {
	var draw bracket.Draw
	err := s.db.GetContext(ctx, &draw, latestDrawQuery,
		key.CompetitionID, key.Gender, key.AgeCategoryID, key.BeltGroupID, key.WeightCategoryID)
	if err != nil {
		return nil, err
	}
	return &draw, nil
}

func (s *DrawStore) LatestDrawsForWeights(ctx context.Context, competitionID int64, weightIDs []int64) ([]bracket.Draw, error) {
	return latestDrawsForWeights(ctx, s.db, competitionID, weightIDs)
}

func (s *DrawStore) LatestDrawsForWeightsTx(ctx context.Context, tx *sqlx.Tx, competitionID int64, weightIDs []int64) ([]bracket.Draw, error) {
	return latestDrawsForWeights(ctx, tx, competitionID, weightIDs)
}

func latestDrawsForWeights(ctx context.Context, q sqlx.ExtContext, competitionID int64, weightIDs []int64) ([]bracket.Draw, error) {
	if len(weightIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(latestDrawsForWeightsQuery, competitionID, weightIDs)
	if err != nil {
		return nil, err
	}
	var draws []bracket.Draw
	err = sqlx.SelectContext(ctx, q, &draws, q.Rebind(query), args...)
	return draws, err
}

func (s *DrawStore) LatestDrawsForCompetition(ctx context.Context, competitionID int64) ([]bracket.Draw, error) {
	var draws []bracket.Draw
	err := s.db.SelectContext(ctx, &draws, latestDrawsForCompetitionQuery, competitionID)
	return draws, err
}

func (s *DrawStore) GetMatches(ctx context.Context, drawID uuid.UUID) ([]bracket.Match, error) {
	return getMatches(ctx, s.db, drawID)
}

func (s *DrawStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, drawID uuid.UUID) ([]bracket.Match, error) {
	return getMatches(ctx, tx, drawID)
}

func getMatches(ctx context.Context, q sqlx.QueryerContext, drawID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches, matchesForDrawQuery, drawID)
	return matches, err
}

// ClearMatchNumbersTx resets match numbers on every draw of the given weights, superseded draws included.
func (s *DrawStore) ClearMatchNumbersTx(ctx context.Context, tx *sqlx.Tx, competitionID int64, weightIDs []int64) (int64, error) {
	if len(weightIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(clearMatchNumbersQuery, competitionID, weightIDs)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *DrawStore) MatchesOnMat(ctx context.Context, competitionID int64, matNo int) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, matchesOnMatQuery, competitionID, matNo)
	return matches, err
}

// CountUnnumbered counts non-bye matches without a number. With realOnly, placeholder
// matches whose players are not known yet are left out.
func (s *DrawStore) CountUnnumbered(ctx context.Context, competitionID int64, realOnly bool) (int, error) {
	return countUnnumbered(ctx, s.db, competitionID, realOnly)
}

func (s *DrawStore) CountUnnumberedTx(ctx context.Context, tx *sqlx.Tx, competitionID int64, realOnly bool) (int, error) {
	return countUnnumbered(ctx, tx, competitionID, realOnly)
}

func countUnnumbered(ctx context.Context, q sqlx.QueryerContext, competitionID int64, realOnly bool) (int, error) {
	query := countUnnumberedQuery
	if realOnly {
		query = countUnnumberedRealQuery
	}
	var n int
	err := sqlx.GetContext(ctx, q, &n, query, competitionID)
	return n, err
}
