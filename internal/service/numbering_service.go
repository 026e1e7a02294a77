package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/AdamBeresnev/tkd-draws/internal/store"
	"github.com/AdamBeresnev/tkd-draws/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type NumberingService struct {
	db           *sqlx.DB
	draws        *store.DrawStore
	mats         *store.MatStore
	competitions *store.CompetitionStore
	now          func() time.Time
}

func NewNumberingService(db *sqlx.DB, draws *store.DrawStore, mats *store.MatStore, competitions *store.CompetitionStore) *NumberingService {
	return &NumberingService{db: db, draws: draws, mats: mats, competitions: competitions, now: time.Now}
}

type NumberingRequest struct {
	CompetitionID int64
	WeightIDs     []int64
	ClearPrevious bool
	Apply         bool
}

type NumberingResult struct {
	Cleared bool
	Applied bool
	// Highest number handed out on each mat
	LastNumbers map[int]int
}

// RunNumbering is the operator entrypoint: clearing alone previews an empty sheet,
// applying renumbers (clearing first when asked).
func (s *NumberingService) RunNumbering(ctx context.Context, req NumberingRequest) (*NumberingResult, error) {
	result := &NumberingResult{}

	if req.ClearPrevious && !req.Apply {
		if err := s.ClearMatchNumbersForCompetition(ctx, req.CompetitionID, req.WeightIDs); err != nil {
			return nil, err
		}
		result.Cleared = true
	}

	if req.Apply {
		last, err := s.NumberMatchesForCompetition(ctx, req.CompetitionID, req.WeightIDs, req.ClearPrevious)
		if err != nil {
			return nil, err
		}
		result.Cleared = req.ClearPrevious
		result.Applied = true
		result.LastNumbers = last
	}

	return result, nil
}

func (s *NumberingService) ClearMatchNumbersForCompetition(ctx context.Context, competitionID int64, weightIDs []int64) error {
	weightIDs = uniqueIDs(weightIDs)
	if len(weightIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.competitions.GetCompetitionTx(ctx, tx, competitionID); err != nil {
		return competitionErr(err)
	}

	cleared, err := s.draws.ClearMatchNumbersTx(ctx, tx, competitionID, weightIDs)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("match numbers cleared", "competition", competitionID, "weights", weightIDs, "matches", cleared)
	return nil
}

// drawLadder is one draw in numbering scope with its matches grouped by round.
type drawLadder struct {
	mat    int
	first  int
	last   int
	rounds map[int][]*bracket.Match
}

func newDrawLadder(mat int, matches []bracket.Match) *drawLadder {
	l := &drawLadder{mat: mat, rounds: make(map[int][]*bracket.Match)}
	for i := range matches {
		m := &matches[i]
		l.rounds[m.RoundNo] = append(l.rounds[m.RoundNo], m)
		if l.first == 0 || m.RoundNo < l.first {
			l.first = m.RoundNo
		}
		if m.RoundNo > l.last {
			l.last = m.RoundNo
		}
	}
	return l
}

// hasRealMatch is false for draws that are nothing but first round byes.
func (l *drawLadder) hasRealMatch() bool {
	for round, matches := range l.rounds {
		if round != l.first && len(matches) > 0 {
			return true
		}
		for _, m := range matches {
			if !m.IsBye {
				return true
			}
		}
	}
	return false
}

// NumberMatchesForCompetition numbers every real match of the latest draws of the given weights.
// Per mat, all non-final rounds are numbered round by round first, lightest weight first, and the
// finals of that mat take the highest numbers. The whole pass commits or rolls back as one.
func (s *NumberingService) NumberMatchesForCompetition(ctx context.Context, competitionID int64, weightIDs []int64, clearPrev bool) (map[int]int, error) {
	weightIDs = uniqueIDs(weightIDs)
	if len(weightIDs) == 0 {
		return nil, bracket.ErrNoWeightsSelected
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.competitions.GetCompetitionTx(ctx, tx, competitionID); err != nil {
		return nil, competitionErr(err)
	}

	weightToMat, err := s.mats.WeightToMatTx(ctx, tx, competitionID)
	if err != nil {
		return nil, err
	}
	var missing []int64
	for _, w := range weightIDs {
		if _, ok := weightToMat[w]; !ok {
			missing = append(missing, w)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", bracket.ErrWeightWithoutMat, missing)
	}

	draws, err := s.draws.LatestDrawsForWeightsTx(ctx, tx, competitionID, weightIDs)
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, bracket.ErrNoDraws
	}

	counters := make(map[int]int)
	for _, d := range draws {
		counters[weightToMat[d.WeightCategoryID]] = 0
	}

	if clearPrev {
		if _, err := s.draws.ClearMatchNumbersTx(ctx, tx, competitionID, weightIDs); err != nil {
			return nil, err
		}
	}

	// Draws keep the weight order they were loaded in within each mat
	byMat := make(map[int][]*drawLadder)
	roundSet := make(map[int]struct{})
	for _, d := range draws {
		matches, err := s.ensureRoundLadder(ctx, tx, &d)
		if err != nil {
			return nil, err
		}
		ladder := newDrawLadder(weightToMat[d.WeightCategoryID], matches)
		if !ladder.hasRealMatch() {
			slog.Debug("draw has no match to number", "draw", d.ID)
			continue
		}
		byMat[ladder.mat] = append(byMat[ladder.mat], ladder)
		for round := range ladder.rounds {
			roundSet[round] = struct{}{}
		}
	}

	mats := make([]int, 0, len(counters))
	for mat := range counters {
		mats = append(mats, mat)
	}
	slices.Sort(mats)

	rounds := make([]int, 0, len(roundSet))
	for round := range roundSet {
		rounds = append(rounds, round)
	}
	slices.Sort(rounds)

	number := func(m *bracket.Match, mat int) error {
		counters[mat]++
		if m.MatNo == nil {
			m.MatNo = utils.Ptr(mat)
		}
		m.MatchNumber = utils.Ptr(counters[mat])
		if err := s.draws.UpdateMatchNumbering(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to number match %s: %w", m.ID, err)
		}
		return nil
	}

	// Phase 1: everything but the finals
	for _, round := range rounds {
		for _, mat := range mats {
			for _, ladder := range byMat[mat] {
				if round == ladder.last {
					continue
				}
				for _, m := range ladder.rounds[round] {
					if m.IsBye {
						if round == ladder.first {
							continue
						}
						// A bye only exists in the first round
						m.IsBye = false
					}
					if err := number(m, mat); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	// Phase 2: finals close each mat
	for _, mat := range mats {
		for _, ladder := range byMat[mat] {
			for _, m := range ladder.rounds[ladder.last] {
				if m.IsBye {
					if ladder.last == ladder.first {
						continue
					}
					m.IsBye = false
				}
				if err := number(m, mat); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("matches numbered", "competition", competitionID, "draws", len(draws), "last_numbers", counters)
	return counters, nil
}

// ensureRoundLadder creates the placeholder rows of every round after the first that has not
// been persisted yet, so later rounds can be numbered before anyone has advanced. Running it
// again creates nothing.
func (s *NumberingService) ensureRoundLadder(ctx context.Context, tx *sqlx.Tx, draw *bracket.Draw) ([]bracket.Match, error) {
	matches, err := s.draws.GetMatchesTx(ctx, tx, draw.ID)
	if err != nil {
		return nil, err
	}

	first := 1
	for i, m := range matches {
		if i == 0 || m.RoundNo < first {
			first = m.RoundNo
		}
	}

	taken := make(map[int]map[int]bool)
	for _, m := range matches {
		if taken[m.RoundNo] == nil {
			taken[m.RoundNo] = make(map[int]bool)
		}
		taken[m.RoundNo][m.SlotA] = true
	}

	size := draw.Size
	if size <= 0 {
		size = max(1, len(taken[first])*2)
	}

	roundCount := 0
	for n := 1; n < size; n <<= 1 {
		roundCount++
	}

	now := s.now().UTC()
	var missing []bracket.Match
	for step := 1; step < roundCount; step++ {
		round := first + step
		expected := max(1, size>>(step+1))
		existing := len(taken[round])
		for slot := 0; existing < expected; slot++ {
			if taken[round][slot] {
				continue
			}
			missing = append(missing, bracket.Match{
				ID:        uuid.New(),
				DrawID:    draw.ID,
				RoundNo:   round,
				SlotA:     slot,
				SlotB:     slot,
				CreatedAt: now,
			})
			existing++
		}
	}

	if len(missing) == 0 {
		return matches, nil
	}
	if err := s.draws.CreateMatches(ctx, tx, missing); err != nil {
		return nil, err
	}
	return s.draws.GetMatchesTx(ctx, tx, draw.ID)
}

func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
