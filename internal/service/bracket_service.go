package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/AdamBeresnev/tkd-draws/internal/store"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// BracketService serves numbered brackets to the public and to the printed mat sheets.
type BracketService struct {
	db           *sqlx.DB
	draws        *store.DrawStore
	mats         *store.MatStore
	competitions *store.CompetitionStore
	players      *store.PlayerStore
	now          func() time.Time
}

func NewBracketService(db *sqlx.DB, draws *store.DrawStore, mats *store.MatStore, competitions *store.CompetitionStore, players *store.PlayerStore) *BracketService {
	return &BracketService{db: db, draws: draws, mats: mats, competitions: competitions, players: players, now: time.Now}
}

type DrawBracket struct {
	Draw    bracket.Draw
	Weight  bracket.WeightCategory
	MatNo   int
	Matches []bracket.Match
}

type MatSchedule struct {
	MatNo   int
	Matches []bracket.Match
}

type CompetitionBracket struct {
	Competition *bracket.Competition
	Draws       []DrawBracket
	ByMat       []MatSchedule
	// Players names every competitor that appears in a match.
	Players map[int64]string
}

// SheetMat is one mat of the printed numbering sheet.
type SheetMat struct {
	MatNo   int
	Weights []string
	Draws   []DrawBracket
}

type NumberingSheet struct {
	Competition *bracket.Competition
	Mats        []SheetMat
	Players     map[int64]string
}

// PlayerName is the display name of a match side, empty when the side has no competitor.
func (s *NumberingSheet) PlayerName(id *int64) string {
	if id == nil {
		return ""
	}
	if name, ok := s.Players[*id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}

// IsReady reports whether every non-bye match of the competition's latest draws has a number.
func (s *BracketService) IsReady(ctx context.Context, competitionID int64) (bool, error) {
	hasDraws, err := s.competitions.HasDraws(ctx, competitionID)
	if err != nil {
		return false, err
	}
	if !hasDraws {
		return false, nil
	}
	missing, err := s.draws.CountUnnumbered(ctx, competitionID, false)
	if err != nil {
		return false, err
	}
	return missing == 0, nil
}

func (s *BracketService) GetPublicBracket(ctx context.Context, competitionID int64) (*CompetitionBracket, error) {
	competition, err := s.competitions.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, competitionErr(err)
	}

	ready, err := s.IsReady(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, bracket.ErrBracketNotReady
	}

	draws, err := s.draws.LatestDrawsForCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	brackets, err := s.loadBrackets(ctx, competitionID, draws)
	if err != nil {
		return nil, err
	}

	byMat := make([]MatSchedule, competition.MatCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range byMat {
		mat := i + 1
		g.Go(func() error {
			matches, err := s.draws.MatchesOnMat(gctx, competitionID, mat)
			if err != nil {
				return fmt.Errorf("failed to get matches of mat %d: %w", mat, err)
			}
			byMat[i] = MatSchedule{MatNo: mat, Matches: matches}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []bracket.Match
	for _, b := range brackets {
		all = append(all, b.Matches...)
	}
	for _, m := range byMat {
		all = append(all, m.Matches...)
	}
	players, err := s.playerNames(ctx, all)
	if err != nil {
		return nil, err
	}

	return &CompetitionBracket{Competition: competition, Draws: brackets, ByMat: byMat, Players: players}, nil
}

// NumberingSheet groups the latest draws of the given weights under the mat they are fought on.
func (s *BracketService) NumberingSheet(ctx context.Context, competitionID int64, weightIDs []int64) (*NumberingSheet, error) {
	weightIDs = uniqueIDs(weightIDs)
	if len(weightIDs) == 0 {
		return nil, bracket.ErrNoWeightsSelected
	}

	competition, err := s.competitions.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, competitionErr(err)
	}

	assignments, err := s.mats.AssignmentsForWeights(ctx, competitionID, weightIDs)
	if err != nil {
		return nil, err
	}
	draws, err := s.draws.LatestDrawsForWeights(ctx, competitionID, weightIDs)
	if err != nil {
		return nil, err
	}
	brackets, err := s.loadBrackets(ctx, competitionID, draws)
	if err != nil {
		return nil, err
	}

	var all []bracket.Match
	for _, b := range brackets {
		all = append(all, b.Matches...)
	}
	players, err := s.playerNames(ctx, all)
	if err != nil {
		return nil, err
	}

	sheet := &NumberingSheet{Competition: competition, Players: players}
	index := make(map[int]int)
	for _, a := range assignments {
		i, ok := index[a.MatNumber]
		if !ok {
			i = len(sheet.Mats)
			index[a.MatNumber] = i
			sheet.Mats = append(sheet.Mats, SheetMat{MatNo: a.MatNumber})
		}
		sheet.Mats[i].Weights = append(sheet.Mats[i].Weights, a.WeightName)
	}
	for _, b := range brackets {
		if i, ok := index[b.MatNo]; ok {
			sheet.Mats[i].Draws = append(sheet.Mats[i].Draws, b)
		}
	}
	return sheet, nil
}

func (s *BracketService) loadBrackets(ctx context.Context, competitionID int64, draws []bracket.Draw) ([]DrawBracket, error) {
	weightToMat, err := s.mats.WeightToMat(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	weightIDs := make([]int64, 0, len(draws))
	for _, d := range draws {
		weightIDs = append(weightIDs, d.WeightCategoryID)
	}
	weights, err := s.competitions.GetWeightCategories(ctx, weightIDs)
	if err != nil {
		return nil, err
	}

	brackets := make([]DrawBracket, 0, len(draws))
	for _, d := range draws {
		matches, err := s.draws.GetMatches(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get matches of draw %s: %w", d.ID, err)
		}
		brackets = append(brackets, DrawBracket{
			Draw:    d,
			Weight:  weights[d.WeightCategoryID],
			MatNo:   weightToMat[d.WeightCategoryID],
			Matches: matches,
		})
	}
	return brackets, nil
}

func (s *BracketService) playerNames(ctx context.Context, matches []bracket.Match) (map[int64]string, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, m := range matches {
		for _, id := range []*int64{m.PlayerAID, m.PlayerBID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	names, err := s.players.PlayerNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get player names: %w", err)
	}
	return names, nil
}

// Publish makes the bracket public. Every match with two known players must be numbered first.
// The publication time is stamped only once.
func (s *BracketService) Publish(ctx context.Context, competitionID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	competition, err := s.competitions.GetCompetitionTx(ctx, tx, competitionID)
	if err != nil {
		return competitionErr(err)
	}

	missing, err := s.draws.CountUnnumberedTx(ctx, tx, competitionID, true)
	if err != nil {
		return err
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d matches", bracket.ErrUnnumberedMatches, missing)
	}

	// Republishing keeps the first publication time
	if competition.IsPublished() {
		return nil
	}

	now := s.now().UTC()
	if err := s.competitions.SetBracketPublishedAt(ctx, tx, competitionID, &now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("bracket published", "competition", competitionID)
	return nil
}

func (s *BracketService) Unpublish(ctx context.Context, competitionID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.competitions.GetCompetitionTx(ctx, tx, competitionID); err != nil {
		return competitionErr(err)
	}
	if err := s.competitions.SetBracketPublishedAt(ctx, tx, competitionID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("bracket unpublished", "competition", competitionID)
	return nil
}
