package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/AdamBeresnev/tkd-draws/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DrawService struct {
	db                   *sqlx.DB
	draws                *store.DrawStore
	enrollments          *store.EnrollmentStore
	competitions         *store.CompetitionStore
	defaultClubThreshold int
	now                  func() time.Time
}

func NewDrawService(db *sqlx.DB, draws *store.DrawStore, enrollments *store.EnrollmentStore, competitions *store.CompetitionStore, defaultClubThreshold int) *DrawService {
	return &DrawService{
		db:                   db,
		draws:                draws,
		enrollments:          enrollments,
		competitions:         competitions,
		defaultClubThreshold: defaultClubThreshold,
		now:                  time.Now,
	}
}

type DrawRequest struct {
	CompetitionID    int64
	AgeCategoryID    *int64 // nil uses the competition's age category
	BeltGroupID      int64
	WeightCategoryID int64
	ClubThreshold    int // 0 uses the configured default
	Seed             string
	SizeOverride     int // 0 sizes the bracket automatically
}

type DrawWithMatches struct {
	Draw    *bracket.Draw
	Matches []bracket.Match
	// Superseded marks a draw that a later draw of the same division replaced.
	Superseded bool
}

type DivisionPreview struct {
	Count int
	Size  int
}

func divisionFor(competition *bracket.Competition, req DrawRequest) bracket.DivisionKey {
	ageCategoryID := req.AgeCategoryID
	if ageCategoryID == nil {
		ageCategoryID = competition.AgeCategoryID
	}
	return bracket.DivisionKey{
		CompetitionID:    competition.ID,
		Gender:           competition.Gender,
		AgeCategoryID:    ageCategoryID,
		BeltGroupID:      req.BeltGroupID,
		WeightCategoryID: req.WeightCategoryID,
	}
}

func competitionErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return bracket.ErrCompetitionNotFound
	}
	return err
}

// CreateDrawForGroup draws a new bracket for one division. Earlier draws of the division are kept
// as history; the new one becomes authoritative.
func (s *DrawService) CreateDrawForGroup(ctx context.Context, req DrawRequest) (*DrawWithMatches, error) {
	threshold := req.ClubThreshold
	if threshold <= 0 {
		threshold = s.defaultClubThreshold
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	competition, err := s.competitions.GetCompetitionTx(ctx, tx, req.CompetitionID)
	if err != nil {
		return nil, competitionErr(err)
	}
	key := divisionFor(competition, req)

	pool, err := s.enrollments.EligibleForDivisionTx(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	plan, err := planDraw(pool, threshold, strings.TrimSpace(req.Seed), req.SizeOverride)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	draw := &bracket.Draw{
		ID:               uuid.New(),
		CompetitionID:    key.CompetitionID,
		Gender:           key.Gender,
		AgeCategoryID:    key.AgeCategoryID,
		BeltGroupID:      key.BeltGroupID,
		WeightCategoryID: key.WeightCategoryID,
		Size:             plan.size,
		ClubThreshold:    threshold,
		RNGSeed:          plan.seed,
		CreatedAt:        now,
	}

	matches, err := buildFirstRound(draw, plan.pairs, now)
	if err != nil {
		return nil, err
	}

	if err := s.draws.CreateDraw(ctx, tx, draw); err != nil {
		return nil, err
	}
	if err := s.draws.CreateMatches(ctx, tx, matches); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("draw created",
		"draw", draw.ID,
		"competition", draw.CompetitionID,
		"weight_category", draw.WeightCategoryID,
		"participants", len(pool),
		"size", draw.Size,
		"seed", draw.RNGSeed)

	return &DrawWithMatches{Draw: draw, Matches: matches}, nil
}

// PreviewDivision reports how many competitors a draw would take in and the bracket size it would get.
func (s *DrawService) PreviewDivision(ctx context.Context, req DrawRequest) (*DivisionPreview, error) {
	competition, err := s.competitions.GetCompetition(ctx, req.CompetitionID)
	if err != nil {
		return nil, competitionErr(err)
	}

	count, err := s.enrollments.CountEligible(ctx, divisionFor(competition, req))
	if err != nil {
		return nil, err
	}

	size := calcBracketSize(count)
	if size == 0 {
		size = 1
	}
	return &DivisionPreview{Count: count, Size: size}, nil
}

// LatestDraw returns the authoritative draw of a division together with all of its matches.
func (s *DrawService) LatestDraw(ctx context.Context, req DrawRequest) (*DrawWithMatches, error) {
	competition, err := s.competitions.GetCompetition(ctx, req.CompetitionID)
	if err != nil {
		return nil, competitionErr(err)
	}

	draw, err := s.draws.LatestDraw(ctx, divisionFor(competition, req))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bracket.ErrDrawNotFound
		}
		return nil, err
	}

	matches, err := s.draws.GetMatches(ctx, draw.ID)
	if err != nil {
		return nil, err
	}
	return &DrawWithMatches{Draw: draw, Matches: matches}, nil
}

// GetDraw loads any stored draw by ID, including ones that a redraw has superseded.
func (s *DrawService) GetDraw(ctx context.Context, id uuid.UUID) (*DrawWithMatches, error) {
	draw, err := s.draws.GetDraw(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bracket.ErrDrawNotFound
		}
		return nil, err
	}

	matches, err := s.draws.GetMatches(ctx, draw.ID)
	if err != nil {
		return nil, err
	}

	latest, err := s.draws.LatestDraw(ctx, draw.Division())
	if err != nil {
		return nil, err
	}
	return &DrawWithMatches{Draw: draw, Matches: matches, Superseded: latest.ID != draw.ID}, nil
}
