package service

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/AdamBeresnev/tkd-draws/internal/store"
	"github.com/AdamBeresnev/tkd-draws/internal/testutil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db        *sqlx.DB
	fx        *testutil.Fixtures
	drawStore *store.DrawStore
	draws     *DrawService
	numbering *NumberingService
	brackets  *BracketService

	competition *bracket.Competition
	belt        int64
}

func newTestEnv(t *testing.T, matCount int) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	drawStore := store.NewDrawStore(db)
	competitionStore := store.NewCompetitionStore(db)
	matStore := store.NewMatStore(db)

	env := &testEnv{
		db:        db,
		fx:        testutil.NewFixtures(t, db),
		drawStore: drawStore,
		draws:     NewDrawService(db, drawStore, store.NewEnrollmentStore(db), competitionStore, 8),
		numbering: NewNumberingService(db, drawStore, matStore, competitionStore),
		brackets:  NewBracketService(db, drawStore, matStore, competitionStore, store.NewPlayerStore(db)),
	}

	// Draws created back to back must still be ordered by creation time
	clock := time.Date(2026, 5, 9, 8, 0, 0, 0, time.UTC)
	env.draws.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	env.competition = env.fx.Competition("National Championship", bracket.Male, matCount)
	env.belt = env.fx.BeltGroup("Black belts")
	return env
}

func (env *testEnv) request(weightID int64) DrawRequest {
	return DrawRequest{
		CompetitionID:    env.competition.ID,
		BeltGroupID:      env.belt,
		WeightCategoryID: weightID,
		Seed:             "test-seed",
	}
}

// division creates a weight category with n paid competitors and draws it.
func (env *testEnv) division(t *testing.T, name string, minWeight float64, n int) (int64, *DrawWithMatches) {
	t.Helper()
	weightID := env.fx.Weight(name, bracket.Male, minWeight, minWeight+4)
	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, n)

	draw, err := env.draws.CreateDrawForGroup(context.Background(), env.request(weightID))
	require.NoError(t, err)
	return weightID, draw
}

func (env *testEnv) matches(t *testing.T, drawID uuid.UUID) []bracket.Match {
	t.Helper()
	matches, err := env.drawStore.GetMatches(context.Background(), drawID)
	require.NoError(t, err)
	return matches
}

func (env *testEnv) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, env.db.Get(&n, query, args...))
	return n
}

func roundOf(matches []bracket.Match, round int) []bracket.Match {
	var out []bracket.Match
	for _, m := range matches {
		if m.RoundNo == round {
			out = append(out, m)
		}
	}
	return out
}

// numbers lists the match numbers of a round in slot order, 0 for unnumbered matches.
func numbers(matches []bracket.Match, round int) []int {
	var out []int
	for _, m := range roundOf(matches, round) {
		n := 0
		if m.MatchNumber != nil {
			n = *m.MatchNumber
		}
		out = append(out, n)
	}
	return out
}
