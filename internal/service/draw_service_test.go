package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/AdamBeresnev/tkd-draws/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDrawForGroup(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name            string
		competitors     int
		sizeOverride    int
		expectedSize    int
		expectedMatches int
		expectedByes    int
		expectedErr     error
	}{
		{
			name:            "Power of two fills the bracket",
			competitors:     4,
			expectedSize:    4,
			expectedMatches: 2,
			expectedByes:    0,
		},
		{
			name:            "5 competitors get 3 byes",
			competitors:     5,
			expectedSize:    8,
			expectedMatches: 4,
			expectedByes:    3,
		},
		{
			name:            "Single competitor has no matches",
			competitors:     1,
			expectedSize:    1,
			expectedMatches: 0,
		},
		{
			name:            "Size override",
			competitors:     4,
			sizeOverride:    8,
			expectedSize:    8,
			expectedMatches: 4,
			expectedByes:    4,
		},
		{
			name:        "No competitors",
			competitors: 0,
			expectedErr: bracket.ErrNoParticipants,
		},
		{
			name:         "Override below the pool",
			competitors:  5,
			sizeOverride: 4,
			expectedErr:  bracket.ErrBracketTooSmall,
		},
		{
			name:         "Override far above the pool",
			competitors:  3,
			sizeOverride: 16,
			expectedErr:  bracket.ErrBracketTooLarge,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, 1)
			weightID := env.fx.Weight("-68kg", bracket.Male, 63, 68)
			env.fx.EnrollMany(env.competition.ID, env.belt, weightID, tc.competitors)

			req := env.request(weightID)
			req.SizeOverride = tc.sizeOverride
			result, err := env.draws.CreateDrawForGroup(ctx, req)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Zero(t, env.count(t, "SELECT COUNT(*) FROM draws"))
				assert.Zero(t, env.count(t, "SELECT COUNT(*) FROM matches"))
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tc.expectedSize, result.Draw.Size)
			assert.Equal(t, "test-seed", result.Draw.RNGSeed)
			assert.Equal(t, *env.competition.AgeCategoryID, utils.OrZero(result.Draw.AgeCategoryID))
			assert.Equal(t, bracket.Male, result.Draw.Gender)

			stored := env.matches(t, result.Draw.ID)
			assert.Len(t, stored, tc.expectedMatches)

			byes := 0
			for _, m := range stored {
				assert.Equal(t, 1, m.RoundNo)
				if m.IsBye {
					byes++
					assert.False(t, m.HasBothPlayers())
				}
			}
			assert.Equal(t, tc.expectedByes, byes)
		})
	}
}

func TestCreateDrawForGroupSkipsIneligibleEnrollments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID := env.fx.Weight("-58kg", bracket.Male, 54, 58)

	eligible := map[int64]bool{}
	for _, status := range []bracket.EnrollmentStatus{bracket.StatusPaid, bracket.StatusConfirmed, bracket.StatusAccepted, bracket.StatusCompleted} {
		eligible[env.fx.Enroll(env.competition.ID, env.belt, weightID, nil, status)] = true
	}
	env.fx.Enroll(env.competition.ID, env.belt, weightID, nil, bracket.StatusPendingPayment)
	env.fx.Enroll(env.competition.ID, env.belt, weightID, nil, bracket.StatusCanceled)

	// Same weight, other belt group
	otherBelt := env.fx.BeltGroup("Color belts")
	env.fx.EnrollMany(env.competition.ID, otherBelt, weightID, 3)

	result, err := env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Draw.Size)
	for _, m := range result.Matches {
		require.True(t, m.HasBothPlayers())
		assert.True(t, eligible[*m.PlayerAID])
		assert.True(t, eligible[*m.PlayerBID])
	}
}

func TestCreateDrawForGroupSameSeedSamePairings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID := env.fx.Weight("-74kg", bracket.Male, 68, 74)
	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, 7)

	first, err := env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.NoError(t, err)
	second, err := env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.NoError(t, err)

	require.Len(t, second.Matches, len(first.Matches))
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].PlayerAID, second.Matches[i].PlayerAID)
		assert.Equal(t, first.Matches[i].PlayerBID, second.Matches[i].PlayerBID)
	}
	assert.NotEqual(t, first.Draw.ID, second.Draw.ID)
}

func TestCreateDrawForGroupDefaults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID := env.fx.Weight("-80kg", bracket.Male, 74, 80)
	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, 2)

	req := env.request(weightID)
	req.Seed = "  "
	result, err := env.draws.CreateDrawForGroup(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 8, result.Draw.ClubThreshold)
	assert.Len(t, result.Draw.RNGSeed, 16)

	req.ClubThreshold = 3
	result, err = env.draws.CreateDrawForGroup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Draw.ClubThreshold)
}

func TestCreateDrawForGroupUnknownCompetition(t *testing.T) {
	env := newTestEnv(t, 1)

	_, err := env.draws.CreateDrawForGroup(context.Background(), DrawRequest{CompetitionID: 999, BeltGroupID: env.belt, WeightCategoryID: 1})
	assert.ErrorIs(t, err, bracket.ErrCompetitionNotFound)
}

func TestLatestDraw(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID := env.fx.Weight("-63kg", bracket.Male, 58, 63)

	_, err := env.draws.LatestDraw(ctx, env.request(weightID))
	assert.ErrorIs(t, err, bracket.ErrDrawNotFound)

	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, 3)
	_, err = env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.NoError(t, err)

	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, 2)
	second, err := env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.NoError(t, err)

	latest, err := env.draws.LatestDraw(ctx, env.request(weightID))
	require.NoError(t, err)

	assert.Equal(t, second.Draw.ID, latest.Draw.ID)
	assert.Equal(t, 8, latest.Draw.Size)
	assert.Len(t, latest.Matches, 4)
	assert.Equal(t, 2, env.count(t, "SELECT COUNT(*) FROM draws"))
}

func TestCreateDrawForGroupRollsBackOnFailedMatchInsert(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID := env.fx.Weight("-74kg", bracket.Male, 68, 74)
	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, 4)

	_, err := env.db.Exec(`CREATE TRIGGER fail_match_insert BEFORE INSERT ON matches
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	_, err = env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.ErrorContains(t, err, "boom")

	assert.Zero(t, env.count(t, "SELECT COUNT(*) FROM draws"), "draw row written before the failed matches must be rolled back")
	assert.Zero(t, env.count(t, "SELECT COUNT(*) FROM matches"))

	_, err = env.draws.LatestDraw(ctx, env.request(weightID))
	assert.ErrorIs(t, err, bracket.ErrDrawNotFound)
}

func TestGetDraw(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID := env.fx.Weight("-80kg", bracket.Male, 74, 80)

	_, err := env.draws.GetDraw(ctx, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrDrawNotFound)

	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, 3)
	first, err := env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.NoError(t, err)

	got, err := env.draws.GetDraw(ctx, first.Draw.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Draw.ID, got.Draw.ID)
	assert.Len(t, got.Matches, 2)
	assert.False(t, got.Superseded)

	second, err := env.draws.CreateDrawForGroup(ctx, env.request(weightID))
	require.NoError(t, err)

	got, err = env.draws.GetDraw(ctx, first.Draw.ID)
	require.NoError(t, err)
	assert.True(t, got.Superseded)
	assert.Equal(t, first.Draw.RNGSeed, got.Draw.RNGSeed)

	got, err = env.draws.GetDraw(ctx, second.Draw.ID)
	require.NoError(t, err)
	assert.False(t, got.Superseded)
}

func TestPreviewDivision(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID := env.fx.Weight("+87kg", bracket.Male, 87, 200)

	preview, err := env.draws.PreviewDivision(ctx, env.request(weightID))
	require.NoError(t, err)
	assert.Equal(t, &DivisionPreview{Count: 0, Size: 1}, preview)

	env.fx.EnrollMany(env.competition.ID, env.belt, weightID, 5)
	env.fx.Enroll(env.competition.ID, env.belt, weightID, nil, bracket.StatusCanceled)

	preview, err = env.draws.PreviewDivision(ctx, env.request(weightID))
	require.NoError(t, err)
	assert.Equal(t, &DivisionPreview{Count: 5, Size: 8}, preview)
}
