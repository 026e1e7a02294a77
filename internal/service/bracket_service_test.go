package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
	"github.com/AdamBeresnev/tkd-draws/internal/store"
	"github.com/AdamBeresnev/tkd-draws/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketReadiness(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	ready, err := env.brackets.IsReady(ctx, env.competition.ID)
	require.NoError(t, err)
	assert.False(t, ready, "no draws yet")

	weightA, drawA := env.division(t, "-54kg", 50, 5)
	weightB, _ := env.division(t, "-58kg", 54, 2)
	env.fx.AssignMat(env.competition.ID, 1, weightA)
	env.fx.AssignMat(env.competition.ID, 2, weightB)

	ready, err = env.brackets.IsReady(ctx, env.competition.ID)
	require.NoError(t, err)
	assert.False(t, ready)

	_, err = env.brackets.GetPublicBracket(ctx, env.competition.ID)
	assert.ErrorIs(t, err, bracket.ErrBracketNotReady)

	_, err = env.numbering.NumberMatchesForCompetition(ctx, env.competition.ID, []int64{weightA, weightB}, true)
	require.NoError(t, err)

	ready, err = env.brackets.IsReady(ctx, env.competition.ID)
	require.NoError(t, err)
	assert.True(t, ready)

	data, err := env.brackets.GetPublicBracket(ctx, env.competition.ID)
	require.NoError(t, err)

	require.Len(t, data.Draws, 2)
	assert.Equal(t, drawA.Draw.ID, data.Draws[0].Draw.ID)
	assert.Equal(t, "-54kg", data.Draws[0].Weight.Name)
	assert.Equal(t, 1, data.Draws[0].MatNo)
	assert.Len(t, data.Draws[0].Matches, 7)
	assert.Equal(t, 2, data.Draws[1].MatNo)

	require.Len(t, data.ByMat, 2)
	assert.Equal(t, 1, data.ByMat[0].MatNo)
	require.Len(t, data.ByMat[0].Matches, 4)
	for i, m := range data.ByMat[0].Matches {
		assert.Equal(t, i+1, *m.MatchNumber)
	}
	require.Len(t, data.ByMat[1].Matches, 1)
	assert.Equal(t, 1, *data.ByMat[1].Matches[0].MatchNumber)

	require.Len(t, data.Players, 7)
	for n := 1; n <= 7; n++ {
		assert.Contains(t, slices.Collect(maps.Values(data.Players)), fmt.Sprintf("Player %d", n))
	}
	final := data.ByMat[1].Matches[0]
	assert.Regexp(t, `^Player [67]$`, data.Players[*final.PlayerAID])
	assert.Regexp(t, `^Player [67]$`, data.Players[*final.PlayerBID])
}

func TestGetPublicBracketUnknownCompetition(t *testing.T) {
	env := newTestEnv(t, 1)

	_, err := env.brackets.GetPublicBracket(context.Background(), 999)
	assert.ErrorIs(t, err, bracket.ErrCompetitionNotFound)
}

func TestPublishBracket(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID, _ := env.division(t, "-68kg", 63, 4)
	env.fx.AssignMat(env.competition.ID, 1, weightID)
	competitions := store.NewCompetitionStore(env.db)

	err := env.brackets.Publish(ctx, env.competition.ID)
	assert.ErrorIs(t, err, bracket.ErrUnnumberedMatches)

	competition, err := competitions.GetCompetition(ctx, env.competition.ID)
	require.NoError(t, err)
	assert.False(t, competition.IsPublished())

	_, err = env.numbering.NumberMatchesForCompetition(ctx, env.competition.ID, []int64{weightID}, false)
	require.NoError(t, err)

	// The final has no players yet, so it never blocks publishing
	_, err = env.db.Exec("UPDATE matches SET match_number = NULL WHERE round_no = 2")
	require.NoError(t, err)

	require.NoError(t, env.brackets.Publish(ctx, env.competition.ID))
	competition, err = competitions.GetCompetition(ctx, env.competition.ID)
	require.NoError(t, err)
	assert.True(t, competition.IsPublished())

	require.NoError(t, env.brackets.Unpublish(ctx, env.competition.ID))
	competition, err = competitions.GetCompetition(ctx, env.competition.ID)
	require.NoError(t, err)
	assert.False(t, competition.IsPublished())

	assert.ErrorIs(t, env.brackets.Publish(ctx, 999), bracket.ErrCompetitionNotFound)
	assert.ErrorIs(t, env.brackets.Unpublish(ctx, 999), bracket.ErrCompetitionNotFound)
}

func TestPublishKeepsFirstPublicationTime(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)
	weightID, _ := env.division(t, "-68kg", 63, 2)
	env.fx.AssignMat(env.competition.ID, 1, weightID)
	competitions := store.NewCompetitionStore(env.db)

	clock := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	env.brackets.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	_, err := env.numbering.NumberMatchesForCompetition(ctx, env.competition.ID, []int64{weightID}, false)
	require.NoError(t, err)

	require.NoError(t, env.brackets.Publish(ctx, env.competition.ID))
	first, err := competitions.GetCompetition(ctx, env.competition.ID)
	require.NoError(t, err)
	require.True(t, first.IsPublished())

	require.NoError(t, env.brackets.Publish(ctx, env.competition.ID))
	second, err := competitions.GetCompetition(ctx, env.competition.ID)
	require.NoError(t, err)
	require.True(t, second.IsPublished())
	assert.True(t, first.BracketPublishedAt.Equal(*second.BracketPublishedAt),
		"published at %v, then %v", first.BracketPublishedAt, second.BracketPublishedAt)

	// After unpublishing the next publication is stamped again
	require.NoError(t, env.brackets.Unpublish(ctx, env.competition.ID))
	require.NoError(t, env.brackets.Publish(ctx, env.competition.ID))
	third, err := competitions.GetCompetition(ctx, env.competition.ID)
	require.NoError(t, err)
	require.True(t, third.IsPublished())
	assert.True(t, third.BracketPublishedAt.After(*first.BracketPublishedAt))
}

func TestNumberingSheet(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)
	weightA, _ := env.division(t, "-54kg", 50, 4)
	weightB, _ := env.division(t, "-58kg", 54, 2)
	weightC, _ := env.division(t, "-63kg", 58, 3)
	env.fx.AssignMat(env.competition.ID, 1, weightB, weightA)
	env.fx.AssignMat(env.competition.ID, 2, weightC)

	_, err := env.brackets.NumberingSheet(ctx, env.competition.ID, nil)
	assert.ErrorIs(t, err, bracket.ErrNoWeightsSelected)

	_, err = env.numbering.NumberMatchesForCompetition(ctx, env.competition.ID, []int64{weightA, weightB, weightC}, false)
	require.NoError(t, err)

	sheet, err := env.brackets.NumberingSheet(ctx, env.competition.ID, []int64{weightA, weightB, weightC})
	require.NoError(t, err)

	assert.Equal(t, "National Championship", sheet.Competition.Title)
	require.Len(t, sheet.Mats, 2)

	assert.Equal(t, 1, sheet.Mats[0].MatNo)
	assert.Equal(t, []string{"-54kg", "-58kg"}, sheet.Mats[0].Weights)
	require.Len(t, sheet.Mats[0].Draws, 2)
	assert.Equal(t, weightA, sheet.Mats[0].Draws[0].Draw.WeightCategoryID)

	assert.Equal(t, 2, sheet.Mats[1].MatNo)
	assert.Equal(t, []string{"-63kg"}, sheet.Mats[1].Weights)
	require.Len(t, sheet.Mats[1].Draws, 1)
	assert.Len(t, sheet.Mats[1].Draws[0].Matches, 3)

	// -63kg holds the last three competitors enrolled
	assert.Len(t, sheet.Players, 9)
	for _, m := range sheet.Mats[1].Draws[0].Matches {
		for _, id := range []*int64{m.PlayerAID, m.PlayerBID} {
			if id != nil {
				assert.Regexp(t, `^Player [789]$`, sheet.PlayerName(id))
			}
		}
	}
	assert.Empty(t, sheet.PlayerName(nil))
	assert.Equal(t, "#999", sheet.PlayerName(utils.Ptr(int64(999))))
}
