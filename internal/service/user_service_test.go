package service

import (
	"context"
	"strings"
	"testing"

	"github.com/AdamBeresnev/tkd-draws/internal/store"
	"github.com/AdamBeresnev/tkd-draws/internal/testutil"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateUserByProvider(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	staff := map[string]bool{"referee@tkd.example": true}
	userService := NewUserService(db, store.NewUserStore(db), func(email string) bool {
		return staff[strings.ToLower(email)]
	})

	gothUser := goth.User{
		Provider:  "google",
		UserID:    "g-123",
		Email:     "Referee@tkd.example",
		Name:      "Head Referee",
		NickName:  "referee",
		AvatarURL: "https://example.com/a.png",
	}

	created, err := userService.FindOrCreateUserByProvider(ctx, gothUser)
	require.NoError(t, err)
	assert.Equal(t, "Head Referee", created.Username)
	assert.True(t, created.IsStaff)
	require.NotNil(t, created.AvatarURL)

	found, err := userService.FindOrCreateUserByProvider(ctx, gothUser)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "referee", found.Username)

	delete(staff, "referee@tkd.example")
	gothUser.AvatarURL = ""
	demoted, err := userService.FindOrCreateUserByProvider(ctx, gothUser)
	require.NoError(t, err)
	assert.False(t, demoted.IsStaff)
	assert.Nil(t, demoted.AvatarURL)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 1, count)
}

func TestFindOrCreateUserByProviderWithoutStaffList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	userService := NewUserService(db, store.NewUserStore(db), nil)

	user, err := userService.FindOrCreateUserByProvider(context.Background(), goth.User{
		Provider: "discord",
		UserID:   "d-1",
		NickName: "coach",
	})
	require.NoError(t, err)
	assert.Equal(t, "coach", user.Username)
	assert.False(t, user.IsStaff)
	assert.Nil(t, user.AvatarURL)
}
