package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/AdamBeresnev/tkd-draws/internal/store"
	users "github.com/AdamBeresnev/tkd-draws/internal/user"
	"github.com/AdamBeresnev/tkd-draws/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

type UserService struct {
	db      *sqlx.DB
	store   *store.UserStore
	isStaff func(email string) bool
}

func NewUserService(db *sqlx.DB, store *store.UserStore, isStaff func(email string) bool) *UserService {
	return &UserService{db: db, store: store, isStaff: isStaff}
}

// FindOrCreateUserByProvider signs in an OAuth user. Staff status follows the configured
// staff list on every sign-in.
func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	staff := s.isStaff != nil && s.isStaff(gothUser.Email)

	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)
	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != gothUser.NickName || user.IsStaff != staff {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			if gothUser.NickName != "" {
				user.Username = gothUser.NickName
			}
			user.IsStaff = staff
			if err := s.store.UpdateUserProfile(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		username := gothUser.Name
		if username == "" {
			username = gothUser.NickName
		}
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   username,
			Provider:   &gothUser.Provider,
			ProviderID: &gothUser.UserID,
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
			IsStaff:    staff,
		}
		if err := s.store.CreateUser(ctx, newUser); err != nil {
			return nil, err
		}
		slog.Info("user created", "user", newUser.ID, "provider", gothUser.Provider, "staff", staff)
		return newUser, nil
	}

	return nil, err
}
