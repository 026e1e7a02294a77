package views

import (
	"context"

	"github.com/AdamBeresnev/tkd-draws/internal/middleware"
	users "github.com/AdamBeresnev/tkd-draws/internal/user"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}
