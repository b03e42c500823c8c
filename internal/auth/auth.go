// Package auth issues and checks dashboard session and channel tokens.
package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"fireguard/internal/db"
	"fireguard/internal/models"
)

const CookieName = "access_token"

// UserStore looks up accounts by email.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Authenticator resolves the caller of a request.
type Authenticator interface {
	CurrentUser(c *gin.Context) (models.User, bool)
}

// CookieAuthenticator reads the session token from the access_token cookie.
type CookieAuthenticator struct {
	tokens *Tokens
	users  UserStore
}

func NewCookieAuthenticator(tokens *Tokens, users UserStore) *CookieAuthenticator {
	return &CookieAuthenticator{tokens: tokens, users: users}
}

// CurrentUser returns the active user owning the request's session token.
func (a *CookieAuthenticator) CurrentUser(c *gin.Context) (models.User, bool) {
	token, err := c.Cookie(CookieName)
	if err != nil || token == "" {
		return models.User{}, false
	}
	email, err := a.tokens.VerifySession(token)
	if err != nil {
		return models.User{}, false
	}
	user, err := a.users.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			_ = c.Error(err)
		}
		return models.User{}, false
	}
	if !user.IsActive {
		return models.User{}, false
	}
	return user, true
}
