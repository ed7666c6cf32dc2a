package api

import (
	"context"

	"github.com/rpupo63/portfolio-backend/models"
)

type keyType string

const (
	sessionKey keyType = "session"
)

// ctxWithSession adds an authenticated session, user included, to the context
func ctxWithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// ctxGetSession returns the request's session, or nil for anonymous requests
func ctxGetSession(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}

// ctxGetUser returns the signed-in user, or nil
func ctxGetUser(ctx context.Context) *models.User {
	if session := ctxGetSession(ctx); session != nil {
		return &session.User
	}
	return nil
}
