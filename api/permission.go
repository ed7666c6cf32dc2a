package api

import (
	"net/http"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rs/zerolog/log"
)

// allowRequest is the content write policy: anyone may read, only active
// staff may write.
func allowRequest(method string, user *models.User) bool {
	if isSafeMethod(method) {
		return true
	}
	return user.CanWrite()
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// denyError is the error for a request allowRequest rejected.
func denyError(user *models.User) error {
	if user == nil {
		return errs.NewNotAuthenticatedError()
	}
	return errs.NewInsufficientRoleError()
}

// staffOrReadOnly applies allowRequest to every route below it.
func staffOrReadOnly(next http.Handler) http.Handler {
	responder := NewResponder(log.With().Str("handlerName", "permission").Logger())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := ctxGetUser(r.Context())
		if !allowRequest(r.Method, user) {
			responder.WriteError(w, denyError(user))
			return
		}
		next.ServeHTTP(w, r)
	})
}
