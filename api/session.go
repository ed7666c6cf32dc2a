package api

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	sessionCookieName = "sessionid"
	csrfCookieName    = "csrftoken"
	csrfHeaderName    = "X-CSRFToken"

	csrfTokenBytes = 32
	csrfCookieAge  = 365 * 24 * time.Hour
)

// sessionManager resolves the session cookie to a user and issues the
// session and CSRF cookies.
type sessionManager struct {
	responder Responder
	logger    zerolog.Logger
	sessions  *database.SessionRepo
	ttl       time.Duration
	secure    bool
	metrics   *metricsCollector
}

func newSessionManager(sessions *database.SessionRepo, ttl time.Duration, secure bool, metrics *metricsCollector) sessionManager {
	logger := log.With().Str("handlerName", "sessionManager").Logger()
	return sessionManager{
		responder: NewResponder(logger),
		logger:    logger,
		sessions:  sessions,
		ttl:       ttl,
		secure:    secure,
		metrics:   metrics,
	}
}

// loadSession attaches the session named by the cookie to the request
// context. Unknown, expired and inactive-user sessions are anonymous.
func (m sessionManager) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.sessions.FindValid(cookie.Value, time.Now().UTC())
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			next.ServeHTTP(w, r)
			return
		case err != nil:
			m.responder.WriteError(w, wrapDatabaseError("load", "session", err))
			return
		}
		if !session.User.IsActive {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctxWithSession(r.Context(), session)))
	})
}

// csrfProtect rejects unsafe requests made with a session unless the
// X-CSRFToken header matches the csrftoken cookie.
func (m sessionManager) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || ctxGetSession(r.Context()) == nil {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			m.metrics.authFailure("csrf_cookie_missing")
			m.responder.WriteError(w, errs.NewCSRFError("CSRF cookie not set."))
			return
		}
		header := r.Header.Get(csrfHeaderName)
		if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
			m.metrics.authFailure("csrf_token_mismatch")
			m.responder.WriteError(w, errs.NewCSRFError("CSRF token missing or incorrect."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// start opens a session for user and sets the session cookie. Any session
// the request already carried is dropped.
func (m sessionManager) start(w http.ResponseWriter, r *http.Request, user *models.User) error {
	m.end(w, r)

	session := models.GenerateSession(user.ID, clientIP(r), r.UserAgent(), m.ttl)
	if err := m.sessions.Add(&session); err != nil {
		return wrapDatabaseError("create", "session", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// end deletes the request's session, if any, and clears the cookie.
func (m sessionManager) end(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := m.sessions.Delete(cookie.Value); err != nil {
			m.logger.Error().Err(err).Msg("failed to delete session")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// issueCSRF sets the CSRF cookie. The current token is kept unless rotate
// is set or there is none.
func (m sessionManager) issueCSRF(w http.ResponseWriter, r *http.Request, rotate bool) string {
	token := ""
	if cookie, err := r.Cookie(csrfCookieName); err == nil && !rotate && len(cookie.Value) == csrfTokenBytes*2 {
		token = cookie.Value
	}
	if token == "" {
		token = models.NewToken(csrfTokenBytes)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfCookieAge.Seconds()),
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
