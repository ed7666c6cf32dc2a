package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	userRepo  *database.UserRepo
	sessions  sessionManager
	metrics   *metricsCollector
}

func newAuthHandler(userRepo *database.UserRepo, sessions sessionManager, metrics *metricsCollector) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		userRepo:  userRepo,
		sessions:  sessions,
		metrics:   metrics,
	}
}

type userResponse struct {
	ID       uint   `json:"id" example:"1"`
	Email    string `json:"email" example:"admin@example.com"`
	Username string `json:"username" example:"admin"`
}

func newUserResponse(u *models.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Email: u.Email, Username: u.Username}
}

type authStatusResponse struct {
	IsAuthenticated bool          `json:"isAuthenticated"`
	User            *userResponse `json:"user"`
}

type loginResponse struct {
	User *userResponse `json:"user"`
}

type csrfResponse struct {
	CSRFToken string `json:"csrfToken" example:"3f7a..."`
}

// status reports whether the request carries a session
// @Summary Session state
// @Tags Auth
// @Produce json
// @Success 200 {object} authStatusResponse
// @Router /auth/status/ [get]
func (h authHandler) status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxGetUser(r.Context())
		h.responder.WriteJSON(w, authStatusResponse{
			IsAuthenticated: user != nil,
			User:            newUserResponse(user),
		})
	}
}

// login checks the credentials and opens a session. The email field also
// accepts a username.
// @Summary Log in
// @Tags Auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Success 200 {object} loginResponse
// @Failure 400 {object} PlainErrorResponse
// @Failure 401 {object} PlainErrorResponse
// @Router /auth/login/ [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readPayload(r, mediaJSON, mediaForm, mediaMultipart)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		identifier := strings.TrimSpace(p.value("email"))
		password := p.value("password")
		if identifier == "" || password == "" {
			h.responder.WriteJSONStatus(w, http.StatusBadRequest, PlainErrorResponse{
				Error: "Please provide both email and password",
			})
			return
		}

		user, err := h.userRepo.FindByLogin(identifier)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			h.responder.WriteError(w, wrapDatabaseError("find", "user", err))
			return
		}
		var valid bool
		if user == nil {
			valid = models.RejectPassword(password)
		} else {
			valid = user.CheckPassword(password) && user.IsActive
		}
		if !valid {
			h.metrics.authFailure("invalid_credentials")
			h.logger.Info().Str("login", identifier).Msg("rejected login")
			h.responder.WriteJSONStatus(w, http.StatusUnauthorized, PlainErrorResponse{
				Error: "Invalid credentials",
			})
			return
		}

		if err := h.sessions.start(w, r, user); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.sessions.issueCSRF(w, r, true)

		if err := h.userRepo.TouchLastLogin(user.ID, time.Now().UTC()); err != nil {
			h.logger.Warn().Err(err).Uint("userID", user.ID).Msg("failed to record last login")
		}

		h.logger.Info().Uint("userID", user.ID).Msg("user logged in")
		h.responder.WriteJSON(w, loginResponse{User: newUserResponse(user)})
	}
}

// logout ends the session. Anonymous callers get the same answer.
// @Summary Log out
// @Tags Auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /auth/logout/ [post]
func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.sessions.end(w, r)
		h.responder.WriteJSON(w, MessageResponse{Message: "Successfully logged out"})
	}
}

// @Summary Issue CSRF token
// @Description Sets the csrftoken cookie. Unsafe requests made with a session must echo it in X-CSRFToken.
// @Tags Auth
// @Produce json
// @Success 200 {object} csrfResponse
// @Router /auth/csrf/ [get]
func (h authHandler) csrfToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := h.sessions.issueCSRF(w, r, false)
		h.responder.WriteJSON(w, csrfResponse{CSRFToken: token})
	}
}
