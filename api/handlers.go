package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rs/zerolog/log"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(db database.Database, deps *router, sessions sessionManager) *routeHandlers {
	return &routeHandlers{
		categoryHandler: newCategoryHandler(db.CategoryRepo()),
		tagHandler:      newTagHandler(db.TagRepo()),
		projectHandler:  newProjectHandler(db.ProjectRepo(), db.CategoryRepo(), db.TagRepo(), deps.storage, deps.metrics),
		authHandler:     newAuthHandler(db.UserRepo(), sessions, deps.metrics),
		contactHandler:  newContactHandler(deps.mailer, deps.contactEmail, deps.metrics),
		healthHandler:   newHealthHandler(db, deps.startupTime),
	}
}

// pathID parses the numeric id URL parameter. Anything else reads as a
// missing entity.
func pathID(r *http.Request, param, entity string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.NewNotFound(entity)
	}
	return uint(id), nil
}

type healthHandler struct {
	responder   Responder
	db          database.Database
	startupTime time.Time
}

func newHealthHandler(db database.Database, startupTime time.Time) healthHandler {
	return healthHandler{
		responder:   NewResponder(log.With().Str("handlerName", "healthHandler").Logger()),
		db:          db,
		startupTime: startupTime,
	}
}

type healthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
	Uptime   string `json:"uptime" example:"1h2m3s"`
}

// health reports liveness and database reachability
// @Summary Health check
// @Tags Infra
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /healthz [get]
func (h healthHandler) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:   "ok",
			Database: "ok",
			Uptime:   time.Since(h.startupTime).Round(time.Second).String(),
		}
		if err := h.db.Ping(); err != nil {
			h.responder.logger.Error().Err(err).Msg("database ping failed")
			resp.Status = "degraded"
			resp.Database = "unreachable"
			h.responder.WriteJSONStatus(w, http.StatusServiceUnavailable, resp)
			return
		}
		h.responder.WriteJSON(w, resp)
	}
}
