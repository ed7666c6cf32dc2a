package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpupo63/portfolio-backend/config"
	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/services"
	"github.com/rs/zerolog/log"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(db database.Database, c map[string]string, storage services.FileStorage, mailer services.Mailer) (Server, error) {
	if storage == nil {
		return Server{}, fmt.Errorf("file storage is required")
	}
	if mailer == nil {
		return Server{}, fmt.Errorf("mailer is required")
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port)

	startupTime := time.Now()

	router := newRouter(db,
		withConfig(c),
		withStartupTime(startupTime),
		withStorage(storage),
		withMailer(mailer),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(c, "READ_TIMEOUT_SECONDS", time.Second, 180),
		WriteTimeout: config.GetDuration(c, "WRITE_TIMEOUT_SECONDS", time.Second, 180),
		IdleTimeout:  config.GetDuration(c, "IDLE_TIMEOUT_SECONDS", time.Second, 180),
	}

	return Server{server, startupTime}, nil
}

// router collects what newRouter wires into the handlers.
type router struct {
	config      map[string]string
	startupTime time.Time
	storage     services.FileStorage
	mailer      services.Mailer
	registry    *prometheus.Registry
	metrics     *metricsCollector

	apiPrefix    string
	mediaURL     string
	contactEmail string
	sessionTTL   time.Duration
	cookieSecure bool
	maxBodyBytes int64
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func withStorage(storage services.FileStorage) func(*router) {
	return func(r *router) {
		r.storage = storage
	}
}

func withMailer(mailer services.Mailer) func(*router) {
	return func(r *router) {
		r.mailer = mailer
	}
}

// withRegistry registers metrics on registry instead of a fresh one.
func withRegistry(registry *prometheus.Registry) func(*router) {
	return func(r *router) {
		r.registry = registry
	}
}

func newRouter(db database.Database, opts ...func(*router)) *chi.Mux {
	var deps router
	for _, opt := range opts {
		opt(&deps)
	}
	if deps.startupTime.IsZero() {
		deps.startupTime = time.Now()
	}

	c := deps.config
	deps.apiPrefix = "/" + strings.Trim(config.GetString(c, "API_PREFIX", ""), "/")
	deps.mediaURL = config.GetString(c, "MEDIA_URL", "/media/")
	deps.contactEmail = config.GetString(c, "CONTACT_EMAIL", config.GetString(c, "DEFAULT_FROM_EMAIL", "webmaster@localhost"))
	deps.sessionTTL = config.GetDuration(c, "SESSION_TTL_HOURS", time.Hour, 336)
	deps.cookieSecure = config.GetBool(c, "COOKIE_SECURE", false)
	deps.maxBodyBytes = int64(config.GetInt(c, "MAX_UPLOAD_MB", 20)) << 20
	deps.metrics = newMetricsCollector(deps.registry)

	sessions := newSessionManager(db.SessionRepo(), deps.sessionTTL, deps.cookieSecure, deps.metrics)
	handlers := initializeHandlers(db, &deps, sessions)

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(recoverPanics)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(deps.metrics.instrument)
	chiRouter.Use(requestLogger(log.Logger))

	acceptedOrigins := config.GetList(c, "ACCEPTED_ORIGINS")
	chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
	chiRouter.Use(corsMiddleware(acceptedOrigins))

	chiRouter.Use(middleware.StripSlashes)
	chiRouter.Use(middleware.GetHead)
	chiRouter.Use(limitBody(deps.maxBodyBytes))
	chiRouter.Use(sessions.loadSession)
	chiRouter.Use(sessions.csrfProtect)

	setupInfraRoutes(chiRouter, handlers, deps.metrics, deps.storage, deps.mediaURL)

	if deps.apiPrefix == "/" {
		setupContentRoutes(chiRouter, handlers)
	} else {
		chiRouter.Route(deps.apiPrefix, func(r chi.Router) {
			setupContentRoutes(r, handlers)
		})
	}

	log.Info().
		Str("apiPrefix", deps.apiPrefix).
		Strs("acceptedOrigins", acceptedOrigins).
		Msg("router initialized")

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
