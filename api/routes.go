package api

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/portfolio-backend/services"
)

// setupContentRoutes registers the portfolio API. Reads are public; writes
// need a staff session.
func setupContentRoutes(r chi.Router, handlers *routeHandlers) {
	r.Route("/projects", func(r chi.Router) {
		r.Use(staffOrReadOnly)

		r.Get("/", handlers.projectHandler.getAllProjects())
		r.Post("/", handlers.projectHandler.createProject())

		r.Get("/search", handlers.projectHandler.searchProjects())
		r.Get("/filter", handlers.projectHandler.filterProjects())
		r.Get("/sort", handlers.projectHandler.sortProjects())

		r.Get("/{projectID}", handlers.projectHandler.getProject())
		r.Put("/{projectID}", handlers.projectHandler.updateProject(false))
		r.Patch("/{projectID}", handlers.projectHandler.updateProject(true))
		r.Delete("/{projectID}", handlers.projectHandler.deleteProject())
	})

	r.Route("/categories", func(r chi.Router) {
		r.Use(staffOrReadOnly)

		r.Get("/", handlers.categoryHandler.getAllCategories())
		r.Post("/", handlers.categoryHandler.createCategory())
		r.Get("/{categoryID}", handlers.categoryHandler.getCategory())
		r.Put("/{categoryID}", handlers.categoryHandler.updateCategory(false))
		r.Patch("/{categoryID}", handlers.categoryHandler.updateCategory(true))
		r.Delete("/{categoryID}", handlers.categoryHandler.deleteCategory())
	})

	r.Route("/tags", func(r chi.Router) {
		r.Use(staffOrReadOnly)

		r.Get("/", handlers.tagHandler.getAllTags())
		r.Post("/", handlers.tagHandler.createTag())
		r.Get("/{tagID}", handlers.tagHandler.getTag())
		r.Put("/{tagID}", handlers.tagHandler.updateTag(false))
		r.Patch("/{tagID}", handlers.tagHandler.updateTag(true))
		r.Delete("/{tagID}", handlers.tagHandler.deleteTag())
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/status", handlers.authHandler.status())
		r.Post("/login", handlers.authHandler.login())
		r.Post("/logout", handlers.authHandler.logout())
		r.Get("/csrf", handlers.authHandler.csrfToken())
	})

	r.Post("/contact", handlers.contactHandler.send())
}

// setupInfraRoutes registers health, metrics and, for local storage, the
// media file server. They live outside API_PREFIX.
func setupInfraRoutes(r chi.Router, handlers *routeHandlers, metrics *metricsCollector, storage services.FileStorage, mediaURL string) {
	r.Get("/healthz", handlers.healthHandler.health())
	r.Method(http.MethodGet, "/metrics", metrics.handler())

	local, ok := storage.(*services.LocalStorage)
	if !ok || !strings.HasPrefix(mediaURL, "/") {
		return
	}
	prefix := strings.TrimSuffix(mediaURL, "/")
	fileServer := http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(local.Root())}))
	r.Method(http.MethodGet, prefix+"/*", fileServer)
	r.Method(http.MethodHead, prefix+"/*", fileServer)
}

// filesOnly hides directories so the media root cannot be listed.
type filesOnly struct {
	root http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
