package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const fileCleanupConcurrency = 4

type projectHandler struct {
	responder    Responder
	logger       zerolog.Logger
	projectRepo  *database.ProjectRepo
	categoryRepo *database.CategoryRepo
	tagRepo      *database.TagRepo
	storage      services.FileStorage
	serializer   projectSerializer
	metrics      *metricsCollector
}

func newProjectHandler(
	projectRepo *database.ProjectRepo,
	categoryRepo *database.CategoryRepo,
	tagRepo *database.TagRepo,
	storage services.FileStorage,
	metrics *metricsCollector,
) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder:    NewResponder(logger),
		logger:       logger,
		projectRepo:  projectRepo,
		categoryRepo: categoryRepo,
		tagRepo:      tagRepo,
		storage:      storage,
		serializer:   projectSerializer{storage: storage},
		metrics:      metrics,
	}
}

// projectInput holds the writable scalar project fields.
type projectInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Category    uint     `json:"category"`
	Description string   `json:"description" validate:"required"`
	Featured    bool     `json:"featured"`
	Tools       []string `json:"tools"`
	Link        *string  `json:"link" validate:"omitempty,weburl,max=200"`
}

// projectForm is a decoded and checked project write.
type projectForm struct {
	input       projectInput
	tags        []models.ProjectTag
	tagsPresent bool
	thumbnail   *upload
	images      []*upload
}

// upload is a sniffed file waiting to be stored.
type upload struct {
	header      *multipart.FileHeader
	contentType string
	key         string
}

// decodeProject reads a multipart or urlencoded project body on top of in.
// Category and tag references are resolved; every problem is reported as a
// field error.
func (h projectHandler) decodeProject(r *http.Request, in projectInput, partial, requireThumbnail bool) (*projectForm, error) {
	p, err := readPayload(r, mediaMultipart, mediaForm)
	if err != nil {
		return nil, err
	}

	form := &projectForm{input: in}
	fields := newFieldReader(p, partial)
	fields.required("title", "category", "description", "tools")
	fields.String("title", &form.input.Title)
	fields.ID("category", &form.input.Category)
	fields.String("description", &form.input.Description)
	fields.Bool("featured", &form.input.Featured)
	fields.StringList("tools", &form.input.Tools)
	fields.OptionalString("link", &form.input.Link)
	tagIDs, tagsPresent := fields.IDList("tags")

	thumbnail := fields.File("thumbnail")
	if thumbnail == nil && requireThumbnail && !fields.errs.Has("thumbnail") {
		fields.errs.Add("thumbnail", msgNoFile)
	}
	images := fields.Files("images")

	validateInto(form.input, fields.errs)

	if p.has("category") && !fields.errs.Has("category") {
		if _, err := h.categoryRepo.FindByID(form.input.Category); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, wrapDatabaseError("find", "category", err)
			}
			fields.errs.Add("category", fmt.Sprintf(msgMissingObject, form.input.Category))
		}
	}

	if tagsPresent && !fields.errs.Has("tags") {
		tags, missing, err := h.tagRepo.FindByIDs(tagIDs)
		if err != nil {
			return nil, wrapDatabaseError("find", "tags", err)
		}
		if len(missing) > 0 {
			fields.errs.Add("tags", fmt.Sprintf(msgMissingObject, missing[0]))
		}
		form.tags = tags
		form.tagsPresent = true
	}

	if thumbnail != nil {
		form.thumbnail = sniffUpload(thumbnail, "thumbnail", services.ThumbnailPrefix, fields)
	}
	for _, header := range images {
		if u := sniffUpload(header, "images", services.ImagePrefix, fields); u != nil {
			form.images = append(form.images, u)
		}
	}

	if err := fields.errs.OrNil(); err != nil {
		return nil, err
	}
	return form, nil
}

func sniffUpload(header *multipart.FileHeader, field, prefix string, fields *fieldReader) *upload {
	f, err := header.Open()
	if err != nil {
		fields.errs.Add(field, msgInvalidImage)
		return nil
	}
	defer f.Close()

	contentType, err := services.DetectImage(f)
	if err != nil {
		if !fields.errs.Has(field) {
			fields.errs.Add(field, msgInvalidImage)
		}
		return nil
	}
	return &upload{
		header:      header,
		contentType: contentType,
		key:         services.ObjectKey(prefix, header.Filename),
	}
}

// storeUploads writes every upload to storage. On failure the files already
// written are removed again.
func (h projectHandler) storeUploads(ctx context.Context, uploads []*upload) error {
	var stored []string
	for _, u := range uploads {
		if err := h.saveUpload(ctx, u); err != nil {
			h.removeFiles(ctx, stored)
			return errs.NewInternalErrorWithCause("failed to store upload", err)
		}
		stored = append(stored, u.key)
		h.metrics.UploadedBytes.Add(float64(u.header.Size))
	}
	return nil
}

func (h projectHandler) saveUpload(ctx context.Context, u *upload) error {
	f, err := u.header.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	return h.storage.Save(ctx, u.key, f, u.contentType)
}

// removeFiles deletes stored files best-effort. Failures are logged only.
func (h projectHandler) removeFiles(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(fileCleanupConcurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := h.storage.Delete(ctx, key); err != nil {
				h.logger.Warn().Err(err).Str("key", key).Msg("failed to delete stored file")
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error().Err(err).Int("files", len(keys)).Msg("some project files were not removed")
	}
}

func (f *projectForm) uploads() []*upload {
	out := make([]*upload, 0, len(f.images)+1)
	if f.thumbnail != nil {
		out = append(out, f.thumbnail)
	}
	return append(out, f.images...)
}

func (f *projectForm) uploadKeys() []string {
	uploads := f.uploads()
	keys := make([]string, len(uploads))
	for i, u := range uploads {
		keys[i] = u.key
	}
	return keys
}

func (f *projectForm) newImages() []models.ProjectImage {
	images := make([]models.ProjectImage, len(f.images))
	for i, u := range f.images {
		images[i] = models.ProjectImage{Image: u.key}
	}
	return images
}

func (in projectInput) applyTo(p *models.Project) {
	p.Title = in.Title
	p.CategoryID = in.Category
	p.Description = in.Description
	p.Featured = in.Featured
	p.Tools = datatypes.JSONSlice[string](in.Tools)
	if p.Tools == nil {
		p.Tools = datatypes.JSONSlice[string]{}
	}
	p.Link = in.Link
}

// getAllProjects lists projects, newest first
// @Summary List projects
// @Tags Projects
// @Produce json
// @Success 200 {array} projectResponse
// @Router /projects/ [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projectRepo.FindAll()
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "projects", err))
			return
		}
		h.responder.WriteJSON(w, h.serializer.many(projects))
	}
}

// getProject retrieves a specific project by ID with its tags and images
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param projectID path int true "Project ID"
// @Success 200 {object} projectResponse
// @Failure 404 "Not Found"
// @Router /projects/{projectID}/ [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "projectID", "project")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projectRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "project", err))
			return
		}
		h.responder.WriteJSON(w, h.serializer.one(project))
	}
}

// createProject creates a project from a multipart form
// @Summary Create project
// @Description Fields: title, category, description, featured, tools (JSON array of strings), link, tags (repeated ids), thumbnail (file), images (repeated files)
// @Tags Projects
// @Accept mpfd,x-www-form-urlencoded
// @Produce json
// @Success 201 {object} projectResponse
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /projects/ [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := h.decodeProject(r, projectInput{}, false, true)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.storeUploads(r.Context(), form.uploads()); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project := &models.Project{Thumbnail: form.thumbnail.key}
		form.input.applyTo(project)
		if user := ctxGetUser(r.Context()); user != nil {
			project.CreatedByID = &user.ID
		}

		err = h.projectRepo.Add(project, database.ProjectChanges{
			Tags:      form.tags,
			NewImages: form.newImages(),
		})
		if err != nil {
			h.removeFiles(r.Context(), form.uploadKeys())
			h.responder.WriteError(w, wrapDatabaseError("create", "project", err))
			return
		}

		h.logger.Info().Uint("projectID", project.ID).Int("images", len(project.Images)).Msg("project created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, h.serializer.one(project))
	}
}

// updateProject serves PUT and PATCH. Sent tags replace the tag set; sent
// images are appended to the gallery; a new thumbnail replaces the old file.
// @Summary Update project
// @Tags Projects
// @Accept mpfd,x-www-form-urlencoded
// @Produce json
// @Param projectID path int true "Project ID"
// @Success 200 {object} projectResponse
// @Failure 400 {object} map[string][]string
// @Failure 404 "Not Found"
// @Router /projects/{projectID}/ [put]
// @Router /projects/{projectID}/ [patch]
func (h projectHandler) updateProject(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "projectID", "project")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projectRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "project", err))
			return
		}

		current := projectInput{
			Title:       project.Title,
			Category:    project.CategoryID,
			Description: project.Description,
			Featured:    project.Featured,
			Tools:       []string(project.Tools),
			Link:        project.Link,
		}
		form, err := h.decodeProject(r, current, partial, false)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.storeUploads(r.Context(), form.uploads()); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		replacedThumbnail := ""
		if form.thumbnail != nil {
			replacedThumbnail = project.Thumbnail
			project.Thumbnail = form.thumbnail.key
		}
		form.input.applyTo(project)
		// the category association is reloaded after the write
		project.Category = models.ProjectCategory{}

		err = h.projectRepo.Update(project, database.ProjectChanges{
			ReplaceTags: form.tagsPresent,
			Tags:        form.tags,
			NewImages:   form.newImages(),
		})
		if err != nil {
			h.removeFiles(r.Context(), form.uploadKeys())
			h.responder.WriteError(w, wrapDatabaseError("update", "project", err))
			return
		}

		if replacedThumbnail != "" {
			h.removeFiles(r.Context(), []string{replacedThumbnail})
		}
		h.responder.WriteJSON(w, h.serializer.one(project))
	}
}

// deleteProject removes a project with its gallery, then its stored files
// @Summary Delete project
// @Tags Projects
// @Param projectID path int true "Project ID"
// @Success 204
// @Failure 404 "Not Found"
// @Router /projects/{projectID}/ [delete]
func (h projectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "projectID", "project")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		deleted, err := h.projectRepo.Delete(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "project", err))
			return
		}

		h.removeFiles(r.Context(), deleted.FileKeys())
		h.logger.Info().Uint("projectID", id).Msg("project deleted")
		h.responder.WriteNoContent(w)
	}
}

// searchProjects matches q against titles, ignoring case
// @Summary Search projects by title
// @Tags Projects
// @Produce json
// @Param q query string false "Title substring"
// @Success 200 {array} projectResponse
// @Router /projects/search/ [get]
func (h projectHandler) searchProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			h.responder.WriteJSON(w, []projectResponse{})
			return
		}

		projects, err := h.projectRepo.Search(q)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("search", "projects", err))
			return
		}
		h.responder.WriteJSON(w, h.serializer.many(projects))
	}
}

// filterProjects returns the projects of one category
// @Summary Filter projects by category
// @Tags Projects
// @Produce json
// @Param category query int false "Category ID"
// @Success 200 {array} projectResponse
// @Failure 400 {object} map[string][]string
// @Router /projects/filter/ [get]
func (h projectHandler) filterProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("category"))
		if raw == "" {
			h.responder.WriteJSON(w, []projectResponse{})
			return
		}

		categoryID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.responder.WriteError(w, errs.FieldError("category", msgInvalidInt))
			return
		}

		projects, err := h.projectRepo.FilterByCategory(uint(categoryID))
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("filter", "projects", err))
			return
		}
		h.responder.WriteJSON(w, h.serializer.many(projects))
	}
}

// sortProjects orders all projects by sort_by, "-" prefix for descending
// @Summary Sort projects
// @Tags Projects
// @Produce json
// @Param sort_by query string false "id, title, created_at, updated_at, featured or category" default(created_at)
// @Success 200 {array} projectResponse
// @Failure 400 {object} map[string][]string
// @Router /projects/sort/ [get]
func (h projectHandler) sortProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sortBy := strings.TrimSpace(r.URL.Query().Get("sort_by"))
		if sortBy == "" {
			sortBy = "created_at"
		}

		projects, err := h.projectRepo.Sorted(sortBy)
		if errors.Is(err, database.ErrInvalidSortField) {
			h.responder.WriteError(w, errs.FieldError("sort_by", fmt.Sprintf(
				"Cannot sort by %q. Choose one of: %s, optionally prefixed with \"-\".",
				sortBy, strings.Join(sortFieldNames(), ", "),
			)))
			return
		}
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("sort", "projects", err))
			return
		}
		h.responder.WriteJSON(w, h.serializer.many(projects))
	}
}

func sortFieldNames() []string {
	names := make([]string, 0, len(database.ProjectSortFields))
	for name := range database.ProjectSortFields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
