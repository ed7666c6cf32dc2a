package api

import (
	"net/http"

	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type tagHandler struct {
	responder Responder
	logger    zerolog.Logger
	tagRepo   *database.TagRepo
}

func newTagHandler(tagRepo *database.TagRepo) tagHandler {
	logger := log.With().Str("handlerName", "tagHandler").Logger()

	return tagHandler{
		responder: NewResponder(logger),
		logger:    logger,
		tagRepo:   tagRepo,
	}
}

type tagInput struct {
	Name string `json:"name" validate:"required,max=50"`
}

func (in *tagInput) decode(r *http.Request, partial bool) error {
	p, err := readPayload(r, mediaJSON, mediaForm, mediaMultipart)
	if err != nil {
		return err
	}

	fields := newFieldReader(p, partial)
	fields.required("name")
	fields.String("name", &in.Name)

	validateInto(in, fields.errs)
	return fields.errs.OrNil()
}

// getAllTags lists tags by name
// @Summary List tags
// @Tags Tags
// @Produce json
// @Success 200 {array} tagResponse
// @Router /tags/ [get]
func (h tagHandler) getAllTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := h.tagRepo.FindAll()
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "tags", err))
			return
		}

		out := make([]tagResponse, 0, len(tags))
		for _, t := range tags {
			out = append(out, newTagResponse(t))
		}
		h.responder.WriteJSON(w, out)
	}
}

// @Summary Get tag
// @Tags Tags
// @Produce json
// @Param tagID path int true "Tag ID"
// @Success 200 {object} tagResponse
// @Failure 404 "Not Found"
// @Router /tags/{tagID}/ [get]
func (h tagHandler) getTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "tagID", "tag")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		tag, err := h.tagRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "tag", err))
			return
		}
		h.responder.WriteJSON(w, newTagResponse(tag))
	}
}

// @Summary Create tag
// @Tags Tags
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param tag body tagInput true "Tag"
// @Success 201 {object} tagResponse
// @Failure 400 {object} map[string][]string
// @Router /tags/ [post]
func (h tagHandler) createTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tagInput
		if err := in.decode(r, false); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		tag := &models.ProjectTag{Name: in.Name}
		if err := h.tagRepo.Add(tag); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "tag", err))
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, newTagResponse(tag))
	}
}

// @Summary Update tag
// @Tags Tags
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param tagID path int true "Tag ID"
// @Param tag body tagInput true "Tag"
// @Success 200 {object} tagResponse
// @Router /tags/{tagID}/ [put]
// @Router /tags/{tagID}/ [patch]
func (h tagHandler) updateTag(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "tagID", "tag")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		tag, err := h.tagRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "tag", err))
			return
		}

		in := tagInput{Name: tag.Name}
		if err := in.decode(r, partial); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		tag.Name = in.Name
		if err := h.tagRepo.Update(tag); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update", "tag", err))
			return
		}
		h.responder.WriteJSON(w, newTagResponse(tag))
	}
}

// deleteTag removes the tag from every project, then the tag itself
// @Summary Delete tag
// @Tags Tags
// @Param tagID path int true "Tag ID"
// @Success 204
// @Failure 404 "Not Found"
// @Router /tags/{tagID}/ [delete]
func (h tagHandler) deleteTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "tagID", "tag")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.tagRepo.Delete(id); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "tag", err))
			return
		}
		h.responder.WriteNoContent(w)
	}
}
