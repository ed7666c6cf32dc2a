package api

import (
	"net/http"

	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type categoryHandler struct {
	responder    Responder
	logger       zerolog.Logger
	categoryRepo *database.CategoryRepo
}

func newCategoryHandler(categoryRepo *database.CategoryRepo) categoryHandler {
	logger := log.With().Str("handlerName", "categoryHandler").Logger()

	return categoryHandler{
		responder:    NewResponder(logger),
		logger:       logger,
		categoryRepo: categoryRepo,
	}
}

// categoryInput holds the writable category fields.
type categoryInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"min=0"`
}

// decode merges the request body into in. Partial writes need no field.
func (in *categoryInput) decode(r *http.Request, partial bool) error {
	p, err := readPayload(r, mediaJSON, mediaForm, mediaMultipart)
	if err != nil {
		return err
	}

	fields := newFieldReader(p, partial)
	fields.required("name")
	fields.String("name", &in.Name)
	fields.String("description", &in.Description)
	fields.Int("order", &in.Order)

	validateInto(in, fields.errs)
	return fields.errs.OrNil()
}

// getAllCategories lists every category
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} categoryResponse
// @Router /categories/ [get]
func (h categoryHandler) getAllCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.categoryRepo.FindAll()
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "categories", err))
			return
		}

		out := make([]categoryResponse, 0, len(categories))
		for _, c := range categories {
			out = append(out, newCategoryResponse(c))
		}
		h.responder.WriteJSON(w, out)
	}
}

// getCategory retrieves one category
// @Summary Get category
// @Tags Categories
// @Produce json
// @Param categoryID path int true "Category ID"
// @Success 200 {object} categoryResponse
// @Failure 404 "Not Found"
// @Router /categories/{categoryID}/ [get]
func (h categoryHandler) getCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "categoryID", "category")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		category, err := h.categoryRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "category", err))
			return
		}
		h.responder.WriteJSON(w, newCategoryResponse(category))
	}
}

// createCategory creates a category; the slug is derived from the name
// @Summary Create category
// @Tags Categories
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param category body categoryInput true "Category"
// @Success 201 {object} categoryResponse
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} ErrorResponse
// @Router /categories/ [post]
func (h categoryHandler) createCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in categoryInput
		if err := in.decode(r, false); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		category := &models.ProjectCategory{
			Name:        in.Name,
			Description: in.Description,
			Order:       in.Order,
		}
		if err := h.categoryRepo.Add(category); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "category", err))
			return
		}

		h.logger.Info().Uint("categoryID", category.ID).Str("slug", category.Slug).Msg("category created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, newCategoryResponse(category))
	}
}

// updateCategory serves both PUT and PATCH
// @Summary Update category
// @Tags Categories
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param categoryID path int true "Category ID"
// @Param category body categoryInput true "Category"
// @Success 200 {object} categoryResponse
// @Failure 400 {object} map[string][]string
// @Failure 404 "Not Found"
// @Router /categories/{categoryID}/ [put]
// @Router /categories/{categoryID}/ [patch]
func (h categoryHandler) updateCategory(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "categoryID", "category")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		category, err := h.categoryRepo.FindByID(id)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "category", err))
			return
		}

		in := categoryInput{Name: category.Name, Description: category.Description, Order: category.Order}
		if err := in.decode(r, partial); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		category.Name = in.Name
		category.Description = in.Description
		category.Order = in.Order
		if err := h.categoryRepo.Update(category); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update", "category", err))
			return
		}
		h.responder.WriteJSON(w, newCategoryResponse(category))
	}
}

// deleteCategory removes a category that no project uses
// @Summary Delete category
// @Tags Categories
// @Param categoryID path int true "Category ID"
// @Success 204
// @Failure 404 "Not Found"
// @Failure 409 {object} ErrorResponse "Category still used by projects"
// @Router /categories/{categoryID}/ [delete]
func (h categoryHandler) deleteCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "categoryID", "category")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.categoryRepo.Delete(id); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "category", err))
			return
		}
		h.responder.WriteNoContent(w)
	}
}
