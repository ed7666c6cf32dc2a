package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCategoryResponse(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()

	resp := staff.postJSON("/categories/", map[string]string{"name": "Web Apps"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":1,"name":"Web Apps","slug":"web-apps","description":"","order":0}`, readBody(t, resp))
}

func TestCategorySlugsOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()

	for _, want := range []string{"web-apps", "web-apps-1", "web-apps-2"} {
		resp := staff.postJSON("/categories/", map[string]string{"name": "Web Apps"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, want, decode[categoryResponse](t, resp).Slug)
	}

	resp := staff.sendForm(http.MethodPost, "/categories/", url.Values{"name": {"Data Science"}, "order": {"2"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[categoryResponse](t, resp)
	assert.Equal(t, "data-science", created.Slug)
	assert.Equal(t, 2, created.Order)
}

func TestCategoryListOrdering(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()

	for _, body := range []map[string]any{
		{"name": "Zeta", "order": 0},
		{"name": "Alpha", "order": 1},
		{"name": "Beta", "order": 0},
	} {
		resp := staff.postJSON("/categories/", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := env.anonymous().get("/categories/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]categoryResponse](t, resp)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Beta", "Zeta", "Alpha"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestCategoryUpdate(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()
	category := env.seedCategory("Web Apps")
	path := "/categories/" + itoa(category.ID) + "/"

	resp := staff.sendJSON(http.MethodPatch, path, map[string]any{"order": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decode[categoryResponse](t, resp)
	assert.Equal(t, "Web Apps", patched.Name)
	assert.Equal(t, "web-apps", patched.Slug)
	assert.Equal(t, 5, patched.Order)

	// PUT needs every required field
	resp = staff.sendJSON(http.MethodPut, path, map[string]any{"order": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"name":["This field is required."]}`, readBody(t, resp))

	resp = staff.sendJSON(http.MethodPut, path, map[string]any{"name": "Mobile"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[categoryResponse](t, resp)
	assert.Equal(t, "mobile", updated.Slug)
	assert.Equal(t, 5, updated.Order)
}

func TestCategoryValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()

	resp := staff.postJSON("/categories/", map[string]any{"name": "", "order": -1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{"This field may not be blank."}, fields["name"])
	assert.Equal(t, []string{"Ensure this value is greater than or equal to 0."}, fields["order"])

	resp = staff.postJSON("/categories/", map[string]any{"name": "x", "order": "first"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"order":["A valid integer is required."]}`, readBody(t, resp))

	resp = staff.postJSON("/categories/", map[string]any{"name": "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"name":["This field may not be blank."]}`, readBody(t, resp))

	resp = staff.postJSON("/categories/", map[string]any{"name": "  Web Apps \n"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[categoryResponse](t, resp)
	assert.Equal(t, "Web Apps", created.Name)
	assert.Equal(t, "web-apps", created.Slug)

	resp = staff.do(http.MethodPost, "/categories/", nil, "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	resp.Body.Close()
}

func TestTagValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()

	resp := staff.postJSON("/tags/", map[string]string{"name": "\t  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"name":["This field may not be blank."]}`, readBody(t, resp))

	tag := env.seedTag("Go")
	resp = staff.sendJSON(http.MethodPatch, "/tags/"+itoa(tag.ID)+"/", map[string]string{"name": "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	all, err := env.db.TagRepo().FindAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Go", all[0].Name)
}

func TestCategoryNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	anon := env.anonymous()

	for _, path := range []string{"/categories/99/", "/categories/abc/", "/categories/0"} {
		resp := anon.get(path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Empty(t, readBody(t, resp), path)
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()
	used := env.seedCategory("Used")
	unused := env.seedCategory("Unused")
	env.seedProject("Portfolio", used.ID)

	resp := staff.do(http.MethodDelete, "/categories/"+itoa(used.ID)+"/", nil, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "category", body.Field)
	assert.Equal(t, "1 projects still reference it", body.Details)

	_, err := env.db.CategoryRepo().FindByID(used.ID)
	assert.NoError(t, err)

	resp = staff.do(http.MethodDelete, "/categories/"+itoa(unused.ID)+"/", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = staff.get("/categories/" + itoa(unused.ID) + "/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTagCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()

	resp := staff.postJSON("/tags/", map[string]string{"name": "Go"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tag := decode[tagResponse](t, resp)
	assert.Equal(t, "go", tag.Slug)

	resp = staff.postJSON("/tags/", map[string]string{"name": "Go"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "go-1", decode[tagResponse](t, resp).Slug)

	path := "/tags/" + itoa(tag.ID) + "/"
	resp = staff.sendJSON(http.MethodPut, path, map[string]string{"name": "Golang"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "golang", decode[tagResponse](t, resp).Slug)

	resp = env.anonymous().get("/tags")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]tagResponse](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "Go", list[0].Name)
	assert.Equal(t, "Golang", list[1].Name)

	// a tag in use is detached, not protected
	category := env.seedCategory("Web")
	project := env.seedProject("Site", category.ID)
	tagModel, err := env.db.TagRepo().FindByID(tag.ID)
	require.NoError(t, err)
	resp = staff.sendMultipart(http.MethodPatch, "/projects/"+itoa(project.ID)+"/", url.Values{"tags": {itoa(tagModel.ID)}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = staff.do(http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = staff.get("/projects/" + itoa(project.ID) + "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[projectResponse](t, resp).Tags)
}

func TestAnonymousCannotWrite(t *testing.T) {
	env := newTestEnv(t, nil)
	anon := env.anonymous()

	resp := anon.postJSON("/tags/", map[string]string{"name": "Go"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "not authenticated", body.Error)
	assert.Equal(t, "Authentication credentials were not provided.", body.Details)

	resp = anon.get("/tags/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, readBody(t, resp))
}
