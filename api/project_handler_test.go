package api

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) storedFile(publicURL string) string {
	return filepath.Join(e.storage.Root(), filepath.FromSlash(strings.TrimPrefix(publicURL, "/media/")))
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()
	anon := env.anonymous()

	category := env.seedCategory("Web Apps")
	react := env.seedTag("React")
	golang := env.seedTag("Go")

	resp := staff.sendMultipart(http.MethodPost, "/projects/", url.Values{
		"title":       {"Portfolio"},
		"category":    {itoa(category.ID)},
		"description": {"My personal site"},
		"tools":       {`["Go","React"]`},
		"link":        {"https://example.com"},
		"tags":        {itoa(react.ID), itoa(golang.ID)},
	},
		formFile{"thumbnail", "cover.PNG", pngBytes},
		formFile{"images", "one.png", pngBytes},
		formFile{"images", "two.png", pngBytes},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[projectResponse](t, resp)

	assert.Equal(t, "Portfolio", created.Title)
	assert.Equal(t, category.ID, created.Category)
	assert.Equal(t, "web-apps", created.CategoryDetails.Slug)
	assert.Equal(t, []string{"Go", "React"}, created.Tools)
	require.NotNil(t, created.Link)
	assert.Equal(t, "https://example.com", *created.Link)
	assert.False(t, created.Featured)
	require.NotNil(t, created.Thumbnail)
	assert.True(t, strings.HasPrefix(*created.Thumbnail, "/media/projects/thumbnails/"))
	assert.True(t, strings.HasSuffix(*created.Thumbnail, ".png"))
	require.Len(t, created.Images, 2)
	assert.Equal(t, 0, created.Images[0].Order)
	assert.Equal(t, 1, created.Images[1].Order)
	require.Len(t, created.Tags, 2)
	assert.Equal(t, "Go", created.Tags[0].Name)
	assert.Equal(t, "React", created.Tags[1].Name)

	// uploads are served back from local storage
	resp = anon.get(*created.Thumbnail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(pngBytes), readBody(t, resp))

	path := "/projects/" + itoa(created.ID) + "/"

	resp = staff.sendMultipart(http.MethodPatch, path, url.Values{
		"featured": {"true"},
		"tags":     {""},
		"link":     {""},
	}, formFile{"images", "three.png", pngBytes})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decode[projectResponse](t, resp)
	assert.True(t, patched.Featured)
	assert.Equal(t, "Portfolio", patched.Title)
	assert.Nil(t, patched.Link)
	assert.Empty(t, patched.Tags)
	require.Len(t, patched.Images, 3)
	assert.Equal(t, 2, patched.Images[2].Order)
	assert.Equal(t, *created.Thumbnail, *patched.Thumbnail)

	oldThumbnail := env.storedFile(*created.Thumbnail)
	resp = staff.sendMultipart(http.MethodPatch, path, nil, formFile{"thumbnail", "new.png", pngBytes})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replaced := decode[projectResponse](t, resp)
	assert.NotEqual(t, *created.Thumbnail, *replaced.Thumbnail)
	_, err := os.Stat(oldThumbnail)
	assert.True(t, os.IsNotExist(err), "replaced thumbnail is removed")

	files := []string{env.storedFile(*replaced.Thumbnail)}
	for _, img := range replaced.Images {
		files = append(files, env.storedFile(img.Image))
	}
	for _, f := range files {
		_, err := os.Stat(f)
		require.NoError(t, err)
	}

	resp = staff.do(http.MethodDelete, path, nil, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = anon.get(path)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	for _, f := range files {
		_, err := os.Stat(f)
		assert.True(t, os.IsNotExist(err), f)
	}
}

func TestProjectPutRequiresFields(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()
	category := env.seedCategory("Web")
	project := env.seedProject("Site", category.ID)
	path := "/projects/" + itoa(project.ID) + "/"

	resp := staff.sendForm(http.MethodPut, path, url.Values{"title": {"Renamed"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{msgRequired}, fields["category"])
	assert.Equal(t, []string{msgRequired}, fields["description"])
	assert.Equal(t, []string{msgRequired}, fields["tools"])
	assert.NotContains(t, fields, "thumbnail")

	resp = staff.sendForm(http.MethodPut, path, url.Values{
		"title":       {"Renamed"},
		"category":    {itoa(category.ID)},
		"description": {"New text"},
		"tools":       {`[]`},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[projectResponse](t, resp)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, []string{}, updated.Tools)
	assert.NotNil(t, updated.Thumbnail)
}

func TestProjectValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	staff := env.staff()

	resp := staff.sendMultipart(http.MethodPost, "/projects/", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := decode[map[string][]string](t, resp)
	for _, name := range []string{"title", "category", "description", "tools"} {
		assert.Equal(t, []string{msgRequired}, fields[name], name)
	}
	assert.Equal(t, []string{msgNoFile}, fields["thumbnail"])

	resp = staff.sendMultipart(http.MethodPost, "/projects/", url.Values{
		"title":       {"Broken"},
		"category":    {"999"},
		"description": {"x"},
		"tools":       {`"Go"`},
		"tags":        {"42"},
		"link":        {"not a url"},
	}, formFile{"thumbnail", "notes.png", []byte("plain text, not an image")})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields = decode[map[string][]string](t, resp)
	assert.Equal(t, []string{`Invalid pk "999" - object does not exist.`}, fields["category"])
	assert.Equal(t, []string{`Invalid pk "42" - object does not exist.`}, fields["tags"])
	assert.Equal(t, []string{msgStringList}, fields["tools"])
	assert.Equal(t, []string{"Enter a valid URL."}, fields["link"])
	assert.Equal(t, []string{msgInvalidImage}, fields["thumbnail"])
	assert.NotContains(t, fields, "title")

	resp = staff.sendMultipart(http.MethodPost, "/projects/", url.Values{
		"title":    {strings.Repeat("x", 201)},
		"category": {"abc"},
		"tools":    {`["Go", 3]`},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields = decode[map[string][]string](t, resp)
	assert.Equal(t, []string{"Ensure this field has no more than 200 characters."}, fields["title"])
	assert.Equal(t, []string{msgInvalidPK}, fields["category"])
	assert.Equal(t, []string{msgStringList + " Item 1 is not a string."}, fields["tools"])

	resp = staff.sendMultipart(http.MethodPost, "/projects/", url.Values{
		"title":       {"   "},
		"category":    {"abc"},
		"description": {"\n"},
		"tools":       {`[]`},
		"link":        {"javascript:alert(document.cookie)"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields = decode[map[string][]string](t, resp)
	assert.Equal(t, []string{"This field may not be blank."}, fields["title"])
	assert.Equal(t, []string{"This field may not be blank."}, fields["description"])
	assert.Equal(t, []string{"Enter a valid URL."}, fields["link"])

	for _, link := range []string{"data:text/html,hi", "mailto:me@example.com", "//example.com/x", "https://"} {
		resp = staff.sendMultipart(http.MethodPost, "/projects/", url.Values{"link": {link}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, link)
		fields = decode[map[string][]string](t, resp)
		assert.Equal(t, []string{"Enter a valid URL."}, fields["link"], link)
	}

	// project writes are form based
	resp = staff.postJSON("/projects/", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	resp.Body.Close()

	// nothing was stored
	entries, err := os.ReadDir(env.storage.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProjectWritesNeedStaff(t *testing.T) {
	env := newTestEnv(t, nil)
	category := env.seedCategory("Web")
	project := env.seedProject("Site", category.ID)

	resp := env.anonymous().do(http.MethodDelete, "/projects/"+itoa(project.ID)+"/", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	_, err := env.db.ProjectRepo().FindByID(project.ID)
	assert.NoError(t, err)
}

func TestProjectQueries(t *testing.T) {
	env := newTestEnv(t, nil)
	anon := env.anonymous()
	web := env.seedCategory("Web")
	data := env.seedCategory("Data")

	env.seedProject("Foo Bar", web.ID)
	env.seedProject("the foo", data.ID)
	env.seedProject("Other", web.ID)
	env.seedProject("100% done", web.ID)

	titles := func(resp *http.Response) []string {
		t.Helper()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out []string
		for _, p := range decode[[]projectResponse](t, resp) {
			out = append(out, p.Title)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Foo Bar", "the foo"}, titles(anon.get("/projects/search/?q=FOO")))
	assert.Equal(t, []string{"100% done"}, titles(anon.get("/projects/search/?q="+url.QueryEscape("%"))))
	assert.Empty(t, titles(anon.get("/projects/search/?q=missing")))

	resp := anon.get("/projects/search/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, readBody(t, resp))

	assert.ElementsMatch(t, []string{"Foo Bar", "Other", "100% done"}, titles(anon.get("/projects/filter/?category="+itoa(web.ID))))
	assert.Equal(t, []string{"the foo"}, titles(anon.get("/projects/filter?category="+itoa(data.ID))))

	resp = anon.get("/projects/filter/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, readBody(t, resp))

	resp = anon.get("/projects/filter/?category=abc")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"category":["A valid integer is required."]}`, readBody(t, resp))

	assert.Equal(t, []string{"100% done", "Foo Bar", "Other", "the foo"}, titles(anon.get("/projects/sort/?sort_by=title")))
	assert.Equal(t, []string{"the foo", "Other", "Foo Bar", "100% done"}, titles(anon.get("/projects/sort/?sort_by=-title")))
	assert.Equal(t, []string{"Foo Bar", "the foo", "Other", "100% done"}, titles(anon.get("/projects/sort/")))

	resp = anon.get("/projects/sort/?sort_by=password")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := decode[map[string][]string](t, resp)
	require.Len(t, fields["sort_by"], 1)
	assert.Contains(t, fields["sort_by"][0], `"password"`)

	// the plain list is newest first
	assert.Equal(t, []string{"100% done", "Other", "the foo", "Foo Bar"}, titles(anon.get("/projects/")))
}
