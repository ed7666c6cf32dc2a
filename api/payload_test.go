package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func formRequest(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", mediaForm)
	return r
}

func TestReadPayloadMediaTypes(t *testing.T) {
	p, err := readPayload(httptest.NewRequest(http.MethodPatch, "/", nil), mediaJSON)
	require.NoError(t, err)
	assert.False(t, p.has("name"))

	_, err = readPayload(formRequest(url.Values{"name": {"x"}}), mediaJSON)
	assert.True(t, errs.IsUnsupportedMediaTypeError(err))
	assert.Equal(t, http.StatusUnsupportedMediaType, errs.StatusCode(err))

	_, err = readPayload(jsonRequest(`{"name":`), mediaJSON)
	assert.Equal(t, http.StatusBadRequest, errs.StatusCode(err))

	p, err = readPayload(jsonRequest(``), mediaJSON)
	require.NoError(t, err)
	assert.False(t, p.has("name"))
}

func TestReadPayloadBodyLimit(t *testing.T) {
	r := formRequest(url.Values{"name": {strings.Repeat("x", 2048)}})
	r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 1024)

	_, err := readPayload(r, mediaForm)
	require.Error(t, err)
	assert.True(t, errs.IsMaxBodySizeExceededError(err))
	assert.Equal(t, http.StatusRequestEntityTooLarge, errs.StatusCode(err))
}

func TestFieldReaderJSON(t *testing.T) {
	p, err := readPayload(jsonRequest(`{
		"title": "Site",
		"order": "7",
		"featured": true,
		"link": null,
		"description": null,
		"tools": ["Go", "SQL"],
		"tags": [3, {"id": 4}, "3"]
	}`), mediaJSON)
	require.NoError(t, err)

	fields := newFieldReader(p, true)
	var (
		title       string
		description = "keep"
		order       int
		featured    bool
		link        = new(string)
		tools       []string
		missing     = "untouched"
	)
	fields.String("title", &title)
	fields.String("description", &description)
	fields.String("missing", &missing)
	fields.Int("order", &order)
	fields.Bool("featured", &featured)
	fields.OptionalString("link", &link)
	fields.StringList("tools", &tools)
	tags, sent := fields.IDList("tags")

	assert.Equal(t, "Site", title)
	assert.Equal(t, "untouched", missing)
	assert.Equal(t, 7, order)
	assert.True(t, featured)
	assert.Nil(t, link)
	assert.Equal(t, []string{"Go", "SQL"}, tools)
	assert.True(t, sent)
	assert.Equal(t, []uint{3, 4}, tags)

	assert.Equal(t, "keep", description)
	assert.Equal(t, map[string][]string{"description": {msgNull}}, fields.errs.Fields)
}

func TestFieldReaderForm(t *testing.T) {
	p, err := readPayload(formRequest(url.Values{
		"featured": {"maybe"},
		"tags":     {"[1, 2, 2]"},
		"category": {"x"},
		"tools":    {"Go, SQL"},
	}), mediaForm)
	require.NoError(t, err)

	fields := newFieldReader(p, false)
	fields.required("title", "featured")

	var (
		featured bool
		category uint
		tools    []string
	)
	fields.Bool("featured", &featured)
	fields.ID("category", &category)
	fields.StringList("tools", &tools)
	tags, sent := fields.IDList("tags")

	assert.True(t, sent)
	assert.Equal(t, []uint{1, 2}, tags)
	assert.Equal(t, []string{msgRequired}, fields.errs.Fields["title"])
	assert.Equal(t, []string{msgInvalidBool}, fields.errs.Fields["featured"])
	assert.Equal(t, []string{msgInvalidPK}, fields.errs.Fields["category"])
	assert.Equal(t, []string{msgInvalidJSON}, fields.errs.Fields["tools"])
	assert.NotContains(t, fields.errs.Fields, "tags")

	_, sent = newFieldReader(p, true).IDList("other")
	assert.False(t, sent)
}

func TestFieldReaderFileAsText(t *testing.T) {
	p, err := readPayload(formRequest(url.Values{"thumbnail": {"cover.png"}, "images": {""}}), mediaForm)
	require.NoError(t, err)

	fields := newFieldReader(p, true)
	assert.Nil(t, fields.File("thumbnail"))
	assert.Empty(t, fields.Files("images"))
	assert.Equal(t, map[string][]string{"thumbnail": {msgNotAFile}}, fields.errs.Fields)
}

func TestParseID(t *testing.T) {
	for in, want := range map[string]uint{"1": 1, " 42 ": 42, `{"id": 9}`: 9} {
		id, ok := parseID(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, id, in)
	}
	for _, in := range []string{"", "0", "-1", "abc", `{"name": "x"}`, "1.5"} {
		_, ok := parseID(in)
		assert.False(t, ok, in)
	}
}

func TestAllowRequest(t *testing.T) {
	staff := &models.User{IsActive: true, IsStaff: true}
	member := &models.User{IsActive: true}

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		assert.True(t, allowRequest(method, nil), method)
	}
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.False(t, allowRequest(method, nil), method)
		assert.False(t, allowRequest(method, member), method)
		assert.True(t, allowRequest(method, staff), method)
	}

	assert.True(t, errs.IsNotAuthenticatedError(denyError(nil)))
	assert.True(t, errs.IsInsufficientRoleError(denyError(member)))
}
