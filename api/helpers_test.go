package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/services"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

const (
	staffEmail    = "admin@example.com"
	staffPassword = "s3cret-pass"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []services.Email
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, email services.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) messages() []services.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.Email(nil), m.sent...)
}

type testEnv struct {
	t        *testing.T
	db       database.Database
	storage  *services.LocalStorage
	mailer   *fakeMailer
	registry *prometheus.Registry
	server   *httptest.Server
}

// newTestEnv serves the full router over a fresh sqlite database with one
// staff account. extra overrides the default config.
func newTestEnv(t *testing.T, extra map[string]string) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "api.db") + "?_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(gdb))
	db := database.New(gdb)

	_, err = db.UserRepo().EnsureStaff("admin", staffEmail, staffPassword)
	require.NoError(t, err)

	storage, err := services.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	c := map[string]string{
		"CONTACT_EMAIL":    "owner@example.com",
		"ACCEPTED_ORIGINS": "http://localhost:3000",
	}
	for k, v := range extra {
		c[k] = v
	}

	env := &testEnv{
		t:        t,
		db:       db,
		storage:  storage,
		mailer:   &fakeMailer{},
		registry: prometheus.NewRegistry(),
	}
	handler := newRouter(db,
		withConfig(c),
		withStorage(storage),
		withMailer(env.mailer),
		withRegistry(env.registry),
	)
	env.server = httptest.NewServer(handler)
	t.Cleanup(env.server.Close)
	return env
}

// client is a browser-like caller: it keeps cookies and echoes the CSRF
// cookie in X-CSRFToken unless skipCSRF is set.
type client struct {
	t        *testing.T
	base     string
	http     *http.Client
	skipCSRF bool
}

func (e *testEnv) anonymous() *client {
	jar, err := cookiejar.New(nil)
	require.NoError(e.t, err)
	return &client{t: e.t, base: e.server.URL, http: &http.Client{Jar: jar}}
}

func (e *testEnv) staff() *client {
	c := e.anonymous()
	resp := c.postJSON("/auth/login/", map[string]string{"email": staffEmail, "password": staffPassword})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	return c
}

func (c *client) cookie(name string) string {
	u, err := url.Parse(c.base)
	require.NoError(c.t, err)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *client) do(method, path string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.cookie(csrfCookieName); token != "" && !c.skipCSRF {
		req.Header.Set(csrfHeaderName, token)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *client) get(path string) *http.Response {
	return c.do(http.MethodGet, path, nil, "")
}

func (c *client) sendJSON(method, path string, v any) *http.Response {
	c.t.Helper()
	b, err := json.Marshal(v)
	require.NoError(c.t, err)
	return c.do(method, path, bytes.NewReader(b), mediaJSON)
}

func (c *client) postJSON(path string, v any) *http.Response {
	return c.sendJSON(http.MethodPost, path, v)
}

func (c *client) sendForm(method, path string, form url.Values) *http.Response {
	return c.do(method, path, strings.NewReader(form.Encode()), mediaForm)
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

func (c *client) sendMultipart(method, path string, fields url.Values, files ...formFile) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(c.t, mw.WriteField(key, v))
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(c.t, err)
		_, err = part.Write(f.data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())
	return c.do(method, path, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (e *testEnv) seedCategory(name string) *models.ProjectCategory {
	e.t.Helper()
	category := &models.ProjectCategory{Name: name}
	require.NoError(e.t, e.db.CategoryRepo().Add(category))
	return category
}

func (e *testEnv) seedTag(name string) *models.ProjectTag {
	e.t.Helper()
	tag := &models.ProjectTag{Name: name}
	require.NoError(e.t, e.db.TagRepo().Add(tag))
	return tag
}

func (e *testEnv) seedProject(title string, categoryID uint) *models.Project {
	e.t.Helper()
	project := &models.Project{
		Title:       title,
		CategoryID:  categoryID,
		Description: title,
		Tools:       datatypes.JSONSlice[string]{"Go"},
		Thumbnail:   services.ObjectKey(services.ThumbnailPrefix, "seed.png"),
	}
	require.NoError(e.t, e.db.ProjectRepo().Add(project, database.ProjectChanges{}))
	return project
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
