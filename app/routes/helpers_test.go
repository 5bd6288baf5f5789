package routes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"postroom/app/auth"
	"postroom/app/cache"
	"postroom/app/events"
	"postroom/app/forms"
	"postroom/app/logger"
	"postroom/app/media"
	"postroom/app/metrics"
	"postroom/app/models"
	"postroom/app/repositories"
	"postroom/app/services"
	"postroom/app/views"
)

type testApp struct {
	router   *mux.Router
	store    *repositories.Store
	svc      *services.Services
	cache    *cache.Memory
	events   *events.Recorder
	metrics  *metrics.Metrics
	sessions *auth.Sessions
	mediaDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store, err := repositories.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pageCache, err := cache.NewMemory(0)
	require.NoError(t, err)
	t.Cleanup(func() { pageCache.Close() })

	mediaDir := t.TempDir()
	mediaStore, err := media.NewStore(mediaDir, 0)
	require.NoError(t, err)

	renderer, err := views.New()
	require.NoError(t, err)

	app := &testApp{
		store:    store,
		cache:    pageCache,
		events:   &events.Recorder{},
		metrics:  metrics.New(),
		sessions: auth.NewSessions([]byte("test-secret-test-secret-test-sec"), false),
		mediaDir: mediaDir,
	}
	log := logger.Discard()
	app.svc = services.New(services.FromStore(store), services.Options{
		Publisher: app.events,
		Logger:    log,
		Metrics:   app.metrics,
		Media:     mediaStore,
	})
	app.router = Setup(Options{
		Services: app.svc,
		Renderer: renderer,
		Sessions: app.sessions,
		Cache:    pageCache,
		Metrics:  app.metrics,
		Logger:   log,
		MediaDir: mediaDir,
	})
	return app
}

func (a *testApp) user(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := a.svc.Users.Signup(forms.SignupInput{Username: username, Password1: "password-123", Password2: "password-123"})
	require.NoError(t, err)
	return u
}

func (a *testApp) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	g, err := a.svc.Groups.Create(strings.ToUpper(slug), slug, "")
	require.NoError(t, err)
	return g
}

func (a *testApp) post(t *testing.T, author *models.User, text string, groupID int) *models.Post {
	t.Helper()
	p, err := a.svc.Posts.Create(context.Background(), author, forms.PostData{Text: text, GroupID: groupID})
	require.NoError(t, err)
	return p
}

func (a *testApp) posts(t *testing.T, author *models.User, n int, groupID int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		a.post(t, author, fmt.Sprintf("%s post %d", author.Username, i), groupID)
	}
}

// cookies returns a session cookie logging in user.
func (a *testApp) cookies(t *testing.T, user *models.User) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, a.sessions.Login(w, httptest.NewRequest("GET", "/", nil), user.ID))
	return w.Result().Cookies()
}

type request struct {
	method  string
	path    string
	form    url.Values
	as      *models.User
	json    bool
	body    io.Reader
	ctype   string
	headers map[string]string
	// noCSRF sends an unsafe request without the CSRF cookie and token.
	noCSRF bool
}

var csrfInput = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

// csrfToken loads a form page and returns its CSRF cookie and token.
func (a *testApp) csrfToken(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	m := csrfInput.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2, "login form carries a csrf token")
	for _, c := range w.Result().Cookies() {
		if c.Name == "_gorilla_csrf" {
			return c, m[1]
		}
	}
	t.Fatal("no csrf cookie issued")
	return nil, ""
}

func (a *testApp) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	if req.method == "" {
		req.method = http.MethodGet
	}
	body := req.body
	if req.form != nil {
		body = strings.NewReader(req.form.Encode())
		req.ctype = "application/x-www-form-urlencoded"
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.ctype != "" {
		r.Header.Set("Content-Type", req.ctype)
	}
	if req.json {
		r.Header.Set("Accept", "application/json")
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	if req.as != nil {
		for _, c := range a.cookies(t, req.as) {
			r.AddCookie(c)
		}
	}
	if unsafeMethod(req.method) && !req.noCSRF {
		cookie, token := a.csrfToken(t)
		r.AddCookie(cookie)
		r.Header.Set("X-CSRF-Token", token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

func unsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

func (a *testApp) get(t *testing.T, path string, as *models.User) *httptest.ResponseRecorder {
	return a.do(t, request{path: path, as: as})
}

func (a *testApp) getJSON(t *testing.T, path string, as *models.User) *httptest.ResponseRecorder {
	return a.do(t, request{path: path, as: as, json: true})
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values, as *models.User) *httptest.ResponseRecorder {
	return a.do(t, request{method: http.MethodPost, path: path, form: form, as: as})
}

// multipartBody encodes fields plus an optional image file.
func multipartBody(t *testing.T, fields map[string]string, filename string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

var smallGIF = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")
