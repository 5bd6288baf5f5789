package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"postroom/app/auth"
	"postroom/app/cache"
	"postroom/app/metrics"
	"postroom/app/models"
	"postroom/app/services"
	"postroom/app/urls"
	"postroom/app/views"
)

// Deps are the collaborators shared by the controllers.
type Deps struct {
	Services  *services.Services
	Renderer  *views.Renderer
	Sessions  *auth.Sessions
	Cache     cache.PageCache
	IndexTTL  time.Duration
	Metrics   *metrics.Metrics
	Logger    logrus.FieldLogger
	MaxUpload int64
}

// base holds the response helpers every controller uses.
type base struct {
	Deps
}

func newBase(d Deps) base {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.IndexTTL <= 0 {
		d.IndexTTL = cache.DefaultIndexTTL
	}
	return base{Deps: d}
}

// context starts a page context with the acting user, the request path and
// the hidden CSRF input for forms.
func (b base) context(r *http.Request) views.Context {
	return views.Context{
		"user":       auth.UserFrom(r.Context()),
		"path":       r.URL.Path,
		"csrf_field": csrf.TemplateField(r),
	}
}

// wantsJSON reports whether the client asked for the context bundle.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (b base) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.Logger.WithError(err).Warn("encode json response")
	}
}

// render writes page, or its context as JSON when asked for.
func (b base) render(w http.ResponseWriter, r *http.Request, status int, page string, data views.Context) {
	if wantsJSON(r) {
		bundle := make(map[string]any, len(data))
		for k, v := range data {
			if k == "posts_html" || k == "csrf_field" {
				continue
			}
			bundle[k] = v
		}
		b.sendJSON(w, status, bundle)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// Render into the response only once the page built; on failure the
	// 500 page replaces it.
	var buf strings.Builder
	if err := b.Renderer.Render(&buf, page, data); err != nil {
		b.serverError(w, r, err)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (b base) redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusFound)
}

// NotFound renders the 404 page for the requested path.
func (b base) NotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		b.sendJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "path": r.URL.Path})
		return
	}
	b.errorPage(w, r, http.StatusNotFound, views.NotFound)
}

// ServerError renders the 500 page.
func (b base) ServerError(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		b.sendJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	b.errorPage(w, r, http.StatusInternalServerError, views.ServerErr)
}

func (b base) errorPage(w http.ResponseWriter, r *http.Request, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf strings.Builder
	if err := b.Renderer.Render(&buf, page, b.context(r)); err != nil {
		b.Logger.WithError(err).Error("render error page")
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (b base) serverError(w http.ResponseWriter, r *http.Request, err error) {
	b.Logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	b.ServerError(w, r)
}

// fail answers 404 for missing entities and 500 for everything else.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotFound) {
		b.NotFound(w, r)
		return
	}
	b.serverError(w, r, err)
}

// allow applies an authorization decision. It returns true when the
// handler may go on; otherwise the redirect has been written.
func (b base) allow(w http.ResponseWriter, r *http.Request, d auth.Decision) bool {
	switch d.Outcome {
	case auth.Allow:
		return true
	case auth.RequireLogin:
		b.redirect(w, r, urls.LoginNext(r.URL.RequestURI()))
	default:
		b.redirect(w, r, d.Location)
	}
	return false
}

func currentUser(r *http.Request) *models.User {
	return auth.UserFrom(r.Context())
}

// pathID reads the numeric {id} route variable.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	return id, err == nil && id > 0
}
