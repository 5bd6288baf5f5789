package controllers

import (
	"net/http"

	"github.com/gorilla/csrf"

	"postroom/app/views"
)

// ErrorController renders the 404, 403 and 500 pages outside any route.
type ErrorController struct {
	base
}

func NewErrorController(d Deps) *ErrorController {
	return &ErrorController{base: newBase(d)}
}

// CSRFFailure answers a form submission whose CSRF token is missing or wrong.
func (ec *ErrorController) CSRFFailure(w http.ResponseWriter, r *http.Request) {
	ec.Logger.WithError(csrf.FailureReason(r)).WithField("path", r.URL.Path).Warn("csrf check failed")
	data := ec.context(r)
	data["reason"] = "CSRF verification failed. Request aborted."
	ec.render(w, r, http.StatusForbidden, views.Forbidden, data)
}
