package controllers

import (
	"errors"
	"net/http"

	"postroom/app/auth"
	"postroom/app/forms"
	"postroom/app/services"
	"postroom/app/urls"
	"postroom/app/views"
)

// AuthController handles signup, login and logout.
type AuthController struct {
	base
}

func NewAuthController(d Deps) *AuthController {
	return &AuthController{base: newBase(d)}
}

// Signup registers an account and logs it in.
func (ac *AuthController) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ac.renderForm(w, r, views.Signup, forms.Result[forms.SignupInput]{})
		return
	}
	if err := r.ParseForm(); err != nil {
		ac.renderForm(w, r, views.Signup, forms.Result[forms.SignupInput]{Errors: unreadable()})
		return
	}
	res := forms.ValidateSignup(forms.SignupInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	})
	if !res.OK() {
		ac.renderForm(w, r, views.Signup, res)
		return
	}
	user, err := ac.Services.Users.Signup(res.Value)
	if errors.Is(err, services.ErrUsernameTaken) {
		res.Errors.Add("username", err.Error())
		ac.renderForm(w, r, views.Signup, res)
		return
	}
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	if err := ac.Sessions.Login(w, r, user.ID); err != nil {
		ac.serverError(w, r, err)
		return
	}
	ac.redirect(w, r, urls.Index)
}

// Login authenticates and returns to next when it is a local path.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		next := urls.SafeNext(r.URL.Query().Get("next"), "")
		ac.renderForm(w, r, views.Login, forms.Result[forms.LoginInput]{Value: forms.LoginInput{Next: next}})
		return
	}
	if err := r.ParseForm(); err != nil {
		ac.renderForm(w, r, views.Login, forms.Result[forms.LoginInput]{Errors: unreadable()})
		return
	}
	res := forms.ValidateLogin(forms.LoginInput{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Next:     urls.SafeNext(r.PostFormValue("next"), ""),
	})
	if !res.OK() {
		ac.renderForm(w, r, views.Login, res)
		return
	}
	user, err := ac.Services.Users.Authenticate(res.Value.Username, res.Value.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		res.Errors.Add(forms.NonFieldErrors, "Please enter a correct username and password.")
		ac.renderForm(w, r, views.Login, res)
		return
	}
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	if err := ac.Sessions.Login(w, r, user.ID); err != nil {
		ac.serverError(w, r, err)
		return
	}
	ac.redirect(w, r, urls.SafeNext(res.Value.Next, urls.Index))
}

// Logout ends the session.
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := ac.Sessions.Logout(w, r); err != nil {
		ac.serverError(w, r, err)
		return
	}
	ac.redirect(w, r, urls.Index)
}

func (ac *AuthController) renderForm(w http.ResponseWriter, r *http.Request, page string, form any) {
	data := ac.context(r)
	data["form"] = form
	ac.render(w, r, http.StatusOK, page, data)
}

func unreadable() forms.FieldErrors {
	return forms.FieldErrors{forms.NonFieldErrors: {"The form could not be read. Please try again."}}
}
