package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"postroom/app/auth"
	"postroom/app/urls"
	"postroom/app/views"
)

// FollowController manages subscriptions to authors.
type FollowController struct {
	base
}

func NewFollowController(d Deps) *FollowController {
	return &FollowController{base: newBase(d)}
}

// Index shows the posts of followed authors.
func (fc *FollowController) Index(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if !fc.allow(w, r, auth.CanViewFollowFeed(user)) {
		return
	}
	fp, err := fc.Services.Feeds.Follow(user, r.URL.Query().Get("page"))
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	data := fc.context(r)
	data["page_obj"] = fp.PageObj
	fc.render(w, r, http.StatusOK, views.Follow, data)
}

// Follow subscribes the user to an author and returns to the profile.
func (fc *FollowController) Follow(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	username := mux.Vars(r)["username"]
	if !fc.allow(w, r, auth.CanFollow(user, username)) {
		return
	}
	if _, err := fc.Services.Social.Follow(r.Context(), user, username); err != nil {
		fc.fail(w, r, err)
		return
	}
	fc.redirect(w, r, urls.Profile(username))
}

// Unfollow removes the subscription, if any, and returns to the profile.
func (fc *FollowController) Unfollow(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	username := mux.Vars(r)["username"]
	if !fc.allow(w, r, auth.CanUnfollow(user)) {
		return
	}
	if _, err := fc.Services.Social.Unfollow(r.Context(), user, username); err != nil {
		fc.fail(w, r, err)
		return
	}
	fc.redirect(w, r, urls.Profile(username))
}
