package controllers

import (
	"net/http"

	"postroom/app/auth"
	"postroom/app/forms"
	"postroom/app/urls"
)

// CommentController handles comments on posts.
type CommentController struct {
	base
}

func NewCommentController(d Deps) *CommentController {
	return &CommentController{base: newBase(d)}
}

// Add stores a comment and returns to the post. An empty comment
// re-renders the post with the form errors.
func (cc *CommentController) Add(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if !cc.allow(w, r, auth.CanComment(user)) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		cc.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		cc.renderDetail(w, r, id, forms.Result[forms.CommentInput]{Errors: forms.FieldErrors{"text": {"This field is required."}}}, http.StatusBadRequest)
		return
	}
	res := forms.ValidateComment(forms.CommentInput{Text: r.PostFormValue("text")})
	if !res.OK() {
		cc.renderDetail(w, r, id, res, http.StatusOK)
		return
	}
	if _, err := cc.Services.Comments.Add(r.Context(), user, id, res.Value.Text); err != nil {
		cc.fail(w, r, err)
		return
	}
	cc.redirect(w, r, urls.PostDetail(id))
}
