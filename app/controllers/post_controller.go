package controllers

import (
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"postroom/app/auth"
	"postroom/app/cache"
	"postroom/app/forms"
	"postroom/app/media"
	"postroom/app/models"
	"postroom/app/services"
	"postroom/app/urls"
	"postroom/app/views"
)

// PostController serves the feeds and the post pages.
type PostController struct {
	base
}

func NewPostController(d Deps) *PostController {
	return &PostController{base: newBase(d)}
}

// Index shows every post. The rendered list is cached per page number for
// the index window, so new posts appear once it has passed.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	if wantsJSON(r) {
		fp, err := pc.Services.Feeds.Index(page)
		if err != nil {
			pc.fail(w, r, err)
			return
		}
		data := pc.context(r)
		data["page_obj"] = fp.PageObj
		pc.render(w, r, http.StatusOK, views.Index, data)
		return
	}

	fragment, err := pc.indexFragment(r, page)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	data := pc.context(r)
	data["posts_html"] = template.HTML(fragment)
	pc.render(w, r, http.StatusOK, views.Index, data)
}

func (pc *PostController) indexFragment(r *http.Request, page string) ([]byte, error) {
	ctx := r.Context()
	key := cache.IndexKey(page)
	if pc.Cache != nil {
		body, hit, err := pc.Cache.Get(ctx, key)
		if err != nil {
			pc.Logger.WithError(err).WithField("key", key).Warn("page cache get")
		}
		pc.Metrics.CacheLookup(hit)
		if hit {
			return body, nil
		}
	}
	fp, err := pc.Services.Feeds.Index(page)
	if err != nil {
		return nil, err
	}
	body, err := pc.Renderer.Fragment("posts", fp.PageObj)
	if err != nil {
		return nil, err
	}
	if pc.Cache != nil {
		if err := pc.Cache.Put(ctx, key, body, pc.IndexTTL); err != nil {
			pc.Logger.WithError(err).WithField("key", key).Warn("page cache put")
		}
	}
	return body, nil
}

// GroupPosts shows the posts of one group.
func (pc *PostController) GroupPosts(w http.ResponseWriter, r *http.Request) {
	fp, err := pc.Services.Feeds.Group(mux.Vars(r)["slug"], r.URL.Query().Get("page"))
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	data := pc.context(r)
	data["group"] = fp.Group
	data["page_obj"] = fp.PageObj
	pc.render(w, r, http.StatusOK, views.GroupList, data)
}

// Profile shows the posts of one author.
func (pc *PostController) Profile(w http.ResponseWriter, r *http.Request) {
	fp, err := pc.Services.Feeds.Profile(mux.Vars(r)["username"], currentUser(r), r.URL.Query().Get("page"))
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	data := pc.context(r)
	data["author"] = fp.Author
	data["page_obj"] = fp.PageObj
	data["is_following"] = fp.IsFollowing
	data["post_count"] = fp.PostCount
	pc.render(w, r, http.StatusOK, views.Profile, data)
}

// Detail shows one post with its comments and the comment form.
func (pc *PostController) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		pc.NotFound(w, r)
		return
	}
	pc.renderDetail(w, r, id, forms.Result[forms.CommentInput]{}, http.StatusOK)
}

func (b base) renderDetail(w http.ResponseWriter, r *http.Request, id int, form forms.Result[forms.CommentInput], status int) {
	detail, err := b.Services.Posts.Detail(id)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	data := b.context(r)
	data["post"] = detail.Post
	data["comments"] = detail.Comments
	data["post_count"] = detail.PostCount
	data["form"] = form
	b.render(w, r, status, views.PostDetail, data)
}

// Create shows and handles the new post form.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if !pc.allow(w, r, auth.CanCreatePost(user)) {
		return
	}
	if r.Method != http.MethodPost {
		pc.renderPostForm(w, r, forms.Result[forms.PostInput]{}, nil)
		return
	}

	in, err := pc.readPostForm(r)
	if err != nil {
		pc.badForm(w, r, in, err, nil)
		return
	}
	res := forms.ValidatePost(in, pc.Services.Groups)
	if !res.OK() {
		pc.renderPostForm(w, r, forms.Result[forms.PostInput]{Value: in, Errors: res.Errors}, nil)
		return
	}
	if _, err := pc.Services.Posts.Create(r.Context(), user, res.Value); err != nil {
		pc.fail(w, r, err)
		return
	}
	pc.redirect(w, r, urls.Profile(user.Username))
}

// Edit shows and handles the edit form. Only the author may edit; anyone
// else is sent back to the post.
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if !pc.allow(w, r, auth.CanCreatePost(user)) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		pc.NotFound(w, r)
		return
	}
	post, err := pc.Services.Posts.Get(id)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	if !pc.allow(w, r, auth.CanEditPost(user, post)) {
		return
	}

	if r.Method != http.MethodPost {
		in := forms.PostInput{Text: post.Text}
		if post.GroupID > 0 {
			in.Group = strconv.Itoa(post.GroupID)
		}
		pc.renderPostForm(w, r, forms.Result[forms.PostInput]{Value: in}, post)
		return
	}

	in, err := pc.readPostForm(r)
	if err != nil {
		pc.badForm(w, r, in, err, post)
		return
	}
	res := forms.ValidatePost(in, pc.Services.Groups)
	if !res.OK() {
		pc.renderPostForm(w, r, forms.Result[forms.PostInput]{Value: in, Errors: res.Errors}, post)
		return
	}
	if _, err := pc.Services.Posts.Update(r.Context(), user, id, res.Value); err != nil {
		if errors.Is(err, services.ErrForbidden) {
			pc.redirect(w, r, urls.PostDetail(id))
			return
		}
		pc.fail(w, r, err)
		return
	}
	pc.redirect(w, r, urls.PostDetail(id))
}

func (pc *PostController) renderPostForm(w http.ResponseWriter, r *http.Request, form forms.Result[forms.PostInput], post *models.Post) {
	groups, err := pc.Services.Groups.List()
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	data := pc.context(r)
	data["form"] = form
	data["groups"] = groups
	data["is_edit"] = post != nil
	if post != nil {
		data["post"] = post
	}
	pc.render(w, r, http.StatusOK, views.CreatePost, data)
}

// badForm re-renders the form when the request body itself was unusable.
func (pc *PostController) badForm(w http.ResponseWriter, r *http.Request, in forms.PostInput, err error, post *models.Post) {
	errs := forms.FieldErrors{}
	switch {
	case errors.Is(err, media.ErrTooLarge):
		errs.Add("image", "The image file is too large.")
	default:
		pc.Logger.WithError(err).Debug("unreadable post form")
		errs.Add(forms.NonFieldErrors, "The form could not be read. Please try again.")
	}
	pc.renderPostForm(w, r, forms.Result[forms.PostInput]{Value: in, Errors: errs}, post)
}

// readPostForm parses a url-encoded or multipart post form.
func (pc *PostController) readPostForm(r *http.Request) (forms.PostInput, error) {
	limit := pc.MaxUpload
	if limit <= 0 {
		limit = media.DefaultMaxUpload
	}
	in := forms.PostInput{MaxImageBytes: limit}
	r.Body = http.MaxBytesReader(nil, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit + (1 << 20)); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return in, media.ErrTooLarge
		}
		return in, err
	}
	in.Text = r.FormValue("text")
	in.Group = r.FormValue("group")

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil
	}
	if err != nil {
		return in, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return in, err
	}
	if len(data) > 0 {
		in.Image = &media.Upload{Filename: header.Filename, Data: data}
	}
	return in, nil
}
