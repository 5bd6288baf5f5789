// Package views renders the HTML pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"postroom/app/urls"
)

//go:embed templates
var files embed.FS

// Context is the data a page is rendered with. Keys follow the names the
// templates use: page_obj, group, author, post, form, comments,
// is_following, post_count, is_edit, user and path.
type Context map[string]any

// Page names.
const (
	Index      = "posts/index.html"
	GroupList  = "posts/group_list.html"
	Profile    = "posts/profile.html"
	Follow     = "posts/follow.html"
	PostDetail = "posts/post_detail.html"
	CreatePost = "posts/create_post.html"
	Login      = "auth/login.html"
	Signup     = "auth/signup.html"
	NotFound   = "core/404.html"
	Forbidden  = "core/403.html"
	ServerErr  = "core/500.html"
)

var pages = []string{Index, GroupList, Profile, Follow, PostDetail, CreatePost, Login, Signup, NotFound, Forbidden, ServerErr}

var shared = []string{"templates/layout.html", "templates/includes/post.html", "templates/includes/paginator.html", "templates/includes/posts.html"}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
	// fragments renders the shared includes without a layout.
	fragments *template.Template
}

// New parses every page.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		patterns := append(append([]string{}, shared...), "templates/"+page)
		t, err := template.New(page).Funcs(Funcs()).ParseFS(files, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	fragments, err := template.New("fragments").Funcs(Funcs()).ParseFS(files, shared[1:]...)
	if err != nil {
		return nil, fmt.Errorf("parse fragments: %w", err)
	}
	r.fragments = fragments
	return r, nil
}

// Render writes page inside the layout.
func (r *Renderer) Render(w io.Writer, page string, data Context) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	// Buffer so a template error does not leave half a page behind.
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Fragment renders a shared include, such as "posts", on its own.
func (r *Renderer) Fragment(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render fragment %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"naturaltime": humanize.Time,
		"date":        func(t time.Time) string { return t.Format("2 January 2006") },
		"isodate":     func(t time.Time) string { return t.Format(time.RFC3339) },
		"linebreaks":  linebreaks,
		"truncate":    truncate,

		"url_index":        func() string { return urls.Index },
		"url_create":       func() string { return urls.PostCreate },
		"url_follow_feed":  func() string { return urls.FollowFeed },
		"url_login":        func() string { return urls.Login },
		"url_logout":       func() string { return urls.Logout },
		"url_signup":       func() string { return urls.Signup },
		"url_login_next":   urls.LoginNext,
		"url_group":        urls.Group,
		"url_profile":      urls.Profile,
		"url_follow":       urls.ProfileFollow,
		"url_unfollow":     urls.ProfileUnfollow,
		"url_post":         urls.PostDetail,
		"url_post_edit":    urls.PostEdit,
		"url_post_comment": urls.PostComment,
		"url_media":        urls.MediaFile,
	}
}

// linebreaks escapes text and turns newlines into <br>.
func linebreaks(text string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	if n < 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
