package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postroom/app/cache"
	"postroom/app/events"
	"postroom/app/metrics"
	"postroom/app/repositories"
)

type feedJSON struct {
	PageObj struct {
		Items []struct {
			ID       int    `json:"id"`
			Text     string `json:"text"`
			AuthorID int    `json:"author_id"`
			GroupID  int    `json:"group_id"`
		} `json:"items"`
		Number   int `json:"number"`
		NumPages int `json:"num_pages"`
		Count    int `json:"count"`
	} `json:"page_obj"`
	IsFollowing bool `json:"is_following"`
	PostCount   int  `json:"post_count"`
}

func decodeFeed(t *testing.T, body []byte) feedJSON {
	t.Helper()
	var f feedJSON
	require.NoError(t, json.Unmarshal(body, &f))
	return f
}

func TestPaginationAcrossFeeds(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	reader := app.user(t, "reader")
	cats := app.group(t, "cats")
	app.posts(t, leo, 13, cats.ID)
	_, err := app.svc.Social.Follow(context.Background(), reader, "leo")
	require.NoError(t, err)

	feeds := map[string]string{
		"index":   "/",
		"group":   "/group/cats/",
		"profile": "/profile/leo/",
		"follow":  "/follow/",
	}
	for name, path := range feeds {
		t.Run(name, func(t *testing.T) {
			first := decodeFeed(t, app.getJSON(t, path, reader).Body.Bytes())
			assert.Len(t, first.PageObj.Items, 10)
			assert.Equal(t, 13, first.PageObj.Count)
			assert.Equal(t, 2, first.PageObj.NumPages)
			assert.Equal(t, "leo post 13", first.PageObj.Items[0].Text)

			second := decodeFeed(t, app.getJSON(t, path+"?page=2", reader).Body.Bytes())
			assert.Len(t, second.PageObj.Items, 3)
			assert.Equal(t, "leo post 1", second.PageObj.Items[2].Text)

			beyond := decodeFeed(t, app.getJSON(t, path+"?page=99", reader).Body.Bytes())
			assert.Equal(t, 2, beyond.PageObj.Number)

			junk := decodeFeed(t, app.getJSON(t, path+"?page=abc", reader).Body.Bytes())
			assert.Equal(t, 1, junk.PageObj.Number)
		})
	}
}

func TestFeedsAreIsolated(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	ann := app.user(t, "ann")
	cats := app.group(t, "cats")
	app.group(t, "dogs")
	p := app.post(t, leo, "a cat post", cats.ID)

	dogs := decodeFeed(t, app.getJSON(t, "/group/dogs/", nil).Body.Bytes())
	assert.Empty(t, dogs.PageObj.Items)
	assert.Equal(t, 1, dogs.PageObj.NumPages)

	annProfile := decodeFeed(t, app.getJSON(t, "/profile/ann/", nil).Body.Bytes())
	assert.Empty(t, annProfile.PageObj.Items)

	annFollow := decodeFeed(t, app.getJSON(t, "/follow/", ann).Body.Bytes())
	assert.Empty(t, annFollow.PageObj.Items)

	catsFeed := decodeFeed(t, app.getJSON(t, "/group/cats/", nil).Body.Bytes())
	require.Len(t, catsFeed.PageObj.Items, 1)
	assert.Equal(t, p.ID, catsFeed.PageObj.Items[0].ID)
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	cats := app.group(t, "cats")
	p := app.post(t, leo, "hello world", cats.ID)

	for _, path := range []string{"/", "/group/cats/", "/profile/leo/", "/posts/1/", "/auth/login/", "/auth/signup/"} {
		w := app.get(t, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html", path)
	}

	body := app.get(t, "/posts/1/", nil).Body.String()
	assert.Contains(t, body, "hello world")
	assert.Contains(t, body, "Posts by this author: 1")
	assert.NotContains(t, body, `name="text"`)
	assert.Equal(t, 1, p.ID)
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "leo")

	for _, path := range []string{"/group/nope/", "/profile/ghost/", "/posts/999/", "/unexisting_page/"} {
		w := app.get(t, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), path)
	}

	w := app.getJSON(t, "/posts/999/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestLoginRequired(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	p := app.post(t, leo, "text", 0)

	cases := []struct {
		method string
		path   string
	}{
		{"GET", "/create/"},
		{"GET", "/follow/"},
		{"GET", "/posts/1/edit/"},
		{"POST", "/posts/1/comment/"},
		{"GET", "/profile/leo/follow/"},
		{"GET", "/profile/leo/unfollow/"},
	}
	for _, c := range cases {
		w := app.do(t, request{method: c.method, path: c.path, form: url.Values{"text": {"x"}}})
		assert.Equal(t, http.StatusFound, w.Code, c.path)
		assert.Equal(t, "/auth/login/?next="+c.path, w.Header().Get("Location"), c.path)
	}
	n, err := app.svc.Comments.Count(p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreatePost(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	cats := app.group(t, "cats")

	t.Run("form", func(t *testing.T) {
		w := app.get(t, "/create/", leo)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="text"`)
		assert.Contains(t, w.Body.String(), "CATS")
	})

	t.Run("success redirects to profile", func(t *testing.T) {
		body, ctype := multipartBody(t, map[string]string{"text": "with picture", "group": "1"}, "small.gif", smallGIF)
		w := app.do(t, request{method: "POST", path: "/create/", body: body, ctype: ctype, as: leo})
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/profile/leo/", w.Header().Get("Location"))

		posts, err := app.store.Posts.List(repositories.PostFilter{})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "with picture", posts[0].Text)
		assert.Equal(t, cats.ID, posts[0].GroupID)
		assert.Equal(t, leo.ID, posts[0].AuthorID)
		require.NotEmpty(t, posts[0].Image)

		_, err = os.Stat(filepath.Join(app.mediaDir, filepath.FromSlash(posts[0].Image)))
		assert.NoError(t, err)

		img := app.get(t, "/media/"+posts[0].Image, nil)
		assert.Equal(t, http.StatusOK, img.Code)
		assert.Equal(t, smallGIF, img.Body.Bytes())
		assert.Equal(t, []string{events.PostCreated}, app.events.Types())
	})

	t.Run("invalid form re-renders", func(t *testing.T) {
		before, _ := app.store.Posts.CountByAuthor(leo.ID)
		w := app.postForm(t, "/create/", url.Values{"text": {"  "}, "group": {"42"}}, leo)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "This field is required.")
		assert.Contains(t, w.Body.String(), "Select a valid choice.")
		after, _ := app.store.Posts.CountByAuthor(leo.ID)
		assert.Equal(t, before, after)
	})

	t.Run("non image upload", func(t *testing.T) {
		body, ctype := multipartBody(t, map[string]string{"text": "bad file"}, "notes.txt", []byte("not an image"))
		w := app.do(t, request{method: "POST", path: "/create/", body: body, ctype: ctype, as: leo})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Upload a valid image.")
	})
}

func TestEditPost(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	ann := app.user(t, "ann")
	cats := app.group(t, "cats")
	p := app.post(t, leo, "original", cats.ID)

	t.Run("author sees form", func(t *testing.T) {
		w := app.get(t, "/posts/1/edit/", leo)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "original")
		assert.Contains(t, w.Body.String(), `value="1" selected`)
	})

	t.Run("non author is sent to the post", func(t *testing.T) {
		w := app.get(t, "/posts/1/edit/", ann)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/posts/1/", w.Header().Get("Location"))

		w = app.postForm(t, "/posts/1/edit/", url.Values{"text": {"hijacked"}}, ann)
		assert.Equal(t, "/posts/1/", w.Header().Get("Location"))
		got, err := app.svc.Posts.Get(p.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", got.Text)
	})

	t.Run("missing post", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, app.get(t, "/posts/77/edit/", leo).Code)
	})

	t.Run("author saves", func(t *testing.T) {
		w := app.postForm(t, "/posts/1/edit/", url.Values{"text": {"edited"}, "group": {""}}, leo)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/posts/1/", w.Header().Get("Location"))

		got, err := app.svc.Posts.Get(p.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Text)
		assert.Zero(t, got.GroupID)
		assert.Equal(t, leo.ID, got.AuthorID)
		assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("invalid edit keeps the post", func(t *testing.T) {
		w := app.postForm(t, "/posts/1/edit/", url.Values{"text": {""}}, leo)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "This field is required.")
		got, err := app.svc.Posts.Get(p.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Text)
	})
}

func TestComments(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	ann := app.user(t, "ann")
	p := app.post(t, leo, "discuss", 0)

	w := app.postForm(t, "/posts/1/comment/", url.Values{"text": {"great post"}}, ann)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts/1/", w.Header().Get("Location"))

	n, err := app.svc.Comments.Count(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	body := app.get(t, "/posts/1/", leo).Body.String()
	assert.Contains(t, body, "great post")
	assert.Contains(t, body, `name="text"`)

	w = app.postForm(t, "/posts/1/comment/", url.Values{"text": {"   "}}, ann)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	n, _ = app.svc.Comments.Count(p.ID)
	assert.Equal(t, 1, n)

	w = app.postForm(t, "/posts/55/comment/", url.Values{"text": {"lost"}}, ann)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFollowing(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	ann := app.user(t, "ann")
	app.post(t, leo, "leo writes", 0)

	w := app.get(t, "/profile/leo/follow/", ann)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/leo/", w.Header().Get("Location"))

	app.get(t, "/profile/leo/follow/", ann)
	following, err := app.store.Follows.ListFollowing(ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{leo.ID}, following)

	profile := decodeFeed(t, app.getJSON(t, "/profile/leo/", ann).Body.Bytes())
	assert.True(t, profile.IsFollowing)
	assert.Equal(t, 1, profile.PostCount)
	assert.Contains(t, app.get(t, "/profile/leo/", ann).Body.String(), "/profile/leo/unfollow/")

	feed := decodeFeed(t, app.getJSON(t, "/follow/", ann).Body.Bytes())
	assert.Len(t, feed.PageObj.Items, 1)

	t.Run("self follow", func(t *testing.T) {
		w := app.get(t, "/profile/leo/follow/", leo)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/profile/leo/", w.Header().Get("Location"))
		mine, err := app.store.Follows.ListFollowing(leo.ID)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})

	t.Run("unknown author", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, app.get(t, "/profile/ghost/follow/", ann).Code)
	})

	t.Run("unfollow", func(t *testing.T) {
		w := app.get(t, "/profile/leo/unfollow/", ann)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/profile/leo/", w.Header().Get("Location"))
		w = app.get(t, "/profile/leo/unfollow/", ann)
		assert.Equal(t, http.StatusFound, w.Code)

		profile := decodeFeed(t, app.getJSON(t, "/profile/leo/", ann).Body.Bytes())
		assert.False(t, profile.IsFollowing)
		feed := decodeFeed(t, app.getJSON(t, "/follow/", ann).Body.Bytes())
		assert.Empty(t, feed.PageObj.Items)
	})

	assert.Equal(t, []string{events.PostCreated, events.FollowCreated, events.FollowDeleted}, app.events.Types())
}

func TestIndexCacheWindow(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	app.post(t, leo, "before caching", 0)

	first := app.get(t, "/", nil).Body.String()
	assert.Contains(t, first, "before caching")

	app.post(t, leo, "fresh post", 0)
	cached := app.get(t, "/", nil).Body.String()
	assert.NotContains(t, cached, "fresh post")

	assert.Contains(t, app.get(t, "/group/nope/", nil).Body.String(), "Page not found")

	require.NoError(t, app.cache.Clear(context.Background(), cache.IndexKey("")))
	assert.Contains(t, app.get(t, "/", nil).Body.String(), "fresh post")

	assert.Equal(t, 2.0, testutil.ToFloat64(app.metrics.CacheLookups.WithLabelValues(metrics.CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.CacheLookups.WithLabelValues(metrics.CacheHit)))

	t.Run("cached fragment is not per user", func(t *testing.T) {
		body := app.get(t, "/", leo).Body.String()
		assert.Contains(t, body, "/auth/logout/")
		assert.NotContains(t, app.get(t, "/", nil).Body.String(), "/auth/logout/")
	})
}

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm(t, "/auth/signup/", url.Values{
		"username": {"newbie"}, "email": {"n@example.com"},
		"password1": {"long-enough"}, "password2": {"long-enough"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Result().Cookies())

	w = app.postForm(t, "/auth/signup/", url.Values{
		"username": {"newbie"}, "password1": {"long-enough"}, "password2": {"long-enough"},
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = app.postForm(t, "/auth/login/", url.Values{"username": {"newbie"}, "password": {"wrong-one"}}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a correct username and password.")

	w = app.postForm(t, "/auth/login/", url.Values{"username": {"newbie"}, "password": {"long-enough"}, "next": {"/create/"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/create/", w.Header().Get("Location"))

	w = app.postForm(t, "/auth/login/", url.Values{"username": {"newbie"}, "password": {"long-enough"}, "next": {"https://evil.example/"}}, nil)
	assert.Equal(t, "/", w.Header().Get("Location"))

	login := app.get(t, "/auth/login/?next=/create/", nil)
	assert.Contains(t, login.Body.String(), `value="/create/"`)

	w = app.get(t, "/auth/logout/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == "postroom_session" {
			assert.True(t, c.MaxAge < 0)
		}
	}
}

func TestCSRF(t *testing.T) {
	app := newTestApp(t)
	leo := app.user(t, "leo")
	app.post(t, leo, "hello", 0)

	t.Run("form pages carry the token", func(t *testing.T) {
		for _, path := range []string{"/auth/login/", "/auth/signup/", "/create/", "/posts/1/", "/posts/1/edit/"} {
			w := app.get(t, path, leo)
			assert.Equal(t, http.StatusOK, w.Code, path)
			assert.Regexp(t, csrfInput, w.Body.String(), path)
		}
	})

	t.Run("missing token is refused", func(t *testing.T) {
		w := app.do(t, request{method: http.MethodPost, path: "/posts/1/comment/", form: url.Values{"text": {"sneaky"}}, as: leo, noCSRF: true})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "CSRF verification failed")
		assert.Contains(t, w.Body.String(), "leo", "the failure page keeps the navigation of the user")

		n, err := app.svc.Comments.Count(1)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("missing token as json", func(t *testing.T) {
		w := app.do(t, request{method: http.MethodPost, path: "/auth/login/", form: url.Values{"username": {"leo"}}, json: true, noCSRF: true})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.NotContains(t, w.Body.String(), "csrf_field")
	})

	t.Run("token from another cookie is refused", func(t *testing.T) {
		_, token := app.csrfToken(t)
		cookie, _ := app.csrfToken(t)
		r := httptest.NewRequest(http.MethodPost, "/auth/login/", strings.NewReader(url.Values{
			"username": {"leo"}, "password": {"password-123"}, "gorilla.csrf.Token": {token},
		}.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("token in the form field", func(t *testing.T) {
		cookie, token := app.csrfToken(t)
		r := httptest.NewRequest(http.MethodPost, "/auth/login/", strings.NewReader(url.Values{
			"username": {"leo"}, "password": {"password-123"}, "gorilla.csrf.Token": {token},
		}.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.get(t, "/", nil)

	w := app.get(t, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `postroom_http_requests_total{method="GET",route="/",status="200"}`))
}
