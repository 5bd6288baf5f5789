// Package routes maps URLs to controllers.
package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"

	"postroom/app/auth"
	"postroom/app/cache"
	"postroom/app/controllers"
	"postroom/app/metrics"
	"postroom/app/middleware"
	"postroom/app/services"
	"postroom/app/views"
)

// Options configures the router.
type Options struct {
	Services  *services.Services
	Renderer  *views.Renderer
	Sessions  *auth.Sessions
	Cache     cache.PageCache
	IndexTTL  time.Duration
	Metrics   *metrics.Metrics
	Logger    logrus.FieldLogger
	MediaDir  string
	MaxUpload int64
	// CSRFKey signs the CSRF cookie and must be 32 bytes. A random key is
	// used when empty.
	CSRFKey       []byte
	SecureCookies bool
}

// Setup builds the router with every page of the site.
func Setup(opts Options) *mux.Router {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if len(opts.CSRFKey) == 0 {
		opts.CSRFKey = securecookie.GenerateRandomKey(32)
	}
	deps := controllers.Deps{
		Services:  opts.Services,
		Renderer:  opts.Renderer,
		Sessions:  opts.Sessions,
		Cache:     opts.Cache,
		IndexTTL:  opts.IndexTTL,
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
		MaxUpload: opts.MaxUpload,
	}
	postController := controllers.NewPostController(deps)
	commentController := controllers.NewCommentController(deps)
	followController := controllers.NewFollowController(deps)
	authController := controllers.NewAuthController(deps)
	errorController := controllers.NewErrorController(deps)

	router := mux.NewRouter().StrictSlash(true)
	router.Use(
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.Recoverer(opts.Logger, errorController.ServerError),
		middleware.Metrics(opts.Metrics),
		middleware.CurrentUser(opts.Sessions, opts.Services.Users),
		middleware.CSRF(opts.CSRFKey, opts.SecureCookies, errorController.CSRFFailure),
	)
	router.NotFoundHandler = middleware.RequestID(
		middleware.CurrentUser(opts.Sessions, opts.Services.Users)(http.HandlerFunc(errorController.NotFound)),
	)

	// Feeds
	router.HandleFunc("/", postController.Index).Methods("GET")
	router.HandleFunc("/group/{slug}/", postController.GroupPosts).Methods("GET")
	router.HandleFunc("/profile/{username}/", postController.Profile).Methods("GET")
	router.HandleFunc("/follow/", followController.Index).Methods("GET")

	// Posts
	router.HandleFunc("/create/", postController.Create).Methods("GET", "POST")
	router.HandleFunc("/posts/{id:[0-9]+}/", postController.Detail).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/edit/", postController.Edit).Methods("GET", "POST")
	router.HandleFunc("/posts/{id:[0-9]+}/comment/", commentController.Add).Methods("POST")

	// Social graph
	router.HandleFunc("/profile/{username}/follow/", followController.Follow).Methods("GET")
	router.HandleFunc("/profile/{username}/unfollow/", followController.Unfollow).Methods("GET")

	// Accounts
	router.HandleFunc("/auth/signup/", authController.Signup).Methods("GET", "POST")
	router.HandleFunc("/auth/login/", authController.Login).Methods("GET", "POST")
	router.HandleFunc("/auth/logout/", authController.Logout).Methods("GET", "POST")

	if opts.MediaDir != "" {
		router.PathPrefix("/media/").Handler(http.StripPrefix("/media/", noListing(http.FileServer(http.Dir(opts.MediaDir))))).Methods("GET")
	}
	router.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")

	return router
}

// noListing hides directory indexes of the media root.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
