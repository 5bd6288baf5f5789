// Package services holds the use cases of the blog on top of the
// repositories: publishing, commenting, following and feed composition.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"postroom/app/events"
	"postroom/app/media"
	"postroom/app/metrics"
	"postroom/app/repositories"
)

var (
	// ErrNotFound is returned when a requested user, group or post is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a user changes content they do not own.
	ErrForbidden = errors.New("forbidden")
	// ErrUsernameTaken is returned by signup for an existing username.
	ErrUsernameTaken = errors.New("a user with that username already exists")
	// ErrInvalid is returned when an entity fails its model validation.
	ErrInvalid = errors.New("invalid")
)

// Repositories bundles the data access the services need.
type Repositories struct {
	Users    repositories.UserRepository
	Groups   repositories.GroupRepository
	Posts    repositories.PostRepository
	Comments repositories.CommentRepository
	Follows  repositories.FollowRepository
}

// FromStore takes the repositories of a Badger store.
func FromStore(store *repositories.Store) Repositories {
	return Repositories{
		Users:    store.Users,
		Groups:   store.Groups,
		Posts:    store.Posts,
		Comments: store.Comments,
		Follows:  store.Follows,
	}
}

// Options carries the collaborators shared by every service.
type Options struct {
	Publisher events.Publisher
	Logger    logrus.FieldLogger
	Metrics   *metrics.Metrics
	Media     *media.Store
	Now       func() time.Time
}

// Services is the full set of use cases.
type Services struct {
	Posts    *PostService
	Comments *CommentService
	Users    *UserService
	Groups   *GroupService
	Social   *SocialGraph
	Feeds    *FeedService
}

// New wires every service over repos.
func New(repos Repositories, opts Options) *Services {
	n := newNotifier(opts)
	social := NewSocialGraph(repos, n)
	return &Services{
		Posts:    NewPostService(repos, opts.Media, n),
		Comments: NewCommentService(repos, n),
		Users:    NewUserService(repos.Users),
		Groups:   NewGroupService(repos.Groups),
		Social:   social,
		Feeds:    NewFeedService(repos, social),
	}
}

// notifier publishes events on behalf of the services. Publication never
// fails a request: errors are logged and counted.
type notifier struct {
	pub     events.Publisher
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func newNotifier(opts Options) *notifier {
	n := &notifier{pub: opts.Publisher, log: opts.Logger, metrics: opts.Metrics, now: opts.Now}
	if n.pub == nil {
		n.pub = events.Noop{}
	}
	if n.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		n.log = l
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

func (n *notifier) publish(ctx context.Context, event events.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = n.now()
	}
	// The request may be gone by now; the event still describes a stored change.
	if err := n.pub.Publish(context.WithoutCancel(ctx), event); err != nil {
		n.log.WithError(err).WithField("event", event.Type).Warn("event not published")
		if n.metrics != nil {
			n.metrics.EventFailed(event.Type)
		}
	}
}

// invalid marks a model validation failure.
func invalid(what string, err error) error {
	return fmt.Errorf("%s: %w: %v", what, ErrInvalid, err)
}

// lookup maps the repository miss to ErrNotFound, keeping other failures.
func lookup(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
