package services

import (
	"context"
	"errors"
	"fmt"

	"postroom/app/events"
	"postroom/app/models"
	"postroom/app/repositories"
)

// SocialGraph maintains who follows whom.
type SocialGraph struct {
	users   repositories.UserRepository
	follows repositories.FollowRepository
	posts   repositories.PostRepository
	notify  *notifier
}

func NewSocialGraph(repos Repositories, n *notifier) *SocialGraph {
	if n == nil {
		n = newNotifier(Options{})
	}
	return &SocialGraph{users: repos.Users, follows: repos.Follows, posts: repos.Posts, notify: n}
}

// Follow makes follower follow the user named username. Following yourself
// is ignored and following twice keeps a single record. It reports whether
// a new follow was recorded.
func (g *SocialGraph) Follow(ctx context.Context, follower *models.User, username string) (bool, error) {
	if follower == nil {
		return false, ErrForbidden
	}
	author, err := g.users.GetByUsername(username)
	if err != nil {
		return false, lookup(err, fmt.Sprintf("user %q", username))
	}
	if author.Is(follower) {
		return false, nil
	}
	_, created, err := g.follows.GetOrCreate(follower.ID, author.ID)
	if err != nil {
		return false, fmt.Errorf("follow %s: %w", username, err)
	}
	if created {
		g.notify.publish(ctx, events.Event{Type: events.FollowCreated, ActorID: follower.ID, TargetID: author.ID})
	}
	return created, nil
}

// Unfollow removes the follow from follower to username if there is one. An
// unknown username removes nothing. It reports whether a follow was removed.
func (g *SocialGraph) Unfollow(ctx context.Context, follower *models.User, username string) (bool, error) {
	if follower == nil {
		return false, ErrForbidden
	}
	author, err := g.users.GetByUsername(username)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load user %q: %w", username, err)
	}
	removed, err := g.follows.Delete(follower.ID, author.ID)
	if err != nil {
		return false, fmt.Errorf("unfollow %s: %w", username, err)
	}
	if removed {
		g.notify.publish(ctx, events.Event{Type: events.FollowDeleted, ActorID: follower.ID, TargetID: author.ID})
	}
	return removed, nil
}

// IsFollowing reports whether observer follows author. Anonymous observers
// and observers looking at themselves follow nobody.
func (g *SocialGraph) IsFollowing(observer, author *models.User) (bool, error) {
	if observer == nil || author == nil || observer.ID <= 0 || author.Is(observer) {
		return false, nil
	}
	return g.follows.Exists(observer.ID, author.ID)
}

// FollowedPosts returns the posts of authors user follows, newest first.
func (g *SocialGraph) FollowedPosts(user *models.User) ([]*models.Post, error) {
	if user == nil {
		return nil, ErrForbidden
	}
	posts, err := g.posts.List(repositories.PostFilter{FollowedBy: user.ID})
	if err != nil {
		return nil, fmt.Errorf("list followed posts: %w", err)
	}
	return posts, nil
}
