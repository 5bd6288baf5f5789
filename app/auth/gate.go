// Package auth decides who may mutate what, and tracks who is logged in.
package auth

import (
	"postroom/app/models"
	"postroom/app/urls"
)

// Outcome is the kind of an authorization decision.
type Outcome int

const (
	// Allow lets the request proceed.
	Allow Outcome = iota
	// RedirectTo sends the user to Decision.Location instead.
	RedirectTo
	// RequireLogin sends an anonymous user to the login page.
	RequireLogin
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectTo:
		return "redirect"
	case RequireLogin:
		return "require-login"
	default:
		return "unknown"
	}
}

// Decision is the result of an authorization check.
type Decision struct {
	Outcome  Outcome
	Location string
}

func (d Decision) Allowed() bool { return d.Outcome == Allow }

var (
	allow        = Decision{Outcome: Allow}
	requireLogin = Decision{Outcome: RequireLogin}
)

func redirectTo(location string) Decision {
	return Decision{Outcome: RedirectTo, Location: location}
}

// Authenticated reports whether user is a logged in account.
func Authenticated(user *models.User) bool {
	return user != nil && user.ID > 0
}

// CanCreatePost allows any authenticated user to publish.
func CanCreatePost(user *models.User) Decision {
	if !Authenticated(user) {
		return requireLogin
	}
	return allow
}

// CanEditPost allows only the author. Anyone else is sent back to the post.
func CanEditPost(user *models.User, post *models.Post) Decision {
	if !Authenticated(user) {
		return requireLogin
	}
	if !post.IsAuthoredBy(user) {
		return redirectTo(urls.PostDetail(post.ID))
	}
	return allow
}

// CanComment allows any authenticated user to comment.
func CanComment(user *models.User) Decision {
	if !Authenticated(user) {
		return requireLogin
	}
	return allow
}

// CanFollow allows following anyone but yourself. Following yourself is not
// an error, it just lands back on your profile.
func CanFollow(user *models.User, targetUsername string) Decision {
	if !Authenticated(user) {
		return requireLogin
	}
	if user.Username == targetUsername {
		return redirectTo(urls.Profile(targetUsername))
	}
	return allow
}

// CanViewFollowFeed allows any authenticated user to read their follow feed.
func CanViewFollowFeed(user *models.User) Decision {
	if !Authenticated(user) {
		return requireLogin
	}
	return allow
}

// CanUnfollow allows any authenticated user to drop a subscription.
func CanUnfollow(user *models.User) Decision {
	if !Authenticated(user) {
		return requireLogin
	}
	return allow
}
