// Package urls builds the paths of named routes.
package urls

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	Index      = "/"
	PostCreate = "/create/"
	FollowFeed = "/follow/"
	Login      = "/auth/login/"
	Logout     = "/auth/logout/"
	Signup     = "/auth/signup/"
	Media      = "/media/"
)

func Group(slug string) string {
	return "/group/" + url.PathEscape(slug) + "/"
}

func Profile(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func ProfileFollow(username string) string {
	return Profile(username) + "follow/"
}

func ProfileUnfollow(username string) string {
	return Profile(username) + "unfollow/"
}

func PostDetail(id int) string {
	return "/posts/" + strconv.Itoa(id) + "/"
}

func PostEdit(id int) string {
	return PostDetail(id) + "edit/"
}

func PostComment(id int) string {
	return PostDetail(id) + "comment/"
}

// LoginNext is the login page that sends the user back to next afterwards.
// Slashes stay readable: /auth/login/?next=/create/
func LoginNext(next string) string {
	if next == "" {
		return Login
	}
	return Login + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// MediaFile is the public path of a stored upload.
func MediaFile(ref string) string {
	if ref == "" {
		return ""
	}
	return Media + strings.TrimPrefix(ref, "/")
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
