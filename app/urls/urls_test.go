package urls

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutes(t *testing.T) {
	assert.Equal(t, "/group/cats/", Group("cats"))
	assert.Equal(t, "/profile/leo/", Profile("leo"))
	assert.Equal(t, "/profile/leo/follow/", ProfileFollow("leo"))
	assert.Equal(t, "/profile/leo/unfollow/", ProfileUnfollow("leo"))
	assert.Equal(t, "/posts/7/", PostDetail(7))
	assert.Equal(t, "/posts/7/edit/", PostEdit(7))
	assert.Equal(t, "/posts/7/comment/", PostComment(7))
	assert.Equal(t, "/media/posts/a.gif", MediaFile("posts/a.gif"))
	assert.Equal(t, "", MediaFile(""))
}

func TestLoginNext(t *testing.T) {
	assert.Equal(t, "/auth/login/?next=/create/", LoginNext("/create/"))
	assert.Equal(t, "/auth/login/?next=/posts/1/edit/", LoginNext("/posts/1/edit/"))
	assert.Equal(t, "/auth/login/?next=/follow/%3Fpage%3D2", LoginNext("/follow/?page=2"))
	assert.Equal(t, "/auth/login/", LoginNext(""))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/create/", SafeNext("/create/", "/"))
	assert.Equal(t, "/", SafeNext("", "/"))
	assert.Equal(t, "/", SafeNext("https://evil.example/", "/"))
	assert.Equal(t, "/", SafeNext("//evil.example/", "/"))
	assert.Equal(t, "/", SafeNext("relative/path", "/"))
	assert.Equal(t, "/", SafeNext(`/\evil`, "/"))
}
