package repositories

import (
	"testing"
	"time"

	"postroom/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository(t *testing.T) {
	store := newTestStore(t)
	repo := store.Posts
	author := createUser(t, store, "author")
	other := createUser(t, store, "other")
	group := createGroup(t, store, "cats")

	t.Run("create and get resolves relations", func(t *testing.T) {
		post := &models.Post{Text: "hello", AuthorID: author.ID, GroupID: group.ID}
		require.NoError(t, repo.Create(post))
		assert.Greater(t, post.ID, 0)
		assert.False(t, post.CreatedAt.IsZero())

		got, err := repo.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Text)
		require.NotNil(t, got.Author)
		assert.Equal(t, "author", got.Author.Username)
		require.NotNil(t, got.Group)
		assert.Equal(t, "cats", got.Group.Slug)
	})

	t.Run("post without group", func(t *testing.T) {
		post := &models.Post{Text: "loose", AuthorID: other.ID}
		require.NoError(t, repo.Create(post))
		got, err := repo.GetByID(post.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Group)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := repo.GetByID(12345)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update keeps author and creation time", func(t *testing.T) {
		post := &models.Post{Text: "original", AuthorID: author.ID}
		require.NoError(t, repo.Create(post))
		created := post.CreatedAt

		edit := &models.Post{
			ID:        post.ID,
			Text:      "edited",
			AuthorID:  other.ID,
			GroupID:   group.ID,
			CreatedAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, repo.Update(edit))

		got, err := repo.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Text)
		assert.Equal(t, author.ID, got.AuthorID)
		assert.True(t, created.Equal(got.CreatedAt))
		assert.Equal(t, group.ID, got.GroupID)
	})

	t.Run("update missing post", func(t *testing.T) {
		err := repo.Update(&models.Post{ID: 999, Text: "x", AuthorID: author.ID})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostRepositoryList(t *testing.T) {
	store := newTestStore(t)
	repo := store.Posts
	reader := createUser(t, store, "reader")
	followed := createUser(t, store, "followed")
	stranger := createUser(t, store, "stranger")
	cats := createGroup(t, store, "cats")
	dogs := createGroup(t, store, "dogs")

	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 13; i++ {
		require.NoError(t, repo.Create(&models.Post{Text: "cat", AuthorID: followed.ID, GroupID: cats.ID, CreatedAt: stamp}))
	}
	require.NoError(t, repo.Create(&models.Post{Text: "dog", AuthorID: stranger.ID, GroupID: dogs.ID, CreatedAt: stamp.Add(time.Hour)}))
	_, _, err := store.Follows.GetOrCreate(reader.ID, followed.ID)
	require.NoError(t, err)

	t.Run("all posts newest first", func(t *testing.T) {
		posts, err := repo.List(PostFilter{})
		require.NoError(t, err)
		require.Len(t, posts, 14)
		assert.Equal(t, "dog", posts[0].Text)
		// identical timestamps fall back to insertion order, newest first
		for i := 2; i < len(posts); i++ {
			assert.Greater(t, posts[i-1].ID, posts[i].ID)
		}
		for _, p := range posts {
			assert.NotNil(t, p.Author)
			assert.NotNil(t, p.Group)
		}
	})

	t.Run("by group", func(t *testing.T) {
		posts, err := repo.List(PostFilter{GroupID: dogs.ID})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, dogs.ID, posts[0].Group.ID)

		posts, err = repo.List(PostFilter{GroupID: cats.ID})
		require.NoError(t, err)
		assert.Len(t, posts, 13)
		for _, p := range posts {
			assert.NotEqual(t, dogs.ID, p.GroupID)
		}
	})

	t.Run("by author", func(t *testing.T) {
		posts, err := repo.List(PostFilter{AuthorID: stranger.ID})
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		n, err := repo.CountByAuthor(followed.ID)
		require.NoError(t, err)
		assert.Equal(t, 13, n)
	})

	t.Run("followed by", func(t *testing.T) {
		posts, err := repo.List(PostFilter{FollowedBy: reader.ID})
		require.NoError(t, err)
		assert.Len(t, posts, 13)
		for _, p := range posts {
			assert.Equal(t, followed.ID, p.AuthorID)
		}

		posts, err = repo.List(PostFilter{FollowedBy: stranger.ID})
		require.NoError(t, err)
		assert.Empty(t, posts)
	})
}
