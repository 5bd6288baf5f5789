package services

import (
	"context"
	"fmt"

	"postroom/app/events"
	"postroom/app/forms"
	"postroom/app/media"
	"postroom/app/models"
	"postroom/app/repositories"
)

// PostService publishes and edits posts.
type PostService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	media    *media.Store
	notify   *notifier
}

func NewPostService(repos Repositories, store *media.Store, n *notifier) *PostService {
	if n == nil {
		n = newNotifier(Options{})
	}
	return &PostService{posts: repos.Posts, comments: repos.Comments, media: store, notify: n}
}

// Detail is the post page bundle.
type Detail struct {
	Post      *models.Post      `json:"post"`
	Comments  []*models.Comment `json:"comments"`
	PostCount int               `json:"post_count"`
}

// Get returns a post with author and group resolved.
func (s *PostService) Get(id int) (*models.Post, error) {
	post, err := s.posts.GetByID(id)
	if err != nil {
		return nil, lookup(err, fmt.Sprintf("post %d", id))
	}
	return post, nil
}

// Detail loads a post with its comments, oldest first, and the number of
// posts its author has written.
func (s *PostService) Detail(id int) (*Detail, error) {
	post, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(id)
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", id, err)
	}
	count, err := s.posts.CountByAuthor(post.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return &Detail{Post: post, Comments: comments, PostCount: count}, nil
}

// Create stores a validated post written by author.
func (s *PostService) Create(ctx context.Context, author *models.User, data forms.PostData) (*models.Post, error) {
	if author == nil {
		return nil, ErrForbidden
	}
	post := &models.Post{Text: data.Text, AuthorID: author.ID, GroupID: data.GroupID}
	post.BeforeCreate()
	if err := post.Validate(); err != nil {
		return nil, invalid("post", err)
	}
	ref, err := s.saveImage(data.Image)
	if err != nil {
		return nil, err
	}
	post.Image = ref
	if err := s.posts.Create(post); err != nil {
		s.removeImage(ref)
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.notify.publish(ctx, events.Event{
		Type:    events.PostCreated,
		ActorID: author.ID,
		PostID:  post.ID,
		GroupID: post.GroupID,
	})
	return s.Get(post.ID)
}

// Update replaces text, group and, when a new one was uploaded, the image.
// Author and publication date never change.
func (s *PostService) Update(ctx context.Context, editor *models.User, id int, data forms.PostData) (*models.Post, error) {
	post, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !post.IsAuthoredBy(editor) {
		return nil, ErrForbidden
	}
	post.Text = data.Text
	post.GroupID = data.GroupID
	if err := post.Validate(); err != nil {
		return nil, invalid(fmt.Sprintf("post %d", id), err)
	}
	oldImage, newImage := "", ""
	if data.Image != nil {
		ref, err := s.saveImage(data.Image)
		if err != nil {
			return nil, err
		}
		newImage = ref
		oldImage, post.Image = post.Image, ref
	}
	if err := s.posts.Update(post); err != nil {
		s.removeImage(newImage)
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	s.removeImage(oldImage)
	s.notify.publish(ctx, events.Event{
		Type:    events.PostUpdated,
		ActorID: editor.ID,
		PostID:  post.ID,
		GroupID: post.GroupID,
	})
	return s.Get(id)
}

// removeImage deletes a stored image, logging failures.
func (s *PostService) removeImage(ref string) {
	if ref == "" || s.media == nil {
		return
	}
	if err := s.media.Remove(ref); err != nil {
		s.notify.log.WithError(err).WithField("image", ref).Warn("remove image")
	}
}

func (s *PostService) saveImage(upload *media.Upload) (string, error) {
	if upload == nil || len(upload.Data) == 0 {
		return "", nil
	}
	if s.media == nil {
		return "", fmt.Errorf("image uploads are not configured")
	}
	ref, err := s.media.Save(upload)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return ref, nil
}
