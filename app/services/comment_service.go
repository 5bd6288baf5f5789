package services

import (
	"context"
	"fmt"

	"postroom/app/events"
	"postroom/app/models"
	"postroom/app/repositories"
)

// CommentService attaches comments to posts.
type CommentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	notify   *notifier
}

func NewCommentService(repos Repositories, n *notifier) *CommentService {
	if n == nil {
		n = newNotifier(Options{})
	}
	return &CommentService{comments: repos.Comments, posts: repos.Posts, notify: n}
}

// Add stores text as a comment by author on post postID.
func (s *CommentService) Add(ctx context.Context, author *models.User, postID int, text string) (*models.Comment, error) {
	if author == nil {
		return nil, ErrForbidden
	}
	if _, err := s.posts.GetByID(postID); err != nil {
		return nil, lookup(err, fmt.Sprintf("post %d", postID))
	}
	comment := &models.Comment{PostID: postID, AuthorID: author.ID, Text: text}
	comment.BeforeCreate()
	if err := comment.Validate(); err != nil {
		return nil, invalid("comment", err)
	}
	if err := s.comments.Create(comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	comment.Author = author
	s.notify.publish(ctx, events.Event{
		Type:      events.CommentCreated,
		ActorID:   author.ID,
		PostID:    postID,
		CommentID: comment.ID,
	})
	return comment, nil
}

// List returns the comments of a post, oldest first.
func (s *CommentService) List(postID int) ([]*models.Comment, error) {
	comments, err := s.comments.ListByPost(postID)
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}
	return comments, nil
}

// Count returns the number of comments on a post.
func (s *CommentService) Count(postID int) (int, error) {
	return s.comments.CountByPost(postID)
}
