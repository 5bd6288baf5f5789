package repositories

import "postroom/app/models"

// PostFilter narrows a post listing. Zero fields do not filter.
type PostFilter struct {
	AuthorID int
	GroupID  int
	// FollowedBy keeps only posts whose author is followed by this user id.
	FollowedBy int
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	List() ([]*models.User, error)
}

// GroupRepository defines the interface for group data access
type GroupRepository interface {
	Create(group *models.Group) error
	GetByID(id int) (*models.Group, error)
	GetBySlug(slug string) (*models.Group, error)
	List() ([]*models.Group, error)
}

// PostRepository defines the interface for post data access. Listings are
// newest first and carry resolved Author and Group.
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id int) (*models.Post, error)
	List(filter PostFilter) ([]*models.Post, error)
	Update(post *models.Post) error
	CountByAuthor(authorID int) (int, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	ListByPost(postID int) ([]*models.Comment, error)
	CountByPost(postID int) (int, error)
}

// FollowRepository defines the interface for follow data access
type FollowRepository interface {
	GetOrCreate(followerID, authorID int) (*models.Follow, bool, error)
	Delete(followerID, authorID int) (bool, error)
	Exists(followerID, authorID int) (bool, error)
	ListFollowing(followerID int) ([]int, error)
}
