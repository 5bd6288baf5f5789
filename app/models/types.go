package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// User is an author account.
type User struct {
	ID           int       `json:"id" validate:"gte=0"`
	Username     string    `json:"username" validate:"required,max=150,username"`
	FirstName    string    `json:"first_name,omitempty" validate:"max=150"`
	LastName     string    `json:"last_name,omitempty" validate:"max=150"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	PasswordHash string    `json:"-"`
	DateJoined   time.Time `json:"date_joined"`
}

// Group is a themed community posts can be published into.
type Group struct {
	ID          int    `json:"id" validate:"gte=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"required,max=50,slug"`
	Description string `json:"description"`
}

// Post is a publication owned by exactly one author. Author and Group are
// resolved by the repository on reads and never persisted.
type Post struct {
	ID        int       `json:"id" validate:"gte=0"`
	Text      string    `json:"text" validate:"required"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	GroupID   int       `json:"group_id,omitempty" validate:"gte=0"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Author    *User     `json:"author,omitempty" validate:"-"`
	Group     *Group    `json:"group,omitempty" validate:"-"`
}

// Comment is attached to exactly one post.
type Comment struct {
	ID        int       `json:"id" validate:"gte=0"`
	PostID    int       `json:"post_id" validate:"required,gt=0"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	Text      string    `json:"text" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	Author    *User     `json:"author,omitempty" validate:"-"`
}

// Follow is a directed edge from a follower to an author.
type Follow struct {
	FollowerID int       `json:"follower_id" validate:"required,gt=0"`
	AuthorID   int       `json:"author_id" validate:"required,gt=0,nefield=FollowerID"`
	CreatedAt  time.Time `json:"created_at"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration never fails for a non-empty tag and a non-nil func.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}
