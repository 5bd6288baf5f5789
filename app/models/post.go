package models

import (
	"errors"
	"time"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if p.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (p *Post) BeforeCreate() {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
}

// SetGroup attaches the post to group, or detaches it when group is nil.
func (p *Post) SetGroup(group *Group) {
	p.Group = group
	if group == nil {
		p.GroupID = 0
		return
	}
	p.GroupID = group.ID
}

// IsAuthoredBy reports whether user wrote the post.
func (p *Post) IsAuthoredBy(user *User) bool {
	return user != nil && user.ID == p.AuthorID
}

// Bare returns a copy without resolved relations, the shape that is stored.
func (p *Post) Bare() Post {
	bare := *p
	bare.Author = nil
	bare.Group = nil
	return bare
}
