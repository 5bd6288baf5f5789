package models

import (
	"errors"
	"time"
)

// ErrSelfFollow is returned when a user tries to follow themselves.
var ErrSelfFollow = errors.New("a user cannot follow themselves")

// Validate checks if the follow meets all validation requirements
func (f *Follow) Validate() error {
	if f.FollowerID != 0 && f.FollowerID == f.AuthorID {
		return ErrSelfFollow
	}
	return validate.Struct(f)
}

// BeforeCreate sets up any necessary fields before creation
func (f *Follow) BeforeCreate() {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
}
