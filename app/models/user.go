package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Validate checks if the user meets all validation requirements
func (u *User) Validate() error {
	return validate.Struct(u)
}

// BeforeCreate normalizes the user before it is stored
func (u *User) BeforeCreate() {
	u.Username = strings.TrimSpace(u.Username)
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
}

// FullName returns "First Last", falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Is reports whether u and other denote the same stored user.
func (u *User) Is(other *User) bool {
	if u == nil || other == nil {
		return false
	}
	return u.ID == other.ID
}

// ValidUsername reports whether name may be used as a username.
func ValidUsername(name string) error {
	if name == "" {
		return errors.New("username is required")
	}
	if len(name) > 150 {
		return errors.New("username is too long (maximum 150 characters)")
	}
	if !usernamePattern.MatchString(name) {
		return errors.New("username may contain only letters, digits and @/./+/-/_")
	}
	return nil
}
