package models

import (
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Validate checks if the group meets all validation requirements
func (g *Group) Validate() error {
	return validate.Struct(g)
}

// BeforeCreate trims user supplied fields
func (g *Group) BeforeCreate() {
	g.Title = strings.TrimSpace(g.Title)
	g.Slug = strings.TrimSpace(g.Slug)
}

func (g *Group) String() string {
	return g.Title
}
