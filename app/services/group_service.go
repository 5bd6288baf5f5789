package services

import (
	"errors"
	"fmt"

	"postroom/app/models"
	"postroom/app/repositories"
)

// ErrSlugTaken is returned when a group slug is already in use.
var ErrSlugTaken = errors.New("a group with that slug already exists")

// GroupService manages communities. Groups are created by administrators.
type GroupService struct {
	groups repositories.GroupRepository
}

func NewGroupService(groups repositories.GroupRepository) *GroupService {
	return &GroupService{groups: groups}
}

// Create stores a group after checking its title and slug.
func (s *GroupService) Create(title, slug, description string) (*models.Group, error) {
	group := &models.Group{Title: title, Slug: slug, Description: description}
	group.BeforeCreate()
	if err := group.Validate(); err != nil {
		return nil, invalid("group", err)
	}
	if err := s.groups.Create(group); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

func (s *GroupService) GetBySlug(slug string) (*models.Group, error) {
	group, err := s.groups.GetBySlug(slug)
	if err != nil {
		return nil, lookup(err, fmt.Sprintf("group %q", slug))
	}
	return group, nil
}

// GetByID satisfies forms.GroupLookup.
func (s *GroupService) GetByID(id int) (*models.Group, error) {
	group, err := s.groups.GetByID(id)
	if err != nil {
		return nil, lookup(err, fmt.Sprintf("group %d", id))
	}
	return group, nil
}

// List returns every group ordered by title, for the post form.
func (s *GroupService) List() ([]*models.Group, error) {
	return s.groups.List()
}
