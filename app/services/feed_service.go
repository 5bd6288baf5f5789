package services

import (
	"fmt"

	"postroom/app/feed"
	"postroom/app/models"
	"postroom/app/repositories"
)

// FeedPage is the context of a paginated post listing.
type FeedPage struct {
	PageObj     *feed.Page[*models.Post] `json:"page_obj"`
	Group       *models.Group            `json:"group,omitempty"`
	Author      *models.User             `json:"author,omitempty"`
	IsFollowing bool                     `json:"is_following"`
	PostCount   int                      `json:"post_count,omitempty"`
}

// FeedService composes the four post listings.
type FeedService struct {
	users  repositories.UserRepository
	groups repositories.GroupRepository
	posts  repositories.PostRepository
	social *SocialGraph
}

func NewFeedService(repos Repositories, social *SocialGraph) *FeedService {
	if social == nil {
		social = NewSocialGraph(repos, nil)
	}
	return &FeedService{users: repos.Users, groups: repos.Groups, posts: repos.Posts, social: social}
}

// Index lists every post.
func (s *FeedService) Index(page string) (*FeedPage, error) {
	posts, err := s.posts.List(repositories.PostFilter{})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return &FeedPage{PageObj: feed.Paginate(posts, feed.PageSize, page)}, nil
}

// Group lists the posts published in the group with slug.
func (s *FeedService) Group(slug, page string) (*FeedPage, error) {
	group, err := s.groups.GetBySlug(slug)
	if err != nil {
		return nil, lookup(err, fmt.Sprintf("group %q", slug))
	}
	posts, err := s.posts.List(repositories.PostFilter{GroupID: group.ID})
	if err != nil {
		return nil, fmt.Errorf("list group posts: %w", err)
	}
	return &FeedPage{Group: group, PageObj: feed.Paginate(posts, feed.PageSize, page)}, nil
}

// Profile lists the posts of username as seen by viewer, who may be nil.
func (s *FeedService) Profile(username string, viewer *models.User, page string) (*FeedPage, error) {
	author, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, lookup(err, fmt.Sprintf("user %q", username))
	}
	posts, err := s.posts.List(repositories.PostFilter{AuthorID: author.ID})
	if err != nil {
		return nil, fmt.Errorf("list author posts: %w", err)
	}
	following, err := s.social.IsFollowing(viewer, author)
	if err != nil {
		return nil, fmt.Errorf("check follow: %w", err)
	}
	return &FeedPage{
		Author:      author,
		PageObj:     feed.Paginate(posts, feed.PageSize, page),
		IsFollowing: following,
		PostCount:   len(posts),
	}, nil
}

// Follow lists the posts of the authors viewer follows.
func (s *FeedService) Follow(viewer *models.User, page string) (*FeedPage, error) {
	posts, err := s.social.FollowedPosts(viewer)
	if err != nil {
		return nil, err
	}
	return &FeedPage{PageObj: feed.Paginate(posts, feed.PageSize, page)}, nil
}
