package mock

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"postroom/app/feed"
	"postroom/app/models"
	"postroom/app/repositories"
)

// Store is an in-memory implementation of every repository interface. The
// zero value is not usable; call NewStore.
type Store struct {
	mutex    sync.RWMutex
	users    map[int]*models.User
	groups   map[int]*models.Group
	posts    map[int]*models.Post
	comments map[int]*models.Comment
	follows  map[[2]int]*models.Follow
	nextID   map[string]int

	// Err, when set, is returned by every call to simulate an unavailable store.
	Err error
}

func NewStore() *Store {
	s := &Store{}
	s.Clear()
	return s
}

func (m *Store) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.users = make(map[int]*models.User)
	m.groups = make(map[int]*models.Group)
	m.posts = make(map[int]*models.Post)
	m.comments = make(map[int]*models.Comment)
	m.follows = make(map[[2]int]*models.Follow)
	m.nextID = make(map[string]int)
}

func (m *Store) next(kind string) int {
	m.nextID[kind]++
	return m.nextID[kind]
}

// Users returns the store as a UserRepository.
func (m *Store) Users() repositories.UserRepository { return userRepo{m} }

// Groups returns the store as a GroupRepository.
func (m *Store) Groups() repositories.GroupRepository { return groupRepo{m} }

// Posts returns the store as a PostRepository.
func (m *Store) Posts() repositories.PostRepository { return postRepo{m} }

// Comments returns the store as a CommentRepository.
func (m *Store) Comments() repositories.CommentRepository { return commentRepo{m} }

// Follows returns the store as a FollowRepository.
func (m *Store) Follows() repositories.FollowRepository { return followRepo{m} }

// FollowCount returns the number of stored follow records.
func (m *Store) FollowCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.follows)
}

// PostCount returns the number of stored posts.
func (m *Store) PostCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.posts)
}

type userRepo struct{ m *Store }

func (r userRepo) Create(user *models.User) error {
	m := r.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return m.Err
	}
	user.BeforeCreate()
	for _, u := range m.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q: %w", user.Username, repositories.ErrDuplicate)
		}
	}
	user.ID = m.next("user")
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (r userRepo) GetByID(id int) (*models.User, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r userRepo) GetByUsername(username string) (*models.User, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) List() ([]*models.User, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		out := *u
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type groupRepo struct{ m *Store }

func (r groupRepo) Create(group *models.Group) error {
	m := r.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return m.Err
	}
	group.BeforeCreate()
	for _, g := range m.groups {
		if g.Slug == group.Slug {
			return fmt.Errorf("group slug %q: %w", group.Slug, repositories.ErrDuplicate)
		}
	}
	group.ID = m.next("group")
	stored := *group
	m.groups[group.ID] = &stored
	return nil
}

func (r groupRepo) GetByID(id int) (*models.Group, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	g, ok := m.groups[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (r groupRepo) GetBySlug(slug string) (*models.Group, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, g := range m.groups {
		if g.Slug == slug {
			out := *g
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r groupRepo) List() ([]*models.Group, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	groups := make([]*models.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out := *g
		groups = append(groups, &out)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Title != groups[j].Title {
			return groups[i].Title < groups[j].Title
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

type postRepo struct{ m *Store }

// resolve must be called with the lock held.
func (m *Store) resolve(p *models.Post) (*models.Post, error) {
	out := *p
	author, ok := m.users[p.AuthorID]
	if !ok {
		return nil, fmt.Errorf("author %d: %w", p.AuthorID, repositories.ErrNotFound)
	}
	a := *author
	out.Author = &a
	out.Group = nil
	if g, ok := m.groups[p.GroupID]; ok {
		gc := *g
		out.Group = &gc
	}
	return &out, nil
}

func (r postRepo) Create(post *models.Post) error {
	m := r.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return m.Err
	}
	post.BeforeCreate()
	post.ID = m.next("post")
	stored := post.Bare()
	m.posts[post.ID] = &stored
	return nil
}

func (r postRepo) GetByID(id int) (*models.Post, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return m.resolve(p)
}

func (r postRepo) List(filter repositories.PostFilter) ([]*models.Post, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var posts []*models.Post
	for _, p := range m.posts {
		if filter.AuthorID != 0 && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.GroupID != 0 && p.GroupID != filter.GroupID {
			continue
		}
		if filter.FollowedBy != 0 {
			if _, ok := m.follows[[2]int{filter.FollowedBy, p.AuthorID}]; !ok {
				continue
			}
		}
		resolved, err := m.resolve(p)
		if err != nil {
			return nil, err
		}
		posts = append(posts, resolved)
	}
	feed.SortNewestFirst(posts)
	return posts, nil
}

func (r postRepo) Update(post *models.Post) error {
	m := r.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return m.Err
	}
	stored, ok := m.posts[post.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	post.AuthorID = stored.AuthorID
	post.CreatedAt = stored.CreatedAt
	bare := post.Bare()
	m.posts[post.ID] = &bare
	return nil
}

func (r postRepo) CountByAuthor(authorID int) (int, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

type commentRepo struct{ m *Store }

func (r commentRepo) Create(comment *models.Comment) error {
	m := r.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return m.Err
	}
	comment.BeforeCreate()
	comment.ID = m.next("comment")
	stored := comment.Bare()
	m.comments[comment.ID] = &stored
	return nil
}

func (r commentRepo) ListByPost(postID int) ([]*models.Comment, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var comments []*models.Comment
	for _, c := range m.comments {
		if c.PostID != postID {
			continue
		}
		out := *c
		if u, ok := m.users[c.AuthorID]; ok {
			author := *u
			out.Author = &author
		}
		comments = append(comments, &out)
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (r commentRepo) CountByPost(postID int) (int, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for _, c := range m.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

type followRepo struct{ m *Store }

func (r followRepo) GetOrCreate(followerID, authorID int) (*models.Follow, bool, error) {
	m := r.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	follow := &models.Follow{FollowerID: followerID, AuthorID: authorID}
	if err := follow.Validate(); err != nil {
		return nil, false, err
	}
	key := [2]int{followerID, authorID}
	if existing, ok := m.follows[key]; ok {
		out := *existing
		return &out, false, nil
	}
	follow.CreatedAt = time.Now()
	stored := *follow
	m.follows[key] = &stored
	return follow, true, nil
}

func (r followRepo) Delete(followerID, authorID int) (bool, error) {
	m := r.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	key := [2]int{followerID, authorID}
	if _, ok := m.follows[key]; !ok {
		return false, nil
	}
	delete(m.follows, key)
	return true, nil
}

func (r followRepo) Exists(followerID, authorID int) (bool, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.follows[[2]int{followerID, authorID}]
	return ok, nil
}

func (r followRepo) ListFollowing(followerID int) ([]int, error) {
	m := r.m
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var ids []int
	for key := range m.follows {
		if key[0] == followerID {
			ids = append(ids, key[1])
		}
	}
	sort.Ints(ids)
	return ids, nil
}
