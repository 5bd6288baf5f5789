package repositories

import (
	"errors"
	"fmt"

	"postroom/app/feed"
	"postroom/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create creates a new post
func (r *BadgerPostRepository) Create(post *models.Post) error {
	post.BeforeCreate()
	return r.db.Update(func(txn *badger.Txn) error {
		// Get next ID
		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id

		return putEntity(txn, entityKey(PostKeyPrefix, id), post.Bare())
	})
}

// GetByID retrieves a post by ID with its author and group
func (r *BadgerPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		if err := getEntity(txn, entityKey(PostKeyPrefix, id), &post); err != nil {
			return err
		}
		return newResolver(txn).post(&post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List retrieves the posts matching filter, newest first
func (r *BadgerPostRepository) List(filter PostFilter) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		var followed map[int]bool
		if filter.FollowedBy != 0 {
			authors, err := listFollowing(txn, filter.FollowedBy)
			if err != nil {
				return err
			}
			if len(authors) == 0 {
				return nil
			}
			followed = make(map[int]bool, len(authors))
			for _, id := range authors {
				followed[id] = true
			}
		}

		res := newResolver(txn)
		return scanPrefix(txn, []byte(PostKeyPrefix), func(val []byte) error {
			var post models.Post
			if err := unmarshalEntity(val, &post); err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			if filter.AuthorID != 0 && post.AuthorID != filter.AuthorID {
				return nil
			}
			if filter.GroupID != 0 && post.GroupID != filter.GroupID {
				return nil
			}
			if followed != nil && !followed[post.AuthorID] {
				return nil
			}
			if err := res.post(&post); err != nil {
				return err
			}
			posts = append(posts, &post)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	feed.SortNewestFirst(posts)
	return posts, nil
}

// Update stores new text, group and image for an existing post. The author
// and creation time always keep their stored values.
func (r *BadgerPostRepository) Update(post *models.Post) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := entityKey(PostKeyPrefix, post.ID)

		var stored models.Post
		if err := getEntity(txn, key, &stored); err != nil {
			return err
		}
		post.AuthorID = stored.AuthorID
		post.CreatedAt = stored.CreatedAt

		return putEntity(txn, key, post.Bare())
	})
}

// CountByAuthor returns how many posts authorID has written
func (r *BadgerPostRepository) CountByAuthor(authorID int) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(PostKeyPrefix), func(val []byte) error {
			var post models.Post
			if err := unmarshalEntity(val, &post); err != nil {
				return err
			}
			if post.AuthorID == authorID {
				count++
			}
			return nil
		})
	})
	return count, err
}

// resolver loads authors and groups once per distinct id within a single
// read transaction.
type resolver struct {
	txn    *badger.Txn
	users  map[int]*models.User
	groups map[int]*models.Group
}

func newResolver(txn *badger.Txn) *resolver {
	return &resolver{
		txn:    txn,
		users:  make(map[int]*models.User),
		groups: make(map[int]*models.Group),
	}
}

func (r *resolver) user(id int) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	u, err := loadUser(r.txn, id)
	if err != nil {
		return nil, fmt.Errorf("author %d: %w", id, err)
	}
	r.users[id] = u
	return u, nil
}

// group returns nil for id 0 and for groups that no longer exist.
func (r *resolver) group(id int) (*models.Group, error) {
	if id == 0 {
		return nil, nil
	}
	if g, ok := r.groups[id]; ok {
		return g, nil
	}
	var g models.Group
	err := getEntity(r.txn, entityKey(GroupKeyPrefix, id), &g)
	if errors.Is(err, ErrNotFound) {
		r.groups[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.groups[id] = &g
	return &g, nil
}

func (r *resolver) post(p *models.Post) error {
	author, err := r.user(p.AuthorID)
	if err != nil {
		return err
	}
	group, err := r.group(p.GroupID)
	if err != nil {
		return err
	}
	p.Author = author
	p.Group = group
	return nil
}
