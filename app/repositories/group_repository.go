package repositories

import (
	"fmt"
	"sort"

	"postroom/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGroupRepository implements GroupRepository using BadgerDB
type BadgerGroupRepository struct {
	db *badger.DB
}

// NewBadgerGroupRepository creates a new BadgerGroupRepository
func NewBadgerGroupRepository(db *badger.DB) *BadgerGroupRepository {
	return &BadgerGroupRepository{db: db}
}

// Create stores a new group. The slug must be free.
func (r *BadgerGroupRepository) Create(group *models.Group) error {
	group.BeforeCreate()
	return r.db.Update(func(txn *badger.Txn) error {
		indexKey := []byte(GroupSlugIndexPrefix + group.Slug)
		taken, err := exists(txn, indexKey)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("group slug %q: %w", group.Slug, ErrDuplicate)
		}

		id, err := getNextID(txn, GroupSeqKey)
		if err != nil {
			return err
		}
		group.ID = id

		if err := putEntity(txn, entityKey(GroupKeyPrefix, id), group); err != nil {
			return err
		}
		return putIndex(txn, indexKey, id)
	})
}

// GetByID retrieves a group by ID
func (r *BadgerGroupRepository) GetByID(id int) (*models.Group, error) {
	var group models.Group
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, entityKey(GroupKeyPrefix, id), &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetBySlug retrieves a group by its unique slug
func (r *BadgerGroupRepository) GetBySlug(slug string) (*models.Group, error) {
	var group models.Group
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIndex(txn, []byte(GroupSlugIndexPrefix+slug))
		if err != nil {
			return err
		}
		return getEntity(txn, entityKey(GroupKeyPrefix, id), &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// List returns every group ordered by title
func (r *BadgerGroupRepository) List() ([]*models.Group, error) {
	var groups []*models.Group
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(GroupKeyPrefix), func(val []byte) error {
			var group models.Group
			if err := unmarshalEntity(val, &group); err != nil {
				return err
			}
			groups = append(groups, &group)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Title != groups[j].Title {
			return groups[i].Title < groups[j].Title
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}
