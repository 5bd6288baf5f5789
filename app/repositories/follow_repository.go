package repositories

import (
	"errors"
	"fmt"
	"sort"

	"postroom/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerFollowRepository implements FollowRepository using BadgerDB. The
// pair is the key, which makes every (follower, author) pair unique.
type BadgerFollowRepository struct {
	db *badger.DB
}

// NewBadgerFollowRepository creates a new BadgerFollowRepository
func NewBadgerFollowRepository(db *badger.DB) *BadgerFollowRepository {
	return &BadgerFollowRepository{db: db}
}

func followKey(followerID, authorID int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", FollowKeyPrefix, followerID, authorID))
}

// GetOrCreate returns the follow for the pair, creating it when missing.
// The boolean reports whether a new record was written.
func (r *BadgerFollowRepository) GetOrCreate(followerID, authorID int) (*models.Follow, bool, error) {
	follow := &models.Follow{FollowerID: followerID, AuthorID: authorID}
	if err := follow.Validate(); err != nil {
		return nil, false, err
	}

	created := false
	err := r.db.Update(func(txn *badger.Txn) error {
		key := followKey(followerID, authorID)
		err := getEntity(txn, key, follow)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		follow.BeforeCreate()
		created = true
		return putEntity(txn, key, follow)
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent request wrote the same pair first.
		existing, getErr := r.get(followerID, authorID)
		if getErr != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return follow, created, nil
}

func (r *BadgerFollowRepository) get(followerID, authorID int) (*models.Follow, error) {
	var follow models.Follow
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, followKey(followerID, authorID), &follow)
	})
	if err != nil {
		return nil, err
	}
	return &follow, nil
}

// Delete removes the pair. Removing an absent pair is not an error; the
// boolean reports whether anything was deleted.
func (r *BadgerFollowRepository) Delete(followerID, authorID int) (bool, error) {
	deleted := false
	err := r.db.Update(func(txn *badger.Txn) error {
		key := followKey(followerID, authorID)
		found, err := exists(txn, key)
		if err != nil || !found {
			return err
		}
		deleted = true
		return txn.Delete(key)
	})
	return deleted, err
}

// Exists reports whether followerID follows authorID
func (r *BadgerFollowRepository) Exists(followerID, authorID int) (bool, error) {
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = exists(txn, followKey(followerID, authorID))
		return err
	})
	return found, err
}

// ListFollowing returns the ids of the authors followerID follows
func (r *BadgerFollowRepository) ListFollowing(followerID int) ([]int, error) {
	var ids []int
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		ids, err = listFollowing(txn, followerID)
		return err
	})
	return ids, err
}

func listFollowing(txn *badger.Txn, followerID int) ([]int, error) {
	var ids []int
	prefix := []byte(fmt.Sprintf("%s%d:", FollowKeyPrefix, followerID))
	err := scanPrefix(txn, prefix, func(val []byte) error {
		var follow models.Follow
		if err := unmarshalEntity(val, &follow); err != nil {
			return err
		}
		ids = append(ids, follow.AuthorID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Ints(ids)
	return ids, nil
}
