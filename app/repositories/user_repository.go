package repositories

import (
	"fmt"
	"sort"

	"postroom/app/models"

	"github.com/dgraph-io/badger/v4"
)

// userRecord is the stored form of a user; the password hash is hidden from
// the public JSON shape of models.User.
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func toRecord(u *models.User) userRecord {
	return userRecord{User: *u, PasswordHash: u.PasswordHash}
}

func (r userRecord) user() *models.User {
	u := r.User
	u.PasswordHash = r.PasswordHash
	return &u
}

// BadgerUserRepository implements UserRepository using BadgerDB
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// Create stores a new user. The username must be free.
func (r *BadgerUserRepository) Create(user *models.User) error {
	user.BeforeCreate()
	return r.db.Update(func(txn *badger.Txn) error {
		indexKey := []byte(UsernameIndexPrefix + user.Username)
		taken, err := exists(txn, indexKey)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}

		id, err := getNextID(txn, UserSeqKey)
		if err != nil {
			return err
		}
		user.ID = id

		if err := putEntity(txn, entityKey(UserKeyPrefix, id), toRecord(user)); err != nil {
			return err
		}
		return putIndex(txn, indexKey, id)
	})
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(id int) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

// GetByUsername retrieves a user by its unique username
func (r *BadgerUserRepository) GetByUsername(username string) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIndex(txn, []byte(UsernameIndexPrefix+username))
		if err != nil {
			return err
		}
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

// List returns every user ordered by ID
func (r *BadgerUserRepository) List() ([]*models.User, error) {
	var users []*models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(UserKeyPrefix), func(val []byte) error {
			var rec userRecord
			if err := unmarshalEntity(val, &rec); err != nil {
				return err
			}
			users = append(users, rec.user())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func loadUser(txn *badger.Txn, id int) (*models.User, error) {
	var rec userRecord
	if err := getEntity(txn, entityKey(UserKeyPrefix, id), &rec); err != nil {
		return nil, err
	}
	return rec.user(), nil
}
