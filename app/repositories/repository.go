package repositories

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Store bundles the Badger database with one repository per entity.
type Store struct {
	db       *badger.DB
	Users    *BadgerUserRepository
	Groups   *BadgerGroupRepository
	Posts    *BadgerPostRepository
	Comments *BadgerCommentRepository
	Follows  *BadgerFollowRepository
}

// Options returns Badger options for path. An empty path opens an in-memory
// database. logger may be nil to silence Badger.
func Options(path string, logger badger.Logger) badger.Options {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	return opts.
		WithLogger(logger).
		WithNumVersionsToKeep(1)
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger badger.Logger) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := badger.Open(Options(path, logger))
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return NewStore(db), nil
}

// NewStore wraps an already opened database.
func NewStore(db *badger.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewBadgerUserRepository(db),
		Groups:   NewBadgerGroupRepository(db),
		Posts:    NewBadgerPostRepository(db),
		Comments: NewBadgerCommentRepository(db),
		Follows:  NewBadgerFollowRepository(db),
	}
}

// DB exposes the underlying database for backup and restore.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Clear drops every key.
func (s *Store) Clear() error {
	return s.db.DropAll()
}
