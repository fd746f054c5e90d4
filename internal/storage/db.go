package storage

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// inMemoryOptions returns BadgerDB options for throwaway databases used by
// tests and by repositories opened without a backing directory.
func inMemoryOptions() badger.Options {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	return opts
}

// OpenInMemory opens a BadgerDB instance that lives only in memory.
func OpenInMemory() (*badger.DB, error) {
	db, err := badger.Open(inMemoryOptions())
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	return db, nil
}

// Open initializes and returns a BadgerDB instance rooted at path. Badger
// holds an exclusive directory lock for as long as the DB is open, so a
// second process opening the same repository fails here.
func Open(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}
