package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"site-freezer/pkg/models"
	"site-freezer/pkg/utils"
)

const (
	pageKeyPrefix = "page:"       // Prefix for page URL keys in DB
	stateDBDir    = "freeze_db"   // Subdirectory name within stateDir for Badger DB files
)

// Store retains per-URL freeze state between runs in a BadgerDB, keyed by
// normalized URL. An incremental run compares content hashes against it to
// skip rewriting unchanged pages.
type Store struct {
	db  *badger.DB
	log *logrus.Entry
}

// Open initializes the freeze state database under stateDir.
func Open(stateDir string, logger *logrus.Entry) (*Store, error) {
	dbPath := filepath.Join(stateDir, stateDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrStateStore, dbPath, err)
	}
	logger.Infof("Opening freeze state database at: %s", dbPath)

	badgerLogger := newBadgerAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Only the latest freeze state matters

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger database at %s: %w", utils.ErrStateStore, dbPath, err)
	}
	return &Store{db: db, log: logger}, nil
}

// Get retrieves the stored freeze state for a URL.
// Returns the entry, whether one exists, and any error.
func (s *Store) Get(normalizedURL string) (*models.PageStateEntry, bool, error) {
	var entry models.PageStateEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pageKeyPrefix + normalizedURL))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading state for '%s': %w", utils.ErrStateStore, normalizedURL, err)
	}
	return &entry, true, nil
}

// Put stores the freeze state for a URL.
func (s *Store) Put(normalizedURL string, entry *models.PageStateEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshalling state for '%s': %w", utils.ErrStateStore, normalizedURL, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pageKeyPrefix+normalizedURL), value)
	})
	if err != nil {
		return fmt.Errorf("%w: writing state for '%s': %w", utils.ErrStateStore, normalizedURL, err)
	}
	return nil
}

// Close cleanly closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing state database: %w", utils.ErrStateStore, err)
	}
	return nil
}
