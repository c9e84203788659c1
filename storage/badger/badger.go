/*
Package badger implements a storage.KeyValueDB on an embedded BadgerDB, either on
disk or entirely in memory.
*/
package badger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/storage"
)

// syncInterval is how often an unsynced on-disk store flushes writes.
const syncInterval = 30 * time.Second

// BadgerDB is a storage.KeyValueDB backed by badger.
type BadgerDB struct {
	// Directory of datastore, empty when in memory.
	directory string

	bdp *badger.DB
	log dvid.Logger

	// stopSyncCh is used to signal the sync goroutine to stop.
	stopSyncCh chan struct{}
	syncDone   chan struct{}
}

// Open returns a badger store, creating a database at the configured path if one
// doesn't exist.
func Open(c Config, logger dvid.Logger) (*BadgerDB, error) {
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	opts, err := getOptions(c, logger)
	if err != nil {
		return nil, err
	}
	if !c.InMemory {
		if _, err := os.Stat(c.Path); os.IsNotExist(err) {
			logger.Infof("Database not already at path (%s). Creating directory...\n", c.Path)
			if err := os.MkdirAll(c.Path, 0744); err != nil {
				return nil, fmt.Errorf("can't make directory at %s: %w", c.Path, err)
			}
		} else {
			logger.Infof("Found directory at %s\n", c.Path)
		}
	}

	timedLog := dvid.NewTimeLog(logger)
	bdp, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger @ %q: %w", c.Path, err)
	}
	db := &BadgerDB{
		directory: c.Path,
		bdp:       bdp,
		log:       logger,
	}
	timedLog.Infof("Opened %s", db)

	if !c.InMemory && !c.ReadOnly && !opts.SyncWrites {
		db.stopSyncCh = make(chan struct{})
		db.syncDone = make(chan struct{})
		go db.syncPeriodically()
	}
	return db, nil
}

// Periodically sync to prevent too many writes from being buffered
// if server crashes.
func (db *BadgerDB) syncPeriodically() {
	defer close(db.syncDone)
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-db.stopSyncCh:
			db.log.Debugf("Stopping sync goroutine for %s\n", db)
			return
		case <-ticker.C:
			if err := db.bdp.Sync(); err != nil {
				db.log.Errorf("Sync of %s failed: %v\n", db, err)
			}
		}
	}
}

func (db *BadgerDB) String() string {
	if db.directory == "" {
		return "badger in memory"
	}
	return fmt.Sprintf("badger @ %s", db.directory)
}

// Get returns a value given a key, or nil if the key isn't present.
func (db *BadgerDB) Get(ctx context.Context, k storage.Key) ([]byte, error) {
	if db == nil || db.bdp == nil {
		return nil, fmt.Errorf("can't call Get on closed BadgerDB")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var v []byte
	err := db.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	return v, err
}

// Put writes a value with given key.
func (db *BadgerDB) Put(ctx context.Context, k storage.Key, v []byte) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call Put on closed BadgerDB")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

// Delete removes a value with given key.
func (db *BadgerDB) Delete(ctx context.Context, k storage.Key) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call Delete on closed BadgerDB")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// Keys returns all keys of the given type in ascending order.
func (db *BadgerDB) Keys(ctx context.Context, t storage.KeyType) ([]storage.Key, error) {
	if db == nil || db.bdp == nil {
		return nil, fmt.Errorf("can't call Keys on closed BadgerDB")
	}
	var keys []storage.Key
	err := db.bdp.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // key only
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{byte(t)}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Close closes the database.  It is safe to call more than once.
func (db *BadgerDB) Close() error {
	if db == nil || db.bdp == nil {
		return nil
	}
	if db.stopSyncCh != nil {
		close(db.stopSyncCh)
		<-db.syncDone
		db.stopSyncCh = nil
	}
	err := db.bdp.Close()
	db.bdp = nil
	db.log.Infof("Closed %s\n", db)
	return err
}
