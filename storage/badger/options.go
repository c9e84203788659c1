package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/voxchunk/dvid"
)

const (
	// DefaultVersionsToKeep is the number of versions to keep per key.  Chunks are
	// overwritten in place so older versions are never read.
	DefaultVersionsToKeep = 1

	// DefaultSyncWrites is true if all writes are synced to disk, thereby making db resilient
	// at cost of speed.  When false the store syncs periodically.
	DefaultSyncWrites = false
)

// Config is the badger portion of a [store] configuration.
type Config struct {
	Path             string
	InMemory         bool  `toml:"in_memory"`
	ReadOnly         bool  `toml:"read_only"`
	SyncWrites       bool  `toml:"sync_writes"`
	ValueThreshold   int64 `toml:"value_threshold"`
	ValueLogFileSize int64 `toml:"value_log_file_size"`
}

func getOptions(c Config, logger dvid.Logger) (badger.Options, error) {
	var opts badger.Options
	if c.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if c.Path == "" {
			return opts, fmt.Errorf("%q must be specified for on-disk BadgerDB configuration", "path")
		}
		opts = badger.DefaultOptions(c.Path)
	}
	opts = opts.WithNumVersionsToKeep(DefaultVersionsToKeep).
		WithSyncWrites(c.SyncWrites || DefaultSyncWrites).
		WithReadOnly(c.ReadOnly).
		WithLogger(logger)
	if c.ValueThreshold > 0 {
		opts = opts.WithValueThreshold(c.ValueThreshold)
	}
	if c.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(c.ValueLogFileSize)
	}
	return opts, nil
}
