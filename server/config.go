package server

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/storage"
	"github.com/janelia-flyem/voxchunk/storage/badger"
	"github.com/janelia-flyem/voxchunk/storage/bucket"
)

const (
	// DefaultWebAddress is the default address of the HTTP server.
	DefaultWebAddress = "localhost:8000"

	// DefaultShutdownDelay is how long in-flight requests get to finish on shutdown.
	DefaultShutdownDelay = 5 * time.Second

	// DefaultPreloadWorkers is the number of concurrent store reads during preload.
	DefaultPreloadWorkers = 4
)

// Config is the parsed TOML configuration.
type Config struct {
	Server  serverConfig
	Logging dvid.LogConfig
	Store   StoreConfig
	Cache   CacheConfig
	Kafka   KafkaConfig
}

type serverConfig struct {
	HTTPAddress    string   `toml:"httpAddress"`
	AllowedOrigins []string `toml:"allowed_origins"`
	ShutdownDelay  int      `toml:"shutdown_delay"` // seconds
	LoadTimeout    int      `toml:"load_timeout"`   // seconds
	Preload        []string // chunk coordinates like "3,-2" built at startup
	PreloadWorkers int      `toml:"preload_workers"`
}

// StoreConfig selects where chunks are persisted.  An empty Engine means chunks
// live only in memory.
type StoreConfig struct {
	Engine      string // "badger" or "bucket"
	Compression string // "none", "snappy", "lz4" or "zstd"
	Ref         string // bucket reference for the bucket engine
	Badger      badger.Config
}

// CacheConfig sizes the cache of serialized chunks in front of the store.
type CacheConfig struct {
	SizeMB int `toml:"size_mb"`
}

// KafkaConfig describes kafka servers receiving mutation messages.
type KafkaConfig struct {
	Servers []string
	Topic   string
}

// DefaultTopic is the kafka topic for mutations when none is configured.
const DefaultTopic = "voxchunk-mutations"

// LoadConfig decodes a TOML file and makes relative paths within it relative to the
// file's directory.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no server TOML configuration file provided")
	}
	c := new(Config)
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %w", err)
	}
	return c, nil
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error

	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = dvid.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path: %w", err)
		}
	}

	// [store.badger].path
	if c.Store.Badger.Path != "" {
		c.Store.Badger.Path, err = dvid.ConvertToAbsolute(c.Store.Badger.Path, configDir)
		if err != nil {
			return fmt.Errorf("error converting store.badger.path to absolute path: %w", err)
		}
	}

	// [store].ref for local file buckets
	if rest, ok := strings.CutPrefix(c.Store.Ref, "file://"); ok && !filepath.IsAbs(rest) {
		abs, err := dvid.ConvertToAbsolute(rest, configDir)
		if err != nil {
			return fmt.Errorf("error converting store.ref to absolute path: %w", err)
		}
		c.Store.Ref = "file://" + abs
	}
	return nil
}

// HTTPAddress returns the configured address or the default.
func (c *Config) HTTPAddress() string {
	if c.Server.HTTPAddress == "" {
		return DefaultWebAddress
	}
	return c.Server.HTTPAddress
}

// ShutdownDelay returns the configured grace period or the default.
func (c *Config) ShutdownDelay() time.Duration {
	if c.Server.ShutdownDelay <= 0 {
		return DefaultShutdownDelay
	}
	return time.Duration(c.Server.ShutdownDelay) * time.Second
}

// PreloadCoords parses the chunk coordinates listed for preloading.
func (c *Config) PreloadCoords() ([]dvid.ChunkPoint2d, error) {
	coords := make([]dvid.ChunkPoint2d, 0, len(c.Server.Preload))
	for _, s := range c.Server.Preload {
		coord, err := dvid.ParseChunkPoint2d(s)
		if err != nil {
			return nil, err
		}
		coords = append(coords, coord)
	}
	return coords, nil
}

// OpenStore opens the configured chunk store, fronted by a cache when one is sized.
// It returns a nil store when no engine is configured.
func (c *Config) OpenStore(ctx context.Context, logger dvid.Logger) (*storage.ChunkStore, *storage.Cached, error) {
	var db storage.KeyValueDB
	var err error
	switch strings.ToLower(c.Store.Engine) {
	case "":
		logger.Infof("No store configured; chunks are kept in memory only.\n")
		return nil, nil, nil
	case "badger":
		db, err = badger.Open(c.Store.Badger, logger)
	case "bucket":
		db, err = bucket.Open(ctx, c.Store.Ref, logger)
	default:
		return nil, nil, fmt.Errorf("unknown store engine %q", c.Store.Engine)
	}
	if err != nil {
		return nil, nil, err
	}

	var cached *storage.Cached
	if c.Cache.SizeMB > 0 {
		cached = storage.NewCached(db, c.Cache.SizeMB*dvid.Mega, logger)
		db = cached
	}
	compress := dvid.Snappy
	if c.Store.Compression != "" {
		if compress, err = dvid.ParseCompression(c.Store.Compression); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	store, err := storage.Open(ctx, db, compress, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, cached, nil
}
