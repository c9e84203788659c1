/*
Package server exposes a volume over HTTP.  All access to resident chunks is
serialized through volume.Locked.  Reads of chunks that aren't resident are
satisfied from the configured store when there is one.
*/
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/storage"
	"github.com/janelia-flyem/voxchunk/volume"
)

// ErrNoStore is returned by operations that need a configured store.
var ErrNoStore = errors.New("no store configured")

// Server holds a volume and the collaborators serving it.
type Server struct {
	config  *Config
	vol     *volume.Locked
	store   storage.Store
	cache   *storage.Cached
	loader  *storage.Loader
	pub     Publisher
	log     dvid.Logger
	handler http.Handler
	started time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithPublisher sends mutations to p instead of any configured kafka servers.
func WithPublisher(p Publisher) Option {
	return func(s *Server) {
		s.pub = p
	}
}

// WithStore uses store instead of opening the configured one.
func WithStore(store storage.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// New builds a Server from configuration, opening its store and kafka publisher and
// preloading any listed chunks.
func New(ctx context.Context, cfg *Config, logger dvid.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	s := &Server{
		config:  cfg,
		log:     logger,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		store, cached, err := cfg.OpenStore(ctx, logger)
		if err != nil {
			return nil, err
		}
		if store != nil {
			s.store = store
			s.cache = cached
		}
	}
	if s.pub == nil {
		if len(cfg.Kafka.Servers) == 0 {
			logger.Infof("No Kafka server specified.\n")
			s.pub = NopPublisher{}
		} else {
			pub, err := NewKafkaPublisher(cfg.Kafka, logger)
			if err != nil {
				s.closeStore()
				return nil, err
			}
			s.pub = pub
		}
	}

	mopts := []volume.Option{volume.WithLogger(logger)}
	if s.store != nil {
		timeout := time.Duration(cfg.Server.LoadTimeout) * time.Second
		s.loader = storage.NewLoader(s.store, timeout, logger)
		mopts = append(mopts, volume.WithLoader(s.loader))
	}
	s.vol = volume.NewLocked(volume.NewManager(mopts...))

	coords, err := cfg.PreloadCoords()
	if err != nil {
		s.Close()
		return nil, err
	}
	if len(coords) > 0 {
		if s.loader == nil {
			s.Close()
			return nil, fmt.Errorf("can't preload %d chunks: %w", len(coords), ErrNoStore)
		}
		workers := cfg.Server.PreloadWorkers
		if workers <= 0 {
			workers = DefaultPreloadWorkers
		}
		if _, err := s.loader.Preload(ctx, s.vol, coords, workers); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.handler = s.routes()
	return s, nil
}

// Volume returns the served volume.
func (s *Server) Volume() *volume.Locked {
	return s.vol
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Stats returns volume, cache and uptime statistics.
func (s *Server) Stats() Stats {
	st := newStats(s.vol.Stats())
	st.UptimeSeconds = time.Since(s.started).Seconds()
	if s.store != nil {
		if str, ok := s.store.(interface{ String() string }); ok {
			st.Store = str.String()
		}
	}
	if s.cache != nil {
		cs := s.cache.Stats()
		st.CacheHits, st.CacheMisses, st.CacheEntries = cs.Hits, cs.Misses, cs.Entries
	}
	return st
}

// Serve listens on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.config.HTTPAddress()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Infof("Web server listening at %s ...\n", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Infof("Shutting down web server at %s, waiting up to %s for requests\n", addr, s.config.ShutdownDelay())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownDelay())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close shuts down the publisher and store.  Later calls do nothing.
func (s *Server) Close() error {
	var errs []error
	if s.pub != nil {
		errs = append(errs, s.pub.Close())
		s.pub = NopPublisher{}
	}
	errs = append(errs, s.closeStore())
	return errors.Join(errs...)
}

func (s *Server) closeStore() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}
