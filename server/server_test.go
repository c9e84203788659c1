package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Shopify/sarama/mocks"

	"github.com/janelia-flyem/voxchunk/chunk"
	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/storage/badger"
)

// recordingPublisher keeps published mutations for inspection.
type recordingPublisher struct {
	mutations []Mutation
}

func (p *recordingPublisher) Publish(m Mutation) { p.mutations = append(p.mutations, m) }
func (p *recordingPublisher) Close() error       { return nil }

func inMemoryConfig() *Config {
	c := new(Config)
	c.Store.Engine = "badger"
	c.Store.Compression = "zstd"
	c.Store.Badger = badger.Config{InMemory: true}
	c.Cache.SizeMB = 8
	return c
}

func newTestServer(t *testing.T, cfg *Config, opts ...Option) *Server {
	t.Helper()
	s, err := New(context.Background(), cfg, dvid.NopLogger{}, opts...)
	if err != nil {
		t.Fatalf("can't create server: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func do(t *testing.T, s *Server, method, url string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func chunkWithValue(x, y, z int32, value byte) []byte {
	data := make([]byte, chunk.Full)
	data[chunk.LinearIndex(x, y, z)] = value
	return data
}

func TestVoxelEndpoints(t *testing.T) {
	pub := new(recordingPublisher)
	s := newTestServer(t, new(Config), WithPublisher(pub))

	expectStatus(t, do(t, s, "GET", "/api/voxel/1/2/3", nil), http.StatusNotFound)
	expectStatus(t, do(t, s, "PUT", "/api/chunk/0/0", chunkWithValue(1, 2, 3, 7)), http.StatusNoContent)

	w := do(t, s, "GET", "/api/voxel/1/2/3", nil)
	expectStatus(t, w, http.StatusOK)
	var got voxelValue
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 6 {
		t.Fatalf("expected block 6, got %+v", got)
	}

	expectStatus(t, do(t, s, "POST", "/api/voxel/1/2/3", []byte(`{"value": 9}`)), http.StatusOK)
	w = do(t, s, "GET", "/api/voxel/1/2/3", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 9 {
		t.Fatalf("expected 9 after write, got %+v", got)
	}

	expectStatus(t, do(t, s, "POST", "/api/voxel/1/2/3", []byte(`{"value": 15}`)), http.StatusBadRequest)
	expectStatus(t, do(t, s, "POST", "/api/voxel/1/2/3", []byte(`{"other": 1}`)), http.StatusBadRequest)
	expectStatus(t, do(t, s, "POST", "/api/voxel/1/2/3", []byte(`not json`)), http.StatusBadRequest)
	expectStatus(t, do(t, s, "GET", "/api/voxel/1/2/320", nil), http.StatusBadRequest)
	expectStatus(t, do(t, s, "GET", "/api/voxel/1/2/-65", nil), http.StatusBadRequest)
	expectStatus(t, do(t, s, "GET", "/api/voxel/a/2/3", nil), http.StatusBadRequest)
	expectStatus(t, do(t, s, "GET", "/api/voxel/1/2/319", nil), http.StatusOK)

	if len(pub.mutations) != 2 {
		t.Fatalf("expected 2 published mutations, got %v", pub.mutations)
	}
	m := pub.mutations[1]
	if m.Action != "set-voxel" || m.Chunk != "(0,0)" || m.Value == nil || *m.Value != 9 {
		t.Errorf("unexpected mutation %+v", m)
	}
}

func TestBatchWrites(t *testing.T) {
	pub := new(recordingPublisher)
	s := newTestServer(t, new(Config), WithPublisher(pub))
	expectStatus(t, do(t, s, "PUT", "/api/chunk/-1/-1", make([]byte, chunk.Full)), http.StatusNoContent)

	body := []byte(`[{"x": -1, "y": -1, "z": 0, "value": 3}, {"x": -16, "y": -16, "z": -64, "value": -1}, {"x": -5, "y": -7, "z": 300, "value": 14}]`)
	w := do(t, s, "POST", "/api/voxels", body)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"applied":3`) {
		t.Errorf("unexpected batch response %s", w.Body.String())
	}
	if v, err := s.Volume().GetValue(-5, -7, 300); err != nil || v != 14 {
		t.Errorf("expected 14 at (-5,-7,300), got %d, %v", v, err)
	}

	// Schema rejects a value outside the palette.
	expectStatus(t, do(t, s, "POST", "/api/voxels", []byte(`[{"x": 0, "y": 0, "z": 0, "value": 20}]`)), http.StatusBadRequest)
	expectStatus(t, do(t, s, "POST", "/api/voxels", []byte(`[{"x": 0, "y": 0, "value": 2}]`)), http.StatusBadRequest)

	// The second write targets a chunk that isn't resident.
	body = []byte(`[{"x": -2, "y": -2, "z": 0, "value": 1}, {"x": 100, "y": 100, "z": 0, "value": 1}]`)
	expectStatus(t, do(t, s, "POST", "/api/voxels", body), http.StatusNotFound)
	if v, _ := s.Volume().GetValue(-2, -2, 0); v != 1 {
		t.Errorf("write before failure should stay applied, got %d", v)
	}
	if last := pub.mutations[len(pub.mutations)-1]; last.Action != "set-voxels" || last.Voxels != 1 {
		t.Errorf("unexpected mutation for partial batch %+v", last)
	}
}

func TestChunkEndpoints(t *testing.T) {
	s := newTestServer(t, inMemoryConfig(), WithPublisher(NopPublisher{}))

	expectStatus(t, do(t, s, "PUT", "/api/chunk/2/3", make([]byte, 10)), http.StatusBadRequest)
	expectStatus(t, do(t, s, "PUT", "/api/chunk/x/3", make([]byte, chunk.Full)), http.StatusBadRequest)

	data := chunkWithValue(4, 5, 6, 2)
	expectStatus(t, do(t, s, "PUT", "/api/chunk/2/3", data), http.StatusNoContent)

	w := do(t, s, "GET", "/api/chunk/2/3", nil)
	expectStatus(t, w, http.StatusOK)
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Fatalf("exported chunk doesn't match")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("bad content type %q", ct)
	}

	expectStatus(t, do(t, s, "POST", "/api/voxel/36/53/6", []byte(`{"value": -1}`)), http.StatusOK)
	w = do(t, s, "POST", "/api/chunk/2/3/compact", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"removed":2`) {
		t.Errorf("expected two runs removed, got %s", w.Body.String())
	}
	w = do(t, s, "GET", "/api/chunk/2/3/stats", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"runs":1`) {
		t.Errorf("expected one run after compaction, got %s", w.Body.String())
	}

	w = do(t, s, "GET", "/api/chunks", nil)
	expectStatus(t, w, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != "[[2,3]]" {
		t.Errorf("unexpected resident chunks %s", w.Body.String())
	}

	expectStatus(t, do(t, s, "DELETE", "/api/chunk/2/3", nil), http.StatusNoContent)
	expectStatus(t, do(t, s, "DELETE", "/api/chunk/2/3", nil), http.StatusNotFound)
	expectStatus(t, do(t, s, "GET", "/api/chunk/2/3", nil), http.StatusNotFound)
	expectStatus(t, do(t, s, "POST", "/api/chunk/2/3/compact", nil), http.StatusNotFound)
	expectStatus(t, do(t, s, "GET", "/api/nothing", nil), http.StatusNotFound)
}

func TestStoreBackedReads(t *testing.T) {
	s := newTestServer(t, inMemoryConfig(), WithPublisher(NopPublisher{}))

	data := chunkWithValue(0, 0, 0, 5)
	expectStatus(t, do(t, s, "PUT", "/api/chunk/-3/1?save=true", data), http.StatusNoContent)
	expectStatus(t, do(t, s, "POST", "/api/voxel/-48/16/0", []byte(`{"value": 11}`)), http.StatusOK)
	expectStatus(t, do(t, s, "POST", "/api/chunk/-3/1/save", nil), http.StatusNoContent)
	expectStatus(t, do(t, s, "POST", "/api/chunk/9/9/save", nil), http.StatusNotFound)

	// Evict and read again through the store.
	expectStatus(t, do(t, s, "DELETE", "/api/chunk/-3/1", nil), http.StatusNoContent)
	w := do(t, s, "GET", "/api/voxel/-48/16/0", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"value":11`) {
		t.Errorf("expected saved value from store, got %s", w.Body.String())
	}

	w = do(t, s, "GET", "/api/store/chunks", nil)
	expectStatus(t, w, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != "[[-3,1]]" {
		t.Errorf("unexpected stored chunks %s", w.Body.String())
	}

	expectStatus(t, do(t, s, "DELETE", "/api/chunk/-3/1?purge=true", nil), http.StatusNoContent)
	expectStatus(t, do(t, s, "GET", "/api/voxel/-48/16/0", nil), http.StatusNotFound)

	// Preload from the store.
	expectStatus(t, do(t, s, "PUT", "/api/chunk/7/7?save=true", data), http.StatusNoContent)
	expectStatus(t, do(t, s, "DELETE", "/api/chunk/7/7", nil), http.StatusNoContent)
	w = do(t, s, "POST", "/api/chunks/preload", []byte(`{"chunks": [[7, 7], [8, 8]], "workers": 2}`))
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"built":1`) {
		t.Errorf("unexpected preload response %s", w.Body.String())
	}
	if !s.Volume().Has(dvid.ChunkPoint2d{7, 7}) {
		t.Errorf("preloaded chunk not resident")
	}

	// Preloading a resident chunk keeps its unsaved writes.
	expectStatus(t, do(t, s, "POST", "/api/voxel/112/112/0", []byte(`{"value": 3}`)), http.StatusOK)
	w = do(t, s, "POST", "/api/chunks/preload", []byte(`{"chunks": [[7, 7]]}`))
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"built":0`) {
		t.Errorf("expected resident chunk skipped, got %s", w.Body.String())
	}
	if v, err := s.Volume().GetValue(112, 112, 0); err != nil || v != 3 {
		t.Errorf("unsaved write lost on preload: got %d, %v", v, err)
	}
	expectStatus(t, do(t, s, "POST", "/api/chunks/preload", []byte(`{"chunks": [[7]]}`)), http.StatusBadRequest)

	if st := s.Stats(); st.CacheHits+st.CacheMisses == 0 || st.Store == "" {
		t.Errorf("expected cache activity and store name in stats: %+v", st)
	}
}

func TestNoStore(t *testing.T) {
	s := newTestServer(t, new(Config))
	expectStatus(t, do(t, s, "PUT", "/api/chunk/0/0", make([]byte, chunk.Full)), http.StatusNoContent)
	expectStatus(t, do(t, s, "POST", "/api/chunk/0/0/save", nil), http.StatusNotImplemented)
	expectStatus(t, do(t, s, "PUT", "/api/chunk/0/0?save=1", make([]byte, chunk.Full)), http.StatusNotImplemented)
	expectStatus(t, do(t, s, "GET", "/api/store/chunks", nil), http.StatusNotImplemented)
	expectStatus(t, do(t, s, "POST", "/api/chunks/preload", []byte(`{"chunks": []}`)), http.StatusNotImplemented)

	cfg := new(Config)
	cfg.Server.Preload = []string{"0,0"}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Errorf("expected error preloading without a store")
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, new(Config))
	expectStatus(t, do(t, s, "PUT", "/api/chunk/0/0", make([]byte, chunk.Full)), http.StatusNoContent)
	expectStatus(t, do(t, s, "PUT", "/api/chunk/0/1", make([]byte, chunk.Full)), http.StatusNoContent)

	w := do(t, s, "GET", "/api/stats", nil)
	expectStatus(t, w, http.StatusOK)
	var js Stats
	if err := json.Unmarshal(w.Body.Bytes(), &js); err != nil {
		t.Fatal(err)
	}
	if js.Chunks != 2 || js.Runs != 2 {
		t.Errorf("unexpected JSON stats %+v", js)
	}

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Accept", MsgpackContentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != MsgpackContentType {
		t.Fatalf("expected msgpack content type, got %q", ct)
	}
	var ms Stats
	rest, err := ms.UnmarshalMsg(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("%d trailing bytes after msgpack stats", len(rest))
	}
	if ms.Chunks != 2 || ms.Runs != 2 || ms.EncodedBytes != js.EncodedBytes {
		t.Errorf("msgpack stats %+v don't match JSON stats %+v", ms, js)
	}
}

func TestCORS(t *testing.T) {
	cfg := new(Config)
	cfg.Server.AllowedOrigins = []string{"http://viewer.example.org"}
	s := newTestServer(t, cfg)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Origin", "http://viewer.example.org")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://viewer.example.org" {
		t.Errorf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Origin", "http://elsewhere.example.org")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allowed origin header %q", got)
	}
}

func TestKafkaPublisher(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var m Mutation
		if err := json.Unmarshal(val, &m); err != nil {
			return err
		}
		if m.Action != "build-chunk" || m.Chunk != "(4,-4)" || m.Timestamp == 0 {
			t.Errorf("unexpected mutation %+v", m)
		}
		return nil
	})
	pub := NewKafkaPublisherFromProducer(producer, "", nil)
	s := newTestServer(t, new(Config), WithPublisher(pub))
	expectStatus(t, do(t, s, "PUT", "/api/chunk/4/-4", make([]byte, chunk.Full)), http.StatusNoContent)
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "config.toml")
	contents := `
[server]
httpAddress = "localhost:9000"
allowed_origins = ["http://a.example.org"]
preload = ["0,0", "-1_2"]
preload_workers = 2

[logging]
logfile = "./voxchunk.log"
level = "debug"
max_log_size = 10

[store]
engine = "badger"
compression = "lz4"

[store.badger]
path = "data/chunks"

[cache]
size_mb = 32

[kafka]
servers = ["kafka1:9092"]
topic = "voxels"
`
	if err := os.WriteFile(filename, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.HTTPAddress() != "localhost:9000" {
		t.Errorf("bad http address %q", c.HTTPAddress())
	}
	if c.Logging.Logfile != filepath.Join(dir, "voxchunk.log") {
		t.Errorf("logfile not made absolute: %s", c.Logging.Logfile)
	}
	if c.Logging.Level != "debug" || c.Logging.MaxSize != 10 {
		t.Errorf("bad logging config %+v", c.Logging)
	}
	if c.Store.Badger.Path != filepath.Join(dir, "data/chunks") {
		t.Errorf("store path not made absolute: %s", c.Store.Badger.Path)
	}
	if c.Store.Engine != "badger" || c.Store.Compression != "lz4" || c.Cache.SizeMB != 32 {
		t.Errorf("bad store config %+v %+v", c.Store, c.Cache)
	}
	if len(c.Kafka.Servers) != 1 || c.Kafka.Topic != "voxels" {
		t.Errorf("bad kafka config %+v", c.Kafka)
	}
	coords, err := c.PreloadCoords()
	if err != nil {
		t.Fatal(err)
	}
	if len(coords) != 2 || coords[1] != (dvid.ChunkPoint2d{-1, 2}) {
		t.Errorf("bad preload coords %v", coords)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Errorf("expected error with no config file")
	}
}

func TestConfigAbsolutePaths(t *testing.T) {
	var c Config
	c.Logging.Logfile = "/var/log/voxchunk.log" // already absolute, unchanged
	c.Store.Ref = "file://buckets/chunks"
	if err := c.convertPathsToAbsolute("/tmp/voxchunk-configs/config.toml"); err != nil {
		t.Fatal(err)
	}
	if c.Logging.Logfile != "/var/log/voxchunk.log" {
		t.Errorf("absolute logfile changed: %s", c.Logging.Logfile)
	}
	if c.Store.Ref != "file:///tmp/voxchunk-configs/buckets/chunks" {
		t.Errorf("file bucket ref not made absolute: %s", c.Store.Ref)
	}
	if c.ShutdownDelay() != DefaultShutdownDelay || c.HTTPAddress() != DefaultWebAddress {
		t.Errorf("bad defaults")
	}
}

func TestUnknownEngine(t *testing.T) {
	cfg := new(Config)
	cfg.Store.Engine = "leveldb"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Errorf("expected error for unknown engine")
	}
	cfg = inMemoryConfig()
	cfg.Store.Compression = "brotli"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Errorf("expected error for unknown compression")
	}
}
