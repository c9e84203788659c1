package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"
	"github.com/zenazn/goji/web"
	"github.com/zenazn/goji/web/middleware"

	"github.com/janelia-flyem/voxchunk/chunk"
	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/storage"
	"github.com/janelia-flyem/voxchunk/volume"
)

const helpMessage = `voxchunk HTTP API

GET    /api/voxel/{x}/{y}/{z}            Returns {"value": v} with v = -1 for empty or a palette id.
POST   /api/voxel/{x}/{y}/{z}            Sets a voxel from {"value": v}.
POST   /api/voxels                       Sets voxels from [{"x":..,"y":..,"z":..,"value":..}, ...].
GET    /api/chunks                       Lists resident chunk coordinates.
POST   /api/chunks/preload               Loads {"chunks": [[cx,cy], ...], "workers": n} from the store.
GET    /api/store/chunks                 Lists chunk coordinates held in the store.
GET    /api/chunk/{cx}/{cy}              Returns the raw voxel data of a resident chunk.
PUT    /api/chunk/{cx}/{cy}[?save=true]  Builds or replaces a chunk from raw voxel data.
DELETE /api/chunk/{cx}/{cy}[?purge=true] Evicts a chunk, and with purge also deletes it from the store.
POST   /api/chunk/{cx}/{cy}/compact      Merges equal adjacent runs.
POST   /api/chunk/{cx}/{cy}/save         Writes a resident chunk to the store.
GET    /api/chunk/{cx}/{cy}/stats        Returns storage statistics for a chunk.
GET    /api/stats                        Returns volume statistics as JSON or msgpack.
`

// errBadRequest marks errors caused by malformed requests.
var errBadRequest = errors.New("bad request")

func (s *Server) routes() http.Handler {
	mux := web.New()
	mux.Use(middleware.Recoverer)
	mux.Use(s.logRequests)

	mux.Get("/api/help", s.helpHandler)
	mux.Get("/api/voxel/:x/:y/:z", s.getVoxelHandler)
	mux.Post("/api/voxel/:x/:y/:z", s.postVoxelHandler)
	mux.Post("/api/voxels", s.postVoxelsHandler)
	mux.Get("/api/chunks", s.residentChunksHandler)
	mux.Post("/api/chunks/preload", s.preloadHandler)
	mux.Get("/api/store/chunks", s.storedChunksHandler)
	mux.Get("/api/chunk/:cx/:cy", s.getChunkHandler)
	mux.Put("/api/chunk/:cx/:cy", s.putChunkHandler)
	mux.Delete("/api/chunk/:cx/:cy", s.deleteChunkHandler)
	mux.Post("/api/chunk/:cx/:cy/compact", s.compactHandler)
	mux.Post("/api/chunk/:cx/:cy/save", s.saveHandler)
	mux.Get("/api/chunk/:cx/:cy/stats", s.chunkStatsHandler)
	mux.Get("/api/stats", s.statsHandler)
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.httpError(w, r, fmt.Errorf("no API endpoint at %s: %w", r.URL.Path, errNotFound))
	})

	origins := s.config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead},
	})
	return c.Handler(mux)
}

var errNotFound = errors.New("not found")

// logRequests is middleware that logs each request with its elapsed time.
func (s *Server) logRequests(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		timedLog := dvid.NewTimeLog(s.log)
		h.ServeHTTP(w, r)
		timedLog.Debugf("HTTP %s: %s", r.Method, r.URL)
	}
	return http.HandlerFunc(fn)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, chunk.ErrOutOfBounds), errors.Is(err, chunk.ErrLengthMismatch):
		return http.StatusBadRequest
	case errors.Is(err, volume.ErrChunkMissing), errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoStore), errors.Is(err, storage.ErrNotListable):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// httpError writes an error response whose status reflects the kind of error.
func (s *Server) httpError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCode(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorf("%s %s: %v\n", r.Method, r.URL, err)
	} else {
		s.log.Debugf("%s %s: %v\n", r.Method, r.URL, err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseVoxel(c web.C) (dvid.Point3d, error) {
	var p dvid.Point3d
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.ParseInt(c.URLParams[name], 10, 32)
		if err != nil {
			return p, fmt.Errorf("bad %s coordinate %q: %w", name, c.URLParams[name], errBadRequest)
		}
		p[i] = int32(v)
	}
	return p, nil
}

func parseChunk(c web.C) (dvid.ChunkPoint2d, error) {
	coord, err := dvid.ParseChunkPoint2d(c.URLParams["cx"] + "," + c.URLParams["cy"])
	if err != nil {
		return coord, fmt.Errorf("%v: %w", err, errBadRequest)
	}
	return coord, nil
}

func queryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func (s *Server) helpHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, helpMessage)
}

type voxelValue struct {
	X     int32 `json:"x"`
	Y     int32 `json:"y"`
	Z     int32 `json:"z"`
	Value int   `json:"value"`
}

func (s *Server) getVoxelHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	p, err := parseVoxel(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	value, err := s.vol.GetValue(p[0], p[1], p[2])
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, voxelValue{p[0], p[1], p[2], value})
}

func (s *Server) postVoxelHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	p, err := parseVoxel(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	var req struct {
		Value int `json:"value"`
	}
	if err := decodeValidated(r, voxelWriteSchema, &req); err != nil {
		s.httpError(w, r, err)
		return
	}
	if err := s.vol.SetValue(p[0], p[1], p[2], req.Value); err != nil {
		s.httpError(w, r, err)
		return
	}
	coord, _ := volume.Resolve(p[0], p[1])
	s.pub.Publish(Mutation{Action: "set-voxel", Chunk: coord.String(), Voxel: &p, Value: &req.Value})
	writeJSON(w, voxelValue{p[0], p[1], p[2], req.Value})
}

// postVoxelsHandler applies a batch of writes in order while holding the volume.
// Writes before a failing one stay applied.
func (s *Server) postVoxelsHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var writes []voxelValue
	if err := decodeValidated(r, batchWriteSchema, &writes); err != nil {
		s.httpError(w, r, err)
		return
	}
	var applied int
	err := s.vol.Do(func(m *volume.Manager) error {
		for i, vw := range writes {
			if err := m.SetValue(vw.X, vw.Y, vw.Z, vw.Value); err != nil {
				return fmt.Errorf("write %d at (%d,%d,%d): %w", i, vw.X, vw.Y, vw.Z, err)
			}
			applied++
		}
		return nil
	})
	if applied > 0 {
		s.pub.Publish(Mutation{Action: "set-voxels", Voxels: applied})
	}
	if err != nil {
		s.httpError(w, r, fmt.Errorf("applied %d of %d writes: %w", applied, len(writes), err))
		return
	}
	writeJSON(w, map[string]int{"applied": applied})
}

func (s *Server) residentChunksHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.vol.Coords())
}

func (s *Server) storedChunksHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.httpError(w, r, ErrNoStore)
		return
	}
	lister, ok := s.store.(interface {
		Chunks(ctx context.Context) ([]dvid.ChunkPoint2d, error)
	})
	if !ok {
		s.httpError(w, r, storage.ErrNotListable)
		return
	}
	coords, err := lister.Chunks(r.Context())
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, coords)
}

func (s *Server) preloadHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		s.httpError(w, r, ErrNoStore)
		return
	}
	var req struct {
		Chunks  []dvid.ChunkPoint2d `json:"chunks"`
		Workers int                 `json:"workers"`
	}
	if err := decodeValidated(r, preloadSchema, &req); err != nil {
		s.httpError(w, r, err)
		return
	}
	if req.Workers == 0 {
		req.Workers = DefaultPreloadWorkers
	}
	built, err := s.loader.Preload(r.Context(), s.vol, req.Chunks, req.Workers)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, map[string]int{"requested": len(req.Chunks), "built": built})
}

func (s *Server) getChunkHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	coord, err := parseChunk(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	data, err := s.vol.Export(coord)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.log.Errorf("writing chunk %s: %v\n", coord, err)
	}
}

func (s *Server) putChunkHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	coord, err := parseChunk(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	save := queryFlag(r, "save")
	if save && s.store == nil {
		s.httpError(w, r, ErrNoStore)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, chunk.Full+1))
	if err != nil {
		s.httpError(w, r, fmt.Errorf("reading chunk %s: %v: %w", coord, err, errBadRequest))
		return
	}
	if err := s.vol.Build(coord, data); err != nil {
		s.httpError(w, r, err)
		return
	}
	if save {
		if err := s.store.PutChunk(r.Context(), coord, data); err != nil {
			s.httpError(w, r, err)
			return
		}
	}
	s.pub.Publish(Mutation{Action: "build-chunk", Chunk: coord.String()})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteChunkHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	coord, err := parseChunk(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	purge := queryFlag(r, "purge")
	if purge {
		if s.store == nil {
			s.httpError(w, r, ErrNoStore)
			return
		}
		if err := s.store.DeleteChunk(r.Context(), coord); err != nil {
			s.httpError(w, r, err)
			return
		}
	}
	removed := s.vol.Remove(coord)
	if !removed && !purge {
		s.httpError(w, r, fmt.Errorf("can't remove chunk %s: %w", coord, volume.ErrChunkMissing))
		return
	}
	s.pub.Publish(Mutation{Action: "remove-chunk", Chunk: coord.String()})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) compactHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	coord, err := parseChunk(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	removed, err := s.vol.Compact(coord)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, map[string]int{"removed": removed})
}

func (s *Server) saveHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	coord, err := parseChunk(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	if s.store == nil {
		s.httpError(w, r, ErrNoStore)
		return
	}
	if err := storage.Save(r.Context(), s.store, s.vol, coord); err != nil {
		s.httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) chunkStatsHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	coord, err := parseChunk(c)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	st, err := s.vol.ChunkStats(coord)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) statsHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	st := s.Stats()
	if strings.Contains(r.Header.Get("Accept"), MsgpackContentType) {
		b, err := st.MarshalMsg(nil)
		if err != nil {
			s.httpError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", MsgpackContentType)
		if _, err := w.Write(b); err != nil {
			s.log.Errorf("writing msgpack stats: %v\n", err)
		}
		return
	}
	writeJSON(w, st)
}
