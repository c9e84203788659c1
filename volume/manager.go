package volume

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/janelia-flyem/voxchunk/chunk"
	"github.com/janelia-flyem/voxchunk/dvid"
)

// ErrChunkMissing is returned when an operation addresses a chunk that is not resident
// and could not be loaded.  Callers may build or load the chunk and retry.
var ErrChunkMissing = errors.New("chunk not resident")

// ChunkSize is the horizontal extent of a chunk in voxels.
var ChunkSize = dvid.Point2d{chunk.Width, chunk.Width}

// Loader supplies chunks that are not resident.  LoadChunk returns the raw voxel data
// (chunk.Full bytes) for the chunk, or nil data and nil error if the chunk isn't
// available.  It is consulted once per missing-chunk read.
type Loader interface {
	LoadChunk(c dvid.ChunkPoint2d) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(c dvid.ChunkPoint2d) ([]byte, error)

func (f LoaderFunc) LoadChunk(c dvid.ChunkPoint2d) ([]byte, error) {
	return f(c)
}

// NoLoader declines every request.
type NoLoader struct{}

func (NoLoader) LoadChunk(dvid.ChunkPoint2d) ([]byte, error) {
	return nil, nil
}

// Resolve splits a global horizontal coordinate into the containing chunk and the
// coordinate within that chunk.  Every int32 coordinate resolves without overflow.
func Resolve(x, y int32) (dvid.ChunkPoint2d, dvid.Point2d) {
	p := dvid.Point2d{x, y}
	return p.Chunk(ChunkSize), p.PointInChunk(ChunkSize)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLoader sets the Loader consulted when a read misses.
func WithLoader(l Loader) Option {
	return func(m *Manager) {
		if l == nil {
			l = NoLoader{}
		}
		m.loader = l
	}
}

// WithLogger sets the logger used for chunk lifecycle and access tracing.
func WithLogger(l dvid.Logger) Option {
	return func(m *Manager) {
		if l == nil {
			l = dvid.NopLogger{}
		}
		m.log = l
	}
}

// Manager owns all resident chunks.  It is not safe for concurrent use.
type Manager struct {
	chunks map[dvid.ChunkPoint2d]*chunk.Chunk
	loader Loader
	log    dvid.Logger
}

// NewManager returns an empty Manager.  Without options it never loads chunks and
// discards log output.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		chunks: make(map[dvid.ChunkPoint2d]*chunk.Chunk),
		loader: NoLoader{},
		log:    dvid.NopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the voxel at a global coordinate.  If the containing chunk isn't
// resident the Loader is asked for it once before failing with ErrChunkMissing.
func (m *Manager) Get(x, y, z int32) (Voxel, error) {
	c, local := Resolve(x, y)
	m.log.Debugf("get (%d,%d,%d) -> chunk %s local (%d,%d,%d)\n", x, y, z, c, local[0], local[1], z)
	ch, found := m.chunks[c]
	if !found {
		loaded, err := m.load(c)
		if err != nil {
			return Empty, err
		}
		if ch, found = m.chunks[c]; !loaded || !found {
			return Empty, fmt.Errorf("can't get voxel (%d,%d,%d) in chunk %s: %w", x, y, z, c, ErrChunkMissing)
		}
	}
	v, err := ch.Get(local[0], local[1], z)
	if err != nil {
		return Empty, err
	}
	return FromStored(v), nil
}

// Set writes the voxel at a global coordinate.  The containing chunk must already be
// resident; writes never load chunks.
func (m *Manager) Set(x, y, z int32, v Voxel) error {
	stored, ok := v.Stored()
	if !ok {
		return fmt.Errorf("can't store %s at (%d,%d,%d): %w", v, x, y, z, chunk.ErrOutOfBounds)
	}
	c, local := Resolve(x, y)
	m.log.Debugf("set (%d,%d,%d) = %s -> chunk %s local (%d,%d,%d)\n", x, y, z, v, c, local[0], local[1], z)
	ch, found := m.chunks[c]
	if !found {
		return fmt.Errorf("can't set voxel (%d,%d,%d) in chunk %s: %w", x, y, z, c, ErrChunkMissing)
	}
	return ch.Set(local[0], local[1], z, stored)
}

// GetValue is Get using -1 for empty and the palette id otherwise.
func (m *Manager) GetValue(x, y, z int32) (int, error) {
	v, err := m.Get(x, y, z)
	if err != nil {
		return 0, err
	}
	return v.Value(), nil
}

// SetValue is Set taking -1 for empty or a palette id in [0,14].
func (m *Manager) SetValue(x, y, z int32, value int) error {
	v, err := FromValue(value)
	if err != nil {
		return err
	}
	return m.Set(x, y, z, v)
}

// Build creates the chunk at c from raw voxel data, or wholly replaces the contents of
// an existing chunk.  Nothing from a replaced chunk survives.
func (m *Manager) Build(c dvid.ChunkPoint2d, data []byte) error {
	if ch, found := m.chunks[c]; found {
		if err := ch.Populate(data); err != nil {
			return fmt.Errorf("can't replace chunk %s: %w", c, err)
		}
		m.log.Debugf("Replaced contents of chunk %s\n", c)
		return nil
	}
	ch, err := chunk.New(data)
	if err != nil {
		return fmt.Errorf("can't build chunk %s: %w", c, err)
	}
	m.chunks[c] = ch
	m.log.Debugf("Built chunk %s, %d resident\n", c, len(m.chunks))
	return nil
}

// BuildIfAbsent creates the chunk at c from raw voxel data unless it is already
// resident, and reports whether it built one.  A resident chunk is left untouched.
func (m *Manager) BuildIfAbsent(c dvid.ChunkPoint2d, data []byte) (bool, error) {
	if _, found := m.chunks[c]; found {
		return false, nil
	}
	if err := m.Build(c, data); err != nil {
		return false, err
	}
	return true, nil
}

// Remove evicts the chunk at c and returns true if it was resident.
func (m *Manager) Remove(c dvid.ChunkPoint2d) bool {
	if _, found := m.chunks[c]; !found {
		return false
	}
	delete(m.chunks, c)
	m.log.Debugf("Removed chunk %s, %d resident\n", c, len(m.chunks))
	return true
}

// Has returns true if the chunk at c is resident.
func (m *Manager) Has(c dvid.ChunkPoint2d) bool {
	_, found := m.chunks[c]
	return found
}

// Len returns the number of resident chunks.
func (m *Manager) Len() int {
	return len(m.chunks)
}

// Coords returns the coordinates of all resident chunks in ascending order.
func (m *Manager) Coords() []dvid.ChunkPoint2d {
	coords := make([]dvid.ChunkPoint2d, 0, len(m.chunks))
	for c := range m.chunks {
		coords = append(coords, c)
	}
	slices.SortFunc(coords, func(a, b dvid.ChunkPoint2d) int {
		return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]))
	})
	return coords
}

// Export returns the raw voxel data of a resident chunk.
func (m *Manager) Export(c dvid.ChunkPoint2d) ([]byte, error) {
	ch, found := m.chunks[c]
	if !found {
		return nil, fmt.Errorf("can't export chunk %s: %w", c, ErrChunkMissing)
	}
	return ch.Export(), nil
}

// Compact merges equal adjacent runs in a resident chunk and returns the number
// of runs removed.
func (m *Manager) Compact(c dvid.ChunkPoint2d) (int, error) {
	ch, found := m.chunks[c]
	if !found {
		return 0, fmt.Errorf("can't compact chunk %s: %w", c, ErrChunkMissing)
	}
	removed := ch.Compact()
	m.log.Debugf("Compacted chunk %s, removed %d runs\n", c, removed)
	return removed, nil
}

// ChunkStats returns storage statistics for a resident chunk.
func (m *Manager) ChunkStats(c dvid.ChunkPoint2d) (chunk.Stats, error) {
	ch, found := m.chunks[c]
	if !found {
		return chunk.Stats{}, fmt.Errorf("can't get stats for chunk %s: %w", c, ErrChunkMissing)
	}
	return ch.Stats(), nil
}

// Stats aggregates storage statistics over resident chunks.
type Stats struct {
	Chunks       int     `json:"chunks"`
	Runs         int     `json:"runs"`
	EncodedBytes int     `json:"encoded_bytes"`
	MemoryBytes  int     `json:"memory_bytes"`
	Ratio        float64 `json:"ratio"`
}

func (s Stats) String() string {
	return fmt.Sprintf("%d chunks, %d runs, %s encoded, %s in memory (%.1fx)",
		s.Chunks, s.Runs, dvid.HumanBytes(s.EncodedBytes), dvid.HumanBytes(s.MemoryBytes), s.Ratio)
}

// Stats returns aggregate statistics over all resident chunks.
func (m *Manager) Stats() Stats {
	s := Stats{Chunks: len(m.chunks)}
	for _, ch := range m.chunks {
		cs := ch.Stats()
		s.Runs += cs.Runs
		s.EncodedBytes += cs.EncodedBytes
		s.MemoryBytes += cs.MemoryBytes
	}
	if s.EncodedBytes > 0 {
		s.Ratio = float64(s.Chunks*chunk.Full) / float64(s.EncodedBytes)
	}
	return s
}

func (m *Manager) load(c dvid.ChunkPoint2d) (bool, error) {
	data, err := m.loader.LoadChunk(c)
	if err != nil {
		return false, fmt.Errorf("loading chunk %s: %w", c, err)
	}
	if data == nil {
		m.log.Debugf("Loader declined chunk %s\n", c)
		return false, nil
	}
	if err := m.Build(c, data); err != nil {
		return false, err
	}
	m.log.Infof("Loaded chunk %s\n", c)
	return true, nil
}
