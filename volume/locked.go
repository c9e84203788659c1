package volume

import (
	"sync"

	"github.com/janelia-flyem/voxchunk/chunk"
	"github.com/janelia-flyem/voxchunk/dvid"
)

// Locked serializes all access to a Manager with one mutex.  A read that misses holds
// the lock while the Loader runs.
type Locked struct {
	mu sync.Mutex
	m  *Manager
}

// NewLocked wraps m.  The caller should not use m directly afterwards.
func NewLocked(m *Manager) *Locked {
	return &Locked{m: m}
}

// Do runs f with exclusive access to the Manager.
func (l *Locked) Do(f func(m *Manager) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return f(l.m)
}

// Get returns the voxel at global coordinates, loading its chunk if needed.
func (l *Locked) Get(x, y, z int32) (Voxel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Get(x, y, z)
}

// Set writes a voxel.  It never loads.
func (l *Locked) Set(x, y, z int32, v Voxel) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Set(x, y, z, v)
}

// GetValue is Get using -1 for empty and the palette id otherwise.
func (l *Locked) GetValue(x, y, z int32) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.GetValue(x, y, z)
}

// SetValue is Set taking -1 for empty and the palette id otherwise.
func (l *Locked) SetValue(x, y, z int32, value int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.SetValue(x, y, z, value)
}

// Build replaces the chunk at c with one built from raw voxel data.
func (l *Locked) Build(c dvid.ChunkPoint2d, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Build(c, data)
}

// BuildIfAbsent builds the chunk at c unless it is resident.  The check and the
// build happen under one lock acquisition.
func (l *Locked) BuildIfAbsent(c dvid.ChunkPoint2d, data []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.BuildIfAbsent(c, data)
}

// Remove evicts the chunk at c and reports whether it was resident.
func (l *Locked) Remove(c dvid.ChunkPoint2d) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Remove(c)
}

// Has reports whether the chunk at c is resident.
func (l *Locked) Has(c dvid.ChunkPoint2d) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Has(c)
}

// Coords lists resident chunks.
func (l *Locked) Coords() []dvid.ChunkPoint2d {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Coords()
}

// Export returns the raw voxel data of a resident chunk.
func (l *Locked) Export(c dvid.ChunkPoint2d) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Export(c)
}

// Compact merges adjacent equal runs and returns how many were removed.
func (l *Locked) Compact(c dvid.ChunkPoint2d) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Compact(c)
}

// ChunkStats describes one resident chunk.
func (l *Locked) ChunkStats(c dvid.ChunkPoint2d) (chunk.Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.ChunkStats(c)
}

// Stats summarizes the resident chunks.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Stats()
}
