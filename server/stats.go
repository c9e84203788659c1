package server

//go:generate msgp -tests=false

import (
	"github.com/janelia-flyem/voxchunk/volume"
)

// MsgpackContentType is the Accept value selecting a msgpack stats response.
const MsgpackContentType = "application/x-msgpack"

// Stats is the response of the stats endpoint.  The msgpack encoding uses the same
// field names as the JSON one.
type Stats struct {
	Chunks        int     `msg:"chunks" json:"chunks"`
	Runs          int     `msg:"runs" json:"runs"`
	EncodedBytes  int     `msg:"encoded_bytes" json:"encoded_bytes"`
	MemoryBytes   int     `msg:"memory_bytes" json:"memory_bytes"`
	Ratio         float64 `msg:"ratio" json:"ratio"`
	Store         string  `msg:"store" json:"store,omitempty"`
	CacheHits     int64   `msg:"cache_hits" json:"cache_hits"`
	CacheMisses   int64   `msg:"cache_misses" json:"cache_misses"`
	CacheEntries  int64   `msg:"cache_entries" json:"cache_entries"`
	UptimeSeconds float64 `msg:"uptime_seconds" json:"uptime_seconds"`
}

func newStats(vs volume.Stats) Stats {
	return Stats{
		Chunks:       vs.Chunks,
		Runs:         vs.Runs,
		EncodedBytes: vs.EncodedBytes,
		MemoryBytes:  vs.MemoryBytes,
		Ratio:        vs.Ratio,
	}
}

// VolumeStats returns the resident chunk portion of the stats.
func (s Stats) VolumeStats() volume.Stats {
	return volume.Stats{
		Chunks:       s.Chunks,
		Runs:         s.Runs,
		EncodedBytes: s.EncodedBytes,
		MemoryBytes:  s.MemoryBytes,
		Ratio:        s.Ratio,
	}
}
