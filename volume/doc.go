/*
Package volume addresses voxels by global coordinates on top of fixed-size
chunks.  A Manager owns every resident chunk, keyed by its horizontal chunk coordinate,
and splits a global (x, y) into a chunk coordinate and a local coordinate using floor
division, so negative coordinates land in the chunk that actually contains them.
Global x and y are int32, so a volume spans [-2^31, 2^31) voxels on each horizontal
axis, which is chunk coordinates [-2^27, 2^27).

Chunks that are not resident may be supplied on read by an injected Loader.  Writes never
trigger a load.  A Manager has no internal synchronization; wrap it in a Locked to share
it between goroutines.
*/
package volume
