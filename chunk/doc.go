/*
Package chunk stores one fixed-shape column of voxels as 4-bit palette values packed two
per byte and run-length encoded.  Point reads and writes operate directly on the runs
without expanding the chunk.

A chunk is 16 voxels along x and y and 384 voxels along z, where z spans [-64, 320).
Raw chunk data is one byte per voxel ordered with x outermost, then z, then y innermost.
*/
package chunk
