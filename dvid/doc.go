/*
Package dvid provides types, constants, and functions that have no other dependencies
and can be used by all packages within voxchunk.  This includes point and chunk
coordinate math, leveled logging, and serialization with optional compression.
*/
package dvid
