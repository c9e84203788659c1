package chunk

import (
	"math"
	"slices"
)

// MaxRunLength is the longest span of identical bytes a single run can describe.
const MaxRunLength = math.MaxUint16 + 1

// Run is a span of identical packed bytes.  Length holds the run length minus one
// so a full uint16 can describe spans of up to MaxRunLength bytes.
type Run struct {
	Value  byte
	Length uint16
}

// Count returns the actual number of bytes the run covers.
func (r Run) Count() int {
	return int(r.Length) + 1
}

// Runs is an ordered sequence of runs covering a packed byte array.
type Runs []Run

// EncodeRuns run-length encodes packed bytes.  Spans longer than MaxRunLength are
// split into adjacent runs with the same value.
func EncodeRuns(packed []byte) Runs {
	if len(packed) == 0 {
		return Runs{}
	}
	runs := make(Runs, 0, 16)
	cur := packed[0]
	n := 1
	for _, b := range packed[1:] {
		if b == cur && n < MaxRunLength {
			n++
			continue
		}
		runs = append(runs, Run{cur, uint16(n - 1)})
		cur = b
		n = 1
	}
	return append(runs, Run{cur, uint16(n - 1)})
}

// Len returns the number of bytes covered by the runs.
func (r Runs) Len() int {
	var n int
	for _, run := range r {
		n += run.Count()
	}
	return n
}

// Decode expands the runs into the packed byte array they describe.
func (r Runs) Decode() []byte {
	packed := make([]byte, 0, r.Len())
	for _, run := range r {
		for i := 0; i < run.Count(); i++ {
			packed = append(packed, run.Value)
		}
	}
	return packed
}

// DecodeAt returns the run covering the given byte offset: its value, index in the
// run slice, stored length, and the byte offset where the run starts.  It panics with
// an *InconsistencyError if no run covers the offset.
func (r Runs) DecodeAt(offset int) (value byte, index int, length uint16, start int) {
	if offset >= 0 {
		for i, run := range r {
			end := start + run.Count()
			if offset < end {
				return run.Value, i, run.Length, start
			}
			start = end
		}
	}
	panic(&InconsistencyError{Offset: offset, Covered: r.Len()})
}

// UpdateAt sets the packed byte at offset to value.  A run that already holds the
// value is left alone and a single-byte run is overwritten in place.  Otherwise the
// covering run is split into a left remainder, a single-byte run of the new value,
// and a right remainder; empty remainders are not emitted.  Adjacent runs that end up
// with equal values are not merged; see Compact.
func (r *Runs) UpdateAt(offset int, value byte) {
	old, i, length, start := r.DecodeAt(offset)
	if old == value {
		return
	}
	if length == 0 {
		(*r)[i].Value = value
		return
	}
	left := offset - start
	right := int(length) - left // bytes after offset within the run

	split := make([]Run, 0, 3)
	if left > 0 {
		split = append(split, Run{old, uint16(left - 1)})
	}
	split = append(split, Run{value, 0})
	if right > 0 {
		split = append(split, Run{old, uint16(right - 1)})
	}
	*r = slices.Replace(*r, i, i+1, split...)
}

// Compact merges adjacent runs with equal values where the merged run still fits
// in MaxRunLength.  It returns the number of runs removed.
func (r *Runs) Compact() int {
	runs := *r
	if len(runs) < 2 {
		return 0
	}
	out := runs[:1]
	for _, run := range runs[1:] {
		last := &out[len(out)-1]
		if last.Value == run.Value && last.Count()+run.Count() <= MaxRunLength {
			last.Length += run.Length + 1
			continue
		}
		out = append(out, run)
	}
	removed := len(runs) - len(out)
	*r = slices.Clip(out)
	return removed
}
