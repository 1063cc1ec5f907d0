// Package bitmap provides utilities for operating on densely-packed arrays of
// booleans.
package bitmap

import (
	"fmt"
	"math/bits"
)

// TODO: this could be more efficient on many architectures if we used larger
//   blocks than 8-bit bytes.
const byteSize = 8

// Select selects a subset of bits from data, according to which bits are set in
// mask.
func Select(data, mask Dense) Dense {
	var d Dense
	for i := 0; i < data.Size(); i++ {
		if !mask.Get(i) {
			continue
		}
		d.AppendBit(data.Get(i))
	}
	return d
}

// FromString converts a string of '1's and '0's to a Dense. Spaces are
// ignored, so that grouped renderings like "0101 1100" parse.
func FromString(s string) (Dense, error) {
	d := Dense{}
	for _, c := range s {
		switch c {
		case '1':
			d.AppendBit(true)
		case '0':
			d.AppendBit(false)
		case ' ':
			continue
		default:
			return Dense{}, fmt.Errorf("invalid bitmap string rep: %q", s)
		}
	}
	return d, nil
}

// CountOnes returns the total number of bits set in d.
func CountOnes(d Dense) int {
	var sum int
	for _, b := range d.bits {
		sum += bits.OnesCount8(b)
	}
	return sum
}

// Slice copies bits [start, end) of d into a new bitmap.
func Slice(d Dense, start, end int) (Dense, error) {
	if start < 0 {
		return Dense{}, fmt.Errorf("slicing bitmap with negative start: %d", start)
	}
	if end < start {
		return Dense{}, fmt.Errorf("slicing bitmap to negative length: %d", end-start)
	}
	if end > d.len {
		return Dense{}, fmt.Errorf("slicing bitmap of len %d up to %d", d.len, end)
	}
	r := Dense{bits: make([]byte, 0, BytesFor(end-start))}
	for i := start; i < end; i++ {
		r.AppendBit(d.Get(i))
	}
	return r, nil
}

// BytesFor returns the number of bytes necessary to hold the provided number of
// bits.
func BytesFor(bits int) int {
	return (bits + byteSize - 1) / byteSize
}
