package bitmap

import (
	"math/rand"
	"strings"
)

// A Dense is a bitmap where every bit is explicitly represented. Bits are
// stored little-endian within each byte.
type Dense struct {
	bits []byte
	len  int
}

// Get returns the i-th bit in this bitmap. Bits past the end read as zero.
func (d Dense) Get(i int) bool {
	if i < 0 || i >= d.len {
		return false
	}
	j, pos := i/byteSize, i%byteSize
	if j >= len(d.bits) {
		return false
	}
	return 0 < d.bits[j]&(1<<pos)
}

// Size returns the number of bits in this bitmap.
func (d Dense) Size() int {
	return d.len
}

// Data returns a view of the bytes underlying this bitmap. Modifying the
// returned slice modifies this bitmap.
func (d Dense) Data() []byte {
	return d.bits
}

// String renders d as a string of '0' and '1' characters in bit order.
func (d Dense) String() string {
	var sb strings.Builder
	sb.Grow(d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Shuffle randomly permutes the contents of d, using r as a source of
// randomness.
func (d *Dense) Shuffle(r *rand.Rand) {
	r.Shuffle(d.len, d.swap)
}

func (d *Dense) swap(i, j int) {
	a, b := d.Get(i), d.Get(j)
	if a == b {
		return
	}
	d.Flip(i)
	d.Flip(j)
}

// Flip inverts the i-th bit.
func (d *Dense) Flip(i int) {
	j, pos := i/byteSize, i%byteSize
	d.bits[j] ^= 1 << pos
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	i, pos := d.len/byteSize, d.len%byteSize
	d.len += 1
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[i] |= 1 << pos
	} else {
		d.bits[i] &= ^(1 << pos)
	}
}
