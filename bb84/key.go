package bb84

import "github.com/alan-christopher/bb84sim/bb84/bitmap"

// A Key is the sifted bit string shared by sender and receiver after basis
// reconciliation.
type Key struct {
	bits   bitmap.Dense
	target int
}

// ExtractKey concatenates the key bits of events, in transmission order, up
// to targetBits of them. If there are not enough, the returned Key is short
// and reports !Complete().
func ExtractKey(events []Event, targetBits int) Key {
	var bits, sifted bitmap.Dense
	for _, e := range events {
		sifted.AppendBit(e.HasKeyBit())
		bits.AppendBit(e.HasKeyBit() && *e.KeyBit == 1)
	}
	key := bitmap.Select(bits, sifted)
	if targetBits < 0 {
		targetBits = 0
	}
	if key.Size() > targetBits {
		// Within bounds by construction.
		key, _ = bitmap.Slice(key, 0, targetBits)
	}
	return Key{bits: key, target: targetBits}
}

// Size returns the number of bits in k.
func (k Key) Size() int {
	return k.bits.Size()
}

// Target returns the number of bits k was meant to hold.
func (k Key) Target() int {
	return k.target
}

// Complete reports whether k reached its target length.
func (k Key) Complete() bool {
	return k.target > 0 && k.bits.Size() == k.target
}

// Bits returns the bits of k.
func (k Key) Bits() bitmap.Dense {
	return k.bits
}

// String renders k as a string of '0' and '1' characters.
func (k Key) String() string {
	return k.bits.String()
}
