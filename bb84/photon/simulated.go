package photon

import "math/rand"

// A RandSource draws bits and bases from a pRNG. It is not safe for
// concurrent use, and it is not suitable for anything but simulation.
type RandSource struct {
	r *rand.Rand
}

// NewSource returns a Source backed by r.
func NewSource(r *rand.Rand) *RandSource {
	return &RandSource{r: r}
}

// Bit implements Source.
func (s *RandSource) Bit() Bit {
	return Bit(s.r.Intn(2))
}

// Basis implements Source.
func (s *RandSource) Basis() Basis {
	return Basis(s.r.Intn(2))
}

// NewSimulatedSources returns an independent pRNG-backed Source for each of
// sender, receiver and eavesdropper, all derived from seed.
func NewSimulatedSources(seed int64) Sources {
	master := rand.New(rand.NewSource(seed))
	return Sources{
		Sender:       NewSource(rand.New(rand.NewSource(master.Int63()))),
		Receiver:     NewSource(rand.New(rand.NewSource(master.Int63()))),
		Eavesdropper: NewSource(rand.New(rand.NewSource(master.Int63()))),
	}
}

// Fixed returns a degenerate Source that always chooses bit and basis.
func Fixed(bit Bit, basis Basis) Source {
	return fixed{bit: bit, basis: basis}
}

type fixed struct {
	bit   Bit
	basis Basis
}

func (f fixed) Bit() Bit     { return f.bit }
func (f fixed) Basis() Basis { return f.basis }

// WithBasis returns a Source which always chooses basis, but otherwise defers
// to src for its bits.
func WithBasis(src Source, basis Basis) Source {
	return forcedBasis{Source: src, basis: basis}
}

type forcedBasis struct {
	Source
	basis Basis
}

func (f forcedBasis) Basis() Basis { return f.basis }
