// Package photon provides the polarization vocabulary and the per-party
// randomness used to simulate BB84 photon exchanges.
package photon

import "fmt"

// A Bit is a single logical bit value, 0 or 1.
type Bit byte

// A Basis is one of the two conjugate bases a photon can be prepared or
// measured in.
type Basis byte

const (
	// Rectilinear is the "+" basis: |0⟩ and |1⟩.
	Rectilinear Basis = iota
	// Diagonal is the "×" basis: |+⟩ and |-⟩.
	Diagonal
)

// String returns the symbol conventionally used for b.
func (b Basis) String() string {
	if b == Diagonal {
		return "×"
	}
	return "+"
}

// ParseBasis converts a basis symbol back into a Basis. Both "×" and "x" are
// accepted for the diagonal basis.
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "+":
		return Rectilinear, nil
	case "×", "x":
		return Diagonal, nil
	}
	return 0, fmt.Errorf("unknown basis symbol %q", s)
}

// State returns the label of the quantum state used to encode bit in basis.
func State(bit Bit, basis Basis) string {
	switch {
	case basis == Rectilinear && bit == 0:
		return "|0⟩"
	case basis == Rectilinear:
		return "|1⟩"
	case bit == 0:
		return "|+⟩"
	default:
		return "|-⟩"
	}
}

// A Source provides the random choices of one party to an exchange. Every
// call is independent of every other.
type Source interface {
	// Bit returns a uniformly random bit.
	Bit() Bit
	// Basis returns a uniformly random basis.
	Basis() Basis
}

// Sources packages together the Source of each party to an exchange.
type Sources struct {
	Sender   Source
	Receiver Source

	// Eavesdropper may be nil when no eavesdropper takes part.
	Eavesdropper Source
}

// Validate reports whether every source the exchange will draw from is
// present.
func (s Sources) Validate(eavesdropper bool) error {
	if s.Sender == nil {
		return fmt.Errorf("must provide Sender source")
	}
	if s.Receiver == nil {
		return fmt.Errorf("must provide Receiver source")
	}
	if eavesdropper && s.Eavesdropper == nil {
		return fmt.Errorf("must provide Eavesdropper source when eavesdropping")
	}
	return nil
}
