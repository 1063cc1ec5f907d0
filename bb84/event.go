package bb84

import "github.com/alan-christopher/bb84sim/bb84/photon"

// An Interception records what an intercept-resend eavesdropper did to a
// single photon.
type Interception struct {
	Basis       photon.Basis
	Measurement photon.Bit
}

// An Event is the complete record of one simulated photon transmission.
type Event struct {
	// Index is 1-based and strictly increasing within a run.
	Index int

	SenderBit     photon.Bit
	SenderBasis   photon.Basis
	ReceiverBasis photon.Basis
	ReceiverBit   photon.Bit

	// Eavesdropper is non-nil iff the photon was intercepted.
	Eavesdropper *Interception

	BasesMatch bool
	// BitsMatch is only ever true when BasesMatch is.
	BitsMatch bool
	// Disturbed is true iff the eavesdropper measured in the wrong basis.
	Disturbed bool

	// KeyBit is non-nil iff BasesMatch.
	KeyBit *photon.Bit
}

// EavesdropperPresent reports whether e was intercepted.
func (e Event) EavesdropperPresent() bool {
	return e.Eavesdropper != nil
}

// HasKeyBit reports whether e contributes a bit to the shared key.
func (e Event) HasKeyBit() bool {
	return e.KeyBit != nil
}

// Error reports whether the sender and receiver chose the same basis but
// still disagree on the bit.
func (e Event) Error() bool {
	return e.BasesMatch && e.SenderBit != e.ReceiverBit
}

// State returns the label of the quantum state the sender prepared.
func (e Event) State() string {
	return photon.State(e.SenderBit, e.SenderBasis)
}

// clone returns a copy of e that shares no pointers with it.
func (e Event) clone() Event {
	if e.Eavesdropper != nil {
		ic := *e.Eavesdropper
		e.Eavesdropper = &ic
	}
	if e.KeyBit != nil {
		kb := *e.KeyBit
		e.KeyBit = &kb
	}
	return e
}

// Generate simulates the transmission of photon number index. Every party
// draws only from its own source in src; src must satisfy
// src.Validate(eavesdropper).
func Generate(index int, eavesdropper bool, src photon.Sources, conv KeyConvention) Event {
	e := Event{
		Index:         index,
		SenderBit:     src.Sender.Bit(),
		SenderBasis:   src.Sender.Basis(),
		ReceiverBasis: src.Receiver.Basis(),
	}

	if eavesdropper {
		// Eve measures, collapsing the state, then resends what she saw in
		// her own basis.
		ic := &Interception{Basis: src.Eavesdropper.Basis()}
		if ic.Basis == e.SenderBasis {
			ic.Measurement = e.SenderBit
		} else {
			ic.Measurement = src.Eavesdropper.Bit()
			e.Disturbed = true
		}
		e.Eavesdropper = ic
		e.ReceiverBit = measure(ic.Measurement, ic.Basis, e.ReceiverBasis, src.Receiver)
	} else {
		e.ReceiverBit = measure(e.SenderBit, e.SenderBasis, e.ReceiverBasis, src.Receiver)
	}

	e.BasesMatch = e.SenderBasis == e.ReceiverBasis
	e.BitsMatch = e.BasesMatch && e.SenderBit == e.ReceiverBit
	if e.BasesMatch {
		kb := e.SenderBit
		if conv == ReceiverKeyBit {
			kb = e.ReceiverBit
		}
		e.KeyBit = &kb
	}
	return e
}

// measure returns the outcome of measuring a photon prepared as bit in basis
// prep, using basis meas. A mismatched measurement yields a fresh random bit
// drawn from the measuring party's source.
func measure(bit photon.Bit, prep, meas photon.Basis, measurer photon.Source) photon.Bit {
	if prep == meas {
		return bit
	}
	return measurer.Bit()
}
