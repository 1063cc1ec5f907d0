// Package bb84 simulates the photon exchange of the BB84 quantum key
// distribution protocol, optionally under an intercept-resend attack, and
// provides the statistics used to detect such an attack.
//
// Nothing in this package is cryptographically secure. Randomness comes from
// whatever photon.Source the caller supplies, and quantum states are labels.
package bb84

import (
	"errors"
	"fmt"
)

var (
	DefaultTargetKeyBits    = 256
	DefaultMaxPhotons       = 1024
	DefaultAnalysisPhotons  = 256
	DefaultSampleSize       = 32
	DefaultThresholdPercent = 11.0
	DefaultConfidence       = 0.95
)

// ErrRunComplete is returned by Run.Advance once the run has either collected
// its target number of key bits or exhausted its photon budget.
var ErrRunComplete = errors.New("run complete")

// A KeyConvention selects which party's bit becomes the key bit when the
// sender's and receiver's bases agree.
type KeyConvention int

const (
	// SenderKeyBit keeps the sender's bit, as the sender would.
	SenderKeyBit KeyConvention = iota
	// ReceiverKeyBit keeps the receiver's measured bit, as the receiver
	// would. Under eavesdropping this is the only convention in which errors
	// show up in the key itself.
	ReceiverKeyBit
)

func (c KeyConvention) String() string {
	if c == ReceiverKeyBit {
		return "receiver"
	}
	return "sender"
}

// ParseKeyConvention parses "sender" or "receiver".
func ParseKeyConvention(s string) (KeyConvention, error) {
	switch s {
	case "sender", "":
		return SenderKeyBit, nil
	case "receiver":
		return ReceiverKeyBit, nil
	}
	return SenderKeyBit, fmt.Errorf("unknown key convention %q", s)
}
