package bb84

import (
	"errors"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// A RunOptions packages together the arguments necessary to construct a new
// Run.
type RunOptions struct {
	// Sources provides each party's randomness. Sender and Receiver must be
	// non-nil, as must Eavesdropper when Eavesdropper is set.
	Sources photon.Sources

	// Eavesdropper places an intercept-resend attacker on every photon of the
	// run.
	Eavesdropper bool

	// TargetKeyBits stops the run once this many key bits have been
	// collected. Defaults to DefaultTargetKeyBits.
	TargetKeyBits int

	// MaxPhotons stops the run once this many photons have been sent. A
	// budget of zero makes a run that is Done before its first photon.
	MaxPhotons int

	// KeyConvention selects whose bit is kept when bases agree. Defaults to
	// SenderKeyBit.
	KeyConvention KeyConvention
}

// A Run drives a single simulated exchange one photon at a time. The Run
// itself contains no timing: whoever owns it decides when to call Advance,
// and pausing is simply not calling it. A Run is not safe for concurrent use.
type Run struct {
	id     uuid.UUID
	opts   RunOptions
	events []Event
	stats  Stats
}

// RenderState is what a renderer needs to draw the most recent photon.
type RenderState struct {
	State         string
	SenderBasis   string
	ReceiverBasis string
}

// NewRun returns a new, empty Run configured in accordance with opts, or an
// error if the options are nonsensical.
func NewRun(opts RunOptions) (*Run, error) {
	if err := opts.Sources.Validate(opts.Eavesdropper); err != nil {
		return nil, err
	}
	if opts.TargetKeyBits == 0 {
		opts.TargetKeyBits = DefaultTargetKeyBits
	}
	if opts.TargetKeyBits < 0 {
		return nil, errors.New("TargetKeyBits must be positive")
	}
	if opts.MaxPhotons < 0 {
		return nil, errors.New("MaxPhotons must not be negative")
	}
	r := &Run{id: uuid.New(), opts: opts}
	r.logger().WithFields(logrus.Fields{
		"eavesdropper": opts.Eavesdropper,
		"target_bits":  opts.TargetKeyBits,
		"max_photons":  opts.MaxPhotons,
		"convention":   opts.KeyConvention.String(),
	}).Debug("Created run")
	return r, nil
}

// ID returns the identifier of r, which is stable across Reset.
func (r *Run) ID() uuid.UUID {
	return r.id
}

// Options returns the options r was built with, defaults applied.
func (r *Run) Options() RunOptions {
	return r.opts
}

// Done reports whether r has either collected its target number of key bits
// or exhausted its photon budget.
func (r *Run) Done() bool {
	return r.stats.FinalKeyBits >= r.opts.TargetKeyBits || r.stats.TotalPhotons >= r.opts.MaxPhotons
}

// Complete reports whether r collected its full target of key bits.
func (r *Run) Complete() bool {
	return r.stats.FinalKeyBits >= r.opts.TargetKeyBits
}

// Advance sends the next photon and returns its Event, or ErrRunComplete if
// r is Done.
func (r *Run) Advance() (Event, error) {
	if r.Done() {
		return Event{}, ErrRunComplete
	}
	e := Generate(len(r.events)+1, r.opts.Eavesdropper, r.opts.Sources, r.opts.KeyConvention)
	r.events = append(r.events, e)
	r.stats = r.stats.Accumulate(e)
	r.logger().WithFields(logrus.Fields{
		"photon":     e.Index,
		"same_basis": e.BasesMatch,
		"disturbed":  e.Disturbed,
		"key_bits":   r.stats.FinalKeyBits,
	}).Trace("Sent photon")
	if r.Done() {
		r.logger().WithFields(logrus.Fields{
			"photons":  r.stats.TotalPhotons,
			"key_bits": r.stats.FinalKeyBits,
			"complete": r.Key().Complete(),
		}).Info("Run finished")
	}
	return e, nil
}

// Finish advances r until it is Done, handing every Event to fn. It stops
// early, returning the error, if fn fails.
func (r *Run) Finish(fn func(Event) error) error {
	for {
		e, err := r.Advance()
		if errors.Is(err, ErrRunComplete) {
			return nil
		}
		if err != nil {
			return err
		}
		if fn == nil {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// Reset discards every photon sent so far.
func (r *Run) Reset() {
	r.logger().WithField("photons", r.stats.TotalPhotons).Debug("Resetting run")
	r.events = nil
	r.stats = Stats{}
}

// Stats returns the counters accumulated so far.
func (r *Run) Stats() Stats {
	return r.stats
}

// Events returns a deep copy of the events generated so far, in index order.
func (r *Run) Events() []Event {
	events := make([]Event, len(r.events))
	for i, e := range r.events {
		events[i] = e.clone()
	}
	return events
}

// Key extracts the shared key from the events generated so far.
func (r *Run) Key() Key {
	return ExtractKey(r.events, r.opts.TargetKeyBits)
}

// Render describes the most recently sent photon. Before the first photon it
// describes |0⟩ in the rectilinear basis on both sides.
func (r *Run) Render() RenderState {
	if len(r.events) == 0 {
		return RenderState{
			State:         photon.State(0, photon.Rectilinear),
			SenderBasis:   photon.Rectilinear.String(),
			ReceiverBasis: photon.Rectilinear.String(),
		}
	}
	e := r.events[len(r.events)-1]
	return RenderState{
		State:         e.State(),
		SenderBasis:   e.SenderBasis.String(),
		ReceiverBasis: e.ReceiverBasis.String(),
	}
}

func (r *Run) logger() *logrus.Entry {
	return logrus.WithField("run", r.id.String())
}
