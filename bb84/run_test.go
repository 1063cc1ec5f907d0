package bb84

import (
	"errors"
	"strings"
	"testing"

	"github.com/alan-christopher/bb84sim/bb84/photon"
)

func TestNewRunValidation(t *testing.T) {
	src := photon.NewSimulatedSources(1)
	tcs := []struct {
		name string
		opts RunOptions
		eErr bool
	}{
		{"defaults", RunOptions{Sources: src}, false},
		{"missing sender", RunOptions{Sources: photon.Sources{Receiver: src.Receiver}}, true},
		{"missing eavesdropper", RunOptions{
			Sources:      photon.Sources{Sender: src.Sender, Receiver: src.Receiver},
			Eavesdropper: true,
		}, true},
		{"negative target", RunOptions{Sources: src, TargetKeyBits: -1}, true},
		{"negative budget", RunOptions{Sources: src, MaxPhotons: -1}, true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRun(tc.opts)
			if !tc.eErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tc.eErr && err == nil {
				t.Errorf("expected error: got nil")
			}
		})
	}

	r, err := NewRun(RunOptions{Sources: src})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if o := r.Options(); o.TargetKeyBits != DefaultTargetKeyBits || o.MaxPhotons != 0 {
		t.Errorf("unexpected options: %+v", o)
	}
}

func TestRunWithZeroPhotonBudget(t *testing.T) {
	r, err := NewRun(RunOptions{Sources: photon.NewSimulatedSources(1), MaxPhotons: 0})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if !r.Done() {
		t.Errorf("Done() == false with no photons to send")
	}
	if _, err := r.Advance(); !errors.Is(err, ErrRunComplete) {
		t.Errorf("Advance() == %v, want ErrRunComplete", err)
	}
	if err := r.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if s := r.Stats(); s != (Stats{}) || s.ErrorRate() != 0 {
		t.Errorf("Stats() == %+v, want zero", s)
	}
	if k := r.Key(); k.Size() != 0 || k.Complete() {
		t.Errorf("Key() == %q (complete %v), want empty", k, k.Complete())
	}
}

func TestRunStopsAtTargetKeyBits(t *testing.T) {
	zeroPlus := photon.Fixed(0, photon.Rectilinear)
	r, err := NewRun(RunOptions{Sources: photon.Sources{Sender: zeroPlus, Receiver: zeroPlus}, MaxPhotons: DefaultMaxPhotons})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if err := r.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if got := r.Stats().TotalPhotons; got != 256 {
		t.Errorf("sent %d photons, want 256", got)
	}
	if !r.Complete() {
		t.Errorf("Complete() == false after collecting the target")
	}
	if _, err := r.Advance(); !errors.Is(err, ErrRunComplete) {
		t.Errorf("Advance() after completion == %v, want ErrRunComplete", err)
	}
	if got := r.Key().String(); got != strings.Repeat("0", 256) {
		t.Errorf("Key() == %q, want 256 zeros", got)
	}
}

func TestRunStopsAtPhotonBudget(t *testing.T) {
	r, err := NewRun(RunOptions{Sources: photon.NewSimulatedSources(5), MaxPhotons: 300})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	var last int
	err = r.Finish(func(e Event) error {
		if e.Index != last+1 {
			t.Errorf("photon %d followed photon %d", e.Index, last)
		}
		last = e.Index
		return nil
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	s := r.Stats()
	if s.TotalPhotons != 300 {
		t.Errorf("sent %d photons, want 300", s.TotalPhotons)
	}
	// ~150 key bits are expected from 300 photons; 256 would be absurd.
	k := r.Key()
	if r.Complete() || k.Complete() {
		t.Errorf("want incomplete key, got %d bits", k.Size())
	}
	if k.Size() != s.FinalKeyBits {
		t.Errorf("key has %d bits, stats say %d", k.Size(), s.FinalKeyBits)
	}
	if Replay(r.Events()) != s {
		t.Errorf("Replay(Events()) disagrees with Stats()")
	}
}

func TestRunPauseResetRender(t *testing.T) {
	r, err := NewRun(RunOptions{Sources: photon.NewSimulatedSources(11), Eavesdropper: true, MaxPhotons: DefaultMaxPhotons})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	initial := r.Render()
	if initial != (RenderState{State: "|0⟩", SenderBasis: "+", ReceiverBasis: "+"}) {
		t.Errorf("initial Render() == %+v", initial)
	}
	for i := 0; i < 10; i++ {
		if _, err := r.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	// "Pausing" is just not advancing; state must be untouched.
	paused := r.Stats()
	if paused.TotalPhotons != 10 {
		t.Fatalf("sent %d photons, want 10", paused.TotalPhotons)
	}
	e, err := r.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if e.Index != 11 {
		t.Errorf("resumed at photon %d, want 11", e.Index)
	}
	rs := r.Render()
	if rs.State != e.State() || rs.SenderBasis != e.SenderBasis.String() || rs.ReceiverBasis != e.ReceiverBasis.String() {
		t.Errorf("Render() == %+v, want state of %+v", rs, e)
	}

	id := r.ID()
	r.Reset()
	if r.Stats() != (Stats{}) || len(r.Events()) != 0 || r.Key().Size() != 0 {
		t.Errorf("Reset left state behind: %+v", r.Stats())
	}
	if r.ID() != id {
		t.Errorf("Reset changed run id")
	}
	e, err = r.Advance()
	if err != nil || e.Index != 1 {
		t.Errorf("Advance() after reset == (%d, %v), want photon 1", e.Index, err)
	}
}

func TestRunFinishPropagatesCallbackError(t *testing.T) {
	r, err := NewRun(RunOptions{Sources: photon.NewSimulatedSources(2), MaxPhotons: DefaultMaxPhotons})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	stop := errors.New("stop")
	err = r.Finish(func(e Event) error {
		if e.Index == 5 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Finish() == %v, want %v", err, stop)
	}
	if r.Stats().TotalPhotons != 5 {
		t.Errorf("sent %d photons, want 5", r.Stats().TotalPhotons)
	}
}

func TestParseKeyConvention(t *testing.T) {
	tcs := []struct {
		in      string
		want    KeyConvention
		wantErr bool
	}{
		{in: "", want: SenderKeyBit},
		{in: "sender", want: SenderKeyBit},
		{in: "receiver", want: ReceiverKeyBit},
		{in: "eve", wantErr: true},
	}
	for _, tc := range tcs {
		got, err := ParseKeyConvention(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseKeyConvention(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseKeyConvention(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRunEventsAreDeepCopies(t *testing.T) {
	r, err := NewRun(RunOptions{Sources: photon.NewSimulatedSources(4), Eavesdropper: true, MaxPhotons: 64})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if err := r.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	key := r.Key().String()
	for _, e := range r.Events() {
		if e.KeyBit != nil {
			*e.KeyBit ^= 1
		}
		e.Eavesdropper.Basis ^= 1
	}
	if got := r.Key().String(); got != key {
		t.Errorf("Key() changed after mutating Events(): %q != %q", got, key)
	}
	for _, e := range r.Events() {
		if e.Eavesdropper.Basis == e.SenderBasis && e.Disturbed {
			t.Errorf("photon %d: interception basis was modified through Events()", e.Index)
		}
	}
}
