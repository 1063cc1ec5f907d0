package bb84

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/alan-christopher/bb84sim/bb84/photon"
)

func TestTranscriptRoundTrip(t *testing.T) {
	for _, eve := range []bool{false, true} {
		r, err := NewRun(RunOptions{
			Sources:       photon.NewSimulatedSources(77),
			Eavesdropper:  eve,
			MaxPhotons:    400,
			KeyConvention: ReceiverKeyBit,
		})
		if err != nil {
			t.Fatalf("NewRun: %v", err)
		}
		if err := r.Finish(nil); err != nil {
			t.Fatalf("Finish: %v", err)
		}

		var buf bytes.Buffer
		if err := WriteTranscript(&buf, r.Events()); err != nil {
			t.Fatalf("WriteTranscript: %v", err)
		}
		events, err := ReadTranscript(&buf)
		if err != nil {
			t.Fatalf("ReadTranscript: %v", err)
		}
		if !reflect.DeepEqual(events, r.Events()) {
			t.Errorf("eve=%v: transcript mangled in transit", eve)
		}
		if Replay(events) != r.Stats() {
			t.Errorf("eve=%v: replayed stats %+v, want %+v", eve, Replay(events), r.Stats())
		}
		if ExtractKey(events, r.Options().TargetKeyBits).String() != r.Key().String() {
			t.Errorf("eve=%v: replayed key disagrees", eve)
		}
	}
}

func TestTranscriptEmpty(t *testing.T) {
	events, err := ReadTranscript(bytes.NewReader(nil))
	if err != nil || len(events) != 0 {
		t.Errorf("ReadTranscript(empty) == (%v, %v), want no events", events, err)
	}
}

func TestTranscriptTruncated(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTranscriptWriter(&buf)
	if err := tw.Write(Event{Index: 1, BasesMatch: true, KeyBit: keyBit(1), SenderBit: 1, ReceiverBit: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data := buf.Bytes()
	_, err := NewTranscriptReader(bytes.NewReader(data[:len(data)-1])).Read()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Read() of truncated record == %v, want ErrUnexpectedEOF", err)
	}
}

func TestTranscriptRejectsCorruptRecords(t *testing.T) {
	frame := func(rec []byte) []byte {
		var b bytes.Buffer
		binary.Write(&b, binary.LittleEndian, int32(len(rec)))
		b.Write(rec)
		return b.Bytes()
	}
	tcs := []struct {
		name string
		data []byte
	}{
		{"key bit on discarded photon", frame(marshalEvent(Event{
			Index: 1, SenderBasis: photon.Rectilinear, ReceiverBasis: photon.Diagonal, KeyBit: keyBit(0),
		}))},
		{"missing key bit", frame(marshalEvent(Event{Index: 1}))},
		{"no index", frame(appendVarint(nil, fieldSenderBit, 1))},
		{"bit out of range", frame(appendVarint(appendVarint(nil, fieldIndex, 1), fieldSenderBit, 2))},
		{"oversized frame", []byte{0xFF, 0xFF, 0x00, 0x00}},
		{"garbage", frame([]byte{0xFF})},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadTranscript(bytes.NewReader(tc.data)); err == nil {
				t.Errorf("expected error: got nil")
			}
		})
	}
}

func TestTranscriptRejectsReordering(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTranscript(&buf, []Event{{Index: 2, BasesMatch: true, KeyBit: keyBit(0)}}); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if _, err := ReadTranscript(&buf); err == nil {
		t.Errorf("expected error for transcript starting at photon 2")
	}
}

type countingWriter struct {
	bytes.Buffer
	writes int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes++
	return c.Buffer.Write(p)
}

func TestTranscriptWriterOneWritePerFrame(t *testing.T) {
	r, err := NewRun(RunOptions{Sources: photon.NewSimulatedSources(3), Eavesdropper: true, MaxPhotons: 20})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if err := r.Finish(nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	var w countingWriter
	if err := WriteTranscript(&w, r.Events()); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if w.writes != 20 {
		t.Errorf("made %d writes for 20 photons, want 20", w.writes)
	}
	got, err := ReadTranscript(&w.Buffer)
	if err != nil {
		t.Fatalf("ReadTranscript: %v", err)
	}
	if !reflect.DeepEqual(got, r.Events()) {
		t.Errorf("ReadTranscript() disagrees with the written events")
	}
}
