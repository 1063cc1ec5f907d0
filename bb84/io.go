package bb84

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"google.golang.org/protobuf/encoding/protowire"
)

// Transcript field numbers. Derived flags are not stored; they are recomputed
// on read.
const (
	fieldIndex         protowire.Number = 1
	fieldSenderBit     protowire.Number = 2
	fieldSenderBasis   protowire.Number = 3
	fieldReceiverBasis protowire.Number = 4
	fieldReceiverBit   protowire.Number = 5
	fieldEveBasis      protowire.Number = 6
	fieldEveBit        protowire.Number = 7
	fieldKeyBit        protowire.Number = 8
)

// maxFrame bounds a single transcript record; real records are a few dozen
// bytes.
const maxFrame = 1 << 10

// A TranscriptWriter writes framed Events to the wire. The structure of the
// frame is trivial: record-length | record, with the length a little-endian
// int32 and the record in protocol buffer wire format.
type TranscriptWriter struct {
	w io.Writer
}

// NewTranscriptWriter returns a TranscriptWriter writing to w.
func NewTranscriptWriter(w io.Writer) *TranscriptWriter {
	return &TranscriptWriter{w: w}
}

// Write writes e as a single frame with one call to the underlying writer.
func (t *TranscriptWriter) Write(e Event) error {
	rec := marshalEvent(e)
	frame := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+len(rec)), uint32(len(rec)))
	_, err := t.w.Write(append(frame, rec...))
	return err
}

// A TranscriptReader reads Events framed by a TranscriptWriter.
type TranscriptReader struct {
	r io.Reader
}

// NewTranscriptReader returns a TranscriptReader reading from r.
func NewTranscriptReader(r io.Reader) *TranscriptReader {
	return &TranscriptReader{r: r}
}

// Read returns the next Event, or io.EOF if the transcript ended cleanly
// between records.
func (t *TranscriptReader) Read() (Event, error) {
	var n int32
	if err := binary.Read(t.r, binary.LittleEndian, &n); err != nil {
		return Event{}, err
	}
	if n < 0 || n > maxFrame {
		return Event{}, fmt.Errorf("invalid transcript frame length %d", n)
	}
	rec := make([]byte, n)
	if _, err := io.ReadFull(t.r, rec); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Event{}, err
	}
	return unmarshalEvent(rec)
}

// WriteTranscript writes every event to w.
func WriteTranscript(w io.Writer, events []Event) error {
	tw := NewTranscriptWriter(w)
	for _, e := range events {
		if err := tw.Write(e); err != nil {
			return fmt.Errorf("writing photon %d: %w", e.Index, err)
		}
	}
	return nil
}

// ReadTranscript reads events from r until it is exhausted, checking that
// their indices run 1, 2, 3, ...
func ReadTranscript(r io.Reader) ([]Event, error) {
	tr := NewTranscriptReader(r)
	var events []Event
	for {
		e, err := tr.Read()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading record %d: %w", len(events)+1, err)
		}
		if e.Index != len(events)+1 {
			return nil, fmt.Errorf("out of order photon: got index %d, want %d", e.Index, len(events)+1)
		}
		events = append(events, e)
	}
}

func marshalEvent(e Event) []byte {
	var b []byte
	b = appendVarint(b, fieldIndex, uint64(e.Index))
	b = appendVarint(b, fieldSenderBit, uint64(e.SenderBit))
	b = appendVarint(b, fieldSenderBasis, uint64(e.SenderBasis))
	b = appendVarint(b, fieldReceiverBasis, uint64(e.ReceiverBasis))
	b = appendVarint(b, fieldReceiverBit, uint64(e.ReceiverBit))
	if e.Eavesdropper != nil {
		b = appendVarint(b, fieldEveBasis, uint64(e.Eavesdropper.Basis))
		b = appendVarint(b, fieldEveBit, uint64(e.Eavesdropper.Measurement))
	}
	if e.KeyBit != nil {
		b = appendVarint(b, fieldKeyBit, uint64(*e.KeyBit))
	}
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func unmarshalEvent(b []byte) (Event, error) {
	var (
		e         Event
		eveBasis  *photon.Basis
		eveBit    *photon.Bit
		seenIndex bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Event{}, protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.VarintType {
			// Unknown or foreign field; skip it.
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Event{}, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Event{}, protowire.ParseError(n)
		}
		b = b[n:]
		if num != fieldIndex && v > 1 {
			return Event{}, fmt.Errorf("field %d holds %d, want 0 or 1", num, v)
		}
		switch num {
		case fieldIndex:
			e.Index = int(v)
			seenIndex = true
		case fieldSenderBit:
			e.SenderBit = photon.Bit(v)
		case fieldSenderBasis:
			e.SenderBasis = photon.Basis(v)
		case fieldReceiverBasis:
			e.ReceiverBasis = photon.Basis(v)
		case fieldReceiverBit:
			e.ReceiverBit = photon.Bit(v)
		case fieldEveBasis:
			bb := photon.Basis(v)
			eveBasis = &bb
		case fieldEveBit:
			bb := photon.Bit(v)
			eveBit = &bb
		case fieldKeyBit:
			bb := photon.Bit(v)
			e.KeyBit = &bb
		}
	}
	if !seenIndex || e.Index < 1 {
		return Event{}, errors.New("record has no photon index")
	}
	if (eveBasis == nil) != (eveBit == nil) {
		return Event{}, fmt.Errorf("photon %d: partial eavesdropper record", e.Index)
	}
	if eveBasis != nil {
		e.Eavesdropper = &Interception{Basis: *eveBasis, Measurement: *eveBit}
		e.Disturbed = *eveBasis != e.SenderBasis
	}
	e.BasesMatch = e.SenderBasis == e.ReceiverBasis
	e.BitsMatch = e.BasesMatch && e.SenderBit == e.ReceiverBit
	if e.BasesMatch != e.HasKeyBit() {
		return Event{}, fmt.Errorf("photon %d: key bit present=%v but bases match=%v", e.Index, e.HasKeyBit(), e.BasesMatch)
	}
	return e, nil
}
