package wire

import (
	"bytes"
	"testing"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewWriter(64)
	w.WriteMsgID(MsgID(0x1234)).
		I8(-5).
		I16(-1000).
		I32(123456789).
		Double(3.5).
		String("hello").
		Bytes([]byte{1, 2, 3, 4})

	payload := w.Payload()

	r := NewReader(payload)
	id, err := r.I16()
	if err != nil || MsgID(uint16(id)) != 0x1234 {
		t.Fatalf("unexpected msg id: %v err=%v", id, err)
	}
	if v, err := r.I8(); err != nil || v != -5 {
		t.Fatalf("I8: %v err=%v", v, err)
	}
	if v, err := r.I16(); err != nil || v != -1000 {
		t.Fatalf("I16: %v err=%v", v, err)
	}
	if v, err := r.I32(); err != nil || v != 123456789 {
		t.Fatalf("I32: %v err=%v", v, err)
	}
	if v, err := r.Double(); err != nil || v != 3.5 {
		t.Fatalf("Double: %v err=%v", v, err)
	}
	if v, err := r.String(); err != nil || v != "hello" {
		t.Fatalf("String: %v err=%v", v, err)
	}
	if v, err := r.Bytes(4); err != nil || !bytes.Equal(v, []byte{1, 2, 3, 4}) {
		t.Fatalf("Bytes: %v err=%v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", r.Remaining())
	}
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.I32(); err == nil {
		t.Fatal("expected short-read error")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("roundtrip mismatch: got %v want %v", got, payload)
	}
}
