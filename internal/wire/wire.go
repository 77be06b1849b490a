// Package wire implements the shared binary framing used by every
// endpoint: a 16-bit message id followed by a payload of typed fields
// (spec.md §6). Field primitives are i8, i16, i32, double (8-byte IEEE
// little-endian), and length-prefixed UTF-8 strings (16-bit length).
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MsgID identifies a message within one endpoint's dispatch table.
type MsgID uint16

// Reader decodes fields from a decoded packet payload, in order.
// It never panics: every method reports a short-read error, following
// the teacher's internal/gslistener/packet.Reader.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential field reads.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("wire: short read at %d, need %d, have %d", r.pos, n, len(r.data)-r.pos)
	}
	return nil
}

// I8 reads a signed byte.
func (r *Reader) I8() (int8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := int8(r.data[r.pos])
	r.pos++
	return v, nil
}

// I16 reads a little-endian int16.
func (r *Reader) I16() (int16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	return v, nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

// I64 reads a little-endian int64 (used for database ids on the wire).
func (r *Reader) I64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v, nil
}

// Double reads a fixed 8-byte little-endian IEEE-754 float.
func (r *Reader) Double() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// String reads a 16-bit length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.I16()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("wire: negative string length %d", n)
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// Bytes reads n raw bytes (used for fixed-length tokens).
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("wire: negative byte count %d", n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Remaining reports how many unread bytes are left in the payload.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Writer accumulates fields into an outgoing payload buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer, optionally pre-sized.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// WriteMsgID writes the leading 16-bit message id.
func (w *Writer) WriteMsgID(id MsgID) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(id))
	w.buf = append(w.buf, b[:]...)
	return w
}

// I8 appends a signed byte.
func (w *Writer) I8(v int8) *Writer {
	w.buf = append(w.buf, byte(v))
	return w
}

// I16 appends a little-endian int16.
func (w *Writer) I16(v int16) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

// I32 appends a little-endian int32.
func (w *Writer) I32(v int32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

// I64 appends a little-endian int64.
func (w *Writer) I64(v int64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

// Double appends a fixed 8-byte little-endian IEEE-754 float.
func (w *Writer) Double(v float64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

// String appends a 16-bit length-prefixed UTF-8 string.
func (w *Writer) String(s string) *Writer {
	w.I16(int16(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Bytes appends raw bytes with no length prefix (fixed-length fields).
func (w *Writer) Bytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Payload returns the accumulated bytes, including the message id if one
// was written.
func (w *Writer) Payload() []byte {
	return w.buf
}

// WriteFrame writes a 16-bit length header followed by the payload to w,
// following the teacher's internal/protocol.WritePacket framing but with
// no link-layer encryption (spec.md §6 has no cipher requirement for this
// protocol; see DESIGN.md).
func WriteFrame(w io.Writer, payload []byte) error {
	total := 2 + len(payload)
	if total > 0xFFFF {
		return fmt.Errorf("wire: frame too large: %d bytes", total)
	}
	var header [2]byte
	binary.LittleEndian.PutUint16(header[:], uint16(total))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and returns its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wire: reading frame header: %w", err)
	}
	total := int(binary.LittleEndian.Uint16(header[:]))
	if total < 2 {
		return nil, fmt.Errorf("wire: invalid frame length %d", total)
	}
	payload := make([]byte, total-2)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("wire: reading frame payload: %w", err)
		}
	}
	return payload, nil
}
