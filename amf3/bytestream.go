package amf3

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteStream is a seekable in-memory buffer with big-endian numeric
// primitives, generalizing the teacher's readBytes/readDouble helpers
// (amf0/amf.go) from a one-shot io.Reader wrapper to a random-access
// buffer shared by the Encoder/Decoder pair (the Decoder's ReadType
// peeks by seeking back).
type ByteStream struct {
	buf []byte
	pos int
}

// NewByteStream wraps an existing byte slice for reading. The slice is
// not copied.
func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{buf: b}
}

// NewEmptyByteStream returns a ByteStream ready for writing.
func NewEmptyByteStream() *ByteStream {
	return &ByteStream{}
}

// Len returns the total number of bytes in the buffer.
func (s *ByteStream) Len() int { return len(s.buf) }

// Remaining returns the number of unread bytes.
func (s *ByteStream) Remaining() int { return len(s.buf) - s.pos }

// Tell returns the current cursor position.
func (s *ByteStream) Tell() int { return s.pos }

// Seek moves the cursor to an absolute position.
func (s *ByteStream) Seek(pos int) error {
	if pos < 0 || pos > len(s.buf) {
		return fmt.Errorf("seek %d out of range [0,%d]: %w", pos, len(s.buf), ErrReference)
	}
	s.pos = pos
	return nil
}

// Bytes returns the full underlying buffer.
func (s *ByteStream) Bytes() []byte { return s.buf }

// Reset empties the buffer and resets the cursor, retaining capacity.
func (s *ByteStream) Reset() {
	s.buf = s.buf[:0]
	s.pos = 0
}

func (s *ByteStream) ensure(n int) error {
	if s.Remaining() < n {
		return fmt.Errorf("need %d bytes, have %d: %w", n, s.Remaining(), ErrDecode)
	}
	return nil
}

// ReadBytes reads n raw bytes and advances the cursor. The returned
// slice aliases the stream's buffer; callers must copy if they retain it
// past further stream mutation.
func (s *ByteStream) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d: %w", n, ErrDecode)
	}
	if err := s.ensure(n); err != nil {
		return nil, err
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// WriteBytes appends raw bytes and advances the cursor.
func (s *ByteStream) WriteBytes(b []byte) {
	s.buf = append(s.buf, b...)
	s.pos = len(s.buf)
}

// ReadU8 reads one byte.
func (s *ByteStream) ReadU8() (byte, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteU8 appends one byte.
func (s *ByteStream) WriteU8(v byte) { s.WriteBytes([]byte{v}) }

// ReadU16 reads a big-endian uint16.
func (s *ByteStream) ReadU16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// WriteU16 appends a big-endian uint16.
func (s *ByteStream) WriteU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.WriteBytes(b[:])
}

// ReadU32 reads a big-endian uint32.
func (s *ByteStream) ReadU32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// WriteU32 appends a big-endian uint32.
func (s *ByteStream) WriteU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.WriteBytes(b[:])
}

// ReadI32 reads a big-endian int32.
func (s *ByteStream) ReadI32() (int32, error) {
	v, err := s.ReadU32()
	return int32(v), err
}

// WriteI32 appends a big-endian int32.
func (s *ByteStream) WriteI32(v int32) { s.WriteU32(uint32(v)) }

// ReadDouble reads a big-endian IEEE-754 double.
func (s *ByteStream) ReadDouble() (float64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// WriteDouble appends a big-endian IEEE-754 double.
func (s *ByteStream) WriteDouble(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.WriteBytes(b[:])
}

// ReadU29 reads a variable-length unsigned 29-bit integer and advances
// the cursor by the number of bytes consumed.
func (s *ByteStream) ReadU29() (uint32, error) {
	v, n, err := decodeU29(s.buf, s.pos)
	if err != nil {
		return 0, err
	}
	s.pos += n
	return v, nil
}

// WriteU29 appends the U29 encoding of n.
func (s *ByteStream) WriteU29(n uint32) error {
	b, err := encodeU29(n)
	if err != nil {
		return err
	}
	s.WriteBytes(b)
	return nil
}
