package fit

import "encoding/binary"

// cursor is a checked sequential reader over an in-memory byte buffer. It
// borrows the buffer and never copies; callers must not retain the returned
// slices past the buffer's lifetime.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return ErrTruncatedInput
	}
	c.pos = pos
	return nil
}

// read returns the next n bytes as a view into the underlying buffer and
// advances the position.
func (c *cursor) read(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, ErrTruncatedInput
	}
	view := c.buf[c.pos : c.pos+n]
	c.pos += n
	return view, nil
}

func (c *cursor) readU8() (uint8, error) {
	b, err := c.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readU16(bigEndian bool) (uint16, error) {
	b, err := c.read(2)
	if err != nil {
		return 0, err
	}
	if bigEndian {
		return binary.BigEndian.Uint16(b), nil
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) readU32(bigEndian bool) (uint32, error) {
	b, err := c.read(4)
	if err != nil {
		return 0, err
	}
	if bigEndian {
		return binary.BigEndian.Uint32(b), nil
	}
	return binary.LittleEndian.Uint32(b), nil
}
