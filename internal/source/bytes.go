package source

// Bytes is an immutable, shared byte buffer. Copies of a Bytes value refer to
// the same backing storage; the storage is released when the last holder
// drops it.
type Bytes struct {
	buf *[]byte
}

// NewBytes copies data into a fresh shared buffer.
func NewBytes(data []byte) Bytes {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Bytes{buf: &cp}
}

// TakeBytes wraps data without copying. The caller hands over ownership and
// must not modify data afterwards.
func TakeBytes(data []byte) Bytes {
	return Bytes{buf: &data}
}

// Slice returns the backing storage. Callers must treat it as read-only.
func (b Bytes) Slice() []byte {
	if b.buf == nil {
		return nil
	}
	return *b.buf
}

// Len returns the payload size in bytes.
func (b Bytes) Len() int {
	if b.buf == nil {
		return 0
	}
	return len(*b.buf)
}

// IsZero reports whether b holds no buffer at all.
func (b Bytes) IsZero() bool {
	return b.buf == nil
}

// Same reports whether b and other share the same backing storage.
func (b Bytes) Same(other Bytes) bool {
	return b.buf != nil && b.buf == other.buf
}
