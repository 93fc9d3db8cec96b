package frame

// DefaultReassemblyLimit is the longest escaped payload a legal packet can have.
const DefaultReassemblyLimit = MaxPacketLen - 1

// Reassembler splits a byte stream into packet candidates on START bytes.
// Candidates are not validated, Decode is the only judge of a packet.
//
// A Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf       []byte
	armed     bool
	limit     int
	overflows uint64
}

func NewReassembler() *Reassembler {
	return &Reassembler{
		buf:   make([]byte, 0, MaxPacketLen),
		limit: DefaultReassemblyLimit,
	}
}

// SetLimit sets how many bytes may follow a START byte before the candidate
// is cut. Values below one restore the default.
func (r *Reassembler) SetLimit(n int) {
	if n < 1 {
		n = DefaultReassemblyLimit
	}
	r.limit = n
}

// Feed consumes one byte and returns a completed candidate, or nil.
//
// Every START byte begins a new candidate, so a corrupt packet never affects
// the one after it. When more than the limit follows a START byte the
// candidate is returned as is and bytes are dropped until the next START.
func (r *Reassembler) Feed(b byte) []byte {
	if b == StartByte {
		if r.armed && len(r.buf) > 0 {
			return r.take()
		}
		r.armed = true
		r.buf = r.buf[:0]
		return nil
	}
	if !r.armed {
		return nil
	}
	r.buf = append(r.buf, b)
	if len(r.buf) > r.effectiveLimit() {
		r.overflows++
		r.armed = false
		return r.take()
	}
	return nil
}

// Flush returns the pending candidate, if any. Used at end of stream or on
// an idle line so the last packet, which has no START after it, is not lost.
func (r *Reassembler) Flush() []byte {
	if len(r.buf) == 0 {
		return nil
	}
	return r.take()
}

// Peek returns a copy of the pending candidate without consuming it.
func (r *Reassembler) Peek() []byte {
	if len(r.buf) == 0 {
		return nil
	}
	out := make([]byte, len(r.buf)+1)
	out[0] = StartByte
	copy(out[1:], r.buf)
	return out
}

// Reset drops any pending bytes and waits for the next START byte.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.armed = false
}

// Pending returns the number of buffered bytes after the last START.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Overflows returns how many candidates were cut at the length limit.
func (r *Reassembler) Overflows() uint64 {
	return r.overflows
}

func (r *Reassembler) effectiveLimit() int {
	if r.limit < 1 {
		return DefaultReassemblyLimit
	}
	return r.limit
}

func (r *Reassembler) take() []byte {
	out := r.Peek()
	r.buf = r.buf[:0]
	return out
}
