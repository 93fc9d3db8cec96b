package quickcan

import (
	"fmt"
	"sync/atomic"
)

type Stats struct {
	RecvBytes    uint64
	SentBytes    uint64
	RecvFrames   uint64
	SentFrames   uint64
	DecodeErrors uint64
	Overflows    uint64
	Dropped      uint64
}

func (st Stats) String() string {
	return fmt.Sprintf("recv: %d bytes %d frames, sent: %d bytes %d frames, decode errors: %d, overflows: %d, dropped: %d",
		st.RecvBytes, st.RecvFrames, st.SentBytes, st.SentFrames, st.DecodeErrors, st.Overflows, st.Dropped)
}

type counters struct {
	recvBytes    atomic.Uint64
	sentBytes    atomic.Uint64
	recvFrames   atomic.Uint64
	sentFrames   atomic.Uint64
	decodeErrors atomic.Uint64
	overflows    atomic.Uint64
	dropped      atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		RecvBytes:    c.recvBytes.Load(),
		SentBytes:    c.sentBytes.Load(),
		RecvFrames:   c.recvFrames.Load(),
		SentFrames:   c.sentFrames.Load(),
		DecodeErrors: c.decodeErrors.Load(),
		Overflows:    c.overflows.Load(),
		Dropped:      c.dropped.Load(),
	}
}
