package quickcan

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// LoopbackPort is the port name the CLI maps to NewLoopback.
const LoopbackPort = "loopback"

type loopback struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	readTimeout time.Duration
	notify      chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

// NewLoopback returns an in memory transport that reads back every byte
// written to it, an adapter with its CAN side looped. Read waits at most
// readTimeout for data and then returns 0, nil like a serial port does.
func NewLoopback(readTimeout time.Duration) io.ReadWriteCloser {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &loopback{
		readTimeout: readTimeout,
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

func (l *loopback) Read(p []byte) (int, error) {
	if n := l.drain(p); n > 0 {
		return n, nil
	}
	select {
	case <-l.done:
		return 0, io.EOF
	default:
	}
	t := time.NewTimer(l.readTimeout)
	defer t.Stop()
	select {
	case <-l.notify:
		return l.drain(p), nil
	case <-l.done:
		if n := l.drain(p); n > 0 {
			return n, nil
		}
		return 0, io.EOF
	case <-t.C:
		return 0, nil
	}
}

func (l *loopback) drain(p []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, _ := l.buf.Read(p)
	return n
}

func (l *loopback) Write(p []byte) (int, error) {
	select {
	case <-l.done:
		return 0, io.ErrClosedPipe
	default:
	}
	l.mu.Lock()
	n, _ := l.buf.Write(p)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
	return n, nil
}

func (l *loopback) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}
