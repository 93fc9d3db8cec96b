package quickcan

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// fakePort is an in memory transport. Reads drain chunks queued with push,
// an empty queue behaves like a serial read timeout.
type fakePort struct {
	mu       sync.Mutex
	chunks   [][]byte
	eof      bool
	readErr  error
	written  bytes.Buffer
	maxWrite int
	writeErr error
	onWrite  func(p *fakePort, pkt []byte)
	closed   int
	idle     time.Duration
}

func newFakePort() *fakePort {
	return &fakePort{idle: time.Millisecond}
}

func (p *fakePort) push(b ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range b {
		p.chunks = append(p.chunks, append([]byte(nil), c...))
	}
}

func (p *fakePort) setEOF() {
	p.mu.Lock()
	p.eof = true
	p.mu.Unlock()
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if len(p.chunks) > 0 {
		c := p.chunks[0]
		n := copy(buf, c)
		if n < len(c) {
			p.chunks[0] = c[n:]
		} else {
			p.chunks = p.chunks[1:]
		}
		p.mu.Unlock()
		return n, nil
	}
	eof, err, idle := p.eof, p.readErr, p.idle
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if eof {
		return 0, io.EOF
	}
	time.Sleep(idle)
	return 0, nil
}

func (p *fakePort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	if p.writeErr != nil {
		p.mu.Unlock()
		return 0, p.writeErr
	}
	n := len(buf)
	if p.maxWrite > 0 && n > p.maxWrite {
		n = p.maxWrite
	}
	p.written.Write(buf[:n])
	hook := p.onWrite
	p.mu.Unlock()
	if hook != nil {
		hook(p, buf[:n])
	}
	return n, nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
	return nil
}

func (p *fakePort) output() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func (p *fakePort) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// zeroWriter accepts nothing and reports no error.
type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }
