package quickcan

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quickcan/goquickcan/pkg/frame"
)

// Handler receives every successfully decoded frame. It runs on the
// goroutine calling Pump and must not call Pump itself.
type Handler func(cmd frame.Command, f *frame.CANFrame)

// CommandSender is the part of the Driver used by helpers that only send
// adapter commands.
type CommandSender interface {
	SendCommand(cmd frame.Command, payload ...byte) error
}

var _ CommandSender = (*Driver)(nil)

// Driver speaks the QuickCAN protocol over one transport.
//
// Reading is cooperative: exactly one goroutine calls Pump, and the handler
// runs synchronously inside it. Concurrent Pump calls are refused with
// ErrConcurrentPump. Sends are serialized and may run alongside Pump.
type Driver struct {
	port io.ReadWriteCloser

	// owned by the goroutine currently inside Pump
	rs      *frame.Reassembler
	readBuf []byte
	pumping atomic.Bool

	handlerMu sync.RWMutex
	handler   Handler
	busOwned  bool

	sendMu sync.Mutex

	closeOnce sync.Once
	closed    atomic.Bool

	debug bool
	now   func() time.Time
	ev    events
	stats counters
}

func New(port io.ReadWriteCloser, opts ...Opts) (*Driver, error) {
	if port == nil {
		return nil, ErrNilTransport
	}
	d := &Driver{
		port:    port,
		rs:      frame.NewReassembler(),
		readBuf: make([]byte, 256),
		handler: func(frame.Command, *frame.CANFrame) {},
		now:     time.Now,
		ev:      newEvents(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SetHandler replaces the frame handler. A nil handler discards frames.
// Once NewBus has attached a Bus the handler belongs to it and SetHandler
// returns ErrHandlerOwned.
func (d *Driver) SetHandler(fn Handler) error {
	d.handlerMu.Lock()
	defer d.handlerMu.Unlock()
	if d.busOwned {
		return ErrHandlerOwned
	}
	d.handler = orDiscard(fn)
	return nil
}

// attachBus hands the handler to a Bus for the rest of the Driver's life.
func (d *Driver) attachBus(fn Handler) {
	d.handlerMu.Lock()
	d.handler = orDiscard(fn)
	d.busOwned = true
	d.handlerMu.Unlock()
}

func orDiscard(fn Handler) Handler {
	if fn == nil {
		return func(frame.Command, *frame.CANFrame) {}
	}
	return fn
}

func (d *Driver) getHandler() Handler {
	d.handlerMu.RLock()
	defer d.handlerMu.RUnlock()
	return d.handler
}

// Send a CAN frame
func (d *Driver) Send(id uint32, data []byte, extended bool) error {
	return d.write(frame.CmdCANSend, frame.NewFrame(id, data, extended))
}

// SendCommand sends an adapter command with identifier 0 and an optional
// short payload.
func (d *Driver) SendCommand(cmd frame.Command, payload ...byte) error {
	return d.write(cmd, frame.NewFrame(0, payload, false))
}

// SendHeartbeat sends a HEARTBEAT carrying a rolling counter.
func (d *Driver) SendHeartbeat(counter uint8) error {
	return d.SendCommand(frame.CmdHeartbeat, counter)
}

func (d *Driver) SendAck() error {
	return d.SendCommand(frame.CmdAck)
}

func (d *Driver) SendNack() error {
	return d.SendCommand(frame.CmdNack)
}

func (d *Driver) SendPing() error {
	return d.SendCommand(frame.CmdPing)
}

func (d *Driver) SendDeviceInfoRequest() error {
	return d.SendCommand(frame.CmdDeviceInfo)
}

func (d *Driver) SendReset() error {
	return d.SendCommand(frame.CmdReset)
}

// SetFilter sends the filter definition to the adapter as is.
func (d *Driver) SetFilter(filter ...byte) error {
	return d.SendCommand(frame.CmdSetFilter, filter...)
}

func (d *Driver) ClearFilter() error {
	return d.SendCommand(frame.CmdClearFilter)
}

// SendConfigGet asks the adapter for the value of config key.
func (d *Driver) SendConfigGet(key uint8) error {
	return d.write(frame.CmdConfigGet, frame.NewFrame(0, []byte{key}, false))
}

// SendConfigSet writes values to config key.
func (d *Driver) SendConfigSet(key uint8, values ...byte) error {
	data := make([]byte, 0, len(values)+1)
	data = append(data, key)
	data = append(data, values...)
	return d.write(frame.CmdConfigSet, frame.NewFrame(0, data, false))
}

func (d *Driver) write(cmd frame.Command, f *frame.CANFrame) error {
	if d.closed.Load() {
		return ErrClosed
	}
	buf, err := frame.Encode(f, cmd)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", cmd, err)
	}

	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	if err := writeFull(d.port, buf); err != nil {
		d.ev.fail(cmd, fmt.Errorf("write: %w", err))
		return &TransportError{Op: opWrite, Err: err}
	}
	d.stats.sentBytes.Add(uint64(len(buf)))
	d.stats.sentFrames.Add(1)
	if d.debug {
		d.ev.dump(cmd, ">>", buf)
	}
	return nil
}

// writeFull keeps writing until buf is gone, serial drivers may accept less
// than a full packet per call.
func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if n > 0 {
			buf = buf[n:]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// Pump performs one read from the transport and dispatches every packet it
// completes. It returns the number of frames handed to the handler.
//
// A read returning no data is treated as an idle line: a pending packet that
// already validates is delivered instead of waiting for the next START byte.
// On io.EOF the pending candidate is flushed before the error is returned.
// Read errors are wrapped in a TransportError marked Unrecoverable.
func (d *Driver) Pump() (int, error) {
	if !d.pumping.CompareAndSwap(false, true) {
		return 0, ErrConcurrentPump
	}
	defer d.pumping.Store(false)
	if d.closed.Load() {
		return 0, Unrecoverable(ErrClosed)
	}

	n, err := d.port.Read(d.readBuf)
	var dispatched int
	if n > 0 {
		d.stats.recvBytes.Add(uint64(n))
		if d.debug {
			d.ev.dump(0, "<<", d.readBuf[:n])
		}
		for _, b := range d.readBuf[:n] {
			if cand := d.rs.Feed(b); cand != nil && d.dispatch(cand) {
				dispatched++
			}
		}
		d.stats.overflows.Store(d.rs.Overflows())
	}

	switch {
	case err == nil && n == 0:
		dispatched += d.flushIdle()
	case errors.Is(err, io.EOF):
		if cand := d.rs.Flush(); cand != nil && d.dispatch(cand) {
			dispatched++
		}
	}
	if err != nil {
		return dispatched, Unrecoverable(&TransportError{Op: opRead, Err: err})
	}
	return dispatched, nil
}

func (d *Driver) flushIdle() int {
	cand := d.rs.Peek()
	if cand == nil {
		return 0
	}
	cmd, f, err := frame.Decode(cand)
	if err != nil {
		// most likely still arriving
		return 0
	}
	d.rs.Flush()
	d.deliver(cmd, f)
	return 1
}

func (d *Driver) dispatch(cand []byte) bool {
	cmd, f, err := frame.Decode(cand)
	if err != nil {
		d.stats.decodeErrors.Add(1)
		d.ev.emit(Event{Type: EventTypeDebug, Raw: cand, Details: "dropped candidate: " + err.Error()})
		return false
	}
	d.deliver(cmd, f)
	return true
}

func (d *Driver) deliver(cmd frame.Command, f *frame.CANFrame) {
	f.Timestamp = d.now()
	d.stats.recvFrames.Add(1)
	d.getHandler()(cmd, f)
}

// Stats returns a snapshot of the traffic counters.
func (d *Driver) Stats() Stats {
	return d.stats.snapshot()
}

// Close releases the transport. Only the first call closes it, later calls
// return nil.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		err = d.port.Close()
	})
	return err
}
