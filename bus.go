package quickcan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quickcan/goquickcan/pkg/frame"
)

// Message is the generic CAN message shape exposed by Bus.
type Message struct {
	ArbitrationID uint32
	Data          []byte
	IsExtended    bool
	Timestamp     time.Time
}

func (m *Message) canFrame() *frame.CANFrame {
	f := frame.NewFrame(m.ArbitrationID, m.Data, m.IsExtended)
	f.Timestamp = m.Timestamp
	return f
}

func (m *Message) String() string {
	return m.canFrame().String()
}

func (m *Message) ColorString() string {
	return m.canFrame().ColorString()
}

func messageFromFrame(f *frame.CANFrame) *Message {
	return &Message{
		ArbitrationID: f.ID,
		Data:          f.Data,
		IsExtended:    f.Extended,
		Timestamp:     f.Timestamp,
	}
}

const (
	DefaultQueueSize = 1024
	pumpBackoff      = 10 * time.Millisecond
)

type BusOpt func(b *Bus)

// OptQueueSize sets how many received messages are buffered before new ones
// are dropped.
func OptQueueSize(n int) BusOpt {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// OptBusCommandHandler receives every non CAN_SEND frame, on the pump
// goroutine.
func OptBusCommandHandler(fn Handler) BusOpt {
	return func(b *Bus) {
		b.onCommand = fn
	}
}

// Bus runs a background pump on a Driver and queues received CAN messages.
// It takes over the Driver's handler, use OptBusCommandHandler to see
// adapter commands.
//
// The pump goroutine is the only caller of Driver.Pump while the Bus is
// alive. The transport must return from Read periodically (serial ports opened
// with OpenSerial do) or Shutdown will wait for the blocked read.
type Bus struct {
	drv       *Driver
	queueSize int
	queue     chan *Message
	onCommand Handler

	waitMu  sync.Mutex
	waiters map[*waiter]struct{}

	stop         chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	errMu sync.Mutex
	err   error
}

type reply struct {
	cmd frame.Command
	f   *frame.CANFrame
}

type waiter struct {
	cmd frame.Command
	ch  chan reply
}

func NewBus(drv *Driver, opts ...BusOpt) *Bus {
	b := &Bus{
		drv:       drv,
		queueSize: DefaultQueueSize,
		waiters:   make(map[*waiter]struct{}),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.queue = make(chan *Message, b.queueSize)
	drv.attachBus(b.onFrame)
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		if _, err := b.drv.Pump(); err != nil {
			if IsRecoverable(err) {
				b.drv.ev.warn(0, fmt.Sprintf("pump: %v", err))
				select {
				case <-b.stop:
					return
				case <-time.After(pumpBackoff):
				}
				continue
			}
			b.drv.ev.fail(0, fmt.Errorf("pump stopped: %w", err))
			b.setErr(err)
			return
		}
	}
}

func (b *Bus) onFrame(cmd frame.Command, f *frame.CANFrame) {
	if cmd != frame.CmdCANSend {
		b.notifyWaiters(cmd, f)
		if b.onCommand != nil {
			b.onCommand(cmd, f)
		}
		return
	}
	select {
	case b.queue <- messageFromFrame(f):
	default:
		b.drv.stats.dropped.Add(1)
		b.drv.ev.warn(cmd, fmt.Sprintf("%v, dropped 0x%X", ErrDroppedFrame, f.ID))
	}
}

func (b *Bus) notifyWaiters(cmd frame.Command, f *frame.CANFrame) {
	b.waitMu.Lock()
	defer b.waitMu.Unlock()
	for w := range b.waiters {
		if w.cmd != cmd && cmd != frame.CmdNack {
			continue
		}
		select {
		case w.ch <- reply{cmd, f}:
		default:
		}
	}
}

// Send transmits msg as a CAN_SEND frame.
func (b *Bus) Send(msg *Message) error {
	return b.drv.Send(msg.ArbitrationID, msg.Data, msg.IsExtended)
}

// SendCommand sends an adapter command through the underlying Driver.
func (b *Bus) SendCommand(cmd frame.Command, payload ...byte) error {
	return b.drv.SendCommand(cmd, payload...)
}

// Request sends cmd and waits for the adapter to answer with the same
// command. A NACK answer returns ErrNack.
func (b *Bus) Request(ctx context.Context, cmd frame.Command, payload ...byte) (*frame.CANFrame, error) {
	w := &waiter{cmd: cmd, ch: make(chan reply, 1)}
	b.waitMu.Lock()
	b.waiters[w] = struct{}{}
	b.waitMu.Unlock()
	defer func() {
		b.waitMu.Lock()
		delete(b.waiters, w)
		b.waitMu.Unlock()
	}()

	if err := b.drv.SendCommand(cmd, payload...); err != nil {
		return nil, err
	}
	select {
	case r := <-w.ch:
		if r.cmd == frame.CmdNack {
			return r.f, fmt.Errorf("%s: %w", cmd, ErrNack)
		}
		return r.f, nil
	case <-b.done:
		return nil, b.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Recv returns the next received message. It waits at most timeout, a
// negative timeout waits until a message arrives or the bus stops.
// ErrRecvTimeout is returned when nothing arrived in time.
func (b *Bus) Recv(timeout time.Duration) (*Message, error) {
	if timeout < 0 {
		return b.RecvContext(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	msg, err := b.RecvContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrRecvTimeout
	}
	return msg, err
}

// RecvContext is Recv bounded by ctx instead of a timeout. Messages queued
// before the pump stopped are still returned.
func (b *Bus) RecvContext(ctx context.Context) (*Message, error) {
	select {
	case msg := <-b.queue:
		return msg, nil
	default:
	}
	select {
	case msg := <-b.queue:
		return msg, nil
	case <-b.done:
		select {
		case msg := <-b.queue:
			return msg, nil
		default:
			return nil, b.closedErr()
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the error that stopped the pump, if any.
func (b *Bus) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}

func (b *Bus) setErr(err error) {
	b.errMu.Lock()
	b.err = err
	b.errMu.Unlock()
}

func (b *Bus) closedErr() error {
	if err := b.Err(); err != nil {
		return err
	}
	return ErrBusClosed
}

// Stats returns the driver counters, Dropped counts messages lost to a full
// queue.
func (b *Bus) Stats() Stats {
	return b.drv.Stats()
}

// Shutdown stops the pump, waits for its current iteration and closes the
// Driver. Only the first call does anything, later calls return nil. It must
// not be called from a Handler.
func (b *Bus) Shutdown() error {
	var err error
	b.shutdownOnce.Do(func() {
		close(b.stop)
		<-b.done
		err = b.drv.Close()
	})
	return err
}
