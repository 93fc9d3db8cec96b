package quickcan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickcan/goquickcan/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, p *fakePort, opts ...BusOpt) *Bus {
	t.Helper()
	d, err := New(p)
	require.NoError(t, err)
	b := NewBus(d, opts...)
	t.Cleanup(func() { b.Shutdown() })
	return b
}

func TestBusRecv(t *testing.T) {
	p := newFakePort()
	b := newTestBus(t, p)

	p.push(encode(t, frame.CmdCANSend, 0x7E8, 0x03, 0x41, 0x0C))
	msg, err := b.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7E8), msg.ArbitrationID)
	assert.Equal(t, []byte{0x03, 0x41, 0x0C}, msg.Data)
	assert.False(t, msg.IsExtended)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestBusRecvTimeout(t *testing.T) {
	p := newFakePort()
	b := newTestBus(t, p)

	start := time.Now()
	_, err := b.Recv(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrRecvTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestBusRecvContext(t *testing.T) {
	p := newFakePort()
	b := newTestBus(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.RecvContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBusDropsWhenQueueFull(t *testing.T) {
	p := newFakePort()
	var warnings []string
	d, err := New(p, OptOnEvent(func(e Event) {
		if e.Type == EventTypeWarning {
			warnings = append(warnings, e.Details)
		}
	}))
	require.NoError(t, err)
	b := NewBus(d, OptQueueSize(1))
	defer b.Shutdown()

	var stream []byte
	for id := uint32(1); id <= 3; id++ {
		stream = append(stream, encode(t, frame.CmdCANSend, id, byte(id))...)
	}
	p.push(stream)

	require.Eventually(t, func() bool { return b.Stats().Dropped == 2 }, time.Second, time.Millisecond)
	msg, err := b.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), msg.ArbitrationID)

	require.NoError(t, b.Shutdown())
	assert.Len(t, warnings, 2)
}

func TestBusCommandHandler(t *testing.T) {
	p := newFakePort()
	cmds := make(chan frame.Command, 4)
	b := newTestBus(t, p, OptBusCommandHandler(func(cmd frame.Command, _ *frame.CANFrame) {
		cmds <- cmd
	}))

	p.push(encode(t, frame.CmdHeartbeat, 0, 0x01))
	select {
	case cmd := <-cmds:
		assert.Equal(t, frame.CmdHeartbeat, cmd)
	case <-time.After(time.Second):
		t.Fatal("heartbeat not delivered")
	}
	_, err := b.Recv(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrRecvTimeout, "commands must not reach the message queue")
}

func TestBusSend(t *testing.T) {
	p := newFakePort()
	b := newTestBus(t, p)

	require.NoError(t, b.Send(&Message{ArbitrationID: 0x18DAF110, Data: []byte{0x02, 0x10, 0x03}, IsExtended: true}))
	cmd, f, err := frame.Decode(p.output())
	require.NoError(t, err)
	assert.Equal(t, frame.CmdCANSend, cmd)
	assert.Equal(t, uint32(0x18DAF110), f.ID)
	assert.True(t, f.Extended)
}

// replyWith answers every packet written to the port with cmd carrying data.
func replyWith(t *testing.T, cmd frame.Command, data ...byte) func(*fakePort, []byte) {
	raw := encode(t, cmd, 0, data...)
	return func(p *fakePort, _ []byte) {
		p.push(raw)
	}
}

func TestBusRequest(t *testing.T) {
	p := newFakePort()
	p.onWrite = replyWith(t, frame.CmdDeviceInfo, []byte("1.4.2")...)
	b := newTestBus(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := b.Request(ctx, frame.CmdDeviceInfo)
	require.NoError(t, err)
	info, err := ParseDeviceInfo(f)
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", info.Firmware)
}

func TestBusRequestNack(t *testing.T) {
	p := newFakePort()
	p.onWrite = replyWith(t, frame.CmdNack)
	b := newTestBus(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := b.Request(ctx, frame.CmdConfigSet, 0x01, 0x02)
	assert.ErrorIs(t, err, ErrNack)
}

func TestBusRequestTimeout(t *testing.T) {
	p := newFakePort()
	b := newTestBus(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Request(ctx, frame.CmdPing)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBusShutdown(t *testing.T) {
	p := newFakePort()
	b := newTestBus(t, p)

	require.NoError(t, b.Shutdown())
	require.NoError(t, b.Shutdown())
	assert.Equal(t, 1, p.closeCount())
	assert.NoError(t, b.Err())

	_, err := b.Recv(-1)
	assert.ErrorIs(t, err, ErrBusClosed)
	assert.ErrorIs(t, b.Send(&Message{ArbitrationID: 1}), ErrClosed)
}

func TestBusStopsOnTransportEOF(t *testing.T) {
	p := newFakePort()
	p.push(encode(t, frame.CmdCANSend, 0x100, 0xFF))
	p.setEOF()
	b := newTestBus(t, p)

	msg, err := b.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100), msg.ArbitrationID)

	require.Eventually(t, func() bool { return b.Err() != nil }, time.Second, time.Millisecond)
	assert.ErrorIs(t, b.Err(), ErrTransportRead)

	_, err = b.Recv(-1)
	assert.True(t, errors.Is(err, ErrTransportRead))
	assert.NoError(t, b.Shutdown())
}

func TestBusOwnsDriverHandler(t *testing.T) {
	p := newFakePort()
	d, err := New(p)
	require.NoError(t, err)
	require.NoError(t, d.SetHandler(nil))

	b := NewBus(d)
	defer b.Shutdown()
	assert.ErrorIs(t, d.SetHandler(func(frame.Command, *frame.CANFrame) {}), ErrHandlerOwned)

	p.push(encode(t, frame.CmdCANSend, 0x321, 0x01))
	msg, err := b.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x321), msg.ArbitrationID)
}
