package quickcan

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackReadTimeout(t *testing.T) {
	l := NewLoopback(5 * time.Millisecond)
	n, err := l.Read(make([]byte, 8))
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoopbackEcho(t *testing.T) {
	l := NewLoopback(time.Second)
	n, err := l.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 8)
	n, err = l.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestLoopbackClose(t *testing.T) {
	l := NewLoopback(time.Second)
	_, err := l.Write([]byte{1})
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err = l.Write([]byte{2})
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	buf := make([]byte, 8)
	n, err := l.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = l.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBusOverLoopback(t *testing.T) {
	d, err := New(NewLoopback(5 * time.Millisecond))
	require.NoError(t, err)
	b := NewBus(d)
	defer b.Shutdown()

	require.NoError(t, b.Send(&Message{ArbitrationID: 0x1ABCDEF0, Data: []byte{0xAA, 0xAB, 0x00}, IsExtended: true}))
	msg, err := b.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1ABCDEF0), msg.ArbitrationID)
	assert.Equal(t, []byte{0xAA, 0xAB, 0x00}, msg.Data)
	assert.True(t, msg.IsExtended)
}
