package transport

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

var errTimeout = errors.New("i/o timeout")

// fakeNet scripts the receiver side of every socket dialed through it.
type fakeNet struct {
	mutex     sync.Mutex
	writes    [][]byte
	dials     int
	closed    int
	failPings int
	reply     string
	deadConns map[int]bool
}

func (n *fakeNet) dial(*net.UDPAddr) (Conn, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.dials++
	return &fakeConn{net: n, id: n.dials}, nil
}

type fakeConn struct {
	net      *fakeNet
	id       int
	lastPing bool
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.net.mutex.Lock()
	defer c.net.mutex.Unlock()
	c.net.writes = append(c.net.writes, bytes.Clone(b))
	c.lastPing = string(b) == CommandPing
	return len(b), nil
}

func (c *fakeConn) Read(b []byte) (int, error) {
	c.net.mutex.Lock()
	defer c.net.mutex.Unlock()
	if !c.lastPing || c.net.deadConns[c.id] {
		return 0, errTimeout
	}
	if c.net.failPings > 0 {
		c.net.failPings--
		return 0, errTimeout
	}
	reply := c.net.reply
	if reply == "" {
		reply = CommandPong
	}
	return copy(b, reply), nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.net.mutex.Lock()
	defer c.net.mutex.Unlock()
	c.net.closed++
	return nil
}

func (n *fakeNet) count(token []byte) int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	total := 0
	for _, w := range n.writes {
		if bytes.Equal(w, token) {
			total++
		}
	}
	return total
}

func newFakeSocket(t *testing.T, n *fakeNet, opts ...Option) *SocketInterface {
	t.Helper()
	s, err := NewSocketInterface("127.0.0.1:24000", append(opts, WithDialer(n.dial))...)
	require.NoError(t, err)
	return s
}

func payload(size int) []byte {
	p := make([]byte, size)
	for i := range p {
		p[i] = byte('a' + i%26)
	}
	return p
}

func TestChunks(t *testing.T) {
	require.Empty(t, Chunks(nil, ChunkSize))

	chunks := Chunks(payload(2*ChunkSize+10), ChunkSize)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], ChunkSize)
	require.Len(t, chunks[1], ChunkSize)
	require.Len(t, chunks[2], 10)

	require.Len(t, Chunks(payload(ChunkSize), ChunkSize), 1)
}

func TestForTarget(t *testing.T) {
	addr, err := ForTarget(metadata.TargetTypeBlender)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:24000", addr)

	addr, err = ForTarget(metadata.TargetTypeUnreal)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:24001", addr)

	_, err = ForTarget(metadata.TargetTypeFolder)
	require.ErrorIs(t, err, core.ErrUnknownTarget)
}

func TestSend_FramesChunksBetweenStartAndStop(t *testing.T) {
	n := &fakeNet{}
	s := newFakeSocket(t, n)

	data := payload(2*ChunkSize + 10)
	require.NoError(t, s.Send(data))

	chunks := Chunks(data, ChunkSize)
	require.Equal(t, [][]byte{
		[]byte(CommandStart),
		chunks[0], []byte(CommandPing),
		chunks[1], []byte(CommandPing),
		chunks[2], []byte(CommandPing),
		[]byte(CommandStop),
	}, n.writes)
}

func TestSend_RecoversAfterMaxRetries(t *testing.T) {
	n := &fakeNet{failPings: MaxChunkRetries}
	s := newFakeSocket(t, n)

	data := payload(ChunkSize + 1)
	require.NoError(t, s.Send(data))

	chunks := Chunks(data, ChunkSize)
	require.Equal(t, MaxChunkRetries+1, n.count(chunks[0]))
	require.Equal(t, 1, n.count(chunks[1]))
	require.Equal(t, 1, n.count([]byte(CommandStop)))
	require.Equal(t, 1+MaxChunkRetries, n.dials)
}

func TestSend_AbortsPastMaxRetries(t *testing.T) {
	n := &fakeNet{failPings: MaxChunkRetries + 1}
	s := newFakeSocket(t, n)

	data := payload(ChunkSize + 1)
	err := s.Send(data)
	require.ErrorIs(t, err, core.ErrChunkRetriesExceeded)

	chunks := Chunks(data, ChunkSize)
	require.Equal(t, MaxChunkRetries+1, n.count(chunks[0]))
	require.Zero(t, n.count(chunks[1]))
	require.Zero(t, n.count([]byte(CommandStop)))
}

func TestPing_ReplacesSocketAfterFailure(t *testing.T) {
	n := &fakeNet{deadConns: map[int]bool{1: true}}
	s := newFakeSocket(t, n)

	require.False(t, s.Ping())
	require.Equal(t, 2, n.dials)
	require.Equal(t, 1, n.closed)

	require.True(t, s.Ping())
	require.Equal(t, 2, n.dials)
}

func TestPing_RunsReceiverCommand(t *testing.T) {
	n := &fakeNet{reply: CommandInvalidArmature}
	called := 0
	s := newFakeSocket(t, n, WithCommand(CommandInvalidArmature, func() { called++ }))

	require.False(t, s.Ping())
	require.Equal(t, 1, called)
	require.Equal(t, 1, n.dials)
}

func TestNewSocketInterface_DialFailure(t *testing.T) {
	_, err := NewSocketInterface("127.0.0.1:24000", WithDialer(func(*net.UDPAddr) (Conn, error) {
		return nil, errors.New("no sockets left")
	}))
	require.Error(t, err)
}
