package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/spaghettifunk/anima/engine/containers"
	"github.com/spaghettifunk/anima/engine/core"
)

const (
	// DefaultBacklog is how many completed payloads a receiver keeps unread.
	DefaultBacklog = 16

	maxDatagramSize = 64 * 1024
)

/**
 * @brief A receiver for the chunked transfer: it answers pings, frames
 * the datagrams between Start and Stop and queues every completed
 * payload. Used by the receive command and tests.
 */
type Receiver struct {
	conn  *net.UDPConn
	queue *containers.RingQueue[[]byte]
	ready chan struct{}

	mutex     sync.Mutex
	buffer    bytes.Buffer
	receiving bool

	// Reply, when set, answers the nth ping instead of Pong. Returning nil
	// drops the ping.
	Reply func(ping int) []byte
	pings int

	done      chan struct{}
	closeOnce sync.Once
}

// NewReceiver listens on address, e.g. "127.0.0.1:24000" or "127.0.0.1:0".
func NewReceiver(address string, backlog int) (*Receiver, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Receiver{
		conn:  conn,
		queue: containers.NewRingQueue[[]byte](backlog),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}, nil
}

func (r *Receiver) Addr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

/**
 * @brief Handles datagrams until ctx is done or the receiver is closed.
 */
func (r *Receiver) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			r.conn.Close()
		case <-r.done:
		}
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		r.handle(buf[:n], from)
	}
}

func (r *Receiver) handle(datagram []byte, from *net.UDPAddr) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	switch {
	case IsCommand(datagram, CommandPing):
		r.pings++
		reply := []byte(CommandPong)
		if r.Reply != nil {
			reply = r.Reply(r.pings)
		}
		if reply == nil {
			return
		}
		if _, err := r.conn.WriteToUDP(reply, from); err != nil {
			core.LogWarn("cannot answer ping from %s: %s", from, err.Error())
		}
	case IsCommand(datagram, CommandStart):
		r.buffer.Reset()
		r.receiving = true
	case IsCommand(datagram, CommandStop):
		if !r.receiving {
			return
		}
		r.receiving = false
		payload := bytes.Clone(r.buffer.Bytes())
		r.buffer.Reset()
		r.publish(payload)
	default:
		if !r.receiving {
			core.LogDebug("dropping %d byte datagram from %s outside a transfer", len(datagram), from)
			return
		}
		r.buffer.Write(datagram)
	}
}

// publish queues payload, evicting the oldest unread one when full.
func (r *Receiver) publish(payload []byte) {
	if err := r.queue.Enqueue(payload); errors.Is(err, core.ErrQueueFull) {
		r.queue.Dequeue()
		core.Metrics().PayloadsDropped.Inc()
		core.LogWarn("receiver backlog full, dropping the oldest payload")
		r.queue.Enqueue(payload)
	}
	core.Metrics().PayloadsReceived.Inc()
	core.LogInfo("received %d byte payload", len(payload))
	select {
	case r.ready <- struct{}{}:
	default:
	}
}

// Next returns the oldest completed payload, waiting for one if needed.
func (r *Receiver) Next(ctx context.Context) ([]byte, error) {
	for {
		if payload, err := r.queue.Dequeue(); err == nil {
			return payload, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.ready:
		}
	}
}

// Close stops Serve. Safe to call more than once.
func (r *Receiver) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.conn.Close()
	})
	return err
}
