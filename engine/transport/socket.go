package transport

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

// Wire tokens, sent as raw ASCII datagrams.
const (
	CommandStart = "Start"
	CommandStop  = "Stop"
	CommandPing  = "Ping"
	CommandPong  = "Pong"
)

const (
	/** @brief Largest manifest slice carried by one datagram. */
	ChunkSize int = 4096
	/** @brief Failed probes tolerated for one chunk before the transfer is abandoned. */
	MaxChunkRetries int = 25

	BlenderPort  int    = 24000
	UnrealPort   int    = 24001
	LoopbackHost string = "127.0.0.1"

	DefaultReadTimeout = 2 * time.Second
)

// Commands a receiver may answer a probe with instead of Pong.
const (
	CommandInvalidArmature = "Animation_InvalidArmature"
)

/** @brief The datagram socket a SocketInterface talks through. */
type Conn interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a fresh local socket connected to endpoint.
type DialFunc func(endpoint *net.UDPAddr) (Conn, error)

func dialUDP(endpoint *net.UDPAddr) (Conn, error) {
	return net.DialUDP("udp", nil, endpoint)
}

type Option func(*SocketInterface)

// WithReadTimeout bounds how long a probe waits for its answer.
func WithReadTimeout(d time.Duration) Option {
	return func(s *SocketInterface) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithCommand runs handler when the receiver answers a probe with name.
func WithCommand(name string, handler func()) Option {
	return func(s *SocketInterface) {
		s.commands[name] = handler
	}
}

// WithDialer replaces the UDP dialer.
func WithDialer(dial DialFunc) Option {
	return func(s *SocketInterface) {
		s.dial = dial
	}
}

/**
 * @brief The sending side of the chunked acknowledged transfer to one
 * receiver. Ping and Send hold the instance for their whole duration.
 */
type SocketInterface struct {
	mutex       sync.Mutex
	endpoint    *net.UDPAddr
	conn        Conn
	dial        DialFunc
	readTimeout time.Duration
	commands    map[string]func()
}

/**
 * @brief Creates a socket interface for the receiver listening at
 * address, e.g. "127.0.0.1:24000".
 */
func NewSocketInterface(address string, opts ...Option) (*SocketInterface, error) {
	endpoint, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}

	s := &SocketInterface{
		endpoint:    endpoint,
		dial:        dialUDP,
		readTimeout: DefaultReadTimeout,
		commands:    make(map[string]func()),
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, err := s.dial(endpoint)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// ForTarget returns the loopback address of a receiver target.
func ForTarget(target metadata.TargetType) (string, error) {
	switch target {
	case metadata.TargetTypeBlender:
		return net.JoinHostPort(LoopbackHost, strconv.Itoa(BlenderPort)), nil
	case metadata.TargetTypeUnreal:
		return net.JoinHostPort(LoopbackHost, strconv.Itoa(UnrealPort)), nil
	default:
		return "", fmt.Errorf("%s has no receiver: %w", target, core.ErrUnknownTarget)
	}
}

func (s *SocketInterface) Endpoint() string {
	return s.endpoint.String()
}

/**
 * @brief Probes the receiver. Any socket failure, including a probe
 * timeout, replaces the local socket before returning false.
 */
func (s *SocketInterface) Ping() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.ping()
}

func (s *SocketInterface) ping() bool {
	if s.conn == nil && !s.reconnect() {
		return false
	}

	if err := s.write([]byte(CommandPing)); err != nil {
		return false
	}

	reply, err := s.receive()
	if err != nil {
		return false
	}

	if string(reply) == CommandPong {
		return true
	}
	if handler, ok := s.commands[string(reply)]; ok {
		handler()
	} else {
		core.LogDebug("unexpected reply %q from %s", reply, s.endpoint)
	}
	return false
}

/**
 * @brief Transfers payload: Start, every chunk in order and Stop. Each
 * chunk is resent until a probe succeeds; the transfer is abandoned once
 * one chunk saw more than MaxChunkRetries failed probes.
 */
func (s *SocketInterface) Send(payload []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.conn == nil && !s.reconnect() {
		return fmt.Errorf("%s: %w", s.endpoint, core.ErrReceiverUnreachable)
	}

	clock := core.StartClock()

	if err := s.write([]byte(CommandStart)); err != nil {
		return fmt.Errorf("%s: %w", s.endpoint, core.ErrReceiverUnreachable)
	}

	chunks := Chunks(payload, ChunkSize)
	for index, chunk := range chunks {
		s.write(chunk)

		failures := 0
		for !s.ping() {
			failures++
			if failures > MaxChunkRetries {
				return fmt.Errorf("chunk %d of %d to %s: %w", index+1, len(chunks), s.endpoint, core.ErrChunkRetriesExceeded)
			}
			core.LogWarn("Lost chunk %d to %s, retrying (%d/%d)", index+1, s.endpoint, failures, MaxChunkRetries)
			core.Metrics().ChunkRetries.Inc()
			s.write(chunk)
		}
		core.Metrics().ChunksSent.Inc()
	}

	if err := s.write([]byte(CommandStop)); err != nil {
		return fmt.Errorf("%s: %w", s.endpoint, core.ErrReceiverUnreachable)
	}

	core.LogInfo("sent %d bytes in %d chunk(s) to %s in %s", len(payload), len(chunks), s.endpoint, clock.Stop())
	return nil
}

func (s *SocketInterface) write(b []byte) error {
	if s.conn == nil && !s.reconnect() {
		return core.ErrReceiverUnreachable
	}
	if _, err := s.conn.Write(b); err != nil {
		core.LogDebug("write to %s failed: %s", s.endpoint, err.Error())
		s.reconnect()
		return err
	}
	return nil
}

func (s *SocketInterface) receive() ([]byte, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		s.reconnect()
		return nil, err
	}
	buf := make([]byte, ChunkSize)
	n, err := s.conn.Read(buf)
	if err != nil {
		core.LogDebug("read from %s failed: %s", s.endpoint, err.Error())
		s.reconnect()
		return nil, err
	}
	return buf[:n], nil
}

// reconnect drops the current socket and dials a fresh one.
func (s *SocketInterface) reconnect() bool {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	conn, err := s.dial(s.endpoint)
	if err != nil {
		core.LogWarn("cannot open socket to %s: %s", s.endpoint, err.Error())
		return false
	}
	s.conn = conn
	return true
}

func (s *SocketInterface) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Chunks splits payload into consecutive slices of at most size bytes.
// An empty payload has no chunks.
func Chunks(payload []byte, size int) [][]byte {
	var chunks [][]byte
	for len(payload) > 0 {
		n := min(size, len(payload))
		chunks = append(chunks, payload[:n])
		payload = payload[n:]
	}
	return chunks
}

// IsCommand reports whether datagram is exactly the token command.
func IsCommand(datagram []byte, command string) bool {
	return bytes.Equal(datagram, []byte(command))
}
