package osc

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default tunables for the UDP listener.
const (
	// defaultReadTimeout bounds each blocking read so shutdown is prompt.
	defaultReadTimeout = 1 * time.Second

	// readBufferSize is the size of the datagram read buffer. OSC control
	// messages are tiny; anything larger than this is garbage.
	readBufferSize = 1536

	// callbackQueueSize is the buffer size for the message callback queue.
	callbackQueueSize = 100

	// callbackWorkerCount is the number of concurrent callback workers.
	callbackWorkerCount = 4
)

// ServerConfig holds UDP listener configuration.
type ServerConfig struct {
	// Host is the local bind address. Empty binds all interfaces.
	Host string

	// Port is the local UDP port to listen on.
	Port int

	// ReadTimeout bounds individual read operations.
	// Default: 1 second.
	ReadTimeout time.Duration
}

// ServerStats holds operational statistics.
type ServerStats struct {
	PacketsRx      uint64
	PacketsTx      uint64
	PacketsDropped uint64 // Packets dropped due to full callback queue
	DecodeErrors   uint64 // Datagrams that failed OSC decoding
	ErrorsTotal    uint64
	LastActivity   time.Time
	Listening      bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Transport is the outbound half of the server, split out so the bridge
// can be tested against a capture implementation.
type Transport interface {
	Send(m Message, addr *net.UDPAddr) error
}

// Ensure Server implements Transport.
var _ Transport = (*Server)(nil)

// inbound pairs a decoded message with its sender for the worker pool.
type inbound struct {
	msg    Message
	sender *net.UDPAddr
}

// Server is the UDP endpoint for OSC control traffic.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Message callbacks run on a bounded worker pool.
//
// The receive loop never stops on a bad datagram: decode failures are
// counted and dropped so one malformed packet cannot wedge the socket.
type Server struct {
	cfg  ServerConfig
	conn *net.UDPConn

	// Message handler callback
	onMessage  func(Message, *net.UDPAddr)
	callbackMu sync.RWMutex

	// Callback worker pool (bounded goroutine spawning)
	callbackQueue chan inbound

	// Shutdown coordination (closeOnce prevents double-close panics)
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	packetsRx      atomic.Uint64
	packetsTx      atomic.Uint64
	packetsDropped atomic.Uint64
	decodeErrors   atomic.Uint64
	errorsTotal    atomic.Uint64
	lastActivity   atomic.Int64 // Unix timestamp
}

// Listen binds the UDP socket and starts the receive loop and callback
// workers. A bind failure is fatal; callers should abort startup.
func Listen(cfg ServerConfig) (*Server, error) {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s:%d: %w", ErrListenFailed, cfg.Host, cfg.Port, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: bind %s: %w", ErrListenFailed, addr, err)
	}

	s := &Server{
		cfg:           cfg,
		conn:          conn,
		done:          newCloseOnce(),
		callbackQueue: make(chan inbound, callbackQueueSize),
	}
	s.lastActivity.Store(time.Now().Unix())

	for i := 0; i < callbackWorkerCount; i++ {
		s.wg.Add(1)
		go s.callbackWorker()
	}

	s.wg.Add(1)
	go s.receiveLoop()

	return s, nil
}

// LocalAddr returns the bound local address.
func (s *Server) LocalAddr() *net.UDPAddr {
	addr, _ := s.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// receiveLoop continuously reads datagrams from the socket. Decode
// failures and timeouts are recoverable; a closed socket ends the loop.
func (s *Server) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, readBufferSize)

	for {
		select {
		case <-s.done.Done():
			return
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			s.logError("set read deadline failed", err)
			return
		}

		n, sender, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if s.isClosed() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue // Deadline lapse is the normal idle path
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logError("read failed", err)
			s.errorsTotal.Add(1)
			continue
		}

		s.packetsRx.Add(1)
		s.lastActivity.Store(time.Now().Unix())

		msg, err := Decode(buf[:n])
		if err != nil {
			s.logDebug("dropping undecodable datagram", "sender", sender.String(), "error", err)
			s.decodeErrors.Add(1)
			s.errorsTotal.Add(1)
			continue
		}

		s.dispatch(msg, sender)
	}
}

// dispatch queues a decoded message for the worker pool, dropping on
// overflow so a slow handler cannot back-pressure the socket.
func (s *Server) dispatch(msg Message, sender *net.UDPAddr) {
	s.callbackMu.RLock()
	hasCallback := s.onMessage != nil
	s.callbackMu.RUnlock()

	if !hasCallback {
		return
	}

	select {
	case s.callbackQueue <- inbound{msg: msg, sender: sender}:
	default:
		s.logError("callback queue full, dropping message", nil)
		s.packetsDropped.Add(1)
		s.errorsTotal.Add(1)
	}
}

// callbackWorker processes messages from the callback queue.
// Runs in a bounded worker pool to prevent goroutine explosion.
func (s *Server) callbackWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done.Done():
			s.drainCallbackQueue()
			return
		case in := <-s.callbackQueue:
			s.callbackMu.RLock()
			callback := s.onMessage
			s.callbackMu.RUnlock()

			if callback != nil {
				func() {
					defer func() {
						if r := recover(); r != nil {
							s.logError("message callback panic", fmt.Errorf("%v", r))
						}
					}()
					callback(in.msg, in.sender)
				}()
			}
		}
	}
}

// drainCallbackQueue discards any remaining items from the callback queue.
// Called during shutdown to prevent goroutines from blocking on send.
func (s *Server) drainCallbackQueue() {
	for {
		select {
		case <-s.callbackQueue:
		default:
			return
		}
	}
}

// isClosed returns true if the server has been closed.
func (s *Server) isClosed() bool {
	select {
	case <-s.done.Done():
		return true
	default:
		return false
	}
}

// Close stops the receive loop, releases the socket, and waits for the
// workers to drain. Safe to call multiple times.
func (s *Server) Close() error {
	s.done.Close()

	if s.conn != nil {
		s.conn.Close()
	}

	s.wg.Wait()

	s.logInfo("listener closed")
	return nil
}

// Send encodes and transmits a message to the given address.
func (s *Server) Send(m Message, addr *net.UDPAddr) error {
	if s.isClosed() {
		return ErrServerClosed
	}
	if addr == nil {
		return ErrNotBound
	}

	buf, err := Encode(m)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	if _, err := s.conn.WriteToUDP(buf, addr); err != nil {
		s.errorsTotal.Add(1)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	s.packetsTx.Add(1)
	s.lastActivity.Store(time.Now().Unix())

	return nil
}

// SetOnMessage sets the callback for received messages.
//
// The callback is invoked from a bounded worker pool. Panics in the
// callback are recovered and logged.
func (s *Server) SetOnMessage(callback func(Message, *net.UDPAddr)) {
	s.callbackMu.Lock()
	s.onMessage = callback
	s.callbackMu.Unlock()
}

// SetLogger sets the logger for this server.
func (s *Server) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// Stats returns current operational statistics.
func (s *Server) Stats() ServerStats {
	return ServerStats{
		PacketsRx:      s.packetsRx.Load(),
		PacketsTx:      s.packetsTx.Load(),
		PacketsDropped: s.packetsDropped.Load(),
		DecodeErrors:   s.decodeErrors.Load(),
		ErrorsTotal:    s.errorsTotal.Load(),
		LastActivity:   time.Unix(s.lastActivity.Load(), 0),
		Listening:      !s.isClosed(),
	}
}

// logInfo logs an info message if logger is set.
func (s *Server) logInfo(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logDebug logs a debug message if logger is set.
func (s *Server) logDebug(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (s *Server) logError(msg string, err error) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
