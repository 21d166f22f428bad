package osc

import (
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// SessionConfig holds the client-binding policy.
type SessionConfig struct {
	// ClientHost optionally pins the reply address. When set, replies
	// always target this host and the sender address is ignored.
	ClientHost string

	// ClientPort is the port replies are sent to. The sender's source
	// port is never used; control-surface clients listen on a fixed port.
	ClientPort int
}

// Session owns the single client binding: the reply address, the
// bound/unbound state, and the pending-resync flag.
//
// The session is created unbound and is never destroyed, only rebound.
// All methods are safe for concurrent use; the receive path binds while
// the tick path reads the remote address and consumes the resync flag.
type Session struct {
	cfg SessionConfig

	mu            sync.Mutex
	id            string
	remote        *net.UDPAddr
	resyncPending bool
}

// NewSession creates an unbound session.
func NewSession(cfg SessionConfig) *Session {
	return &Session{cfg: cfg}
}

// Observe records an inbound sender. An unbound session binds to the
// sender (honouring a configured host override) and schedules a full
// resync; a bound session observing a different sender rebinds the
// address in place. Returns true when this call performed the initial
// binding.
func (s *Session) Observe(sender *net.UDPAddr) bool {
	if sender == nil {
		return false
	}

	host := sender.IP.String()
	if s.cfg.ClientHost != "" {
		host = s.cfg.ClientHost
	}
	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(s.cfg.ClientPort)))
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id == "" {
		s.id = uuid.NewString()
		s.remote = remote
		s.resyncPending = true
		return true
	}

	s.remote = remote
	return false
}

// Bound reports whether a client is bound.
func (s *Session) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id != ""
}

// ID returns the session identifier, empty while unbound.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Remote returns the bound reply address.
func (s *Session) Remote() (*net.UDPAddr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote == nil {
		return nil, false
	}
	return s.remote, true
}

// RequestResync schedules a full state broadcast on the next tick.
// Requesting twice before a tick is the same as requesting once.
func (s *Session) RequestResync() {
	s.mu.Lock()
	s.resyncPending = true
	s.mu.Unlock()
}

// ResyncPending reports whether a full broadcast is scheduled.
func (s *Session) ResyncPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resyncPending
}

// ConsumeResync atomically claims the pending resync. The flag is
// cleared on consumption so each request produces exactly one broadcast.
func (s *Session) ConsumeResync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.resyncPending
	s.resyncPending = false
	return pending
}
