// httpd serves a one line status page: every connection gets exactly one
// plaintext response to whatever it sends first, then it is closed.
package httpd

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/pico-demo/internal/config"
	"code.sztanpet.net/zvpsz/pico-demo/internal/status"
	"github.com/juju/loggo"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/net/netutil"
)

var logger = loggo.GetLogger("pico.httpd")

// lowPriorityTOS is the CS1 (scavenger) class.
const lowPriorityTOS = 0x20

const recvSize = 1460

const maxAcceptDelay = time.Second

// Output is the auxiliary LED.
type Output interface {
	Set(on bool) error
}

type Server struct {
	addr        string
	product     string
	maxSessions int
	capacity    int
	status      *status.Tracker
	led         Output

	// response logic runs for one session at a time
	respondMu sync.Mutex

	mu       sync.Mutex
	debug    bool
	disabled bool
	sessions map[*session]struct{}
}

// New creates the responder, led may be nil when there is no pin to drive.
func New(cfg *config.Config, st *status.Tracker, led Output) *Server {
	return &Server{
		addr:        cfg.HTTPAddr,
		product:     cfg.Product,
		maxSessions: cfg.MaxSessions,
		capacity:    ResponseCapacity,
		status:      st,
		led:         led,
		sessions:    map[*session]struct{}{},
	}
}

// SetDebug toggles per request logging.
func (s *Server) SetDebug(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debug = on
	if on {
		logger.SetLogLevel(loggo.DEBUG)
	} else {
		logger.SetLogLevel(loggo.UNSPECIFIED)
	}
}

func (s *Server) Debug() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debug
}

// SetLED switches the auxiliary LED, the next status page reflects it
// even when driving the pin fails.
func (s *Server) SetLED(on bool) error {
	s.status.SetLED(on)
	if s.led == nil {
		return nil
	}

	return s.led.Set(on)
}

func (s *Server) LED() bool {
	return s.status.LED()
}

// Disabled reports whether listening failed and no connections are accepted.
func (s *Server) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// ListenAndServe listens on the configured address until ctx is cancelled.
// When the address cannot be bound the responder disables itself and returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		logger.Warningf("could not listen on %v, status page disabled: %v", s.addr, err)
		s.mu.Lock()
		s.disabled = true
		s.mu.Unlock()
		return nil
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, at most maxSessions
// connections are open at the same time.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ln = netutil.LimitListener(ln, s.maxSessions)
	logger.Infof("serving HTTP on %v", ln.Addr())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer s.closeSessions()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// back off like net/http does, e.g. when out of file descriptors
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			logger.Warningf("accept error: %v; retrying in %v", err, delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		// tracked before the goroutine starts so shutdown can always reach it
		sess := newSession(conn)
		s.track(sess, true)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.track(sess, false)
			s.serve(sess)
		}()
	}
}

func (s *Server) serve(sess *session) {
	conn := sess.conn
	lowPriority(conn)
	sess.await()

	buf := make([]byte, recvSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			// the request itself is never looked at
			s.respond(sess)
			break
		}
		if err != nil {
			if err != io.EOF {
				logger.Debugf("read from %v failed: %v", conn.RemoteAddr(), err)
			}
			break
		}
	}

	if err := sess.close(); err != nil {
		logger.Debugf("closing %v: %v", conn.RemoteAddr(), err)
	}
}

func (s *Server) respond(sess *session) {
	s.respondMu.Lock()
	defer s.respondMu.Unlock()

	snap := s.status.Snapshot()
	msg, truncated := composeResponse(statusBody(s.product, snap), s.capacity)
	if truncated {
		logger.Tracef("response truncated to %d bytes", len(msg))
	}

	if err := sess.respond(msg); err != nil {
		logger.Debugf("writing response to %v failed: %v", sess.conn.RemoteAddr(), err)
		return
	}

	if s.Debug() {
		logger.Debugf("%v: LED=%v Uptime=%ds", sess.conn.RemoteAddr(), snap.LED, snap.Uptime)
	}
}

func (s *Server) track(sess *session, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if open {
		s.sessions[sess] = struct{}{}
	} else {
		delete(s.sessions, sess)
	}
}

// closeSessions unblocks sessions still waiting for data on shutdown,
// each session then closes its own connection.
func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for sess := range s.sessions {
		_ = sess.conn.SetReadDeadline(now)
	}
}

func lowPriority(conn net.Conn) {
	var err error
	if a, ok := conn.RemoteAddr().(*net.TCPAddr); ok && a.IP.To4() == nil {
		err = ipv6.NewConn(conn).SetTrafficClass(lowPriorityTOS)
	} else {
		err = ipv4.NewConn(conn).SetTOS(lowPriorityTOS)
	}

	if err != nil {
		logger.Tracef("could not lower the priority of %v: %v", conn.RemoteAddr(), err)
	}
}
