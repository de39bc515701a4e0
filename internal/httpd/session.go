package httpd

import (
	"bufio"
	"errors"
	"net"
	"strconv"
)

type state int

const (
	stateAccepted state = iota
	stateAwaitingData
	stateResponded
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateAccepted:
		return "accepted"
	case stateAwaitingData:
		return "awaitingData"
	case stateResponded:
		return "responded"
	case stateClosed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

var errResponded = errors.New("httpd: session already responded")

/*
accepted:
  - lowered priority, receive registered -> awaitingData

awaitingData:
  - data received -> respond -> responded
  - peer closed or read error -> closed

responded:
  - always -> closed
*/
type session struct {
	conn      net.Conn
	state     state
	responded bool
}

func newSession(conn net.Conn) *session {
	return &session{
		conn:  conn,
		state: stateAccepted,
	}
}

func (s *session) await() {
	s.state = stateAwaitingData
}

// respond writes msg and flushes it, only the first call writes anything.
func (s *session) respond(msg []byte) error {
	if s.responded || s.state != stateAwaitingData {
		return errResponded
	}
	s.responded = true
	s.state = stateResponded

	w := bufio.NewWriterSize(s.conn, len(msg))
	if _, err := w.Write(msg); err != nil {
		return err
	}

	return w.Flush()
}

// close closes the connection once, whatever state the session is in.
func (s *session) close() error {
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed

	return s.conn.Close()
}
