package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Session is one live, authenticated connection. The owning goroutine
// is the only reader, but broadcasts and private deliveries mean any
// goroutine may write, so writes go through a mutex: one full line at a
// time per handle, never interleaved.
type Session struct {
	identity     string
	conn         net.Conn
	writeTimeout time.Duration

	wmu    sync.Mutex
	closed uint32
}

func newSession(conn net.Conn, writeTimeout time.Duration) *Session {
	return &Session{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (s *Session) Identity() string {
	return s.identity
}

// bind attaches the authenticated identity. Called once, by the owning
// goroutine, before the session is registered.
func (s *Session) bind(identity string) {
	s.identity = identity
}

// WriteLine sends one protocol line, newline appended, as a single
// write. Safe for concurrent use.
func (s *Session) WriteLine(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

// Close shuts the underlying connection, unblocking any in-progress
// read or write. Safe to call from any goroutine, any number of times;
// only the first call closes.
func (s *Session) Close() error {
	if atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return s.conn.Close()
	}
	return nil
}
