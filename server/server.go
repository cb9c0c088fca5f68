package server

import (
	"bufio"
	"errors"
	"io"
	"linechat/db"
	"linechat/protocol"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Server struct {
	store    *db.DB
	config   *ServerConfig
	registry *Registry
	router   *Router

	mu       sync.Mutex
	listener net.Listener
}

type ServerConfig struct {
	Port         int
	WriteTimeout time.Duration
}

func New(store *db.DB, config *ServerConfig) *Server {
	registry := NewRegistry()
	return &Server{
		store:    store,
		config:   config,
		registry: registry,
		router:   NewRouter(registry, store),
	}
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}
	defer listener.Close()

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Printf("Chat relay listening on port %d", s.config.Port)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Error accepting connection: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection runs one connection through its whole lifecycle:
// handshake, mailbox replay, message loop, disconnect. Registry cleanup
// and the departure broadcast run on every exit path once the session
// has authenticated.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	log.Printf("New client connected from %s", remoteAddr)

	sess := newSession(conn, s.config.WriteTimeout)
	defer sess.Close()

	reader := bufio.NewReader(conn)

	if !s.handshake(sess, reader) {
		log.Printf("Client disconnected from %s before login", remoteAddr)
		return
	}

	identity := sess.Identity()
	defer func() {
		s.registry.Unregister(identity)
		s.router.Announce(nil, protocol.LeftLine(identity))
		log.Printf("Client %s disconnected from %s", identity, remoteAddr)
	}()

	// Replay queued private messages before reading any further input.
	if !s.replayMailbox(sess) {
		return
	}

	s.router.Announce(sess, protocol.JoinedLine(identity))

	s.serve(sess, reader)
}

// handshake reads lines until a login succeeds or the connection dies.
// REGISTER is answered in place and does not change state; there is no
// attempt limit. Returns true once the session is bound and registered.
func (s *Server) handshake(sess *Session, reader *bufio.Reader) bool {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		cmd, err := protocol.Decode(line)
		if err != nil {
			if sess.WriteLine(protocol.UnrecognizedLine()) != nil {
				return false
			}
			continue
		}

		switch cmd.Kind {
		case protocol.KindRegister:
			s.handleRegister(sess, cmd)

		case protocol.KindLogin:
			if s.handleLogin(sess, cmd) {
				return true
			}

		default:
			// PUBLIC/PRIVATE before login get an explicit refusal
			// rather than a silent drop.
			if sess.WriteLine(protocol.LoginFailed("not logged in")) != nil {
				return false
			}
		}
	}
}

func (s *Server) handleRegister(sess *Session, cmd *protocol.Command) {
	err := s.store.RegisterUser(cmd.User, cmd.Secret)
	switch {
	case err == nil:
		sess.WriteLine(protocol.RegistrationSuccess())
	case errors.Is(err, db.ErrUserExists):
		sess.WriteLine(protocol.RegistrationFailed("Username already taken"))
	default:
		log.Printf("Register error for %s: %v", cmd.User, err)
		sess.WriteLine(protocol.RegistrationFailed("Internal error"))
	}
}

// handleLogin authenticates and, on success, claims the identity in the
// registry. A duplicate login is rejected while the first session
// lives. Returns true once the session is registered.
func (s *Server) handleLogin(sess *Session, cmd *protocol.Command) bool {
	valid, err := s.store.AuthenticateUser(cmd.User, cmd.Secret)
	if err != nil {
		log.Printf("Auth error for %s: %v", cmd.User, err)
		loginsTotal.WithLabelValues("error").Inc()
		sess.WriteLine(protocol.LoginFailed("Internal error"))
		return false
	}
	if !valid {
		loginsTotal.WithLabelValues("rejected").Inc()
		sess.WriteLine(protocol.LoginFailed("Invalid username or password"))
		return false
	}

	sess.bind(cmd.User)
	if err := s.registry.Register(cmd.User, sess); err != nil {
		sess.bind("")
		loginsTotal.WithLabelValues("duplicate").Inc()
		sess.WriteLine(protocol.LoginFailed("user already logged in"))
		return false
	}

	loginsTotal.WithLabelValues("success").Inc()
	// A failed write here surfaces on the next write and unwinds
	// through the normal disconnect path.
	sess.WriteLine(protocol.LoginSuccess())
	return true
}

// replayMailbox drains the offline store for the session's identity and
// writes each entry in FIFO order. A store failure leaves the session
// alive; a write failure ends it.
func (s *Server) replayMailbox(sess *Session) bool {
	messages, err := s.store.DrainOffline(sess.Identity())
	if err != nil {
		log.Printf("Failed to drain mailbox for %s: %v", sess.Identity(), err)
		return true
	}

	for _, m := range messages {
		if err := sess.WriteLine(protocol.ReplayLine(m.Sender, m.Body)); err != nil {
			return false
		}
		messagesTotal.WithLabelValues("replayed").Inc()
	}
	return true
}

// serve is the authenticated message loop. Malformed input is rejected
// and the loop continues; only an I/O failure ends it.
func (s *Server) serve(sess *Session, reader *bufio.Reader) {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) &&
				!strings.Contains(err.Error(), "use of closed network connection") {
				log.Printf("Error reading from %s: %v", sess.Identity(), err)
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		cmd, derr := protocol.Decode(line)
		if derr != nil {
			if sess.WriteLine(protocol.UnrecognizedLine()) != nil {
				return
			}
			continue
		}

		switch cmd.Kind {
		case protocol.KindPublic:
			s.router.Public(sess, cmd.Body)
		case protocol.KindPrivate:
			s.router.Private(sess, cmd.Recipient, cmd.Body)
		case protocol.KindLogin:
			if sess.WriteLine(protocol.LoginFailed("already logged in")) != nil {
				return
			}
		case protocol.KindRegister:
			if sess.WriteLine(protocol.RegistrationFailed("already logged in")) != nil {
				return
			}
		}
	}
}

// Shutdown stops accepting connections and closes every live session.
// Each session unwinds through its own disconnect path.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	for _, sess := range s.registry.Snapshot() {
		sess.WriteLine(protocol.ShutdownLine())
		sess.Close()
	}
}

// GetStats returns server statistics as a formatted string.
func (s *Server) GetStats() string {
	identities := s.registry.Identities()
	return "connections=" + strconv.Itoa(len(identities)) + ",users=" + strings.Join(identities, ";")
}
