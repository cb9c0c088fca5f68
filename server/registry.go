package server

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrAlreadyConnected = errors.New("identity already connected")
	ErrOffline          = errors.New("recipient not connected")
)

// Registry maps each authenticated identity to its live session. It is
// the only structure mutated by more than one goroutine; every access
// goes through the lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register makes the session visible to routing. Fails with
// ErrAlreadyConnected while another session holds the identity.
func (r *Registry) Register(identity string, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[identity]; ok {
		return ErrAlreadyConnected
	}
	r.sessions[identity] = sess
	connectedSessions.Inc()
	return nil
}

// Unregister removes the identity if present. Idempotent.
func (r *Registry) Unregister(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[identity]; ok {
		delete(r.sessions, identity)
		connectedSessions.Dec()
	}
}

func (r *Registry) Lookup(identity string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[identity]
	return sess, ok
}

// Snapshot returns the sessions registered at the moment of the call.
// Sessions registered or removed afterwards are not reflected.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Deliver writes one line to the recipient's session, or reports
// ErrOffline. The lookup and the write happen under the read lock, so a
// concurrent Unregister cannot complete between the online check and
// the write; a session found here is still registered when written to.
// On a write failure the recipient's session is closed and the error
// returned; the failure belongs to the recipient, not the sender.
func (r *Registry) Deliver(recipient, line string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[recipient]
	if !ok {
		return ErrOffline
	}
	if err := sess.WriteLine(line); err != nil {
		sess.Close()
		return err
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Identities returns the registered identities, sorted for stable
// stats output.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identities := make([]string, 0, len(r.sessions))
	for identity := range r.sessions {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	return identities
}
