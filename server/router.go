package server

import (
	"errors"
	"linechat/db"
	"linechat/protocol"
	"log"
)

// Router dispatches decoded commands from authenticated sessions:
// broadcast, live unicast, or hand-off to the offline store.
type Router struct {
	registry *Registry
	store    *db.DB
}

func NewRouter(registry *Registry, store *db.DB) *Router {
	return &Router{
		registry: registry,
		store:    store,
	}
}

// Public relays a broadcast message to every session except the sender.
func (rt *Router) Public(sender *Session, body string) {
	rt.broadcast(sender, protocol.BroadcastLine(sender.Identity(), body))
	messagesTotal.WithLabelValues("public").Inc()
}

// Announce sends a system line to every session except exclude, which
// may be nil to reach everyone registered.
func (rt *Router) Announce(exclude *Session, line string) {
	rt.broadcast(exclude, line)
}

func (rt *Router) broadcast(exclude *Session, line string) {
	for _, sess := range rt.registry.Snapshot() {
		if sess == exclude {
			continue
		}
		if err := sess.WriteLine(line); err != nil {
			// The failure belongs to this recipient alone; closing its
			// connection hands it to that session's own disconnect path
			// while the rest of the broadcast proceeds.
			log.Printf("Broadcast write to %s failed: %v", sess.Identity(), err)
			sess.Close()
		}
	}
}

// Private delivers a directed message to a live recipient, or stores it
// for the recipient's next login. A recipient with no account at all
// gets neither; the sender is told it does not exist. The deferred path
// sends no acknowledgement, matching the protocol.
func (rt *Router) Private(sender *Session, recipient, body string) {
	exists, err := rt.store.UserExists(recipient)
	if err != nil {
		log.Printf("Private message lookup for %s failed: %v", recipient, err)
		return
	}
	if !exists {
		if werr := sender.WriteLine(protocol.UserNotFoundLine(recipient)); werr != nil {
			sender.Close()
		}
		return
	}

	err = rt.registry.Deliver(recipient, protocol.PrivateLine(sender.Identity(), body))
	if err == nil {
		messagesTotal.WithLabelValues("private").Inc()
		return
	}

	if errors.Is(err, ErrOffline) {
		if serr := rt.store.EnqueueOffline(sender.Identity(), recipient, body); serr != nil {
			log.Printf("Failed to store message for offline user %s: %v", recipient, serr)
			return
		}
		messagesTotal.WithLabelValues("deferred").Inc()
		return
	}

	// Write failure to a live recipient; Deliver already closed it.
	log.Printf("Private write to %s failed: %v", recipient, err)
}
