package server

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryConcurrentFinalState(t *testing.T) {
	registry := NewRegistry()

	// Even identities register and stay; odd identities register then
	// unregister. All of it runs concurrently.
	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity := fmt.Sprintf("user%03d", i)
			assert.NoError(t, registry.Register(identity, newSession(nil, 0)))
			if i%2 == 1 {
				registry.Unregister(identity)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n/2, registry.Len())
	for i := 0; i < n; i++ {
		identity := fmt.Sprintf("user%03d", i)
		_, ok := registry.Lookup(identity)
		assert.Equal(t, i%2 == 0, ok, identity)
	}
}

func TestRegistryRejectsDuplicateIdentity(t *testing.T) {
	registry := NewRegistry()
	first := newSession(nil, 0)

	require.NoError(t, registry.Register("alice", first))
	err := registry.Register("alice", newSession(nil, 0))
	assert.ErrorIs(t, err, ErrAlreadyConnected)

	// The first session still holds the identity.
	got, ok := registry.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register("alice", newSession(nil, 0)))
	registry.Unregister("alice")
	registry.Unregister("alice")
	registry.Unregister("never-registered")

	assert.Equal(t, 0, registry.Len())
}

func TestRegistrySnapshotReflectsCallMoment(t *testing.T) {
	registry := NewRegistry()
	alice := newSession(nil, 0)
	bob := newSession(nil, 0)

	require.NoError(t, registry.Register("alice", alice))
	require.NoError(t, registry.Register("bob", bob))

	snapshot := registry.Snapshot()
	assert.Len(t, snapshot, 2)

	registry.Unregister("bob")
	assert.Len(t, registry.Snapshot(), 1)
	assert.Same(t, alice, registry.Snapshot()[0])
}

func TestRegistryDeliverOffline(t *testing.T) {
	registry := NewRegistry()
	err := registry.Deliver("alice", "hello")
	assert.ErrorIs(t, err, ErrOffline)
}

func TestRegistryDeliverWritesLine(t *testing.T) {
	registry := NewRegistry()
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	sess := newSession(serverConn, time.Second)
	sess.bind("alice")
	require.NoError(t, registry.Register("alice", sess))

	done := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(clientConn).ReadString('\n')
		if err != nil {
			done <- "read error: " + err.Error()
			return
		}
		done <- line
	}()

	require.NoError(t, registry.Deliver("alice", "PRIVATE bob: hi there"))
	assert.Equal(t, "PRIVATE bob: hi there\n", <-done)
}

func TestRegistryDeliverClosesOnWriteFailure(t *testing.T) {
	registry := NewRegistry()
	serverConn, clientConn := net.Pipe()
	clientConn.Close()
	serverConn.Close()

	sess := newSession(serverConn, time.Second)
	sess.bind("alice")
	require.NoError(t, registry.Register("alice", sess))

	err := registry.Deliver("alice", "hello")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrOffline)
}
