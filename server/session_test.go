package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Many goroutines writing to one handle must never interleave lines.
func TestWriteLineSerialized(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	sess := newSession(serverConn, 5*time.Second)

	const writers = 8
	const perWriter = 25

	lines := make(chan string, writers*perWriter)
	go func() {
		reader := bufio.NewReader(clientConn)
		for i := 0; i < writers*perWriter; i++ {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
		close(lines)
	}()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			payload := strings.Repeat(string(rune('a'+w)), 40)
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, sess.WriteLine(payload))
			}
		}(w)
	}
	wg.Wait()

	count := 0
	for line := range lines {
		line = strings.TrimSuffix(line, "\n")
		require.Len(t, line, 40)
		// A whole line is a single writer's payload, never a mix.
		assert.Equal(t, strings.Repeat(line[:1], 40), line)
		count++
	}
	assert.Equal(t, writers*perWriter, count)
}

func TestCloseIsIdempotent(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	sess := newSession(serverConn, time.Second)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	err := sess.WriteLine("after close")
	assert.Error(t, err)
}
