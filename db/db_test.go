package db

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	tmpfile, err := os.CreateTemp("", "test-*.db")
	require.NoError(t, err)
	tmpfile.Close()
	os.Remove(tmpfile.Name()) // SQLite recreates it

	database, err := New(tmpfile.Name())
	require.NoError(t, err)

	t.Cleanup(func() {
		database.Close()
		os.Remove(tmpfile.Name())
	})

	return database
}

func TestRegisterAndAuthenticate(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.RegisterUser("alice", "password123"))

	err := database.RegisterUser("alice", "otherpassword")
	assert.ErrorIs(t, err, ErrUserExists)

	ok, err := database.AuthenticateUser("alice", "password123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = database.AuthenticateUser("alice", "wrongpassword")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = database.AuthenticateUser("nobody", "password123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserExists(t *testing.T) {
	database := setupTestDB(t)

	exists, err := database.UserExists("alice")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, database.RegisterUser("alice", "password123"))

	exists, err = database.UserExists("alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMailboxFIFOAndDrainOnce(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.EnqueueOffline("bob", "alice", "first"))
	require.NoError(t, database.EnqueueOffline("carol", "alice", "second"))
	require.NoError(t, database.EnqueueOffline("bob", "alice", "third"))
	require.NoError(t, database.EnqueueOffline("bob", "dave", "for someone else"))

	count, err := database.PendingCount("alice")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	messages, err := database.DrainOffline("alice")
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "bob", messages[0].Sender)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "carol", messages[1].Sender)
	assert.Equal(t, "second", messages[1].Body)
	assert.Equal(t, "third", messages[2].Body)

	// Drained means deleted: a second drain finds nothing.
	messages, err = database.DrainOffline("alice")
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Other recipients' mail is untouched.
	count, err = database.PendingCount("dave")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDrainEmptyMailbox(t *testing.T) {
	database := setupTestDB(t)

	messages, err := database.DrainOffline("alice")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
